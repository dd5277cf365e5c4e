package voxel

import "fmt"

// ParseError reports why a Parser could not produce a Grid. Reason is a
// human-readable category (e.g. "header not found") suitable for surfacing
// to API clients and logs.
type ParseError struct {
	Reason string
	Cause  error
}

func (e *ParseError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Reason, e.Cause)
	}
	return e.Reason
}

func (e *ParseError) Unwrap() error { return e.Cause }

// NewParseError builds a ParseError with no wrapped cause.
func NewParseError(reason string) *ParseError {
	return &ParseError{Reason: reason}
}

// WrapParseError builds a ParseError wrapping an underlying cause.
func WrapParseError(reason string, cause error) *ParseError {
	return &ParseError{Reason: reason, Cause: cause}
}

// Parser is the capability a file format dialect implements to become
// available through the registry. Concrete variants are keyed by file
// extension in the Registry, not here — a Parser itself is extension-
// agnostic.
type Parser interface {
	// Probe executes only the cheap header/shape-line steps of the format
	// and returns the grid's Shape without tokenizing the data region. It
	// exists so a caller can learn data_length without paying the cost of
	// the full parse, letting a preprocess request return before the body
	// finishes.
	Probe(raw []byte) (Shape, error)

	// Parse performs the full parse: header, shape line, and every data
	// token, returning a complete Grid or a ParseError.
	Parse(path string, raw []byte) (*Grid, error)
}
