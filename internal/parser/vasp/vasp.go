// Package vasp implements the charge-density grid text format: a header
// terminated by a blank line, a shape line of three positive integers, and
// a whitespace-delimited stream of floating point values.
package vasp

import (
	"bytes"
	"strconv"
	"strings"

	"github.com/tenzoki/voxelgrid/public/voxel"
)

// Parser implements voxel.Parser for the VASP-style charge-density format.
type Parser struct{}

// New returns a ready-to-register VASP parser.
func New() *Parser { return &Parser{} }

// Probe executes steps 1-2 of the format only: skip the header, read the
// shape line. It never tokenizes the data region.
func (p *Parser) Probe(raw []byte) (voxel.Shape, error) {
	sc := newLineScanner(raw)

	if err := skipHeader(sc); err != nil {
		return voxel.Shape{}, err
	}

	shape, err := readShapeLine(sc)
	if err != nil {
		return voxel.Shape{}, err
	}
	return shape, nil
}

// Parse performs the full parse: header, shape line, then exactly
// nx*ny*nz float tokens. Trailing tokens after the grid are ignored.
func (p *Parser) Parse(path string, raw []byte) (*voxel.Grid, error) {
	sc := newLineScanner(raw)

	if err := skipHeader(sc); err != nil {
		return nil, err
	}

	shape, err := readShapeLine(sc)
	if err != nil {
		return nil, err
	}

	want := shape.Len()
	data := make([]float64, 0, want)

	tok := newTokenScanner(sc.Remainder())
	for len(data) < want {
		s, ok := tok.Next()
		if !ok {
			return nil, voxel.NewParseError("premature end of input: short data")
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, voxel.WrapParseError("non-numeric token in data region", err)
		}
		data = append(data, v)
	}

	grid, err := voxel.NewGrid(shape, data)
	if err != nil {
		return nil, voxel.WrapParseError("invalid grid", err)
	}
	return grid, nil
}

// lineScanner walks raw input line by line, tracking the exact byte offset
// of unconsumed input so the remainder (for tokenized data reading) can be
// recovered without re-scanning from the start. It splits on '\n' and
// trims a trailing '\r', so both LF and CRLF line endings are handled
// precisely — unlike computing an offset from bufio.Scanner's returned
// line length, which would undercount CRLF terminators by one byte.
type lineScanner struct {
	raw []byte
	pos int
}

func newLineScanner(raw []byte) *lineScanner {
	return &lineScanner{raw: raw}
}

// Next returns the next line (without its terminator) and advances past
// it. Returns false once all input has been consumed.
func (s *lineScanner) Next() (string, bool) {
	if s.pos >= len(s.raw) {
		return "", false
	}
	rest := s.raw[s.pos:]
	idx := bytes.IndexByte(rest, '\n')
	var line []byte
	if idx < 0 {
		line = rest
		s.pos = len(s.raw)
	} else {
		line = rest[:idx]
		s.pos += idx + 1
	}
	line = bytes.TrimSuffix(line, []byte{'\r'})
	return string(line), true
}

// Remainder returns the bytes not yet consumed by Next.
func (s *lineScanner) Remainder() []byte {
	if s.pos >= len(s.raw) {
		return nil
	}
	return s.raw[s.pos:]
}

func isBlank(line string) bool {
	return strings.TrimSpace(line) == ""
}

// skipHeader advances past lines until an empty line (zero non-whitespace
// characters) is found. Fails if the stream ends first.
func skipHeader(sc *lineScanner) error {
	for {
		line, ok := sc.Next()
		if !ok {
			return voxel.NewParseError("header not found: stream ended before blank line")
		}
		if isBlank(line) {
			return nil
		}
	}
}

// readShapeLine reads the next non-empty line and tokenizes it into
// exactly three positive integers nx ny nz.
func readShapeLine(sc *lineScanner) (voxel.Shape, error) {
	var line string
	for {
		l, ok := sc.Next()
		if !ok {
			return voxel.Shape{}, voxel.NewParseError("bad shape: stream ended before shape line")
		}
		if !isBlank(l) {
			line = l
			break
		}
	}

	fields := strings.Fields(line)
	if len(fields) != 3 {
		return voxel.Shape{}, voxel.NewParseError("bad shape: expected exactly three integers on shape line")
	}

	var dims [3]int
	for i, f := range fields {
		n, err := strconv.Atoi(f)
		if err != nil || n <= 0 {
			return voxel.Shape{}, voxel.NewParseError("bad shape: dimensions must be positive integers")
		}
		dims[i] = n
	}

	const maxInt = int(^uint(0) >> 1)
	if dims[1] > maxInt/dims[0] || dims[2] > maxInt/(dims[0]*dims[1]) {
		return voxel.Shape{}, voxel.NewParseError("bad shape: zero or overflowing element count")
	}
	return voxel.Shape(dims), nil
}

// tokenScanner yields whitespace-delimited tokens (including across
// newlines) from a byte slice without allocating a string per rune.
type tokenScanner struct {
	data []byte
	pos  int
}

func newTokenScanner(data []byte) *tokenScanner {
	return &tokenScanner{data: data}
}

func (t *tokenScanner) Next() (string, bool) {
	n := len(t.data)
	for t.pos < n && isSpace(t.data[t.pos]) {
		t.pos++
	}
	if t.pos >= n {
		return "", false
	}
	start := t.pos
	for t.pos < n && !isSpace(t.data[t.pos]) {
		t.pos++
	}
	return string(t.data[start:t.pos]), true
}

func isSpace(b byte) bool {
	switch b {
	case ' ', '\t', '\n', '\r', '\v', '\f':
		return true
	default:
		return false
	}
}
