// Package parser holds the registry mapping file extensions to voxel.Parser
// implementations. The registry itself is format-agnostic; concrete
// dialects (such as vasp.Parser) are registered by callers.
package parser

import (
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/tenzoki/voxelgrid/public/voxel"
)

// Registry maps a lowercase file extension (without the leading dot) to
// the voxel.Parser responsible for it.
type Registry struct {
	mu      sync.RWMutex
	parsers map[string]voxel.Parser
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{parsers: make(map[string]voxel.Parser)}
}

// Register associates a parser with a lowercase extension (without dot).
// A later call for the same extension replaces the earlier one.
func (r *Registry) Register(extension string, p voxel.Parser) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.parsers[strings.ToLower(extension)] = p
}

// ParserFor extracts the lowercased extension after the last dot in
// filename and returns the associated parser, or nil if none is
// registered. A filename with no extension returns nil.
func (r *Registry) ParserFor(filename string) voxel.Parser {
	ext := extensionOf(filename)
	if ext == "" {
		return nil
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.parsers[ext]
}

// SupportedExtensions returns a stably ordered list of registered
// extensions, suitable for inclusion in API responses.
func (r *Registry) SupportedExtensions() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	exts := make([]string, 0, len(r.parsers))
	for ext := range r.parsers {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}

// extensionOf returns the lowercased extension of filename without its
// leading dot, or "" if filename has no extension.
func extensionOf(filename string) string {
	ext := filepath.Ext(filename)
	if ext == "" || ext == "." {
		return ""
	}
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}
