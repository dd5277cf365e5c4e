// Package voxel defines the core data model and parser capability for
// three-dimensional scalar fields. It is deliberately free of HTTP,
// storage, and task-lifecycle concerns so that a third-party process
// embedding this module can implement and register its own dialect's
// Parser without depending on server internals.
package voxel

import "fmt"

// Shape is the triple of positive dimensions (nx, ny, nz) of a Grid.
type Shape [3]int

// NX, NY, NZ name the axes for readability at call sites.
func (s Shape) NX() int { return s[0] }
func (s Shape) NY() int { return s[1] }
func (s Shape) NZ() int { return s[2] }

// Len returns nx*ny*nz, the required length of a Grid's flat data.
func (s Shape) Len() int { return s[0] * s[1] * s[2] }

// Grid is an immutable three-dimensional scalar field: a shape and a flat,
// row-major array of 64-bit floats. Index (i, j, k) maps to the flat offset
// i + nx*(j + ny*k) — the fastest-varying axis is the first, matching how
// the source text formats write values.
//
// A Grid is constructed once by a Parser and never mutated afterward; it
// may be shared across goroutines without locking.
type Grid struct {
	shape Shape
	data  []float64
}

// NewGrid constructs a Grid, checking that len(data) == shape.Len() and
// that the shape is non-degenerate.
func NewGrid(shape Shape, data []float64) (*Grid, error) {
	if shape[0] <= 0 || shape[1] <= 0 || shape[2] <= 0 {
		return nil, fmt.Errorf("voxel: shape dimensions must be positive, got %v", shape)
	}
	const maxInt = int(^uint(0) >> 1)
	if shape[1] > maxInt/shape[0] || shape[2] > maxInt/(shape[0]*shape[1]) {
		return nil, fmt.Errorf("voxel: shape %v produces zero or overflowing element count", shape)
	}
	want := shape.Len()
	if len(data) != want {
		return nil, fmt.Errorf("voxel: data length %d does not match shape %v (want %d)", len(data), shape, want)
	}
	return &Grid{shape: shape, data: data}, nil
}

// Shape returns the grid's dimensions.
func (g *Grid) Shape() Shape { return g.shape }

// Len returns the total number of scalar elements, equal to Shape().Len().
func (g *Grid) Len() int { return len(g.data) }

// View returns a read-only slice over the half-open element range
// [start, end) of the flat data. The caller must not mutate it; it
// aliases the grid's backing array.
func (g *Grid) View(start, end int) ([]float64, error) {
	if start < 0 || end > len(g.data) || start > end {
		return nil, fmt.Errorf("voxel: invalid view range [%d, %d) over length %d", start, end, len(g.data))
	}
	return g.data[start:end], nil
}

// At returns the scalar at grid coordinate (i, j, k).
func (g *Grid) At(i, j, k int) float64 {
	nx, ny := g.shape[0], g.shape[1]
	return g.data[i+nx*(j+ny*k)]
}
