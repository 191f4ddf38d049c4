// Package grid implements the bounded coordinate domain for the warehouse,
// per spec.md §3 and §4.1. It is a pure value type package: no component
// state, no mutation, no third-party dependency — a 2D bounded integer
// lattice is adequately expressed with a struct and arithmetic, and no
// library in the retrieved example pack models one any better.
package grid

import "fmt"

// Bounds of the warehouse, per spec.md §6's "warehouse" config section
// defaults. The Config Registry may override these at construction time;
// the Grid type below carries whatever bounds it was built with.
const (
	DefaultWidth  = 25 // aisles, 1-based
	DefaultHeight = 20 // racks, 1-based
)

// Coordinate is an immutable (aisle, rack) pair. 1-based per spec.md §3.
type Coordinate struct {
	Aisle int
	Rack  int
}

func (c Coordinate) String() string {
	return fmt.Sprintf("(%d,%d)", c.Aisle, c.Rack)
}

// Equal reports whether two coordinates denote the same cell.
func (c Coordinate) Equal(o Coordinate) bool {
	return c.Aisle == o.Aisle && c.Rack == o.Rack
}

// Grid is the bounded domain coordinates are validated against.
type Grid struct {
	Width   int // number of aisles
	Height  int // number of racks per aisle
	Packout Coordinate
}

// New constructs a Grid with the given dimensions and packout location. It
// returns an error if the packout itself would be out of bounds.
func New(width, height int, packout Coordinate) (*Grid, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("grid: width and height must be positive, got %dx%d", width, height)
	}
	g := &Grid{Width: width, Height: height, Packout: packout}
	if !g.Valid(packout) {
		return nil, fmt.Errorf("grid: packout %s is out of bounds for %dx%d grid", packout, width, height)
	}
	return g, nil
}

// Default returns the 25x20 grid with packout at (1,1), per spec.md §6.
func Default() *Grid {
	g, err := New(DefaultWidth, DefaultHeight, Coordinate{Aisle: 1, Rack: 1})
	if err != nil {
		// Unreachable for the fixed default dimensions; a panic here would
		// indicate a broken constant, not a runtime condition.
		panic(err)
	}
	return g
}

// Valid reports whether c lies within the grid's bounds.
func (g *Grid) Valid(c Coordinate) bool {
	return c.Aisle >= 1 && c.Aisle <= g.Width && c.Rack >= 1 && c.Rack <= g.Height
}

// IsPackout reports whether c is the distinguished packout coordinate.
func (g *Grid) IsPackout(c Coordinate) bool {
	return c.Equal(g.Packout)
}

// Distance returns the Manhattan distance between two coordinates.
func Distance(a, b Coordinate) int {
	return absInt(a.Aisle-b.Aisle) + absInt(a.Rack-b.Rack)
}

// Adjacent reports whether a and b are exactly one grid-unit apart.
func Adjacent(a, b Coordinate) bool {
	return Distance(a, b) == 1
}

func absInt(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
