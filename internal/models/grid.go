package models

import "fmt"

// Grid is a dense 2D array of integer pixel intensities stored in
// row-major order. It is treated as read-only once loaded.
type Grid struct {
	// Pix holds Width*Height intensities, row by row
	Pix []int

	// Width is the number of columns
	Width int

	// Height is the number of rows
	Height int
}

// NewGrid allocates a zero-filled grid of the given size
func NewGrid(width, height int) *Grid {
	return &Grid{
		Pix:    make([]int, width*height),
		Width:  width,
		Height: height,
	}
}

// GridFromRows builds a grid from a slice of equally sized rows.
// It is mostly useful for small hand-written images and panics when a row
// length differs from the first row.
func GridFromRows(rows [][]int) *Grid {
	if len(rows) == 0 {
		return NewGrid(0, 0)
	}
	g := NewGrid(len(rows[0]), len(rows))
	for y, row := range rows {
		if len(row) != g.Width {
			panic(fmt.Sprintf("models: row %d has %d pixels, want %d", y, len(row), g.Width))
		}
		copy(g.Pix[y*g.Width:(y+1)*g.Width], row)
	}
	return g
}

// At returns the intensity at column x, row y
func (g *Grid) At(x, y int) int {
	return g.Pix[y*g.Width+x]
}

// Set stores an intensity at column x, row y
func (g *Grid) Set(x, y, v int) {
	g.Pix[y*g.Width+x] = v
}

// Empty reports whether the grid has no pixels
func (g *Grid) Empty() bool {
	return g == nil || g.Width <= 0 || g.Height <= 0 || len(g.Pix) == 0
}

// Labeling is a per-pixel label assignment, the current MAP estimate of
// the hidden image. Labels are stored row-major like Grid.
type Labeling struct {
	Labels []int
	Width  int
	Height int
}

// NewLabeling allocates a labeling with every pixel set to label 0
func NewLabeling(width, height int) *Labeling {
	return &Labeling{
		Labels: make([]int, width*height),
		Width:  width,
		Height: height,
	}
}

// At returns the label at column x, row y
func (l *Labeling) At(x, y int) int {
	return l.Labels[y*l.Width+x]
}

// Set assigns a label at column x, row y
func (l *Labeling) Set(x, y, label int) {
	l.Labels[y*l.Width+x] = label
}

// Clone returns a deep copy of the labeling
func (l *Labeling) Clone() *Labeling {
	c := NewLabeling(l.Width, l.Height)
	copy(c.Labels, l.Labels)
	return c
}

// IterationResult is what one round of the solver produces for
// progress reporting: the iteration index and the MRF energy of the
// labeling computed in that round.
type IterationResult struct {
	// Iteration is 0 for the initial data-term-only labeling
	Iteration int

	// Energy is the total data plus smoothness cost of the labeling
	Energy int
}
