// Package bp implements min-sum loopy belief propagation on a 4-connected
// pixel grid. It is the inference engine behind the denoiser: cost tables,
// directional message sweeps, beliefs, and the MRF energy of a labeling.
package bp

import (
	"lbpdenoise/internal/models"
)

// CostModel caches the data and smoothness terms of the MRF.
//
// Both tables are computed once in NewCostModel and never change afterwards:
//   - data[(y*width+x)*levels+label] = |pixel(x,y) - label|
//   - smooth[label1*levels+label2]  = lambda * |label1 - label2|
//
// The smoothness table is symmetric with a zero diagonal. Message passing and
// energy evaluation rely on that without checking it.
type CostModel struct {
	width  int
	height int
	levels int
	lambda int

	data   []int32
	smooth []int32
}

// NewCostModel builds the cost caches for grid. The caller guarantees that the
// grid is non-empty, every pixel lies in [0, levels) and lambda >= 0; Solver
// checks this before calling.
func NewCostModel(grid *models.Grid, levels, lambda int) *CostModel {
	c := &CostModel{
		width:  grid.Width,
		height: grid.Height,
		levels: levels,
		lambda: lambda,
		data:   make([]int32, grid.Width*grid.Height*levels),
		smooth: make([]int32, levels*levels),
	}

	// Cache data cost
	for y := 0; y < c.height; y++ {
		for x := 0; x < c.width; x++ {
			pixel := grid.At(x, y)
			cell := c.data[c.offset(x, y) : c.offset(x, y)+levels]
			for label := range cell {
				cell[label] = int32(computeDataCost(pixel, label))
			}
		}
	}

	// Cache smoothness cost
	for i := 0; i < levels; i++ {
		for j := 0; j < levels; j++ {
			c.smooth[i*levels+j] = int32(computeSmoothnessCost(lambda, i, j))
		}
	}

	return c
}

// Levels returns the size of the label space
func (c *CostModel) Levels() int { return c.levels }

// Lambda returns the smoothness weight
func (c *CostModel) Lambda() int { return c.lambda }

// DataCost returns the cost of giving pixel (x, y) the label
func (c *CostModel) DataCost(x, y, label int) int {
	return int(c.data[c.offset(x, y)+label])
}

// SmoothnessCost returns the pairwise cost of two neighbouring labels
func (c *CostModel) SmoothnessCost(label1, label2 int) int {
	return int(c.smooth[label1*c.levels+label2])
}

// offset is the index of the first label of pixel (x, y) in a [y][x][label] table
func (c *CostModel) offset(x, y int) int {
	return (y*c.width + x) * c.levels
}

// dataVector returns the cached data costs of pixel (x, y), one per label.
// The slice aliases the cache and must not be written.
func (c *CostModel) dataVector(x, y int) []int32 {
	off := c.offset(x, y)
	return c.data[off : off+c.levels : off+c.levels]
}

// smoothRow returns smoothness costs from label i to every label
func (c *CostModel) smoothRow(i int) []int32 {
	off := i * c.levels
	return c.smooth[off : off+c.levels : off+c.levels]
}

func computeDataCost(pixel, label int) int {
	return abs(pixel - label)
}

func computeSmoothnessCost(lambda, label1, label2 int) int {
	return lambda * abs(label1-label2)
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
