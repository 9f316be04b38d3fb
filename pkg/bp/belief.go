package bp

import (
	"math"

	"lbpdenoise/internal/models"
)

// BeliefEngine turns the current messages into per-pixel beliefs and the
// MAP labeling.
type BeliefEngine struct {
	costs *CostModel
	msgs  *MessageStore
}

// NewBeliefEngine returns a belief engine reading from costs and msgs
func NewBeliefEngine(costs *CostModel, msgs *MessageStore) *BeliefEngine {
	return &BeliefEngine{costs: costs, msgs: msgs}
}

// Belief is the data cost of label at (x, y) plus the four incoming messages
func (b *BeliefEngine) Belief(x, y, label int) int {
	cost := b.costs.DataCost(x, y, label)
	for _, d := range Directions {
		cost += b.msgs.Get(d, x, y, label)
	}
	return cost
}

// BestAssignment returns the label with the lowest belief at (x, y). Ties go
// to the smallest label.
func (b *BeliefEngine) BestAssignment(x, y int) int {
	data := b.costs.dataVector(x, y)
	up := b.msgs.vector(Up, x, y)
	down := b.msgs.vector(Down, x, y)
	right := b.msgs.vector(Right, x, y)
	left := b.msgs.vector(Left, x, y)

	label, lowest := 0, int32(math.MaxInt32)
	for i := range data {
		if cost := data[i] + up[i] + down[i] + right[i] + left[i]; cost < lowest {
			label, lowest = i, cost
		}
	}
	return label
}

// Label writes the best assignment of every pixel into dst
func (b *BeliefEngine) Label(dst *models.Labeling) {
	for y := 0; y < b.costs.height; y++ {
		for x := 0; x < b.costs.width; x++ {
			dst.Set(x, y, b.BestAssignment(x, y))
		}
	}
}
