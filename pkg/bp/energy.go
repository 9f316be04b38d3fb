package bp

import "lbpdenoise/internal/models"

// EnergyEvaluator scores a labeling under the MRF. The value is only used
// to monitor progress.
type EnergyEvaluator struct {
	costs *CostModel
}

// NewEnergyEvaluator returns an evaluator over costs
func NewEnergyEvaluator(costs *CostModel) *EnergyEvaluator {
	return &EnergyEvaluator{costs: costs}
}

// Energy sums the data cost of every pixel and the smoothness cost of every
// 4-connected edge. Each edge is counted once, from its left or top end.
func (e *EnergyEvaluator) Energy(l *models.Labeling) int {
	c := e.costs
	energy := 0
	for y := 0; y < c.height; y++ {
		for x := 0; x < c.width; x++ {
			label1 := l.At(x, y)
			energy += c.DataCost(x, y, label1)
			if x < c.width-1 {
				energy += c.SmoothnessCost(label1, l.At(x+1, y))
			}
			if y < c.height-1 {
				energy += c.SmoothnessCost(label1, l.At(x, y+1))
			}
		}
	}
	return energy
}
