package metrics

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"lbpdenoise/internal/models"
)

// EnergySummary describes how the MRF energy evolved over a run
type EnergySummary struct {
	Iterations int
	Initial    int
	Final      int
	Min        int

	// MinIteration is the first iteration reaching Min
	MinIteration int

	// Reduction is (Initial-Final)/Initial, 0 when Initial is 0
	Reduction float64

	Mean   float64
	StdDev float64

	// Monotone is true when no iteration raised the energy
	Monotone bool
}

// SummarizeEnergy reduces a trace of iteration results. An empty trace
// gives the zero summary.
func SummarizeEnergy(results []models.IterationResult) EnergySummary {
	if len(results) == 0 {
		return EnergySummary{}
	}

	values := make([]float64, len(results))
	for i, r := range results {
		values[i] = float64(r.Energy)
	}

	minIdx := floats.MinIdx(values)
	s := EnergySummary{
		Iterations:   len(results) - 1,
		Initial:      results[0].Energy,
		Final:        results[len(results)-1].Energy,
		Min:          results[minIdx].Energy,
		MinIteration: results[minIdx].Iteration,
		Monotone:     true,
	}

	s.Mean = stat.Mean(values, nil)
	if len(values) > 1 {
		s.StdDev = stat.StdDev(values, nil)
	}
	if s.Initial != 0 {
		s.Reduction = float64(s.Initial-s.Final) / float64(s.Initial)
	}
	for i := 1; i < len(results); i++ {
		if results[i].Energy > results[i-1].Energy {
			s.Monotone = false
			break
		}
	}

	return s
}
