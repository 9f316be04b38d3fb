package metrics

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lbpdenoise/internal/models"
)

func TestCompareIdentical(t *testing.T) {
	g := models.GridFromRows([][]int{{10, 20}, {30, 40}})
	l := &models.Labeling{Labels: []int{10, 20, 30, 40}, Width: 2, Height: 2}

	q, err := Compare(g, l, 256)
	require.NoError(t, err)
	assert.Zero(t, q.RMSE)
	assert.Zero(t, q.MAE)
	assert.Zero(t, q.ChangedRatio)
	assert.True(t, math.IsInf(q.PSNR, 1))
	assert.InDelta(t, 1.0, q.SSIM, 1e-12)
}

func TestCompareKnownError(t *testing.T) {
	g := models.GridFromRows([][]int{{0, 0, 0, 0}})
	l := &models.Labeling{Labels: []int{3, 0, 0, 3}, Width: 4, Height: 1}

	q, err := Compare(g, l, 256)
	require.NoError(t, err)
	// squared errors 9+0+0+9 over 4 pixels
	assert.InDelta(t, math.Sqrt(18.0/4), q.RMSE, 1e-12)
	assert.InDelta(t, 1.5, q.MAE, 1e-12)
	assert.InDelta(t, 0.5, q.ChangedRatio, 1e-12)
	assert.InDelta(t, 20*math.Log10(255/math.Sqrt(4.5)), q.PSNR, 1e-9)
	assert.Less(t, q.SSIM, 1.0)
}

func TestCompareSinglePixel(t *testing.T) {
	q, err := Compare(models.GridFromRows([][]int{{5}}), &models.Labeling{Labels: []int{5}, Width: 1, Height: 1}, 16)
	require.NoError(t, err)
	assert.False(t, math.IsNaN(q.SSIM))
	assert.InDelta(t, 1.0, q.SSIM, 1e-12)
}

func TestCompareSizeMismatch(t *testing.T) {
	_, err := Compare(models.NewGrid(2, 2), models.NewLabeling(2, 3), 256)
	assert.ErrorIs(t, err, ErrSizeMismatch)
}

func TestSummarizeEnergy(t *testing.T) {
	trace := []models.IterationResult{
		{Iteration: 0, Energy: 400},
		{Iteration: 1, Energy: 100},
		{Iteration: 2, Energy: 100},
	}
	s := SummarizeEnergy(trace)

	assert.Equal(t, 2, s.Iterations)
	assert.Equal(t, 400, s.Initial)
	assert.Equal(t, 100, s.Final)
	assert.Equal(t, 100, s.Min)
	assert.Equal(t, 1, s.MinIteration)
	assert.InDelta(t, 0.75, s.Reduction, 1e-12)
	assert.InDelta(t, 200, s.Mean, 1e-12)
	assert.InDelta(t, math.Sqrt(30000), s.StdDev, 1e-9)
	assert.True(t, s.Monotone)
}

func TestSummarizeEnergyNonMonotone(t *testing.T) {
	s := SummarizeEnergy([]models.IterationResult{
		{Iteration: 0, Energy: 10},
		{Iteration: 1, Energy: 5},
		{Iteration: 2, Energy: 7},
	})
	assert.False(t, s.Monotone)
	assert.Equal(t, 5, s.Min)
	assert.Equal(t, 1, s.MinIteration)
}

func TestSummarizeEnergyEdgeCases(t *testing.T) {
	assert.Equal(t, EnergySummary{}, SummarizeEnergy(nil))

	s := SummarizeEnergy([]models.IterationResult{{Iteration: 0, Energy: 0}})
	assert.Zero(t, s.Reduction)
	assert.Zero(t, s.StdDev)
	assert.True(t, s.Monotone)
}
