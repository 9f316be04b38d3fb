package visualization

import (
	"errors"
	"fmt"
	"image/color"
	"os"
	"path/filepath"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"lbpdenoise/internal/models"
)

// ErrEmptyTrace is returned when there is nothing to plot
var ErrEmptyTrace = errors.New("energy trace is empty")

// EnergyTrace records the energy of each iteration as the solver reports it.
// It is not safe for concurrent use.
type EnergyTrace struct {
	results []models.IterationResult
}

// Report appends one iteration to the trace
func (t *EnergyTrace) Report(result models.IterationResult, _ *models.Labeling) {
	t.results = append(t.results, result)
}

// Results returns a copy of the recorded trace
func (t *EnergyTrace) Results() []models.IterationResult {
	return append([]models.IterationResult(nil), t.results...)
}

// PlotEnergy draws energy against iteration and saves it to path. The
// format follows the extension (.png, .svg, .pdf, ...).
func PlotEnergy(results []models.IterationResult, title, path string) error {
	if len(results) == 0 {
		return ErrEmptyTrace
	}

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "Iteration"
	p.Y.Label.Text = "Energy"
	p.Add(plotter.NewGrid())

	pts := make(plotter.XYs, len(results))
	for i, r := range results {
		pts[i] = plotter.XY{X: float64(r.Iteration), Y: float64(r.Energy)}
	}

	line, points, err := plotter.NewLinePoints(pts)
	if err != nil {
		return fmt.Errorf("failed to build energy line: %w", err)
	}
	line.Color = color.RGBA{R: 31, G: 119, B: 180, A: 255}
	line.Width = vg.Points(1.5)
	points.Color = line.Color
	p.Add(line, points)

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create plot directory: %w", err)
		}
	}

	if err := p.Save(8*vg.Inch, 4*vg.Inch, path); err != nil {
		return fmt.Errorf("failed to save energy plot: %w", err)
	}
	return nil
}
