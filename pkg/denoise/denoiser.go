package denoise

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"lbpdenoise/internal/logging"
	"lbpdenoise/internal/models"
	"lbpdenoise/pkg/bp"
	"lbpdenoise/pkg/config"
	"lbpdenoise/pkg/imageio"
	"lbpdenoise/pkg/metrics"
	"lbpdenoise/pkg/visualization"
)

// ErrReferenceSize is returned when the reference image does not match the input
var ErrReferenceSize = errors.New("reference image size does not match input")

// Params holds everything one denoising run needs
type Params struct {
	// InputPath is the noisy image to denoise
	InputPath string

	// OutputPath is where the denoised image is written
	OutputPath string

	// ReferencePath is an optional clean image. When set, quality metrics
	// are computed against it instead of the noisy input.
	ReferencePath string

	// Solver configures belief propagation
	Solver bp.Params

	// SaveSnapshots writes the labeling of every iteration to SnapshotDir
	SaveSnapshots bool
	SnapshotDir   string

	// EnergyPlot is the path of the energy curve plot; empty skips it
	EnergyPlot string
}

// ParamsFromConfig maps a loaded configuration onto run parameters
func ParamsFromConfig(cfg *config.Config) *Params {
	return &Params{
		InputPath:     cfg.IO.Input,
		OutputPath:    cfg.IO.Output,
		ReferencePath: cfg.IO.Reference,
		Solver:        cfg.Params(),
		SaveSnapshots: cfg.Output.SaveSnapshots,
		SnapshotDir:   cfg.Output.SnapshotDir,
		EnergyPlot:    cfg.Output.EnergyPlot,
	}
}

// Result summarizes a finished run
type Result struct {
	RunID  string
	Width  int
	Height int

	// Trace holds the energy of every iteration, starting at iteration 0
	Trace  []models.IterationResult
	Energy metrics.EnergySummary

	// Quality compares the output with the reference, or with the noisy
	// input when no reference was given (QualityBaseline says which)
	Quality         metrics.Quality
	QualityBaseline string

	// Snapshots lists the per-iteration images written
	Snapshots []string

	Elapsed time.Duration
}

// Denoiser runs the full pipeline:
// 1. Load the noisy image (and the optional reference)
// 2. Run loopy belief propagation, reporting every iteration
// 3. Save the denoised image
// 4. Plot the energy curve
// 5. Compute quality metrics
type Denoiser struct {
	params *Params

	// base carries the run id; logger adds the pipeline component
	base   zerolog.Logger
	logger zerolog.Logger

	input     *models.Grid
	reference *models.Grid
	labels    *models.Labeling

	result Result
}

// NewDenoiser creates a denoiser for params. Each denoiser gets its own run id.
func NewDenoiser(params *Params, logger zerolog.Logger) *Denoiser {
	runID := uuid.New().String()
	base := logger.With().Str("run_id", runID).Logger()
	return &Denoiser{
		params: params,
		base:   base,
		logger: logging.Component(base, "pipeline"),
		result: Result{RunID: runID},
	}
}

// Process runs the complete denoising pipeline
func (d *Denoiser) Process(ctx context.Context) error {
	start := time.Now()

	if err := d.params.Solver.Validate(); err != nil {
		return err
	}

	// Step 1: Load input image
	d.logger.Info().Str("path", d.params.InputPath).Msg("Step 1: Loading input image")
	if err := d.loadImages(); err != nil {
		return err
	}

	// Step 2: Run belief propagation
	d.logger.Info().
		Int("levels", d.params.Solver.Levels).
		Int("lambda", d.params.Solver.Lambda).
		Int("iterations", d.params.Solver.Iterations).
		Int("workers", d.params.Solver.Workers).
		Msg("Step 2: Running loopy belief propagation")
	if err := d.solve(ctx); err != nil {
		return err
	}

	// Step 3: Save denoised image
	d.logger.Info().Str("path", d.params.OutputPath).Msg("Step 3: Saving denoised image")
	if err := imageio.Save(d.params.OutputPath, d.labels, d.params.Solver.Levels); err != nil {
		return fmt.Errorf("failed to save output: %w", err)
	}

	// Step 4: Plot energy curve
	if d.params.EnergyPlot != "" {
		d.logger.Info().Str("path", d.params.EnergyPlot).Msg("Step 4: Plotting energy curve")
		title := fmt.Sprintf("LBP energy (lambda=%d)", d.params.Solver.Lambda)
		if err := visualization.PlotEnergy(d.result.Trace, title, d.params.EnergyPlot); err != nil {
			d.logger.Warn().Err(err).Msg("Failed to plot energy curve")
		}
	}

	// Step 5: Calculate quality metrics
	d.logger.Info().Msg("Step 5: Calculating quality metrics")
	if err := d.calculateMetrics(); err != nil {
		return err
	}

	d.result.Elapsed = time.Since(start)
	d.logger.Info().
		Dur("elapsed", d.result.Elapsed).
		Int("final_energy", d.result.Energy.Final).
		Msg("Denoising complete")

	return nil
}

// loadImages reads the noisy input and, if configured, the clean reference
func (d *Denoiser) loadImages() error {
	input, err := imageio.Load(d.params.InputPath, d.params.Solver.Levels)
	if err != nil {
		return fmt.Errorf("failed to load image: %w", err)
	}
	d.input = input
	d.result.Width = input.Width
	d.result.Height = input.Height
	d.logger.Info().Int("width", input.Width).Int("height", input.Height).Msg("Loaded input image")

	if d.params.ReferencePath == "" {
		return nil
	}

	reference, err := imageio.Load(d.params.ReferencePath, d.params.Solver.Levels)
	if err != nil {
		return fmt.Errorf("failed to load reference image: %w", err)
	}
	if reference.Width != input.Width || reference.Height != input.Height {
		return fmt.Errorf("%w: reference %dx%d, input %dx%d", ErrReferenceSize,
			reference.Width, reference.Height, input.Width, input.Height)
	}
	d.reference = reference
	return nil
}

// solve runs the solver with logging, tracing and optional snapshots attached
func (d *Denoiser) solve(ctx context.Context) error {
	solver, err := bp.NewSolver(d.input, d.params.Solver)
	if err != nil {
		return fmt.Errorf("failed to initialize solver: %w", err)
	}

	trace := &visualization.EnergyTrace{}
	reporters := bp.MultiReporter{logging.NewProgressReporter(d.base), trace}

	var snapshots *visualization.SnapshotWriter
	if d.params.SaveSnapshots {
		if err := os.MkdirAll(d.params.SnapshotDir, 0755); err != nil {
			return fmt.Errorf("failed to create snapshot directory: %w", err)
		}
		snapshots = visualization.NewSnapshotWriter(d.params.SnapshotDir, ".png", d.params.Solver.Levels)
		reporters = append(reporters, snapshots)
	}

	labels, _, err := solver.Run(ctx, reporters)
	d.result.Trace = trace.Results()
	if err != nil {
		return fmt.Errorf("belief propagation interrupted: %w", err)
	}
	d.labels = labels

	if snapshots != nil {
		if err := snapshots.Err(); err != nil {
			d.logger.Warn().Err(err).Msg("Failed to save some snapshots")
		}
		d.result.Snapshots = snapshots.Paths()
	}

	return nil
}

// calculateMetrics fills in the energy summary and the quality metrics
func (d *Denoiser) calculateMetrics() error {
	d.result.Energy = metrics.SummarizeEnergy(d.result.Trace)

	baseline, name := d.input, "input"
	if d.reference != nil {
		baseline, name = d.reference, "reference"
	}

	quality, err := metrics.Compare(baseline, d.labels, d.params.Solver.Levels)
	if err != nil {
		return fmt.Errorf("failed to compute quality metrics: %w", err)
	}
	d.result.Quality = quality
	d.result.QualityBaseline = name

	d.logger.Info().
		Str("baseline", name).
		Float64("rmse", quality.RMSE).
		Float64("psnr", quality.PSNR).
		Float64("ssim", quality.SSIM).
		Float64("changed", quality.ChangedRatio).
		Msg("Quality metrics")
	return nil
}

// Result returns the summary of the last run
func (d *Denoiser) Result() Result {
	return d.result
}

// Labels returns the denoised labeling, nil before a successful run
func (d *Denoiser) Labels() *models.Labeling {
	return d.labels
}
