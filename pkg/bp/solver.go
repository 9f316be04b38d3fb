package bp

import (
	"context"
	"errors"
	"fmt"
	"math"

	"lbpdenoise/internal/models"
)

var (
	// ErrInvalidConfig is returned for parameters outside their domain
	ErrInvalidConfig = errors.New("invalid solver configuration")

	// ErrEmptyImage is returned for a grid with no pixels
	ErrEmptyImage = errors.New("empty image")

	// ErrPixelOutOfRange is returned when a pixel is not a valid label
	ErrPixelOutOfRange = errors.New("pixel value out of label range")
)

// MaxLevels caps the label space. The smoothness table alone holds
// MaxLevels*MaxLevels entries.
const MaxLevels = 1 << 16

// Params holds the solver configuration. It is fixed for the whole run.
type Params struct {
	// Levels is the size of the label space, 256 for 8-bit grayscale
	Levels int

	// Lambda weights the smoothness term
	Lambda int

	// Iterations is the number of message passing rounds
	Iterations int

	// Workers is the number of goroutines used per sweep. 0 or 1 runs
	// sequentially; any value gives the same result.
	Workers int
}

// DefaultParams returns the reference configuration: 256 levels, lambda 1,
// two iterations, sequential.
func DefaultParams() Params {
	return Params{
		Levels:     256,
		Lambda:     1,
		Iterations: 2,
		Workers:    1,
	}
}

// Validate checks every parameter and returns an error wrapping
// ErrInvalidConfig for the first bad one.
func (p Params) Validate() error {
	switch {
	case p.Levels <= 0:
		return fmt.Errorf("%w: levels must be positive, got %d", ErrInvalidConfig, p.Levels)
	case p.Levels > MaxLevels:
		return fmt.Errorf("%w: levels must be at most %d, got %d", ErrInvalidConfig, MaxLevels, p.Levels)
	case p.Lambda < 0:
		return fmt.Errorf("%w: lambda must be nonnegative, got %d", ErrInvalidConfig, p.Lambda)
	case p.Lambda > MaxLambda(p.Levels):
		return fmt.Errorf("%w: lambda must be at most %d for %d levels, got %d",
			ErrInvalidConfig, MaxLambda(p.Levels), p.Levels, p.Lambda)
	case p.Iterations < 0:
		return fmt.Errorf("%w: iterations must be nonnegative, got %d", ErrInvalidConfig, p.Iterations)
	case p.Workers < 0:
		return fmt.Errorf("%w: workers must be nonnegative, got %d", ErrInvalidConfig, p.Workers)
	}
	return nil
}

// MaxLambda returns the largest lambda whose costs fit the int32 tables for
// the given label space. A normalized message never exceeds
// lambda*(levels-1), so a belief is bounded by (levels-1)*(4*lambda+1).
func MaxLambda(levels int) int {
	if levels <= 1 {
		return math.MaxInt32
	}
	return (math.MaxInt32/(levels-1) - 1) / 4
}

// Reporter observes each finished iteration. labels is the solver's live
// labeling and is only valid for the duration of the call.
type Reporter interface {
	Report(result models.IterationResult, labels *models.Labeling)
}

// ReporterFunc adapts a plain function to Reporter
type ReporterFunc func(result models.IterationResult, labels *models.Labeling)

// Report calls f
func (f ReporterFunc) Report(result models.IterationResult, labels *models.Labeling) {
	f(result, labels)
}

// MultiReporter fans every report out to each non-nil reporter in order
type MultiReporter []Reporter

// Report forwards to every reporter
func (m MultiReporter) Report(result models.IterationResult, labels *models.Labeling) {
	for _, r := range m {
		if r != nil {
			r.Report(result, labels)
		}
	}
}

// Solver runs loopy belief propagation on one image. It owns the cost
// caches, the message grids and the current labeling. A Solver is driven by
// a single goroutine.
type Solver struct {
	params Params

	costs   *CostModel
	msgs    *MessageStore
	prop    *Propagator
	beliefs *BeliefEngine
	eval    *EnergyEvaluator

	labels *models.Labeling

	// iter is the index of the next iteration Step will run
	iter int
}

// NewSolver validates the inputs, builds the cost caches and zeroes the
// messages. Nothing is allocated when validation fails.
func NewSolver(grid *models.Grid, params Params) (*Solver, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if grid.Empty() {
		return nil, ErrEmptyImage
	}
	if len(grid.Pix) != grid.Width*grid.Height {
		return nil, fmt.Errorf("%w: %dx%d grid holds %d pixels", ErrInvalidConfig, grid.Width, grid.Height, len(grid.Pix))
	}
	for i, v := range grid.Pix {
		if v < 0 || v >= params.Levels {
			return nil, fmt.Errorf("%w: pixel (%d,%d) = %d, levels = %d",
				ErrPixelOutOfRange, i%grid.Width, i/grid.Width, v, params.Levels)
		}
	}

	costs := NewCostModel(grid, params.Levels, params.Lambda)
	msgs := NewMessageStore(grid.Width, grid.Height, params.Levels)

	return &Solver{
		params:  params,
		costs:   costs,
		msgs:    msgs,
		prop:    NewPropagator(costs, msgs, params.Workers),
		beliefs: NewBeliefEngine(costs, msgs),
		eval:    NewEnergyEvaluator(costs),
		labels:  models.NewLabeling(grid.Width, grid.Height),
	}, nil
}

// Params returns the configuration the solver was built with
func (s *Solver) Params() Params { return s.params }

// Costs exposes the cached cost tables
func (s *Solver) Costs() *CostModel { return s.costs }

// Messages exposes the message grids
func (s *Solver) Messages() *MessageStore { return s.msgs }

// Beliefs exposes the belief engine over the current messages
func (s *Solver) Beliefs() *BeliefEngine { return s.beliefs }

// Energy scores any labeling of this image
func (s *Solver) Energy(l *models.Labeling) int { return s.eval.Energy(l) }

// Iteration returns the number of iterations completed so far
func (s *Solver) Iteration() int { return s.iter }

// Done reports whether all configured iterations have run
func (s *Solver) Done() bool { return s.iter > s.params.Iterations }

// Labels returns the live labeling of the last completed iteration
func (s *Solver) Labels() *models.Labeling { return s.labels }

// Step runs the next iteration: a round of sweeps (skipped for iteration 0,
// where every message is still zero), then labeling and energy.
func (s *Solver) Step() models.IterationResult {
	if s.iter > 0 {
		s.prop.Round()
	}
	s.beliefs.Label(s.labels)

	result := models.IterationResult{
		Iteration: s.iter,
		Energy:    s.eval.Energy(s.labels),
	}
	s.iter++
	return result
}

// Run steps the solver until Iterations rounds of message passing are done,
// i.e. Iterations+1 labelings in total. The reporter, if any, sees every
// iteration. Cancellation is checked between iterations; on cancellation the
// results gathered so far are returned with ctx.Err().
func (s *Solver) Run(ctx context.Context, reporter Reporter) (*models.Labeling, []models.IterationResult, error) {
	results := make([]models.IterationResult, 0, s.params.Iterations+1)
	for !s.Done() {
		if err := ctx.Err(); err != nil {
			return s.labels.Clone(), results, err
		}
		result := s.Step()
		results = append(results, result)
		if reporter != nil {
			reporter.Report(result, s.labels)
		}
	}
	return s.labels.Clone(), results, nil
}
