// Package logging builds the zerolog loggers used by the command and the
// pipeline, and adapts them to the solver's progress reporting.
package logging

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"

	"lbpdenoise/internal/models"
)

// New returns a logger writing to w. Console output is human readable;
// jsonOutput switches to one JSON object per line. verbose enables debug.
func New(w io.Writer, verbose, jsonOutput bool) zerolog.Logger {
	if w == nil {
		w = os.Stderr
	}
	if !jsonOutput {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.TimeOnly}
	}

	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}

	return zerolog.New(w).
		Level(level).
		With().
		Timestamp().
		Logger()
}

// Component returns a child logger tagged with a component name
func Component(logger zerolog.Logger, name string) zerolog.Logger {
	return logger.With().Str("component", name).Logger()
}

// ProgressReporter logs one line per solver iteration with the energy and
// its change from the previous iteration.
type ProgressReporter struct {
	logger zerolog.Logger
	last   int
	seen   bool
}

// NewProgressReporter wraps a logger
func NewProgressReporter(logger zerolog.Logger) *ProgressReporter {
	return &ProgressReporter{logger: Component(logger, "solver")}
}

// Report logs one iteration
func (p *ProgressReporter) Report(result models.IterationResult, _ *models.Labeling) {
	event := p.logger.Info().
		Int("iteration", result.Iteration).
		Int("energy", result.Energy)
	if p.seen {
		event = event.Int("delta", result.Energy-p.last)
	}
	event.Msg("iteration complete")

	p.last = result.Energy
	p.seen = true
}
