// Package visualization writes what the solver is doing to disk: one image
// per iteration and a plot of the energy curve. It stands in for watching
// the labeling evolve on screen.
package visualization

import (
	"fmt"
	"path/filepath"

	"lbpdenoise/internal/models"
	"lbpdenoise/pkg/imageio"
)

// SnapshotWriter saves the labeling of every iteration it is shown as
// <dir>/iter_NNN.<ext>. Write errors do not interrupt the solver; the first
// one is kept and returned by Err. Like every Reporter it is called from
// the goroutine driving the solver and is not safe for concurrent use.
type SnapshotWriter struct {
	dir    string
	ext    string
	levels int

	paths []string
	err   error
}

// NewSnapshotWriter creates a writer for dir. ext selects the image format
// (".png" when empty).
func NewSnapshotWriter(dir, ext string, levels int) *SnapshotWriter {
	if ext == "" {
		ext = ".png"
	}
	return &SnapshotWriter{dir: dir, ext: ext, levels: levels}
}

// Report saves the labeling for one iteration
func (w *SnapshotWriter) Report(result models.IterationResult, labels *models.Labeling) {
	path := w.SnapshotPath(result.Iteration)
	if err := imageio.Save(path, labels, w.levels); err != nil {
		if w.err == nil {
			w.err = fmt.Errorf("failed to save snapshot %d: %w", result.Iteration, err)
		}
		return
	}
	w.paths = append(w.paths, path)
}

// SnapshotPath returns where iteration i is written
func (w *SnapshotWriter) SnapshotPath(i int) string {
	return filepath.Join(w.dir, fmt.Sprintf("iter_%03d%s", i, w.ext))
}

// Paths lists the snapshots written so far
func (w *SnapshotWriter) Paths() []string {
	return append([]string(nil), w.paths...)
}

// Err returns the first write error, if any
func (w *SnapshotWriter) Err() error {
	return w.err
}
