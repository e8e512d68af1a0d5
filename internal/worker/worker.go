// Package worker executes rotation passes one at a time.
package worker

import (
	"context"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/raoulx24/dir-archiver/internal/config"
	"github.com/raoulx24/dir-archiver/internal/mailbox"
	"github.com/raoulx24/dir-archiver/internal/rotation"
)

// Rotator runs rotation passes over a set of targets.
type Rotator interface {
	RotateAll(ctx context.Context, targets []config.Target, now time.Time) []rotation.Report
}

// Worker takes jobs from the mailbox and runs them sequentially, so passes
// never overlap. Jobs posted during a pass collapse into one.
type Worker struct {
	mu      sync.RWMutex
	targets []config.Target
	rotator Rotator
	log     *slog.Logger
	mb      *mailbox.Mailbox[Job]
	history *rotation.History
	now     func() time.Time
}

// New creates a worker for the configured targets.
func New(cfg *config.Config, rotator Rotator, log *slog.Logger, mb *mailbox.Mailbox[Job], history *rotation.History) *Worker {
	if log == nil {
		log = slog.Default()
	}
	if history == nil {
		history = rotation.NewHistory()
	}
	return &Worker{
		targets: cfg.Targets,
		rotator: rotator,
		log:     log.With("component", "worker"),
		mb:      mb,
		history: history,
		now:     time.Now,
	}
}

// Start runs the worker loop until ctx ends.
func (w *Worker) Start(ctx context.Context) {
	w.log.Info("starting worker")
	for {
		job, ok := w.mb.Take(ctx)
		if !ok {
			w.log.Info("worker stopped")
			return
		}
		w.Handle(ctx, job)
	}
}

// Handle runs one job and records its reports.
func (w *Worker) Handle(ctx context.Context, job Job) []rotation.Report {
	w.mu.RLock()
	targets := selectTargets(w.targets, job.Targets)
	rotator := w.rotator
	w.mu.RUnlock()

	now := job.Time
	if now.IsZero() {
		now = w.now()
	}

	w.log.Info("rotation pass started", "reason", job.Reason, "targets", len(targets))

	reports := rotator.RotateAll(ctx, targets, now)
	w.history.Record(reports...)

	failed := 0
	for _, r := range reports {
		if !r.OK() {
			failed++
		}
	}
	w.log.Info("rotation pass finished", "reason", job.Reason, "targets", len(reports), "failed", failed)

	return reports
}

// UpdateConfig hot-reloads targets and the rotator used for later passes.
// A pass already running keeps the values it started with.
func (w *Worker) UpdateConfig(cfg *config.Config, rotator Rotator) {
	w.mu.Lock()
	w.targets = cfg.Targets
	w.rotator = rotator
	w.mu.Unlock()
	w.log.Debug("worker config updated", "targets", len(cfg.Targets))
}

// History returns the latest reports per target.
func (w *Worker) History() *rotation.History {
	return w.history
}

func selectTargets(all []config.Target, only []string) []config.Target {
	if len(only) == 0 {
		return append([]config.Target(nil), all...)
	}
	want := make(map[string]bool, len(only))
	for _, p := range only {
		want[filepath.Clean(p)] = true
	}
	var out []config.Target
	for _, t := range all {
		if want[filepath.Clean(t.Path)] {
			out = append(out, t)
		}
	}
	return out
}
