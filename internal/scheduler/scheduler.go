// Package scheduler triggers rotation passes on a cron schedule.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/raoulx24/dir-archiver/internal/mailbox"
	"github.com/raoulx24/dir-archiver/internal/worker"
)

// Scheduler posts rotation jobs to the worker mailbox: once at start, to
// cover a trigger missed while the process was down, then on every cron
// tick. Jobs coalesce in the mailbox, so a slow pass never queues a backlog.
type Scheduler struct {
	mu      sync.Mutex
	cron    *cron.Cron
	entry   cron.EntryID
	spec    string
	mb      *mailbox.Mailbox[worker.Job]
	logger  *slog.Logger
	running bool
}

// New creates a scheduler for a standard 5-field cron expression.
func New(spec string, mb *mailbox.Mailbox[worker.Job], logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		cron:   cron.New(),
		spec:   spec,
		mb:     mb,
		logger: logger.With("component", "scheduler"),
	}
}

// Start posts the startup job and begins the cron schedule. The scheduler
// stops when ctx ends.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return fmt.Errorf("scheduler already running")
	}

	id, err := s.add(s.spec)
	if err != nil {
		return err
	}
	s.entry = id

	s.mb.Put(worker.Job{Reason: "startup"})

	s.cron.Start()
	s.running = true

	s.logger.Info("scheduler started", "schedule", s.spec)

	go func() {
		<-ctx.Done()
		s.Stop()
	}()

	return nil
}

func (s *Scheduler) add(spec string) (cron.EntryID, error) {
	if _, err := cron.ParseStandard(spec); err != nil {
		return 0, fmt.Errorf("invalid cron schedule %q: %w", spec, err)
	}
	id, err := s.cron.AddFunc(spec, func() {
		s.logger.Debug("schedule fired")
		s.mb.Put(worker.Job{Reason: "schedule"})
	})
	if err != nil {
		return 0, fmt.Errorf("failed to schedule rotation: %w", err)
	}
	return id, nil
}

// Reschedule replaces the cron expression. The old entry is kept when the
// new expression is invalid.
func (s *Scheduler) Reschedule(spec string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if spec == s.spec {
		return nil
	}
	id, err := s.add(spec)
	if err != nil {
		return err
	}
	s.cron.Remove(s.entry)
	s.entry = id
	s.spec = spec

	s.logger.Info("schedule updated", "schedule", spec)
	return nil
}

// Stop stops the scheduler and waits for a running tick to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		<-s.cron.Stop().Done()
		s.running = false
		s.logger.Info("scheduler stopped")
	}
}

// IsRunning returns true if the scheduler is running.
func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Spec returns the active cron expression.
func (s *Scheduler) Spec() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.spec
}

// NextRun returns the next scheduled trigger, or nil when not running.
func (s *Scheduler) NextRun() *time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return nil
	}
	next := s.cron.Entry(s.entry).Next
	if next.IsZero() {
		return nil
	}
	return &next
}
