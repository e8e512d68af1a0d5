package mailbox

import (
	"context"
	"sync"
)

// Mailbox is a single-slot buffer where the latest job always wins.
// It is NOT a queue. It holds at most one pending job.
// Put() overwrites any existing job. Take() blocks until a job is available
// or the context ends.
type Mailbox[T any] struct {
	mu    sync.Mutex
	job   *T
	ready chan struct{}
}

// New creates an empty mailbox.
func New[T any]() *Mailbox[T] {
	return &Mailbox[T]{ready: make(chan struct{}, 1)}
}

// Put stores a job in the mailbox, replacing any existing job.
// It never blocks.
func (m *Mailbox[T]) Put(j T) {
	m.mu.Lock()
	m.job = &j
	m.mu.Unlock()

	// wake up worker if waiting
	select {
	case m.ready <- struct{}{}:
	default:
	}
}

// Take blocks until a job is available, then returns it and clears the slot.
// ok is false when ctx ended first.
func (m *Mailbox[T]) Take(ctx context.Context) (job T, ok bool) {
	for {
		if j := m.TryTake(); j != nil {
			return *j, true
		}
		select {
		case <-ctx.Done():
			var zero T
			return zero, false
		case <-m.ready:
		}
	}
}

// TryTake returns the job if present, or nil if empty.
// It never blocks.
func (m *Mailbox[T]) TryTake() *T {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.job == nil {
		return nil
	}

	j := m.job
	m.job = nil
	return j
}

// HasJob reports whether a job is currently waiting.
func (m *Mailbox[T]) HasJob() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.job != nil
}
