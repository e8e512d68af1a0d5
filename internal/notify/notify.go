// Package notify delivers rotation events to interested sinks. Delivery is
// fire-and-forget: a sink failing never changes what the rotation does.
package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
)

// Kind of filesystem mutation or outcome.
type Kind string

const (
	Archived Kind = "archived"
	Deleted  Kind = "deleted"
	Failed   Kind = "failed"
)

// Reason a file was deleted.
type Reason string

const (
	ReasonExpired   Reason = "expired"
	ReasonSizeLimit Reason = "size_limit"
)

// Event is one notification.
type Event struct {
	Kind   Kind
	Target string
	Path   string
	Size   int64
	Reason Reason
	Err    error
	RunID  string
	Time   time.Time
}

// Title is a short human headline for the event.
func (e Event) Title() string {
	switch e.Kind {
	case Archived:
		return "Backup Completed"
	case Deleted:
		return "Backup Removed"
	default:
		return "Backup Failed"
	}
}

// Message is the human-readable body of the event.
func (e Event) Message() string {
	switch e.Kind {
	case Archived:
		return fmt.Sprintf("Backup created: %s, Size: %s", e.Path, humanize.IBytes(uint64(e.Size)))
	case Deleted:
		return fmt.Sprintf("Deleted backup (%s): %s", e.Reason, e.Path)
	default:
		return fmt.Sprintf("Backup of %s failed: %v", e.Target, e.Err)
	}
}

// Notifier receives events.
type Notifier interface {
	Notify(ctx context.Context, ev Event)
}

// Nop discards every event.
type Nop struct{}

func (Nop) Notify(context.Context, Event) {}

// Multi fans an event out to several notifiers in order.
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, ev Event) {
	for _, n := range m {
		if n != nil {
			n.Notify(ctx, ev)
		}
	}
}

// Func adapts a function to Notifier.
type Func func(ctx context.Context, ev Event)

func (f Func) Notify(ctx context.Context, ev Event) { f(ctx, ev) }
