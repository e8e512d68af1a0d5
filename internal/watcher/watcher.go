// Package watcher monitors the configuration file and reports changes so the
// daemon can reload without a restart.
package watcher

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/raoulx24/dir-archiver/internal/config"
	"github.com/raoulx24/dir-archiver/internal/fsprobe"
)

const (
	// DefaultDebounce collapses the burst of events an editor save produces.
	DefaultDebounce = 250 * time.Millisecond
	// DefaultStability is the window a file size must hold before it is read.
	DefaultStability = 100 * time.Millisecond
)

// Watcher observes one file and calls onChange when its contents change.
type Watcher struct {
	mu sync.RWMutex

	path      string
	method    string
	interval  time.Duration
	debounce  time.Duration
	stability time.Duration

	log      *slog.Logger
	onChange func()

	last fileState
}

// New creates a watcher for path using the reload settings from cfg. The
// current state of the file is recorded so the first change is detected
// relative to it.
func New(path string, cfg config.ReloadConfig, log *slog.Logger, onChange func()) *Watcher {
	if log == nil {
		log = slog.Default()
	}
	w := &Watcher{
		path:      path,
		method:    cfg.Method,
		interval:  cfg.PollInterval,
		debounce:  DefaultDebounce,
		stability: DefaultStability,
		log:       log.With("component", "watcher"),
		onChange:  onChange,
	}
	w.last, _ = stateOf(path)
	return w
}

// Method returns the configured watch method.
func (w *Watcher) Method() string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.method
}

// Start blocks watching the file until ctx is cancelled. The "signal"
// method watches nothing and returns at once; reloads then come only from
// SIGHUP, which the caller handles.
func (w *Watcher) Start(ctx context.Context) error {
	switch w.Method() {
	case config.ReloadFsnotify:
		return w.StartFsNotify(ctx)

	case config.ReloadPoll:
		w.StartPolling(ctx)
		return nil

	case config.ReloadAuto:
		res := fsprobe.Probe(filepath.Dir(w.path), 0)
		if res.Supported {
			return w.StartFsNotify(ctx)
		}
		w.log.Warn("fsnotify disabled, polling instead", "reason", res.Reason)
		w.StartPolling(ctx)
		return nil

	case config.ReloadSignal:
		return nil

	default:
		return fmt.Errorf("unknown reload method %q", w.Method())
	}
}
