package watcher

import (
	"context"
	"time"
)

// StartPolling checks the file on a fixed interval.
func (w *Watcher) StartPolling(ctx context.Context) {
	w.mu.RLock()
	interval := w.interval
	w.mu.RUnlock()

	if interval <= 0 {
		interval = 5 * time.Second
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	w.log.Debug("polling config", "path", w.path, "interval", interval)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.detect()
		}
	}
}
