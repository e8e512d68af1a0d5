package watcher

import (
	"os"
	"time"
)

// isStable reports whether the file size holds across the stability window.
func (w *Watcher) isStable() bool {
	w.mu.RLock()
	path := w.path
	stability := w.stability
	w.mu.RUnlock()

	info1, err := os.Stat(path)
	if err != nil {
		return false
	}

	time.Sleep(stability)

	info2, err := os.Stat(path)
	if err != nil {
		return false
	}

	return info1.Size() == info2.Size()
}
