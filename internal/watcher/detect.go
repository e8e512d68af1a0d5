package watcher

import (
	"os"
	"time"
)

type fileState struct {
	modTime time.Time
	size    int64
	exists  bool
}

func stateOf(path string) (fileState, error) {
	info, err := os.Stat(path)
	if err != nil {
		return fileState{}, err
	}
	return fileState{modTime: info.ModTime(), size: info.Size(), exists: true}, nil
}

// detect calls onChange when the file differs from the last recorded state.
// A missing file is not a change: editors briefly remove it while saving.
func (w *Watcher) detect() {
	w.mu.RLock()
	path := w.path
	last := w.last
	w.mu.RUnlock()

	cur, err := stateOf(path)
	if err != nil {
		w.log.Debug("config not readable", "path", path, "error", err)
		return
	}
	if last.exists && cur.modTime.Equal(last.modTime) && cur.size == last.size {
		return
	}
	if !w.isStable() {
		w.log.Debug("config still being written", "path", path)
		return
	}

	// Re-stat so a write during the stability window is not recorded early.
	if cur, err = stateOf(path); err != nil {
		return
	}

	w.mu.Lock()
	w.last = cur
	w.mu.Unlock()

	w.log.Info("config file changed", "path", path)
	if w.onChange != nil {
		w.onChange()
	}
}
