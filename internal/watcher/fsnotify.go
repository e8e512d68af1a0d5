package watcher

import (
	"context"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// StartFsNotify watches the directory holding the file and runs detect after
// events for it settle. The directory is watched instead of the file so that
// editors replacing it by rename are still seen.
func (w *Watcher) StartFsNotify(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	w.mu.RLock()
	path := w.path
	debounce := w.debounce
	w.mu.RUnlock()

	if err := watcher.Add(filepath.Dir(path)); err != nil {
		return err
	}

	name := filepath.Base(path)
	resetCh := make(chan struct{}, 1)
	defer close(resetCh)

	go func() {
		var t *time.Timer
		for range resetCh {
			if t != nil {
				t.Stop()
			}
			t = time.AfterFunc(debounce, func() {
				defer func() {
					if r := recover(); r != nil {
						w.log.Error("detect panic", "panic", r)
					}
				}()
				if ctx.Err() != nil {
					return
				}
				w.detect()
			})
		}
		if t != nil {
			t.Stop()
		}
	}()

	w.log.Debug("watching config", "path", path)

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-watcher.Events:
			if !ok {
				w.log.Error("events channel closed")
				return nil
			}
			if filepath.Base(ev.Name) != name {
				continue
			}
			w.log.Debug("event", "name", ev.Name, "op", ev.Op)

			select {
			case resetCh <- struct{}{}:
			default:
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			w.log.Error("fsnotify error", "error", err)
		}
	}
}
