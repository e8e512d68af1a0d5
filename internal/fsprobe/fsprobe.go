// Package fsprobe checks whether change notifications are delivered for a
// directory. Network and container mounts often accept a watch but never
// report events, so the check writes a real file and waits for it.
package fsprobe

import (
	"fmt"
	"os"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultTimeout is how long Probe waits for the first event.
const DefaultTimeout = 200 * time.Millisecond

// Result reports whether fsnotify is usable and why not.
type Result struct {
	Supported bool
	Reason    string
}

// Probe creates and renames a scratch file in dir and reports whether
// fsnotify delivered an event for it within timeout.
func Probe(dir string, timeout time.Duration) Result {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	st, err := os.Stat(dir)
	if err != nil {
		return Result{Reason: fmt.Sprintf("stat failed: %v", err)}
	}
	if !st.IsDir() {
		return Result{Reason: "not a directory"}
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return Result{Reason: fmt.Sprintf("fsnotify unavailable: %v", err)}
	}
	defer w.Close()

	if err := w.Add(dir); err != nil {
		return Result{Reason: fmt.Sprintf("cannot watch directory: %v", err)}
	}

	f, err := os.CreateTemp(dir, ".dir-archiver-probe-*")
	if err != nil {
		return Result{Reason: fmt.Sprintf("cannot create probe file: %v", err)}
	}
	tmp := f.Name()
	f.Close()

	final := tmp + ".done"
	if err := os.Rename(tmp, final); err != nil {
		os.Remove(tmp)
		return Result{Reason: fmt.Sprintf("rename failed: %v", err)}
	}
	defer os.Remove(final)

	deadline := time.After(timeout)
	for {
		select {
		case ev, ok := <-w.Events:
			if !ok {
				return Result{Reason: "event channel closed"}
			}
			if ev.Op&(fsnotify.Create|fsnotify.Rename|fsnotify.Write) != 0 {
				return Result{Supported: true}
			}
		case err := <-w.Errors:
			return Result{Reason: fmt.Sprintf("watch error: %v", err)}
		case <-deadline:
			return Result{Reason: "no events received"}
		}
	}
}
