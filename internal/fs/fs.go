// Package fs defines the filesystem abstraction used by dir-archiver.
// It provides the FS interface and the FileInfo type shared across the system.
package fs

import (
	"context"
	"errors"
	"time"
)

// ErrVanished is returned by Remove when the file was already gone. Callers
// treat it as success.
var ErrVanished = errors.New("file vanished before removal")

type FileInfo struct {
	Path  string
	Size  int64
	MTime time.Time
	Inode uint64
}

type FS interface {
	Stat(path string) (FileInfo, error)
	// Walk returns every regular file below root. A missing root yields no
	// files and no error.
	Walk(root string) ([]FileInfo, error)
	Remove(ctx context.Context, path string) error
	Rename(ctx context.Context, oldPath, newPath string) error
	MkdirAll(path string) error
	RemoveAll(path string) error
}
