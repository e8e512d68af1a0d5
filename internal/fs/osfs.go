package fs

import (
	"context"
	"errors"
	iofs "io/fs"
	"os"
	"path/filepath"
)

type OSFS struct{}

// the concrete implementation of FS backed by the local OS filesystem.
// Platform-specific details (such as inode extraction) are handled in build-tagged files.

func New() *OSFS {
	return &OSFS{}
}

func (o *OSFS) Stat(path string) (FileInfo, error) {
	st, err := os.Stat(path)
	if err != nil {
		return FileInfo{}, err
	}
	return fromStat(path, st), nil
}

func (o *OSFS) Walk(root string) ([]FileInfo, error) {
	var files []FileInfo

	err := filepath.WalkDir(root, func(path string, d iofs.DirEntry, err error) error {
		if err != nil {
			// entries removed mid-walk are skipped
			if errors.Is(err, iofs.ErrNotExist) {
				if path == root {
					return filepath.SkipAll
				}
				return nil
			}
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			if errors.Is(err, iofs.ErrNotExist) {
				return nil
			}
			return err
		}
		files = append(files, fromStat(path, info))
		return nil
	})
	if err != nil {
		return nil, err
	}

	return files, nil
}

func (o *OSFS) Remove(ctx context.Context, path string) error {
	return removeWithRetry(ctx, path)
}

func (o *OSFS) MkdirAll(path string) error {
	return os.MkdirAll(path, 0o755)
}

func (o *OSFS) RemoveAll(path string) error {
	return os.RemoveAll(path)
}

func (o *OSFS) Rename(ctx context.Context, oldPath, newPath string) error {
	return renameWithRetry(ctx, oldPath, newPath)
}

func fromStat(path string, st os.FileInfo) FileInfo {
	return FileInfo{
		Path:  path,
		Size:  st.Size(),
		MTime: st.ModTime(),
		Inode: inodeOf(st),
	}
}
