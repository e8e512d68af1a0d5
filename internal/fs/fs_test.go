package fs

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path string, size int) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, make([]byte, size), 0o644))
}

func TestWalk_MissingRoot(t *testing.T) {
	files, err := New().Walk(filepath.Join(t.TempDir(), "absent"))
	require.NoError(t, err)
	assert.Empty(t, files)
}

func TestWalk_Recursive(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a.zip"), 10)
	writeFile(t, filepath.Join(root, ".backup_x", "b.zip"), 20)
	writeFile(t, filepath.Join(root, ".backup_y", "deep", "c.zip"), 30)

	files, err := New().Walk(root)
	require.NoError(t, err)
	require.Len(t, files, 3)

	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })

	var total int64
	for _, f := range files {
		total += f.Size
		assert.False(t, f.MTime.IsZero())
	}
	assert.Equal(t, int64(60), total)
	assert.Equal(t, filepath.Join(root, ".backup_x", "b.zip"), files[0].Path)
}

func TestRemove(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "old.zip")
	writeFile(t, path, 1)

	o := New()
	require.NoError(t, o.Remove(context.Background(), path))

	_, err := os.Stat(path)
	assert.True(t, errors.Is(err, os.ErrNotExist))

	err = o.Remove(context.Background(), path)
	assert.ErrorIs(t, err, ErrVanished)
}

func TestRename(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, ".tmp-a.zip")
	dst := filepath.Join(dir, "a.zip")
	writeFile(t, src, 5)

	require.NoError(t, New().Rename(context.Background(), src, dst))

	info, err := New().Stat(dst)
	require.NoError(t, err)
	assert.Equal(t, int64(5), info.Size)
}

func TestChanged(t *testing.T) {
	now := time.Now()
	base := FileInfo{Path: "f", Size: 10, MTime: now, Inode: 7}

	assert.False(t, Changed(base, base))
	assert.True(t, Changed(base, FileInfo{Size: 11, MTime: now, Inode: 7}))
	assert.True(t, Changed(base, FileInfo{Size: 10, MTime: now.Add(time.Second), Inode: 7}))
	assert.True(t, Changed(base, FileInfo{Size: 10, MTime: now, Inode: 8}))
	assert.False(t, Changed(base, FileInfo{Size: 10, MTime: now, Inode: 0}))
}

func TestRetry(t *testing.T) {
	orig := retryBase
	retryBase = time.Millisecond
	t.Cleanup(func() { retryBase = orig })

	t.Run("transient then success", func(t *testing.T) {
		calls := 0
		err := retry(context.Background(), "op", func() error {
			calls++
			if calls < 3 {
				return syscall.EBUSY
			}
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, 3, calls)
	})

	t.Run("permanent", func(t *testing.T) {
		calls := 0
		err := retry(context.Background(), "op", func() error {
			calls++
			return syscall.EACCES
		})
		require.Error(t, err)
		assert.ErrorIs(t, err, syscall.EACCES)
		assert.Equal(t, 1, calls)
	})

	t.Run("exhausted", func(t *testing.T) {
		calls := 0
		err := retry(context.Background(), "op", func() error {
			calls++
			return syscall.EAGAIN
		})
		require.Error(t, err)
		assert.Equal(t, maxRetries, calls)
	})

	t.Run("canceled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		err := retry(ctx, "op", func() error { return nil })
		assert.ErrorIs(t, err, context.Canceled)
	})
}
