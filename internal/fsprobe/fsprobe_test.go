package fsprobe

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProbe_MissingDir(t *testing.T) {
	res := Probe(filepath.Join(t.TempDir(), "nope"), 0)
	assert.False(t, res.Supported)
	assert.Contains(t, res.Reason, "stat failed")
}

func TestProbe_NotADirectory(t *testing.T) {
	p := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(p, []byte("x"), 0o644))

	res := Probe(p, 0)
	assert.False(t, res.Supported)
	assert.Equal(t, "not a directory", res.Reason)
}

func TestProbe_LeavesNoFiles(t *testing.T) {
	dir := t.TempDir()
	res := Probe(dir, 0)
	if !res.Supported {
		t.Logf("fsnotify unsupported here: %s", res.Reason)
	}

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}
