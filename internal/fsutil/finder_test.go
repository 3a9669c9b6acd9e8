package fsutil

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path string, mtime time.Time) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
	require.NoError(t, os.Chtimes(path, mtime, mtime))
}

func TestFindFilesByExtension(t *testing.T) {
	root := t.TempDir()
	base := time.Now()
	writeFile(t, filepath.Join(root, "b.hcl"), base)
	writeFile(t, filepath.Join(root, "sub", "a.hcl"), base)
	writeFile(t, filepath.Join(root, "notes.md"), base)

	files, err := FindFilesByExtension(root, ".hcl")
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(root, "b.hcl"),
		filepath.Join(root, "sub", "a.hcl"),
	}, files)

	assert.Panics(t, func() { _, _ = FindFilesByExtension(root, "") })
}

func TestLatestModTime(t *testing.T) {
	root := t.TempDir()
	old := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	newer := time.Date(2021, 6, 1, 0, 0, 0, 0, time.UTC)
	writeFile(t, filepath.Join(root, "lib", "a.hcl"), old)
	writeFile(t, filepath.Join(root, "lib", "deep", "b.hcl"), newer)
	for _, dir := range []string{root, filepath.Join(root, "lib"), filepath.Join(root, "lib", "deep")} {
		require.NoError(t, os.Chtimes(dir, old, old))
	}

	got, err := LatestModTime(filepath.Join(root, "lib"))
	require.NoError(t, err)
	assert.True(t, got.Equal(newer), "got %s", got)

	_, err = LatestModTime(filepath.Join(root, "missing"))
	assert.Error(t, err)
}

func TestExists(t *testing.T) {
	root := t.TempDir()
	assert.True(t, Exists(root))
	assert.False(t, Exists(filepath.Join(root, "missing")))
}
