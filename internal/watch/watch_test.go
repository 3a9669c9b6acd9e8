package watch

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_WatchesParentDirectories(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "sub")

	w, err := New([]string{filepath.Join(dir, "a.txt"), filepath.Join(dir, "b.txt"), filepath.Join(sub, "c.txt")}, 0)
	require.NoError(t, err)
	defer w.watcher.Close()

	assert.Equal(t, []string{dir, sub}, w.Dirs())
	assert.Equal(t, DefaultDebounce, w.debounce)
}

func TestWatcher_ReportsChangedFiles(t *testing.T) {
	// --- Arrange ---
	dir := t.TempDir()
	watched := filepath.Join(dir, "in.csv")
	ignored := filepath.Join(dir, "scratch.tmp")
	require.NoError(t, os.WriteFile(watched, []byte("a"), 0o644))

	w, err := New([]string{watched}, 20*time.Millisecond)
	require.NoError(t, err)
	require.NoError(t, w.Start(context.Background()))

	// --- Act ---
	require.NoError(t, os.WriteFile(ignored, []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(watched, []byte("b"), 0o644))
	require.NoError(t, os.WriteFile(watched, []byte("c"), 0o644))

	// --- Assert ---
	select {
	case change := <-w.Changes:
		assert.Equal(t, []string{watched}, change.Files)
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for a change")
	}

	w.Stop()
	_, open := <-w.Changes
	assert.False(t, open, "Changes is closed after Stop")
}

func TestRun(t *testing.T) {
	changes := make(chan Change, 2)
	changes <- Change{Files: []string{"a"}}
	changes <- Change{Files: []string{"b"}}
	close(changes)

	var seen []string
	err := Run(context.Background(), changes, func(_ context.Context, c Change) error {
		seen = append(seen, c.Files...)
		return errors.New("failures do not stop watching")
	})

	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, seen)
}

func TestRun_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := Run(ctx, make(chan Change), func(context.Context, Change) error { return nil })
	assert.ErrorIs(t, err, context.Canceled)
}
