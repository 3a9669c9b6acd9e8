package segment

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/specialistvlad/gridmake/internal/env"
	"github.com/specialistvlad/gridmake/internal/funcs"
	"github.com/stretchr/testify/require"
)

var base = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// touch writes path under dir with a modification time offset from base.
func touch(t *testing.T, dir, name string, offset time.Duration) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(name), 0o644))
	mtime := base.Add(offset)
	require.NoError(t, os.Chtimes(path, mtime, mtime))
	return path
}

// writeScript writes an executable-agnostic script file under dir.
func writeScript(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

// newHandle returns a root environment with the full function table.
func newHandle() *env.Env {
	h := env.New("global")
	h.SetFunctions(funcs.All())
	return h
}
