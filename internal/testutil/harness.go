// Package testutil provides shared helpers for integration tests.
package testutil

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/specialistvlad/gridmake/internal/app"
	"github.com/specialistvlad/gridmake/internal/hcl_adapter"
	"github.com/stretchr/testify/require"
)

// DirPlaceholder is replaced by the test's working directory in every
// file written by WriteFiles.
const DirPlaceholder = "{{dir}}"

// SafeBuffer is a thread-safe buffer for capturing log output in tests.
type SafeBuffer struct {
	b  bytes.Buffer
	mu sync.Mutex
}

// Write implements the io.Writer interface for SafeBuffer.
func (b *SafeBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.b.Write(p)
}

// String implements the fmt.Stringer interface for SafeBuffer.
func (b *SafeBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.b.String()
}

// HarnessResult holds the outcomes of an integration test run.
type HarnessResult struct {
	Dir       string
	LogOutput string
	Err       error
	App       *app.App
}

// WriteFiles writes files into a fresh temporary directory and returns it.
func WriteFiles(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		content = strings.ReplaceAll(content, DirPlaceholder, dir)
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	return dir
}

// DefinitionFile is the definition file the harness loads from a test directory.
const DefinitionFile = "pipeline.hcl"

// Config returns the configuration used by the harness for dir.
func Config(t *testing.T, dir string) *app.Config {
	t.Helper()
	cfg, err := app.NewConfig(app.Config{
		Paths:       []string{filepath.Join(dir, DefinitionFile)},
		LibraryPath: filepath.Join(dir, "libs"),
		StatePath:   filepath.Join(dir, ".gridmake", "state.json"),
		HistoryPath: filepath.Join(dir, ".gridmake", "history.db"),
		LogFormat:   "text",
		LogLevel:    "debug",
	})
	require.NoError(t, err)
	return cfg
}

// NewApp loads the definitions in dir. Log output is captured in the
// returned buffer and printed when GRIDMAKE_TEST_LOGS=true.
func NewApp(t *testing.T, dir string) (*app.App, *SafeBuffer, error) {
	t.Helper()
	logBuffer := &SafeBuffer{}
	t.Cleanup(func() {
		if os.Getenv("GRIDMAKE_TEST_LOGS") == "true" {
			t.Logf("--- Full Log Output for %s ---\n%s", t.Name(), logBuffer.String())
		}
	})

	a, err := app.NewApp(logBuffer, Config(t, dir), hcl_adapter.NewLoader())
	if a != nil {
		t.Cleanup(func() { a.Close() })
	}
	return a, logBuffer, err
}

// RunIntegrationTest writes files, loads them and runs one build.
func RunIntegrationTest(t *testing.T, files map[string]string) *HarnessResult {
	t.Helper()
	return RunIntegrationTestWithContext(context.Background(), t, files)
}

// RunIntegrationTestWithContext is RunIntegrationTest with a caller-supplied context.
func RunIntegrationTestWithContext(ctx context.Context, t *testing.T, files map[string]string) *HarnessResult {
	t.Helper()
	dir := WriteFiles(t, files)

	a, logBuffer, err := NewApp(t, dir)
	if err == nil {
		err = a.Build(ctx)
	}
	return &HarnessResult{
		Dir:       dir,
		LogOutput: logBuffer.String(),
		Err:       err,
		App:       a,
	}
}
