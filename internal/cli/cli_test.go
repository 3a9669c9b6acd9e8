package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/specialistvlad/gridmake/internal/graph"
	"github.com/specialistvlad/gridmake/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const cliPipelineHCL = `
segment "recipe" "clean" {
  targets      = ["{{dir}}/clean.txt"]
  dependencies = ["{{dir}}/raw.txt"]
  run          = writefile("{{dir}}/clean.txt", upper(file("{{dir}}/raw.txt")))
}

segment "recipe" "report" {
  targets      = ["{{dir}}/report.txt"]
  dependencies = ["{{dir}}/clean.txt"]
  run          = writefile("{{dir}}/report.txt", "report: ${file("{{dir}}/clean.txt")}")
}
`

func newWorkspace(t *testing.T) string {
	t.Helper()
	return testutil.WriteFiles(t, map[string]string{
		"pipeline.hcl": cliPipelineHCL,
		"raw.txt":      "hello",
	})
}

// execute runs the root command with args and returns its output, its log
// output and its error.
func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	out, logs := &bytes.Buffer{}, &bytes.Buffer{}
	cmd := NewRootCommand(out)
	cmd.SetErr(logs)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), logs.String(), err
}

// workspaceArgs points every path flag into dir.
func workspaceArgs(dir string, command ...string) []string {
	args := append([]string{}, command...)
	return append(args,
		"--library-path", filepath.Join(dir, "libs"),
		"--state", filepath.Join(dir, ".gridmake", "state.json"),
		"--history", filepath.Join(dir, ".gridmake", "history.db"),
		filepath.Join(dir, "pipeline.hcl"),
	)
}

func requireExitCode(t *testing.T, err error, code int) *ExitError {
	t.Helper()
	require.Error(t, err)
	var exitErr *ExitError
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, code, exitErr.Code)
	return exitErr
}

func TestBuild_ThenStatusIsClean(t *testing.T) {
	// --- Arrange ---
	dir := newWorkspace(t)

	// --- Act ---
	before, _, err := execute(t, workspaceArgs(dir, "status")...)
	require.NoError(t, err)
	_, logs, err := execute(t, workspaceArgs(dir, "build")...)
	require.NoError(t, err)
	after, _, err := execute(t, workspaceArgs(dir, "status")...)
	require.NoError(t, err)

	// --- Assert ---
	assert.Contains(t, before, "Pipeline status")
	assert.Contains(t, before, "2 segment(s), 2 stale")
	assert.Contains(t, logs, "Build finished.")
	assert.Contains(t, after, "2 segment(s), 0 stale")

	report, err := os.ReadFile(filepath.Join(dir, "report.txt"))
	require.NoError(t, err)
	assert.Equal(t, "report: HELLO", string(report))
}

func TestQuietBuild_LogsNoNotifications(t *testing.T) {
	dir := newWorkspace(t)

	_, logs, err := execute(t, workspaceArgs(dir, "build", "--quiet", "--log-level", "info")...)

	require.NoError(t, err)
	assert.NotContains(t, logs, "Starting build")
	assert.NotContains(t, logs, "Targets are out of date")
}

func TestSummary_AfterBuild(t *testing.T) {
	dir := newWorkspace(t)
	_, _, err := execute(t, workspaceArgs(dir, "build")...)
	require.NoError(t, err)

	out, _, err := execute(t, workspaceArgs(dir, "summary")...)

	require.NoError(t, err)
	assert.Contains(t, out, "clean")
	assert.Contains(t, out, "Executed: true")
	assert.Contains(t, out, "Environment: global")
}

func TestClean_ForgetsOutcomes(t *testing.T) {
	dir := newWorkspace(t)
	_, _, err := execute(t, workspaceArgs(dir, "build")...)
	require.NoError(t, err)

	_, _, err = execute(t, workspaceArgs(dir, "clean")...)
	require.NoError(t, err)
	out, _, err := execute(t, workspaceArgs(dir, "summary")...)

	require.NoError(t, err)
	assert.NotContains(t, out, "Executed: true")
	assert.FileExists(t, filepath.Join(dir, "report.txt"))
}

func TestGraph_PrintsDOT(t *testing.T) {
	dir := newWorkspace(t)

	out, _, err := execute(t, workspaceArgs(dir, "graph")...)

	require.NoError(t, err)
	assert.Contains(t, out, "digraph gridmake {")
	assert.Contains(t, out, `"segment:1" [label="clean", shape=box];`)
	assert.Contains(t, out, `"segment:2" [label="report", shape=box];`)
	// Nothing has been built yet, so segment 2's input edge is stale too.
	assert.Contains(t, out, `"`+filepath.Join(dir, "clean.txt")+`" -> "segment:2" [color=red];`)
}

func TestHistory(t *testing.T) {
	t.Run("lists executions of the last build", func(t *testing.T) {
		dir := newWorkspace(t)
		_, _, err := execute(t, workspaceArgs(dir, "build")...)
		require.NoError(t, err)

		out, _, err := execute(t, workspaceArgs(dir, "history", "--limit", "5")...)

		require.NoError(t, err)
		assert.Contains(t, out, "Recent executions")
		assert.Contains(t, out, "report")
		assert.Contains(t, out, "ran")
	})

	t.Run("disabled history is a usage error", func(t *testing.T) {
		dir := newWorkspace(t)
		args := append(workspaceArgs(dir, "history"), "--history=")

		_, _, err := execute(t, args...)

		exitErr := requireExitCode(t, err, 2)
		assert.Contains(t, exitErr.Message, "history is disabled")
	})

	t.Run("non-positive limit", func(t *testing.T) {
		dir := newWorkspace(t)

		_, _, err := execute(t, workspaceArgs(dir, "history", "--limit", "0")...)

		requireExitCode(t, err, 2)
	})
}

func TestUsageErrors(t *testing.T) {
	testCases := []struct {
		name string
		args []string
		want string
	}{
		{name: "unknown flag", args: []string{"build", "--no-such-flag"}, want: "unknown flag"},
		{name: "invalid log level", args: []string{"status", "--log-level", "loud"}, want: "invalid log level"},
		{name: "invalid log format", args: []string{"status", "--log-format", "xml"}, want: "invalid log format"},
		{name: "missing config file", args: []string{"status", "--config", "/nonexistent/gridmake.yaml"}, want: "failed to read config"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := execute(t, tc.args...)

			exitErr := requireExitCode(t, err, 2)
			assert.Contains(t, exitErr.Message, tc.want)
		})
	}
}

func TestConfigFile_SuppliesPaths(t *testing.T) {
	// --- Arrange ---
	dir := newWorkspace(t)
	state := filepath.Join(dir, "custom-state.json")
	configPath := filepath.Join(dir, "gridmake.yaml")
	yaml := "paths:\n  - " + filepath.Join(dir, "pipeline.hcl") + "\n" +
		"state: " + state + "\n" +
		"history: \"\"\n" +
		"library_path: " + filepath.Join(dir, "libs") + "\n"
	require.NoError(t, os.WriteFile(configPath, []byte(yaml), 0o644))

	// --- Act ---
	_, _, err := execute(t, "build", "--config", configPath)

	// --- Assert ---
	require.NoError(t, err)
	assert.FileExists(t, state)
	assert.FileExists(t, filepath.Join(dir, "report.txt"))
}

func TestEnvironment_OverridesDefaults(t *testing.T) {
	dir := newWorkspace(t)
	t.Setenv("GRIDMAKE_LOG_LEVEL", "chatty")

	_, _, err := execute(t, "status",
		"--state", filepath.Join(dir, "state.json"),
		"--history", "",
		filepath.Join(dir, "pipeline.hcl"))

	exitErr := requireExitCode(t, err, 2)
	assert.Contains(t, exitErr.Message, `invalid log level "chatty"`)
}

func TestWriteDOT(t *testing.T) {
	p := graph.Projection{
		Nodes: []graph.Node{
			{ID: "segment:1", Label: "fit", IsInstruction: true},
			{ID: "stats", Label: "stats", IsSource: true, IsPackage: true},
			{ID: "in.csv", IsSource: true},
			{ID: "out.bin"},
		},
		Edges: []graph.Edge{
			{From: "stats", To: "segment:1", IsSource: true, IsPackage: true, SegmentID: 1},
			{From: "in.csv", To: "segment:1", IsSource: true, SegmentID: 1},
			{From: "segment:1", To: "out.bin", Outdated: true, SegmentID: 1},
		},
	}
	var buf bytes.Buffer

	require.NoError(t, writeDOT(&buf, p))

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "write_dot", buf.Bytes())
}
