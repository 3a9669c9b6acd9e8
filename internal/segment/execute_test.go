package segment

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/specialistvlad/gridmake/internal/ctxlog"
	"github.com/specialistvlad/gridmake/internal/library"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"
)

func recipeFixture(t *testing.T, force bool, targetOffset *time.Duration) (*Segment, string) {
	t.Helper()
	dir := t.TempDir()
	in := touch(t, dir, "in.txt", 0)
	out := filepath.Join(dir, "out.bin")
	if targetOffset != nil {
		touch(t, dir, "out.bin", *targetOffset)
	}

	handle := newHandle()
	handle.Set("in", cty.StringVal(in))
	handle.Set("out", cty.StringVal(out))

	s, err := NewRecipe(Options{
		ID:           1,
		Targets:      []string{out},
		Dependencies: []string{in},
		Handle:       handle,
		Force:        force,
	}, `writefile(out, upper(file(in)))`)
	require.NoError(t, err)
	return s, out
}

func TestExecute_Recipe_MissingTargetRuns(t *testing.T) {
	// --- Arrange ---
	s, out := recipeFixture(t, false, nil)
	for _, e := range s.Edges() {
		assert.True(t, e.Outdated, "edge %s -> %s before execution", e.From, e.To)
	}

	// --- Act ---
	err := s.Execute(context.Background(), nil, true)

	// --- Assert ---
	require.NoError(t, err)
	assert.True(t, s.Executed())
	assert.Equal(t, StateExecuted, s.State())
	_, ok := s.Duration()
	assert.True(t, ok)
	assert.True(t, cty.StringVal(out).RawEquals(s.Result()))

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "IN.TXT", string(data))
}

func TestExecute_Recipe_FreshTargetSkips(t *testing.T) {
	// --- Arrange ---
	newer := time.Hour
	s, out := recipeFixture(t, false, &newer)

	// --- Act ---
	err := s.Execute(context.Background(), nil, true)

	// --- Assert ---
	require.NoError(t, err)
	assert.False(t, s.Executed())
	assert.Equal(t, StateSkipped, s.State())
	assert.True(t, s.Result().IsNull())
	_, ok := s.Duration()
	assert.False(t, ok)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "out.bin", string(data), "target must not be rewritten")
}

func TestExecute_Recipe_ForceRunsFreshTarget(t *testing.T) {
	newer := time.Hour
	s, out := recipeFixture(t, true, &newer)

	require.NoError(t, s.Execute(context.Background(), nil, true))

	assert.True(t, s.Executed())
	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "IN.TXT", string(data))
}

func TestExecute_FailureLeavesOutcomeUntouched(t *testing.T) {
	// --- Arrange ---
	dir := t.TempDir()
	handle := newHandle()
	handle.Set("missing", cty.StringVal(filepath.Join(dir, "nope.txt")))
	s, err := NewRecipe(Options{ID: 3, Targets: []string{filepath.Join(dir, "out")}, Handle: handle}, `file(missing)`)
	require.NoError(t, err)

	d := time.Minute
	previous := cty.StringVal("previous")
	s.UpdateResult(true, &d, previous)

	// --- Act ---
	err = s.Execute(context.Background(), nil, true)

	// --- Assert ---
	require.Error(t, err)
	assert.Contains(t, err.Error(), "segment 3")
	assert.True(t, s.Executed())
	got, ok := s.Duration()
	require.True(t, ok)
	assert.Equal(t, d, got)
	assert.True(t, previous.RawEquals(s.Result()))
	assert.Equal(t, StateConstructed, s.State())
}

func TestExecute_ReplacesHandle(t *testing.T) {
	dir := t.TempDir()
	first := newHandle()
	first.Set("word", cty.StringVal("first"))
	s, err := NewRecipe(Options{Targets: []string{filepath.Join(dir, "out")}, Handle: first, Force: true}, `upper(word)`)
	require.NoError(t, err)

	second := newHandle()
	second.Set("word", cty.StringVal("second"))
	require.NoError(t, s.Execute(context.Background(), second, true))

	assert.Same(t, second, s.Handle())
	assert.True(t, cty.StringVal("SECOND").RawEquals(s.Result()))
}

func TestExecute_Quiet(t *testing.T) {
	for _, quiet := range []bool{false, true} {
		var buf bytes.Buffer
		ctx := ctxlog.WithLogger(context.Background(), slog.New(slog.NewTextHandler(&buf, nil)))
		s, _ := recipeFixture(t, false, nil)

		require.NoError(t, s.Execute(ctx, nil, quiet))
		require.NoError(t, s.Execute(ctx, nil, quiet))

		if quiet {
			assert.Empty(t, buf.String())
			continue
		}
		assert.Contains(t, buf.String(), "Targets are out of date, running.")
		assert.Contains(t, buf.String(), "Segment finished.")
		assert.Contains(t, buf.String(), "Targets are up to date, skipping.")
	}
}

func TestExecute_RecipeSeesLibraries(t *testing.T) {
	dir := t.TempDir()
	libDir := filepath.Join(dir, "libs", "greeting")
	require.NoError(t, os.MkdirAll(libDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(libDir, "values.hcl"), []byte(`hello = "hi"`), 0o644))

	s, err := NewRecipe(Options{
		Targets:   []string{filepath.Join(dir, "out")},
		Packages:  []string{"greeting"},
		Handle:    newHandle(),
		Force:     true,
		Libraries: library.NewDirRegistry(filepath.Join(dir, "libs")),
	}, `upper(lib.greeting.hello)`)
	require.NoError(t, err)

	require.NoError(t, s.Execute(context.Background(), nil, true))
	assert.True(t, cty.StringVal("HI").RawEquals(s.Result()))
}

func TestExecute_HCLScript(t *testing.T) {
	// --- Arrange ---
	dir := t.TempDir()
	out := filepath.Join(dir, "model.txt")
	script := writeScript(t, dir, "fit.hcl", `
rows    = length(split(",", "a,b,c"))
summary = "rows=${rows}"
written = writefile(target, summary)
kept    = register(rows, "rows")
`)
	caller := newHandle()
	caller.Set("target", cty.StringVal(out))
	handle := caller.Child("segment-1")

	s, err := NewScript(Options{ID: 1, Targets: []string{out}, Handle: handle}, script)
	require.NoError(t, err)

	// --- Act ---
	require.NoError(t, s.Execute(context.Background(), nil, true))

	// --- Assert ---
	assert.True(t, s.Executed())
	want := cty.ObjectVal(map[string]cty.Value{"rows": cty.NumberIntVal(3)})
	assert.True(t, want.RawEquals(s.Result()), "got %#v", s.Result())

	v, ok := handle.Get("summary")
	require.True(t, ok)
	assert.Equal(t, "rows=3", v.AsString())
	_, leaked := caller.Get("summary")
	assert.False(t, leaked, "script bindings must land in the segment handle")

	reg, ok := handle.Lookup(RegisteredKey)
	require.True(t, ok)
	assert.Equal(t, []string{"rows"}, reg.Names())

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "rows=3", string(data))
}

func TestExecute_ScriptSkippedHasEmptyResult(t *testing.T) {
	dir := t.TempDir()
	script := writeScript(t, dir, "fit.hcl", `x = register(1, "x")`)
	require.NoError(t, os.Chtimes(script, base, base))
	out := touch(t, dir, "model.bin", time.Hour)

	handle := newHandle()
	s, err := NewScript(Options{Targets: []string{out}, Handle: handle}, script)
	require.NoError(t, err)

	require.NoError(t, s.Execute(context.Background(), nil, true))

	assert.False(t, s.Executed())
	assert.True(t, cty.EmptyObjectVal.RawEquals(s.Result()))
	reg, ok := handle.Lookup(RegisteredKey)
	require.True(t, ok, "a first skip binds an empty registration namespace")
	assert.Zero(t, reg.Len())
}

func TestExecute_ScriptSkipKeepsRegistrations(t *testing.T) {
	// --- Arrange ---
	dir := t.TempDir()
	out := filepath.Join(dir, "model.txt")
	script := writeScript(t, dir, "fit.hcl", `
rows    = register(3, "rows")
written = writefile("`+out+`", "model")
`)
	require.NoError(t, os.Chtimes(script, base, base))

	handle := newHandle().Child("segment_1")
	s, err := NewScript(Options{ID: 1, Targets: []string{out}, Handle: handle}, script)
	require.NoError(t, err)
	require.NoError(t, s.Execute(context.Background(), nil, true))
	require.True(t, s.Executed())

	// --- Act ---
	require.NoError(t, s.Execute(context.Background(), nil, true))

	// --- Assert ---
	assert.False(t, s.Executed())
	assert.Equal(t, StateSkipped, s.State())
	assert.True(t, cty.EmptyObjectVal.RawEquals(s.Result()))

	reg, ok := handle.Lookup(RegisteredKey)
	require.True(t, ok)
	assert.Equal(t, []string{"rows"}, reg.Names())
	v, ok := handle.Get("rows")
	require.True(t, ok)
	assert.True(t, v.Equals(cty.NumberIntVal(3)).True())
}

func TestExecute_ScriptIsADependency(t *testing.T) {
	dir := t.TempDir()
	out := touch(t, dir, "model.bin", time.Hour)
	script := writeScript(t, dir, "fit.hcl", `x = 1`)
	later := base.Add(2 * time.Hour)
	require.NoError(t, os.Chtimes(script, later, later))

	s, err := NewScript(Options{Targets: []string{out}, Handle: newHandle()}, script)
	require.NoError(t, err)

	assert.Equal(t, []string{script}, s.EffectiveDependencies())
	assert.True(t, s.OutOfDate(), "editing the script makes its targets stale")
}

func TestExecute_ShellScript(t *testing.T) {
	// --- Arrange ---
	dir := t.TempDir()
	out := filepath.Join(dir, "out.txt")
	script := writeScript(t, dir, "build.sh", `
echo "built" > "`+out+`"
echo "lines=1" >> "$GRIDMAKE_REGISTER"
echo "segment=$GRIDMAKE_SEGMENT" >> "$GRIDMAKE_REGISTER"
`)
	s, err := NewScript(Options{ID: 4, Targets: []string{out}, Handle: newHandle()}, script)
	require.NoError(t, err)

	// --- Act ---
	require.NoError(t, s.Execute(context.Background(), nil, true))

	// --- Assert ---
	want := cty.ObjectVal(map[string]cty.Value{
		"lines":   cty.StringVal("1"),
		"segment": cty.StringVal("4"),
	})
	assert.True(t, want.RawEquals(s.Result()), "got %#v", s.Result())
	assert.FileExists(t, out)
}

func TestExecute_ShellScriptFailure(t *testing.T) {
	dir := t.TempDir()
	script := writeScript(t, dir, "fail.sh", "echo broken >&2\nexit 3\n")
	s, err := NewScript(Options{Targets: []string{filepath.Join(dir, "out")}, Handle: newHandle()}, script)
	require.NoError(t, err)

	err = s.Execute(context.Background(), nil, true)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken")
	assert.False(t, s.Executed())
}

func TestRestore_ReappliesOutcomeAndState(t *testing.T) {
	d := 2 * time.Second
	result := cty.StringVal("done")

	testCases := []struct {
		name     string
		executed bool
		duration *time.Duration
		result   cty.Value
		state    string
	}{
		{name: "executed", executed: true, duration: &d, result: result, state: StateExecuted},
		{name: "skipped", result: cty.NullVal(cty.DynamicPseudoType), state: StateSkipped},
		{name: "constructed", result: cty.NullVal(cty.DynamicPseudoType), state: StateConstructed},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			s, err := NewRecipe(Options{ID: 2, Targets: []string{"out"}, Handle: newHandle()}, `"x"`)
			require.NoError(t, err)

			require.NoError(t, s.Restore(tc.executed, tc.duration, tc.result, tc.state))

			assert.Equal(t, tc.state, s.State())
			assert.Equal(t, tc.executed, s.Executed())
			assert.True(t, tc.result.RawEquals(s.Result()))
			_, ok := s.Duration()
			assert.Equal(t, tc.duration != nil, ok)
		})
	}

	t.Run("unknown state", func(t *testing.T) {
		s, err := NewRecipe(Options{ID: 2, Targets: []string{"out"}, Handle: newHandle()}, `"x"`)
		require.NoError(t, err)

		err = s.Restore(true, &d, result, "running")

		require.Error(t, err)
		assert.Equal(t, StateConstructed, s.State())
		assert.False(t, s.Executed())
	})

	t.Run("back to constructed", func(t *testing.T) {
		s, _ := recipeFixture(t, true, nil)
		require.NoError(t, s.Execute(context.Background(), nil, true))
		require.Equal(t, StateExecuted, s.State())

		require.NoError(t, s.Restore(false, nil, cty.NullVal(cty.DynamicPseudoType), StateConstructed))

		assert.Equal(t, StateConstructed, s.State())
	})
}

func TestLifecycle_Reset(t *testing.T) {
	s, _ := recipeFixture(t, true, nil)
	require.NoError(t, s.Execute(context.Background(), nil, true))
	require.Equal(t, StateExecuted, s.State())

	s.Reset()

	assert.Equal(t, StateConstructed, s.State())
	assert.False(t, s.Executed())
	assert.True(t, s.Result().IsNull())
}
