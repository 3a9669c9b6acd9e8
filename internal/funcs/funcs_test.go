package funcs

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/specialistvlad/gridmake/internal/env"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/function"
)

func evalWith(t *testing.T, fns map[string]function.Function, exprStr string) (cty.Value, hcl.Diagnostics) {
	t.Helper()
	expr, diags := hclsyntax.ParseExpression([]byte(exprStr), "test.hcl", hcl.Pos{Line: 1, Column: 1})
	require.False(t, diags.HasErrors(), "Expression parsing failed: %s", diags.Error())
	return expr.Value(&hcl.EvalContext{Functions: fns})
}

func TestStandard(t *testing.T) {
	v, diags := evalWith(t, Standard(), `join("-", [upper("a"), lower("B")])`)
	require.False(t, diags.HasErrors(), diags.Error())
	assert.Equal(t, "A-b", v.AsString())
}

func TestFiles_WriteThenRead(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "out.txt")

	v, diags := evalWith(t, All(), `writefile("`+filepath.ToSlash(path)+`", upper("payload"))`)
	require.False(t, diags.HasErrors(), diags.Error())
	assert.Equal(t, filepath.ToSlash(path), v.AsString())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "PAYLOAD", string(data))

	v, diags = evalWith(t, Files(), `file("`+filepath.ToSlash(path)+`")`)
	require.False(t, diags.HasErrors(), diags.Error())
	assert.Equal(t, "PAYLOAD", v.AsString())

	v, diags = evalWith(t, Files(), `fileexists("`+filepath.ToSlash(path)+`")`)
	require.False(t, diags.HasErrors(), diags.Error())
	assert.True(t, v.True())

	v, diags = evalWith(t, Files(), `basename("`+filepath.ToSlash(path)+`")`)
	require.False(t, diags.HasErrors(), diags.Error())
	assert.Equal(t, "out.txt", v.AsString())
}

func TestFiles_ReadMissingFails(t *testing.T) {
	_, diags := evalWith(t, Files(), `file("`+filepath.ToSlash(filepath.Join(t.TempDir(), "nope"))+`")`)
	require.True(t, diags.HasErrors())
}

func TestRegister(t *testing.T) {
	ns := env.New("registered")
	fns := map[string]function.Function{"register": Register(ns)}

	v, diags := evalWith(t, fns, `register({ rows = 3 }, "summary")`)
	require.False(t, diags.HasErrors(), diags.Error())

	got, ok := ns.Get("summary")
	require.True(t, ok)
	assert.True(t, got.RawEquals(v))

	t.Run("invalid name is rejected", func(t *testing.T) {
		_, diags := evalWith(t, fns, `register(1, "not a name")`)
		require.True(t, diags.HasErrors())
		assert.Equal(t, 1, ns.Len())
	})
}
