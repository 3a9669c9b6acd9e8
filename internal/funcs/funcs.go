// Package funcs provides the HCL function table available to recipes,
// scripts and library files.
package funcs

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/specialistvlad/gridmake/internal/env"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/function"
	"github.com/zclconf/go-cty/cty/function/stdlib"
)

// Standard returns the string, collection and encoding functions from the
// go-cty standard library.
func Standard() map[string]function.Function {
	return map[string]function.Function{
		"concat":     stdlib.ConcatFunc,
		"csvdecode":  stdlib.CSVDecodeFunc,
		"format":     stdlib.FormatFunc,
		"join":       stdlib.JoinFunc,
		"jsondecode": stdlib.JSONDecodeFunc,
		"jsonencode": stdlib.JSONEncodeFunc,
		"keys":       stdlib.KeysFunc,
		"length":     stdlib.LengthFunc,
		"lower":      stdlib.LowerFunc,
		"max":        stdlib.MaxFunc,
		"merge":      stdlib.MergeFunc,
		"min":        stdlib.MinFunc,
		"replace":    stdlib.ReplaceFunc,
		"split":      stdlib.SplitFunc,
		"strlen":     stdlib.StrlenFunc,
		"trimspace":  stdlib.TrimSpaceFunc,
		"upper":      stdlib.UpperFunc,
	}
}

// Files returns the filesystem functions. Relative paths resolve against the
// process working directory.
func Files() map[string]function.Function {
	return map[string]function.Function{
		"basename":   BasenameFunc,
		"file":       FileFunc,
		"fileexists": FileExistsFunc,
		"writefile":  WriteFileFunc,
	}
}

// All returns Standard and Files combined.
func All() map[string]function.Function {
	out := Standard()
	for name, fn := range Files() {
		out[name] = fn
	}
	return out
}

// FileFunc reads a file and returns its contents as a string.
var FileFunc = function.New(&function.Spec{
	Params: []function.Parameter{
		{Name: "path", Type: cty.String},
	},
	Type: function.StaticReturnType(cty.String),
	Impl: func(args []cty.Value, retType cty.Type) (cty.Value, error) {
		data, err := os.ReadFile(args[0].AsString())
		if err != nil {
			return cty.UnknownVal(cty.String), err
		}
		return cty.StringVal(string(data)), nil
	},
})

// WriteFileFunc writes content to path, creating parent directories, and
// returns the path so recipes can chain on it.
var WriteFileFunc = function.New(&function.Spec{
	Params: []function.Parameter{
		{Name: "path", Type: cty.String},
		{Name: "content", Type: cty.String},
	},
	Type: function.StaticReturnType(cty.String),
	Impl: func(args []cty.Value, retType cty.Type) (cty.Value, error) {
		path := args[0].AsString()
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return cty.UnknownVal(cty.String), err
			}
		}
		if err := os.WriteFile(path, []byte(args[1].AsString()), 0o644); err != nil {
			return cty.UnknownVal(cty.String), err
		}
		return args[0], nil
	},
})

// FileExistsFunc reports whether path exists.
var FileExistsFunc = function.New(&function.Spec{
	Params: []function.Parameter{
		{Name: "path", Type: cty.String},
	},
	Type: function.StaticReturnType(cty.Bool),
	Impl: func(args []cty.Value, retType cty.Type) (cty.Value, error) {
		_, err := os.Stat(args[0].AsString())
		return cty.BoolVal(err == nil), nil
	},
})

// BasenameFunc returns the last element of a path.
var BasenameFunc = function.New(&function.Spec{
	Params: []function.Parameter{
		{Name: "path", Type: cty.String},
	},
	Type: function.StaticReturnType(cty.String),
	Impl: func(args []cty.Value, retType cty.Type) (cty.Value, error) {
		return cty.StringVal(filepath.Base(args[0].AsString())), nil
	},
})

// Register returns the registration primitive for scripts:
// register(value, name) binds value under name in ns and returns value.
func Register(ns *env.Env) function.Function {
	return function.New(&function.Spec{
		Params: []function.Parameter{
			{Name: "value", Type: cty.DynamicPseudoType, AllowNull: true},
			{Name: "name", Type: cty.String},
		},
		Type: func(args []cty.Value) (cty.Type, error) {
			return args[0].Type(), nil
		},
		Impl: func(args []cty.Value, retType cty.Type) (cty.Value, error) {
			name := args[1].AsString()
			if !hclsyntax.ValidIdentifier(name) {
				return cty.UnknownVal(retType), fmt.Errorf("register: %q is not a valid name", name)
			}
			ns.Set(name, args[0])
			return args[0], nil
		},
	})
}
