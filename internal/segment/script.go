package segment

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/specialistvlad/gridmake/internal/ctxlog"
	"github.com/specialistvlad/gridmake/internal/env"
	"github.com/specialistvlad/gridmake/internal/funcs"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/function"
)

// RegisteredKey is the name under which a script's registration namespace
// is bound in the execution environment.
const RegisteredKey = "registered"

// Environment variables passed to shell scripts.
const (
	RegisterFileEnv = "GRIDMAKE_REGISTER"
	SegmentIDEnv    = "GRIDMAKE_SEGMENT"
)

// Script is an external file run against the segment's environment.
//
// Files ending in .hcl are evaluated in-process: their top-level attributes
// are bound into the environment in source order, and register(value, name)
// exposes a value in the segment's result. Anything else is run with sh and
// registers values by appending name=value lines to $GRIDMAKE_REGISTER.
type Script struct {
	path string
}

// NewScript builds a segment that runs the script at path. The script must
// exist.
func NewScript(opts Options, path string) (*Segment, error) {
	if path == "" {
		return nil, ErrEmptyPath
	}
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrScriptNotFound, path)
	}
	return New(opts, &Script{path: path})
}

// Path returns the script location.
func (sc *Script) Path() string { return sc.path }

func (sc *Script) Kind() string { return "script" }

func (sc *Script) title() string { return filepath.Base(sc.path) }

func (sc *Script) describe() []string {
	return []string{"Source: " + quote([]string{sc.path})}
}

func (sc *Script) describeResult(v cty.Value) string {
	n := 0
	if !v.IsNull() && v.Type().IsObjectType() {
		n = len(v.Type().AttributeTypes())
	}
	if n == 1 {
		return "1 registered value"
	}
	return strconv.Itoa(n) + " registered values"
}

func (sc *Script) effectiveDependencies(deps []string) []string {
	out := append([]string(nil), deps...)
	for _, d := range deps {
		if filepath.Clean(d) == filepath.Clean(sc.path) {
			return out
		}
	}
	return append(out, sc.path)
}

func (sc *Script) validate(targets []string) error {
	if overlap := intersect(targets, []string{sc.path}); len(overlap) > 0 {
		return fmt.Errorf("%w: %s", ErrTargetIsScript, sc.path)
	}
	return nil
}

// prepare allocates a fresh registration namespace. It replaces the one in
// the handle only when the script runs.
func (sc *Script) prepare(s *Segment) invocation {
	return &scriptRun{script: sc, segment: s, registered: env.New(RegisteredKey)}
}

type scriptRun struct {
	script     *Script
	segment    *Segment
	registered *env.Env
}

// skipped keeps whatever an earlier run registered in the handle and binds
// the empty namespace only where nothing was registered yet.
func (i *scriptRun) skipped() cty.Value {
	if _, ok := i.segment.handle.Lookup(RegisteredKey); !ok {
		i.segment.handle.Bind(RegisteredKey, i.registered)
	}
	return i.registered.Value()
}

func (i *scriptRun) run(ctx context.Context) (cty.Value, error) {
	i.segment.handle.Bind(RegisteredKey, i.registered)
	var err error
	if strings.EqualFold(filepath.Ext(i.script.path), ".hcl") {
		err = i.evalHCL(ctx)
	} else {
		err = i.runShell(ctx)
	}
	if err != nil {
		return cty.NilVal, err
	}
	return i.registered.Value(), nil
}

func (i *scriptRun) evalHCL(ctx context.Context) error {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(i.script.path)
	if diags.HasErrors() {
		return fmt.Errorf("failed to parse script %s: %s", i.script.path, diags.Error())
	}
	attrs, diags := file.Body.JustAttributes()
	if diags.HasErrors() {
		return fmt.Errorf("script %s: %s", i.script.path, diags.Error())
	}

	ordered := make([]*hcl.Attribute, 0, len(attrs))
	for _, a := range attrs {
		ordered = append(ordered, a)
	}
	sort.Slice(ordered, func(a, b int) bool {
		return ordered[a].Range.Start.Byte < ordered[b].Range.Start.Byte
	})

	handle := i.segment.handle
	for _, attr := range ordered {
		evalCtx, err := i.segment.evalContext(ctx)
		if err != nil {
			return err
		}
		evalCtx = evalCtx.NewChild()
		evalCtx.Functions = map[string]function.Function{
			"register": funcs.Register(i.registered),
		}
		v, diags := attr.Expr.Value(evalCtx)
		if diags.HasErrors() {
			return fmt.Errorf("script %s: %s", i.script.path, diags.Error())
		}
		handle.Set(attr.Name, v)
	}
	return nil
}

func (i *scriptRun) runShell(ctx context.Context) error {
	logger := ctxlog.FromContext(ctx)

	regFile, err := os.CreateTemp("", "gridmake-register-*")
	if err != nil {
		return fmt.Errorf("failed to create registration file: %w", err)
	}
	regPath := regFile.Name()
	regFile.Close()
	defer os.Remove(regPath)

	cmd := exec.CommandContext(ctx, "sh", i.script.path)
	cmd.Env = append(os.Environ(),
		RegisterFileEnv+"="+regPath,
		SegmentIDEnv+"="+strconv.Itoa(i.segment.id),
	)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			return fmt.Errorf("script %s: %w", i.script.path, err)
		}
		return fmt.Errorf("script %s: %w: %s", i.script.path, err, msg)
	}
	if stdout.Len() > 0 {
		logger.Debug("Script output.", "script", i.script.path, "stdout", strings.TrimSpace(stdout.String()))
	}

	return readRegistrations(regPath, i.registered)
}

// readRegistrations binds every name=value line of path into ns as a string.
func readRegistrations(path string, ns *env.Env) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open registration file: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		name, value, ok := strings.Cut(text, "=")
		name = strings.TrimSpace(name)
		if !ok || !hclsyntax.ValidIdentifier(name) {
			return fmt.Errorf("registration line %d: expected name=value, got %q", line, text)
		}
		ns.Set(name, cty.StringVal(value))
	}
	return scanner.Err()
}
