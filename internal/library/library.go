// Package library resolves the named libraries ("packages") a segment
// depends on. A library contributes its install time to staleness checks and
// may expose values to recipes as lib.<name>.<attr>.
package library

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/specialistvlad/gridmake/internal/ctxlog"
	"github.com/specialistvlad/gridmake/internal/fsutil"
	"github.com/zclconf/go-cty/cty"
)

// ErrNotInstalled is returned when a library name does not resolve.
var ErrNotInstalled = errors.New("library not installed")

// Library is an installed library.
type Library struct {
	Name string
	// Path is the library directory. It is empty for in-memory libraries.
	Path string
	// InstalledAt is the install or last update time of the library.
	InstalledAt time.Time
}

// Resolver resolves library names to installed libraries.
type Resolver interface {
	Resolve(name string) (*Library, error)
}

// DirRegistry treats every sub-directory of a root directory as a library.
type DirRegistry struct {
	root string
}

// NewDirRegistry creates a registry over root. The directory does not need
// to exist; an absent root simply has no libraries.
func NewDirRegistry(root string) *DirRegistry {
	return &DirRegistry{root: root}
}

// Root returns the library root directory.
func (r *DirRegistry) Root() string {
	return r.root
}

// Resolve implements Resolver. The install time of a directory library is
// the newest modification time of anything inside it.
func (r *DirRegistry) Resolve(name string) (*Library, error) {
	if name == "" || strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
		return nil, fmt.Errorf("%w: invalid library name %q", ErrNotInstalled, name)
	}
	path := filepath.Join(r.root, name)
	info, err := os.Stat(path)
	if err != nil || !info.IsDir() {
		return nil, fmt.Errorf("%w: %q not found in %s", ErrNotInstalled, name, r.root)
	}
	installedAt, err := fsutil.LatestModTime(path)
	if err != nil {
		return nil, fmt.Errorf("library %q: %w", name, err)
	}
	return &Library{Name: name, Path: path, InstalledAt: installedAt}, nil
}

// List returns the sorted names of every installed library.
func (r *DirRegistry) List() ([]string, error) {
	entries, err := os.ReadDir(r.root)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

// Static is an in-memory Resolver.
type Static struct {
	libs map[string]*Library
}

// NewStatic creates a registry holding libs.
func NewStatic(libs ...*Library) *Static {
	s := &Static{libs: make(map[string]*Library, len(libs))}
	for _, l := range libs {
		s.libs[l.Name] = l
	}
	return s
}

// Resolve implements Resolver.
func (s *Static) Resolve(name string) (*Library, error) {
	l, ok := s.libs[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNotInstalled, name)
	}
	return l, nil
}

// Values evaluates the top-level attributes of every .hcl file in the
// library directory into an object. In-memory libraries have no values.
func (l *Library) Values(ctx context.Context) (cty.Value, error) {
	if l.Path == "" {
		return cty.EmptyObjectVal, nil
	}
	logger := ctxlog.FromContext(ctx)

	files, err := fsutil.FindFilesByExtension(l.Path, ".hcl")
	if err != nil {
		return cty.NilVal, fmt.Errorf("library %q: %w", l.Name, err)
	}

	parser := hclparse.NewParser()
	evalCtx := funcsOnly()
	attrs := make(map[string]cty.Value)
	for _, file := range files {
		hclFile, diags := parser.ParseHCLFile(file)
		if diags.HasErrors() {
			return cty.NilVal, fmt.Errorf("library %q: failed to parse %s: %w", l.Name, file, diags)
		}
		fileAttrs, diags := hclFile.Body.JustAttributes()
		if diags.HasErrors() {
			return cty.NilVal, fmt.Errorf("library %q: %s: %w", l.Name, file, diags)
		}
		for name, attr := range fileAttrs {
			if _, dup := attrs[name]; dup {
				return cty.NilVal, fmt.Errorf("library %q: attribute %q defined more than once", l.Name, name)
			}
			v, diags := attr.Expr.Value(evalCtx)
			if diags.HasErrors() {
				return cty.NilVal, fmt.Errorf("library %q: %w", l.Name, diags)
			}
			attrs[name] = v
		}
	}
	logger.Debug("Library values loaded.", "library", l.Name, "files", len(files), "attributes", len(attrs))

	if len(attrs) == 0 {
		return cty.EmptyObjectVal, nil
	}
	return cty.ObjectVal(attrs), nil
}

// Namespace builds the object exposed to recipes as `lib`, keyed by library name.
func Namespace(ctx context.Context, libs []*Library) (cty.Value, error) {
	if len(libs) == 0 {
		return cty.EmptyObjectVal, nil
	}
	attrs := make(map[string]cty.Value, len(libs))
	for _, l := range libs {
		v, err := l.Values(ctx)
		if err != nil {
			return cty.NilVal, err
		}
		attrs[l.Name] = v
	}
	return cty.ObjectVal(attrs), nil
}
