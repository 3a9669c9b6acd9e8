package hcl_adapter

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/specialistvlad/gridmake/internal/config"
	"github.com/specialistvlad/gridmake/internal/ctxlog"
	"github.com/specialistvlad/gridmake/internal/fsutil"
)

// Loader is the HCL-specific implementation of the config.Loader interface.
type Loader struct{}

// NewLoader creates a new HCL definition loader.
func NewLoader() *Loader {
	return &Loader{}
}

// Load parses every .hcl file under paths, in lexical order, into one
// model. Segment names must be unique across all files.
func (l *Loader) Load(ctx context.Context, paths ...string) (*config.Model, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("HCL loader started.", "path_count", len(paths))

	hclFiles, err := l.findAllHCLFiles(paths)
	if err != nil {
		return nil, err
	}
	logger.Debug("Discovered HCL files.", "count", len(hclFiles))

	model := &config.Model{Files: hclFiles}
	parser := hclparse.NewParser()
	names := make(map[string]string)
	varNames := make(map[string]string)

	for _, file := range hclFiles {
		hclFile, diags := parser.ParseHCLFile(file)
		if diags.HasErrors() {
			return nil, fmt.Errorf("failed to parse HCL file %s: %w", file, diags)
		}

		var root fileRoot
		diags = gohcl.DecodeBody(hclFile.Body, nil, &root)
		if diags.HasErrors() {
			return nil, fmt.Errorf("failed to decode HCL file %s: %w", file, diags)
		}

		for _, v := range root.Vars {
			vars, err := l.translateVars(v, file)
			if err != nil {
				return nil, err
			}
			for _, variable := range vars {
				if prev, dup := varNames[variable.Name]; dup {
					return nil, fmt.Errorf("variable %q is defined in both %s and %s", variable.Name, prev, file)
				}
				varNames[variable.Name] = file
			}
			model.Vars = append(model.Vars, vars...)
		}

		for _, s := range root.Segments {
			if prev, dup := names[s.Name]; dup {
				return nil, fmt.Errorf("segment %q is defined in both %s and %s", s.Name, prev, file)
			}
			names[s.Name] = file

			def, err := l.translateSegment(ctx, s, file, hclFile.Bytes)
			if err != nil {
				return nil, err
			}
			model.Segments = append(model.Segments, def)
		}
	}

	logger.Debug("HCL loading complete.", "files", len(hclFiles), "vars", len(model.Vars), "segments", len(model.Segments))
	return model, nil
}

// findAllHCLFiles expands paths into a flat, deduplicated list of .hcl files.
// Paths that do not exist are skipped.
func (l *Loader) findAllHCLFiles(paths []string) ([]string, error) {
	var allFiles []string
	seen := make(map[string]struct{})
	add := func(p string) {
		if _, wasSeen := seen[p]; !wasSeen {
			allFiles = append(allFiles, p)
			seen[p] = struct{}{}
		}
	}

	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, fmt.Errorf("error accessing path %s: %w", path, err)
		}

		if !info.IsDir() {
			if filepath.Ext(path) == ".hcl" {
				add(path)
			}
			continue
		}
		files, err := fsutil.FindFilesByExtension(path, ".hcl")
		if err != nil {
			return nil, err
		}
		for _, f := range files {
			add(f)
		}
	}
	return allFiles, nil
}
