package app

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/specialistvlad/gridmake/internal/config"
	"github.com/specialistvlad/gridmake/internal/ctxlog"
	"github.com/specialistvlad/gridmake/internal/env"
	"github.com/specialistvlad/gridmake/internal/funcs"
	"github.com/specialistvlad/gridmake/internal/library"
	"github.com/specialistvlad/gridmake/internal/pipeline"
	"github.com/specialistvlad/gridmake/internal/segment"
)

// RootEnvName is the name of the environment every recipe runs in.
const RootEnvName = "global"

// loadPipeline reads the definitions and declares one segment per
// definition, in order.
func (a *App) loadPipeline() error {
	logger := ctxlog.FromContext(a.ctx)
	logger.Debug("Loading definitions...", "paths", a.config.Paths)

	model, err := a.loader.Load(a.ctx, a.config.Paths...)
	if err != nil {
		return fmt.Errorf("failed to load definitions: %w", err)
	}
	if len(model.Files) == 0 {
		return fmt.Errorf("no definition files found in %v", a.config.Paths)
	}

	p, err := newPipeline(model, a.libs)
	if err != nil {
		return err
	}
	if err := p.Validate(); err != nil {
		return fmt.Errorf("invalid pipeline: %w", err)
	}
	if a.history != nil {
		p.SetRecorder(a.history)
	}

	a.model = model
	a.pipeline = p
	logger.Info("Definitions loaded.", "files", len(model.Files), "segments", p.Len())
	return nil
}

func newPipeline(model *config.Model, libs library.Resolver) (*pipeline.Pipeline, error) {
	root := env.New(RootEnvName)
	root.SetFunctions(funcs.All())
	for _, v := range model.Vars {
		val, diags := v.Expr.Value(root.EvalContext())
		if diags.HasErrors() {
			return nil, fmt.Errorf("variable %q: %w", v.Name, diags)
		}
		root.Set(v.Name, val)
	}

	p := pipeline.New(root, libs)
	for _, def := range model.Segments {
		opts := segment.Options{
			Targets:      def.Targets,
			Dependencies: def.Dependencies,
			Packages:     def.Packages,
			Force:        def.Force,
			Label:        def.Title(),
			Note:         def.Note,
		}
		var err error
		switch def.Kind {
		case config.KindRecipe:
			_, err = p.Recipe(opts, def.Recipe)
		case config.KindScript:
			_, err = p.Script(opts, def.Source)
		default:
			err = fmt.Errorf("unknown kind %q", def.Kind)
		}
		if err != nil {
			return nil, fmt.Errorf("segment %q (%s): %w", def.Name, def.DefinedIn, err)
		}
	}
	return p, nil
}

// restoreState copies the outcomes saved by the previous run onto segments
// that still have the same id and title. Script namespaces are restored
// too, so recipes can read what a skipped script defined last time.
func (a *App) restoreState() error {
	if a.config.StatePath == "" {
		return nil
	}
	data, err := os.ReadFile(a.config.StatePath)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}

	saved := pipeline.New(env.New(RootEnvName), a.libs)
	if err := saved.Load(bytes.NewReader(data)); err != nil {
		return err
	}
	restored := 0
	for _, old := range saved.Segments() {
		cur, ok := a.pipeline.Segment(old.ID())
		if !ok || cur.Title() != old.Title() {
			continue
		}
		var duration *time.Duration
		if d, ok := old.Duration(); ok {
			duration = &d
		}
		if err := cur.Restore(old.Executed(), duration, old.Result(), old.State()); err != nil {
			return err
		}
		restoreNamespace(a.pipeline.Root(), saved.Root(), cur.Handle())
		restored++
	}
	ctxlog.FromContext(a.ctx).Debug("Pipeline state restored.", "path", a.config.StatePath, "segments", restored)
	return nil
}

// restoreNamespace refills handle from the namespace saved under the same
// name in the saved root. Handles that are the root itself are rebuilt from
// the definitions on every load and left alone.
func restoreNamespace(root, savedRoot, handle *env.Env) {
	if handle == root {
		return
	}
	if old, ok := savedRoot.Lookup(handle.Name()); ok {
		handle.CopyFrom(old)
	}
}

// saveState writes the pipeline snapshot, if enabled.
func (a *App) saveState() error {
	if a.config.StatePath == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(a.config.StatePath), 0o755); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}
	var buf bytes.Buffer
	if err := a.pipeline.Save(&buf); err != nil {
		return fmt.Errorf("failed to encode pipeline state: %w", err)
	}
	if err := os.WriteFile(a.config.StatePath, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("failed to write pipeline state: %w", err)
	}
	return nil
}
