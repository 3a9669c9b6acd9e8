package app

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"slices"

	"github.com/specialistvlad/gridmake/internal/ctxlog"
	"github.com/specialistvlad/gridmake/internal/graph"
	"github.com/specialistvlad/gridmake/internal/history"
	"github.com/specialistvlad/gridmake/internal/watch"
)

// ErrHistoryDisabled is returned by History when no history path is configured.
var ErrHistoryDisabled = errors.New("history is disabled: no history path configured")

// SegmentStatus is the build status of one segment.
type SegmentStatus struct {
	ID       int
	Title    string
	Targets  []string
	Stale    bool
	Executed bool
}

// Build runs every out-of-date segment in order and saves the resulting state.
func (a *App) Build(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	if a.history != nil {
		runID := a.history.StartRun()
		a.logger.Debug("Build run started.", "run_id", runID)
	}
	if !a.config.Quiet {
		a.logger.Info("🚀 Starting build...", "segments", a.pipeline.Len())
	}

	buildErr := a.pipeline.Build(ctx, a.config.Quiet)
	if err := a.saveState(); err != nil {
		a.logger.Warn("Failed to save pipeline state.", "error", err)
	}
	if buildErr != nil {
		return fmt.Errorf("build failed: %w", buildErr)
	}
	if !a.config.Quiet {
		a.logger.Info("🏁 Build finished.")
	}
	return nil
}

// Clean forgets every recorded outcome. Targets on disk are kept.
func (a *App) Clean(ctx context.Context) error {
	a.pipeline.Clean()
	ctxlog.FromContext(ctx).Debug("Pipeline cleaned.", "segments", a.pipeline.Len())
	return a.saveState()
}

// Status reports, per segment, whether a build would run it.
func (a *App) Status() ([]SegmentStatus, error) {
	stale, err := a.pipeline.OutOfDate()
	if err != nil {
		return nil, err
	}
	var out []SegmentStatus
	for _, s := range a.pipeline.Segments() {
		out = append(out, SegmentStatus{
			ID:       s.ID(),
			Title:    s.Title(),
			Targets:  s.Targets(),
			Stale:    slices.Contains(stale, s.ID()),
			Executed: s.Executed(),
		})
	}
	return out, nil
}

// Graph returns the whole-pipeline dependency graph.
func (a *App) Graph() (graph.Projection, error) {
	return a.pipeline.Projection()
}

// History returns the latest recorded executions, newest first.
func (a *App) History(ctx context.Context, limit int) ([]history.Entry, error) {
	if a.history == nil {
		return nil, ErrHistoryDisabled
	}
	return a.history.Recent(ctx, limit)
}

// WatchedFiles lists every file whose change should trigger a rebuild: the
// definition files and every segment's effective dependencies. Files that
// some segment produces are left out, since a build rewrites them itself.
func (a *App) WatchedFiles() []string {
	produced := make(map[string]bool)
	for _, s := range a.pipeline.Segments() {
		for _, t := range s.Targets() {
			produced[filepath.Clean(t)] = true
		}
	}

	seen := make(map[string]bool)
	var files []string
	add := func(p string) {
		key := filepath.Clean(p)
		if !seen[key] && !produced[key] {
			seen[key] = true
			files = append(files, p)
		}
	}
	for _, f := range a.model.Files {
		add(f)
	}
	for _, s := range a.pipeline.Segments() {
		for _, d := range s.EffectiveDependencies() {
			add(d)
		}
	}
	return files
}

// Watch builds once, then rebuilds whenever a watched file changes until ctx
// is cancelled. A change to a definition file reloads the pipeline first and
// starts watching the reloaded pipeline's files.
func (a *App) Watch(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	if err := a.Build(ctx); err != nil {
		a.logger.Error("Initial build failed.", "error", err)
	}

	for {
		reloaded, err := a.watchOnce(ctx)
		if ctx.Err() != nil {
			return nil
		}
		if err != nil || !reloaded {
			return err
		}
	}
}

// watchOnce rebuilds on every change to the current watched files. It
// returns true after a definition change reloaded the pipeline, whose set
// of watched files may differ.
func (a *App) watchOnce(ctx context.Context) (bool, error) {
	w, err := watch.New(a.WatchedFiles(), a.config.Debounce)
	if err != nil {
		return false, fmt.Errorf("failed to start watcher: %w", err)
	}
	if err := w.Start(ctx); err != nil {
		return false, err
	}
	defer w.Stop()
	a.logger.Info("👀 Watching for changes.", "dirs", w.Dirs())

	runCtx, stop := context.WithCancel(ctx)
	defer stop()
	reloaded := false
	err = watch.Run(runCtx, w.Changes, func(ctx context.Context, change watch.Change) error {
		if a.touchesDefinitions(change) {
			if err := a.reload(); err != nil {
				return err
			}
			reloaded = true
			defer stop()
		}
		return a.Build(ctx)
	})
	if reloaded {
		return true, nil
	}
	return false, err
}

// reload reads the definitions again and reapplies the state saved by the
// last build.
func (a *App) reload() error {
	if err := a.loadPipeline(); err != nil {
		return err
	}
	if err := a.restoreState(); err != nil {
		a.logger.Warn("Ignoring unreadable pipeline state.", "path", a.config.StatePath, "error", err)
	}
	return nil
}

func (a *App) touchesDefinitions(change watch.Change) bool {
	for _, f := range change.Files {
		for _, def := range a.model.Files {
			if abs, err := filepath.Abs(def); err == nil && abs == f {
				return true
			}
		}
	}
	return false
}
