package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/specialistvlad/gridmake/internal/config"
	"github.com/specialistvlad/gridmake/internal/ctxlog"
	"github.com/specialistvlad/gridmake/internal/history"
	"github.com/specialistvlad/gridmake/internal/library"
	"github.com/specialistvlad/gridmake/internal/pipeline"
)

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	ctx      context.Context
	outW     io.Writer
	logger   *slog.Logger
	config   *Config
	loader   config.Loader
	libs     library.Resolver
	model    *config.Model
	pipeline *pipeline.Pipeline
	history  *history.Store
}

// NewApp builds an App: it configures logging, loads the definitions into a
// pipeline, restores the outcomes saved by the previous run and opens the
// history store.
func NewApp(outW io.Writer, cfg *Config, loader config.Loader) (*App, error) {
	logger := newLogger(cfg.LogLevel, cfg.LogFormat, outW)
	ctx := ctxlog.WithLogger(context.Background(), logger)
	logger.Debug("Logger configured successfully.")

	a := &App{
		ctx:    ctx,
		outW:   outW,
		logger: logger,
		config: cfg,
		loader: loader,
	}
	if cfg.LibraryPath != "" {
		a.libs = library.NewDirRegistry(cfg.LibraryPath)
	}

	if err := a.loadPipeline(); err != nil {
		return nil, err
	}
	if err := a.restoreState(); err != nil {
		logger.Warn("Ignoring unreadable pipeline state.", "path", cfg.StatePath, "error", err)
	}

	if cfg.HistoryPath != "" {
		store, err := history.Open(ctx, cfg.HistoryPath)
		if err != nil {
			return nil, fmt.Errorf("failed to open history: %w", err)
		}
		a.history = store
		a.pipeline.SetRecorder(store)
		logger.Debug("History store opened.", "path", cfg.HistoryPath, "run_id", store.RunID())
	}
	return a, nil
}

// Pipeline returns the loaded pipeline.
func (a *App) Pipeline() *pipeline.Pipeline {
	return a.pipeline
}

// Model returns the loaded definitions.
func (a *App) Model() *config.Model {
	return a.model
}

// Context returns the application context, which carries its logger.
func (a *App) Context() context.Context {
	return a.ctx
}

// Close releases the history store.
func (a *App) Close() error {
	if a.history == nil {
		return nil
	}
	return a.history.Close()
}
