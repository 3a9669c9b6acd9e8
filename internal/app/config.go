package app

import (
	"errors"
	"fmt"
	"time"
)

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	Paths       []string // definition files or directories
	LibraryPath string   // one sub-directory per library

	StatePath   string // pipeline snapshot; empty disables it
	HistoryPath string // SQLite execution log; empty disables it

	LogFormat string
	LogLevel  string
	Quiet     bool
	Debounce  time.Duration
}

// NewConfig validates cfg and returns a copy of it.
func NewConfig(cfg Config) (*Config, error) {
	if len(cfg.Paths) == 0 {
		return nil, errors.New("at least one definition path is required")
	}
	switch cfg.LogFormat {
	case "", "text", "json":
	default:
		return nil, fmt.Errorf("invalid log format %q: must be 'text' or 'json'", cfg.LogFormat)
	}
	switch cfg.LogLevel {
	case "", "debug", "info", "warn", "error":
	default:
		return nil, fmt.Errorf("invalid log level %q: must be 'debug', 'info', 'warn', or 'error'", cfg.LogLevel)
	}
	if cfg.Debounce < 0 {
		return nil, errors.New("debounce must not be negative")
	}
	return &cfg, nil
}
