package main

import (
	"io"
	"log/slog"
	"os"
)

// EngineConfig holds engine configuration options.
type EngineConfig struct {
	MaxConcurrency  int // caps the concurrent child-subtree walks of a table scan
	LogLevel        slog.Level
	EnableProfiling bool
}

// EngineOption is a functional option for EngineConfig.
type EngineOption func(*EngineConfig)

// WithMaxConcurrency bounds the goroutine fan-out used while a full table
// scan walks an interior page's child subtrees in parallel. The
// index-assisted lookup runs sequentially and does not use it.
func WithMaxConcurrency(n int) EngineOption {
	return func(cfg *EngineConfig) {
		if n > 0 {
			cfg.MaxConcurrency = n
		}
	}
}

// WithLogLevel sets the minimum slog level the engine logs at.
func WithLogLevel(level slog.Level) EngineOption {
	return func(cfg *EngineConfig) {
		cfg.LogLevel = level
	}
}

// WithProfiling enables verbose Debug-level logging of the header parse
// and of every page read.
func WithProfiling(enabled bool) EngineOption {
	return func(cfg *EngineConfig) {
		cfg.EnableProfiling = enabled
	}
}

// DefaultEngineConfig returns the default configuration.
func DefaultEngineConfig() *EngineConfig {
	return &EngineConfig{
		MaxConcurrency: 8,
		LogLevel:       slog.LevelWarn,
	}
}

// newLogger builds the slog.Logger honoring cfg.LogLevel and
// cfg.EnableProfiling (which forces Debug regardless of LogLevel).
func newLogger(cfg *EngineConfig, w io.Writer) *slog.Logger {
	if w == nil {
		w = os.Stderr
	}
	level := cfg.LogLevel
	if cfg.EnableProfiling {
		level = slog.LevelDebug
	}
	handler := slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})
	return slog.New(handler)
}

// ResourceManager closes multiple resources in LIFO order, collecting the
// last error encountered rather than stopping at the first.
type ResourceManager struct {
	resources []io.Closer
	cleaners  []func() error
}

// NewResourceManager creates an empty resource manager.
func NewResourceManager() *ResourceManager {
	return &ResourceManager{}
}

// Add registers a closeable resource.
func (rm *ResourceManager) Add(resource io.Closer) {
	rm.resources = append(rm.resources, resource)
}

// AddCleaner registers a custom cleanup function.
func (rm *ResourceManager) AddCleaner(cleaner func() error) {
	rm.cleaners = append(rm.cleaners, cleaner)
}

// Close runs cleaners then closes resources, both LIFO.
func (rm *ResourceManager) Close() error {
	var lastErr error
	for i := len(rm.cleaners) - 1; i >= 0; i-- {
		if err := rm.cleaners[i](); err != nil {
			lastErr = err
		}
	}
	for i := len(rm.resources) - 1; i >= 0; i-- {
		if err := rm.resources[i].Close(); err != nil {
			lastErr = err
		}
	}
	return lastErr
}
