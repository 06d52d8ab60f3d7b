package engine

import (
	"log/slog"

	"git.home.luguber.info/inful/sitepipe/internal/execcache"
	"git.home.luguber.info/inful/sitepipe/internal/metrics"
	"git.home.luguber.info/inful/sitepipe/internal/storage"
)

// Option configures an Engine.
type Option func(*Engine)

// WithSettings seeds the first metadata layer of every new document.
func WithSettings(settings map[string]any) Option {
	return func(e *Engine) { e.settings = settings }
}

// WithInputDir sets the root read_files and relative paths resolve against.
func WithInputDir(dir string) Option {
	return func(e *Engine) { e.inputDir = dir }
}

// WithOutputDir sets the root writes go to.
func WithOutputDir(dir string) Option {
	return func(e *Engine) { e.outputDir = dir }
}

// WithTempDir sets where large document content is spilled.
func WithTempDir(dir string) Option {
	return func(e *Engine) { e.tempDir = dir }
}

// WithSpillThreshold spills in-memory content larger than n bytes to disk.
func WithSpillThreshold(n int64) Option {
	return func(e *Engine) { e.spillThreshold = n }
}

// WithParallelism bounds ForEach fan-out. Values below one are ignored.
func WithParallelism(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.parallelism = n
		}
	}
}

// WithContinueOnError keeps executing later pipelines after a failure.
func WithContinueOnError(v bool) Option {
	return func(e *Engine) { e.continueOnError = v }
}

// WithCache replaces the execution cache.
func WithCache(c *execcache.Cache) Option {
	return func(e *Engine) { e.cache = c }
}

// WithCacheStore persists byte-valued cache entries between processes.
func WithCacheStore(s storage.ObjectStore) Option {
	return func(e *Engine) { e.store = s }
}

// WithObserver adds an observer.
func WithObserver(o Observer) Option {
	return func(e *Engine) { e.observers = append(e.observers, o) }
}

// WithRecorder adds an observer forwarding to r.
func WithRecorder(r metrics.Recorder) Option {
	return WithObserver(RecorderObserver{Recorder: r})
}

func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}
