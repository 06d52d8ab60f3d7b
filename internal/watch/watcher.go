// Package watch rebuilds a site when its inputs change or on a fixed interval.
package watch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/go-co-op/gocron/v2"

	"git.home.luguber.info/inful/sitepipe/internal/build"
	"git.home.luguber.info/inful/sitepipe/internal/config"
	"git.home.luguber.info/inful/sitepipe/internal/logfields"
)

// Builder runs one build; build.DefaultBuildService satisfies it.
type Builder interface {
	Run(ctx context.Context, req build.BuildRequest) (*build.BuildResult, error)
}

// Loader reloads the configuration after the config file changes.
type Loader func() (*config.Config, error)

// Watcher drives rebuilds from file-system events and an optional schedule.
type Watcher struct {
	builder    Builder
	logger     *slog.Logger
	configPath string
	loader     Loader
	outputDir  string
	opts       build.BuildOptions

	// OnBuild observes every completed build.
	OnBuild func(*build.BuildResult, error)

	mu  sync.Mutex
	cfg *config.Config
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option { return func(w *Watcher) { w.logger = l } }

// WithConfigFile reloads the configuration through loader whenever path
// changes. A failed reload keeps the previous configuration.
func WithConfigFile(path string, loader Loader) Option {
	return func(w *Watcher) {
		w.configPath = path
		w.loader = loader
	}
}

// WithOutputDir overrides the configured output directory.
func WithOutputDir(dir string) Option { return func(w *Watcher) { w.outputDir = dir } }

// WithBuildOptions passes options through to every build request.
func WithBuildOptions(o build.BuildOptions) Option { return func(w *Watcher) { w.opts = o } }

// New creates a watcher for cfg.
func New(builder Builder, cfg *config.Config, opts ...Option) *Watcher {
	w := &Watcher{builder: builder, cfg: cfg, logger: slog.Default()}
	for _, o := range opts {
		o(w)
	}
	return w
}

// Config returns the configuration currently in use.
func (w *Watcher) Config() *config.Config {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.cfg
}

// Run performs an initial build and then rebuilds until ctx is canceled.
// Builds never overlap; requests arriving during a build collapse into one
// follow-up build.
func (w *Watcher) Run(ctx context.Context) error {
	cfg := w.Config()
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("fsnotify: %w", err)
	}
	defer func() { _ = fsw.Close() }()

	dirs := watchPaths(cfg, w.outputDir)
	filter, err := w.watchTree(fsw, cfg)
	if err != nil {
		return err
	}

	requests := make(chan build.Trigger, 1)
	request := func(t build.Trigger) {
		select {
		case requests <- t:
		default:
		}
	}

	if cfg.Watch.Interval > 0 {
		sched, err := w.schedule(cfg.Watch.Interval, request)
		if err != nil {
			return err
		}
		defer func() { _ = sched.Shutdown() }()
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		w.worker(ctx, requests)
	}()
	defer wg.Wait()

	request(build.TriggerManual)

	debounce := NewDebouncer(cfg.Watch.Debounce)
	defer debounce.Stop()
	w.logger.Info("Watching for changes", logfields.Path(cfg.InputDir()),
		slog.Duration("debounce", cfg.Watch.Debounce),
		slog.Duration("interval", cfg.Watch.Interval))

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-debounce.C:
			request(build.TriggerWatch)
		case ev, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if w.isConfigFile(ev.Name) {
				if next := w.reload(); next != nil {
					if d := watchPaths(next, w.outputDir); d != dirs {
						f, err := w.watchTree(fsw, next)
						if err != nil {
							w.logger.Warn("Cannot watch reloaded input directory; restoring previous watches",
								logfields.Path(d.input), logfields.Error(err))
							f, _ = w.watchTree(fsw, cfg)
						} else {
							cfg, dirs = next, d
						}
						if f != nil {
							filter = f
						}
					}
				}
				debounce.Trigger()
				continue
			}
			if !within(dirs.input, ev.Name) || filter.Ignored(ev.Name) {
				continue
			}
			if ev.Has(fsnotify.Create) {
				if fi, statErr := os.Stat(ev.Name); statErr == nil && fi.IsDir() {
					_ = addDirsRecursive(fsw, ev.Name, filter, w.logger)
				}
			}
			w.logger.Debug("File change detected", logfields.Path(ev.Name), slog.String("op", ev.Op.String()))
			debounce.Trigger()
		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("Watcher error", logfields.Error(err))
		}
	}
}

func (w *Watcher) worker(ctx context.Context, requests <-chan build.Trigger) {
	for {
		select {
		case <-ctx.Done():
			return
		case trigger := <-requests:
			w.build(ctx, trigger)
		}
	}
}

func (w *Watcher) build(ctx context.Context, trigger build.Trigger) {
	result, err := w.builder.Run(ctx, build.BuildRequest{
		Config:    w.Config(),
		OutputDir: w.outputDir,
		Trigger:   trigger,
		Options:   w.opts,
	})
	switch {
	case err != nil && errors.Is(err, context.Canceled):
		return
	case err != nil:
		w.logger.Warn("Rebuild failed", slog.String("trigger", string(trigger)), logfields.Error(err))
	case result != nil:
		w.logger.Info("Rebuild complete",
			slog.String("trigger", string(trigger)),
			logfields.RunID(result.RunID),
			logfields.Documents(result.Documents),
			logfields.DurationMS(float64(result.Duration)/float64(time.Millisecond)))
	}
	if w.OnBuild != nil {
		w.OnBuild(result, err)
	}
}

func (w *Watcher) schedule(interval time.Duration, request func(build.Trigger)) (gocron.Scheduler, error) {
	sched, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("failed to create gocron scheduler: %w", err)
	}
	_, err = sched.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(request, build.TriggerScheduled),
		gocron.WithName("scheduled-build"),
	)
	if err != nil {
		_ = sched.Shutdown()
		return nil, fmt.Errorf("failed to create periodic build job: %w", err)
	}
	sched.Start()
	return sched, nil
}

// reload swaps in a freshly loaded configuration and returns it, or nil when
// loading failed.
func (w *Watcher) reload() *config.Config {
	if w.loader == nil {
		return nil
	}
	cfg, err := w.loader()
	if err != nil {
		w.logger.Warn("Configuration reload failed; keeping previous configuration",
			logfields.Path(w.configPath), logfields.Error(err))
		return nil
	}
	w.mu.Lock()
	w.cfg = cfg
	w.mu.Unlock()
	w.logger.Info("Configuration reloaded", logfields.Path(w.configPath))
	return cfg
}

// watchedDirs are the directories that decide what is watched and ignored.
type watchedDirs struct {
	input, output, cache, history string
}

func watchPaths(cfg *config.Config, outputOverride string) watchedDirs {
	p := watchedDirs{input: cfg.InputDir(), output: outputOverride, cache: cfg.CacheDir(), history: cfg.HistoryPath()}
	if p.output == "" {
		p.output = cfg.OutputDir()
	}
	return p
}

// watchTree drops every current watch and watches cfg's input tree and the
// configuration directory, returning the matching filter.
func (w *Watcher) watchTree(fsw *fsnotify.Watcher, cfg *config.Config) (*Filter, error) {
	filter, err := w.filter(cfg)
	if err != nil {
		return nil, err
	}
	for _, name := range fsw.WatchList() {
		_ = fsw.Remove(name)
	}
	if err := addDirsRecursive(fsw, cfg.InputDir(), filter, w.logger); err != nil {
		return nil, err
	}
	if w.configPath != "" {
		if err := fsw.Add(filepath.Dir(w.configPath)); err != nil {
			w.logger.Warn("Cannot watch configuration directory", logfields.Path(w.configPath), logfields.Error(err))
		}
	}
	return filter, nil
}

func (w *Watcher) isConfigFile(name string) bool {
	if w.configPath == "" {
		return false
	}
	a, errA := filepath.Abs(name)
	b, errB := filepath.Abs(w.configPath)
	return errA == nil && errB == nil && a == b
}

func (w *Watcher) filter(cfg *config.Config) (*Filter, error) {
	output := w.outputDir
	if output == "" {
		output = cfg.OutputDir()
	}
	excluded := []string{output, cfg.CacheDir()}
	if p := cfg.HistoryPath(); p != "" {
		// The database and its journal live together; skip that directory
		// unless it contains the input.
		if dir := filepath.Dir(p); !within(dir, cfg.InputDir()) {
			excluded = append(excluded, dir)
		}
	}
	return NewFilter(cfg.InputDir(), cfg.Watch.Ignore, excluded...)
}

// within reports whether path is root or lies below it.
func within(root, path string) bool {
	rel, err := filepath.Rel(root, path)
	return err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

func addDirsRecursive(w *fsnotify.Watcher, root string, filter *Filter, logger *slog.Logger) error {
	return filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return fmt.Errorf("watch %s: %w", root, err)
			}
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && filter.Ignored(path) {
			return filepath.SkipDir
		}
		if err := w.Add(path); err != nil {
			logger.Warn("Watch add failed", logfields.Path(path), logfields.Error(err))
		}
		return nil
	})
}
