package build

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/hashicorp/go-multierror"

	"git.home.luguber.info/inful/sitepipe/internal/config"
	"git.home.luguber.info/inful/sitepipe/internal/engine"
	serrors "git.home.luguber.info/inful/sitepipe/internal/errors"
	"git.home.luguber.info/inful/sitepipe/internal/events"
	"git.home.luguber.info/inful/sitepipe/internal/eventstore"
	"git.home.luguber.info/inful/sitepipe/internal/execcache"
	"git.home.luguber.info/inful/sitepipe/internal/logfields"
	"git.home.luguber.info/inful/sitepipe/internal/metrics"
	"git.home.luguber.info/inful/sitepipe/internal/modules"
	"git.home.luguber.info/inful/sitepipe/internal/registry"
	"git.home.luguber.info/inful/sitepipe/internal/storage"
)

// DefaultBuildService is the standard implementation of BuildService.
type DefaultBuildService struct {
	registry  *registry.Registry
	recorder  metrics.Recorder
	logger    *slog.Logger
	observers []engine.Observer

	// natsConnect is swapped in tests.
	natsConnect func(url, subject string, logger *slog.Logger) (engine.Observer, io.Closer, error)

	mu      sync.Mutex
	current *session
}

// session is an engine assembled for one configuration along with the
// resources it owns.
type session struct {
	cfg     *config.Config
	opts    BuildOptions
	output  string
	engine  *engine.Engine
	closers []io.Closer
}

// NewBuildService creates a service using the full module catalog.
func NewBuildService() *DefaultBuildService {
	return &DefaultBuildService{
		registry: modules.NewRegistry(),
		recorder: metrics.NoopRecorder{},
		logger:   slog.Default(),
		natsConnect: func(url, subject string, logger *slog.Logger) (engine.Observer, io.Closer, error) {
			p, err := events.Connect(url, subject, logger)
			if err != nil {
				return nil, nil, err
			}
			return p, p, nil
		},
	}
}

// WithRegistry replaces the module registry (for testing).
func (s *DefaultBuildService) WithRegistry(r *registry.Registry) *DefaultBuildService {
	s.registry = r
	return s
}

// WithRecorder sets the metrics recorder.
func (s *DefaultBuildService) WithRecorder(r metrics.Recorder) *DefaultBuildService {
	s.recorder = r
	return s
}

// WithLogger sets the logger handed to the engine.
func (s *DefaultBuildService) WithLogger(l *slog.Logger) *DefaultBuildService {
	s.logger = l
	return s
}

// WithObserver adds an observer to every engine the service assembles.
func (s *DefaultBuildService) WithObserver(o engine.Observer) *DefaultBuildService {
	s.observers = append(s.observers, o)
	return s
}

// Registry returns the module registry.
func (s *DefaultBuildService) Registry() *registry.Registry { return s.registry }

// Run executes the configured pipelines.
func (s *DefaultBuildService) Run(ctx context.Context, req BuildRequest) (*BuildResult, error) {
	start := time.Now()
	result := &BuildResult{StartTime: start}
	fail := func(err error) (*BuildResult, error) {
		result.Status = BuildStatusFailed
		result.EndTime = time.Now()
		result.Duration = result.EndTime.Sub(start)
		return result, err
	}

	if req.Config == nil {
		return fail(serrors.ConfigRequired("config"))
	}
	if req.Trigger == "" {
		req.Trigger = TriggerManual
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.session(req)
	if err != nil {
		return fail(err)
	}
	result.OutputPath = sess.output

	s.logger.Info("Build started",
		slog.String("trigger", string(req.Trigger)),
		logfields.Path(sess.output))

	report, runErr := sess.engine.Execute(ctx)
	result.EndTime = time.Now()
	result.Duration = result.EndTime.Sub(start)
	if report == nil {
		result.Status = BuildStatusFailed
		if errors.Is(runErr, context.Canceled) {
			result.Status = BuildStatusCancelled
		}
		return result, runErr
	}

	result.Report = report
	result.RunID = report.RunID
	result.Status = statusFor(report.Outcome)
	for _, p := range report.Pipelines {
		result.Documents += p.DocumentsOut
	}
	return result, runErr
}

// Engine returns the engine assembled by the last Run, or nil.
func (s *DefaultBuildService) Engine() *engine.Engine {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return nil
	}
	return s.current.engine
}

// Close shuts down the current engine, persisting its cache, and releases
// the history store and NATS connection.
func (s *DefaultBuildService) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	err := s.current.close()
	s.current = nil
	return err
}

func (s *DefaultBuildService) session(req BuildRequest) (*session, error) {
	output := req.OutputDir
	if output == "" {
		output = req.Config.OutputDir()
	}
	if cur := s.current; cur != nil && cur.cfg == req.Config && cur.opts == req.Options && cur.output == output {
		return cur, nil
	}
	if err := s.current.close(); err != nil {
		s.logger.Warn("Closing previous engine failed", logfields.Error(err))
	}
	s.current = nil

	sess, err := s.assemble(req.Config, req.Options, output)
	if err != nil {
		return nil, err
	}
	s.current = sess
	return sess, nil
}

func (s *DefaultBuildService) assemble(cfg *config.Config, opts BuildOptions, output string) (*session, error) {
	sess := &session{cfg: cfg, opts: opts, output: output}
	cacheEnabled := cfg.Cache.IsEnabled() && !opts.NoCache

	engineOpts := []engine.Option{
		engine.WithLogger(s.logger),
		engine.WithSettings(cfg.Settings),
		engine.WithInputDir(cfg.InputDir()),
		engine.WithOutputDir(output),
		engine.WithTempDir(cfg.TempDirPath()),
		engine.WithSpillThreshold(cfg.Cache.SpillThreshold),
		engine.WithParallelism(cfg.Parallelism),
		engine.WithContinueOnError(cfg.ContinueOnError),
		engine.WithCache(execcache.New(cacheEnabled, s.logger)),
		engine.WithRecorder(s.recorder),
	}

	if cacheEnabled {
		store, err := storage.NewFSStore(cfg.CacheDir())
		if err != nil {
			return nil, serrors.Wrap(err, serrors.CategoryCache, serrors.SeverityError, "open cache store")
		}
		engineOpts = append(engineOpts, engine.WithCacheStore(store))
		sess.closers = append(sess.closers, store)
	}

	if path := cfg.HistoryPath(); path != "" {
		store, err := eventstore.NewSQLiteStore(path)
		if err != nil {
			_ = sess.close()
			return nil, err
		}
		engineOpts = append(engineOpts, engine.WithObserver(eventstore.NewRecorder(store, s.logger)))
		sess.closers = append(sess.closers, store)
	}

	if cfg.Events.NATSURL != "" {
		obs, closer, err := s.natsConnect(cfg.Events.NATSURL, cfg.Events.Subject, s.logger)
		if err != nil {
			// Notifications are best effort; a missing broker never blocks a build.
			s.logger.Warn("NATS unavailable, run notifications disabled",
				slog.String("url", cfg.Events.NATSURL), logfields.Error(err))
		} else {
			engineOpts = append(engineOpts, engine.WithObserver(obs))
			sess.closers = append(sess.closers, closer)
		}
	}

	for _, o := range s.observers {
		engineOpts = append(engineOpts, engine.WithObserver(o))
	}

	eng, err := NewEngine(cfg, s.registry, engineOpts...)
	if err != nil {
		_ = sess.close()
		return nil, err
	}
	sess.engine = eng
	return sess, nil
}

// NewEngine creates an engine holding the pipelines declared in cfg, with
// module chains built through reg. It performs no IO beyond what opts do.
func NewEngine(cfg *config.Config, reg *registry.Registry, opts ...engine.Option) (*engine.Engine, error) {
	eng := engine.New(opts...)
	for _, pc := range cfg.Pipelines {
		mods, err := reg.Build(pc.Name, pc.Modules)
		if err != nil {
			_ = eng.Close()
			return nil, err
		}
		if err := eng.AddPipeline(&engine.Pipeline{
			Name:        pc.Name,
			Modules:     mods,
			DependsOn:   pc.DependsOn,
			ProcessOnce: pc.ProcessOnce,
		}); err != nil {
			_ = eng.Close()
			return nil, err
		}
	}
	return eng, nil
}

// close shuts the engine before the stores it writes to.
func (sess *session) close() error {
	if sess == nil {
		return nil
	}
	var merr *multierror.Error
	if sess.engine != nil {
		if err := sess.engine.Close(); err != nil {
			merr = multierror.Append(merr, err)
		}
	}
	for i := len(sess.closers) - 1; i >= 0; i-- {
		if err := sess.closers[i].Close(); err != nil {
			merr = multierror.Append(merr, err)
		}
	}
	return merr.ErrorOrNil()
}
