package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"

	"git.home.luguber.info/inful/sitepipe/internal/document"
	serrors "git.home.luguber.info/inful/sitepipe/internal/errors"
	"git.home.luguber.info/inful/sitepipe/internal/execcache"
	"git.home.luguber.info/inful/sitepipe/internal/logfields"
	"git.home.luguber.info/inful/sitepipe/internal/storage"
)

// ErrRunInProgress is returned when Execute is called during another run.
var ErrRunInProgress = errors.New("engine run already in progress")

// ErrClosed is returned when the engine is used after Close.
var ErrClosed = errors.New("engine closed")

// Engine executes pipelines and owns the documents they publish.
type Engine struct {
	settings        map[string]any
	inputDir        string
	outputDir       string
	tempDir         string
	spillThreshold  int64
	parallelism     int
	continueOnError bool

	cache     *execcache.Cache
	store     storage.ObjectStore
	observers observers
	logger    *slog.Logger

	mu        sync.RWMutex
	pipelines []*Pipeline
	states    map[string]*pipelineState
	closed    bool

	running  atomic.Bool
	loadOnce sync.Once
	// loaded is set once the cache store has been read; an engine that never
	// ran leaves the store untouched on Close.
	loaded    atomic.Bool
	lastRunID atomic.Value
}

// New creates an engine.
func New(opts ...Option) *Engine {
	e := &Engine{
		parallelism: runtime.GOMAXPROCS(0),
		states:      make(map[string]*pipelineState),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}
	if e.cache == nil {
		e.cache = execcache.New(true, e.logger)
	}
	return e
}

// AddPipeline appends a pipeline. Names must be unique.
func (e *Engine) AddPipeline(p *Pipeline) error {
	if p == nil || p.Name == "" {
		return serrors.ValidationFailed("pipeline.name", "pipeline name is required")
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return ErrClosed
	}
	if _, exists := e.states[pipelineKey(p.Name)]; exists {
		return serrors.DuplicatePipeline(p.Name)
	}
	e.pipelines = append(e.pipelines, p)
	e.states[pipelineKey(p.Name)] = &pipelineState{}
	return nil
}

// Pipeline returns the named pipeline, matching the name case-insensitively.
func (e *Engine) Pipeline(name string) (*Pipeline, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	for _, p := range e.pipelines {
		if strings.EqualFold(p.Name, name) {
			return p, true
		}
	}
	return nil, false
}

// Pipelines returns the pipelines in declaration order.
func (e *Engine) Pipelines() []*Pipeline {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return append([]*Pipeline(nil), e.pipelines...)
}

// ExecutionOrder returns the pipelines in the order Execute runs them.
func (e *Engine) ExecutionOrder() ([]*Pipeline, error) {
	return orderPipelines(e.Pipelines())
}

// Documents returns the published outputs.
func (e *Engine) Documents() DocumentCollection {
	return DocumentCollection{e: e}
}

// Cache returns the execution cache.
func (e *Engine) Cache() *execcache.Cache { return e.cache }

// LastRunID returns the ID of the most recent run, or "".
func (e *Engine) LastRunID() string {
	id, _ := e.lastRunID.Load().(string)
	return id
}

// Execute runs every pipeline once. The report is returned even when the
// error is non-nil, except for configuration errors detected before any
// pipeline runs.
func (e *Engine) Execute(ctx context.Context) (*Report, error) {
	if !e.running.CompareAndSwap(false, true) {
		return nil, ErrRunInProgress
	}
	defer e.running.Store(false)

	e.mu.RLock()
	closed := e.closed
	e.mu.RUnlock()
	if closed {
		return nil, ErrClosed
	}

	ordered, err := e.ExecutionOrder()
	if err != nil {
		return nil, err
	}

	e.loadOnce.Do(func() {
		e.loadCache(ctx)
		e.loaded.Store(true)
	})

	runID := uuid.NewString()
	e.lastRunID.Store(runID)
	logger := e.logger.With(logfields.RunID(runID))
	report := &Report{RunID: runID, Start: time.Now()}

	e.cache.ResetHits()
	e.observers.OnRunStart(runID)
	logger.Info("Run started", slog.Int("pipelines", len(ordered)))

	var merr *multierror.Error
	aborted := false
	for _, p := range ordered {
		if aborted {
			report.Pipelines = append(report.Pipelines, PipelineResult{Name: p.Name, Status: StatusSkipped})
			continue
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			report.Pipelines = append(report.Pipelines, PipelineResult{Name: p.Name, Status: StatusCanceled, Err: ctxErr, Error: ctxErr.Error()})
			merr = multierror.Append(merr, ctxErr)
			aborted = true
			continue
		}
		res, err := e.runPipeline(ctx, runID, p)
		report.Pipelines = append(report.Pipelines, res)
		if err != nil {
			merr = multierror.Append(merr, err)
			if !e.continueOnError || res.Status == StatusCanceled {
				aborted = true
			}
		}
	}

	e.cache.ClearUnhit()
	report.Cache = e.cache.Stats()
	report.End = time.Now()
	report.deriveOutcome(e.continueOnError)
	e.observers.OnRunComplete(report)

	logger.Info("Run complete",
		logfields.Outcome(string(report.Outcome)),
		logfields.DurationMS(float64(report.Duration())/float64(time.Millisecond)),
		slog.Int64("cache_hits", report.Cache.Hits),
		slog.Int64("cache_misses", report.Cache.Misses))

	return report, merr.ErrorOrNil()
}

func (e *Engine) runPipeline(ctx context.Context, runID string, p *Pipeline) (PipelineResult, error) {
	e.mu.RLock()
	state := e.states[pipelineKey(p.Name)]
	e.mu.RUnlock()

	tr := &tracker{}
	ec := &ExecutionContext{
		engine:   e,
		pipeline: p,
		runID:    runID,
		path:     p.Name,
		factory: &document.Factory{
			Settings:       e.settings,
			SpillThreshold: e.spillThreshold,
			TempDir:        e.tempDir,
			OnCreate:       tr.add,
		},
	}
	logger := e.logger.With(logfields.RunID(runID), logfields.Pipeline(p.Name))

	e.observers.OnPipelineStart(runID, p.Name)
	logger.Info("Pipeline started", slog.Int("modules", len(p.Modules)))
	start := time.Now()

	run, err := e.executePipeline(ctx, ec, p, state)
	res := PipelineResult{
		Name:        p.Name,
		DocumentsIn: run.in,
		Reused:      run.reused,
		Created:     tr.len(),
	}

	if err != nil {
		e.mu.Lock()
		clearErr := state.clear()
		e.mu.Unlock()
		if relErr := tr.releaseAll(); relErr != nil {
			logger.Warn("Releasing documents failed", logfields.Error(relErr))
		}
		if clearErr != nil {
			logger.Warn("Releasing previous outputs failed", logfields.Error(clearErr))
		}
		res.Duration = time.Since(start)
		res.Status = StatusFailed
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			res.Status = StatusCanceled
		}
		res.Err = err
		res.Error = err.Error()
		logger.Error("Pipeline failed", logfields.Error(err), logfields.DurationMS(msSince(start)))
		e.observers.OnPipelineComplete(runID, res)
		return res, serrors.PipelineFailed(p.Name, err)
	}

	e.mu.Lock()
	pubErr := state.publish(run.outputs)
	if p.ProcessOnce {
		state.processed = run.processed
	}
	e.mu.Unlock()
	if pubErr != nil {
		logger.Warn("Releasing previous outputs failed", logfields.Error(pubErr))
	}
	if relErr := tr.releaseAll(); relErr != nil {
		logger.Warn("Releasing documents failed", logfields.Error(relErr))
	}

	res.Duration = time.Since(start)
	res.Status = StatusSucceeded
	res.DocumentsOut = len(run.outputs)
	logger.Info("Pipeline complete",
		logfields.Documents(res.DocumentsOut),
		logfields.DurationMS(msSince(start)))
	e.observers.OnPipelineComplete(runID, res)
	return res, nil
}

type pipelineRun struct {
	outputs   []*document.Document
	in        int
	reused    int
	processed map[string]processedEntry
}

func (e *Engine) executePipeline(ctx context.Context, ec *ExecutionContext, p *Pipeline, state *pipelineState) (pipelineRun, error) {
	var run pipelineRun
	var docs, reused []*document.Document
	var pending map[string]string

	for i, m := range p.Modules {
		if err := ctx.Err(); err != nil {
			return run, err
		}
		child := ec.child(fmt.Sprintf("%s/%d", p.Name, i), m)
		out, err := child.run(ctx, docs)
		if err != nil {
			return run, err
		}
		if i == 0 {
			run.in = len(out)
			if p.ProcessOnce {
				e.mu.RLock()
				out, reused, pending, run.processed = partitionProcessed(state.processed, out)
				e.mu.RUnlock()
				run.reused = len(reused)
			}
		}
		docs = out
	}

	if p.ProcessOnce {
		for _, d := range docs {
			if fp, ok := pending[d.Source()]; ok {
				entry := run.processed[d.Source()]
				entry.fingerprint = fp
				entry.results = append(entry.results, d)
				run.processed[d.Source()] = entry
			}
		}
		docs = append(docs, reused...)
	}
	run.outputs = docs
	return run, nil
}

// partitionProcessed splits first-module outputs into documents that need
// processing and previous results that can be reused. pending maps the source
// of every document to process to its fingerprint.
func partitionProcessed(prev map[string]processedEntry, docs []*document.Document) (process, reused []*document.Document, pending map[string]string, next map[string]processedEntry) {
	pending = make(map[string]string)
	next = make(map[string]processedEntry)
	for _, d := range docs {
		src := d.Source()
		if src == "" {
			process = append(process, d)
			continue
		}
		fp, err := d.Fingerprint()
		if err != nil {
			process = append(process, d)
			continue
		}
		if entry, ok := prev[src]; ok && entry.fingerprint == fp {
			reused = append(reused, entry.results...)
			next[src] = entry
			continue
		}
		process = append(process, d)
		pending[src] = fp
		next[src] = processedEntry{fingerprint: fp}
	}
	return process, reused, pending, next
}

func (e *Engine) loadCache(ctx context.Context) {
	if e.store == nil {
		return
	}
	n, err := e.cache.Load(ctx, e.store)
	if err != nil {
		e.logger.Warn("Loading execution cache failed", logfields.Error(err))
		return
	}
	if n > 0 {
		e.logger.Debug("Execution cache restored", slog.Int("entries", n))
	}
}

// Close releases every published document and persists the cache. The engine
// cannot be used afterwards.
func (e *Engine) Close() error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil
	}
	e.closed = true
	var merr *multierror.Error
	for _, p := range e.pipelines {
		if err := e.states[pipelineKey(p.Name)].clear(); err != nil {
			merr = multierror.Append(merr, err)
		}
	}
	e.mu.Unlock()

	if e.store != nil && e.loaded.Load() {
		if _, err := e.cache.Save(context.Background(), e.store); err != nil {
			merr = multierror.Append(merr, serrors.Wrap(err, serrors.CategoryCache, serrors.SeverityWarning, "persist execution cache"))
		}
	}
	return merr.ErrorOrNil()
}
