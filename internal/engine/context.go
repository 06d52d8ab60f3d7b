package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"golang.org/x/sync/errgroup"

	"git.home.luguber.info/inful/sitepipe/internal/document"
	"git.home.luguber.info/inful/sitepipe/internal/execcache"
	"git.home.luguber.info/inful/sitepipe/internal/logfields"
)

// ExecutionContext is handed to a module while it executes. It scopes the
// cache and logger to the module and tracks the documents the module creates.
type ExecutionContext struct {
	engine   *Engine
	pipeline *Pipeline
	runID    string
	path     string
	module   Module
	factory  *document.Factory
	logger   *slog.Logger
}

// Pipeline returns the name of the executing pipeline.
func (ec *ExecutionContext) Pipeline() string { return ec.pipeline.Name }

// Module returns the path of the executing module, e.g. "posts/2/0".
func (ec *ExecutionContext) Module() string { return ec.path }

// ModuleName returns the name of the executing module.
func (ec *ExecutionContext) ModuleName() string { return ModuleName(ec.module) }

func (ec *ExecutionContext) RunID() string   { return ec.runID }
func (ec *ExecutionContext) Engine() *Engine { return ec.engine }

// Settings returns the engine-wide settings.
func (ec *ExecutionContext) Settings() document.Metadata {
	return document.NewMetadata(ec.engine.settings)
}

func (ec *ExecutionContext) InputDir() string     { return ec.engine.inputDir }
func (ec *ExecutionContext) OutputDir() string    { return ec.engine.outputDir }
func (ec *ExecutionContext) Logger() *slog.Logger { return ec.logger }

// Cache returns the execution cache scoped to the executing module.
func (ec *ExecutionContext) Cache() *execcache.ModuleCache {
	return ec.engine.cache.ForModule(ec.path)
}

// Documents returns the outputs published by pipelines so far.
func (ec *ExecutionContext) Documents() DocumentCollection {
	return DocumentCollection{e: ec.engine}
}

// NewDocument creates a tracked document.
func (ec *ExecutionContext) NewDocument(source string, content document.Provider, metadata map[string]any) (*document.Document, error) {
	return ec.factory.New(source, content, metadata)
}

// NewDocumentString creates a tracked document with in-memory content.
func (ec *ExecutionContext) NewDocumentString(content string, metadata map[string]any) (*document.Document, error) {
	return ec.factory.NewString("", content, metadata)
}

// NewDocumentFromFile creates a tracked document streaming its content from
// path.
func (ec *ExecutionContext) NewDocumentFromFile(path string, metadata map[string]any) (*document.Document, error) {
	p, err := document.NewFileContent(path)
	if err != nil {
		return nil, err
	}
	return ec.factory.New(path, p, metadata)
}

// Clone derives a tracked document from d.
func (ec *ExecutionContext) Clone(d *document.Document, opts ...document.CloneOption) (*document.Document, error) {
	return ec.factory.Clone(d, opts...)
}

// Execute runs modules as a child chain of the executing module. The first
// child of module "p/2" has path "p/2/0".
func (ec *ExecutionContext) Execute(ctx context.Context, modules []Module, inputs []*document.Document) ([]*document.Document, error) {
	return ec.execute(ctx, ec.path, modules, inputs)
}

// ExecuteLabeled runs a named child chain; its first module has path
// "p/2/<label>/0".
func (ec *ExecutionContext) ExecuteLabeled(ctx context.Context, label string, modules []Module, inputs []*document.Document) ([]*document.Document, error) {
	if label == "" {
		return ec.Execute(ctx, modules, inputs)
	}
	return ec.execute(ctx, ec.path+"/"+label, modules, inputs)
}

func (ec *ExecutionContext) execute(ctx context.Context, base string, modules []Module, inputs []*document.Document) ([]*document.Document, error) {
	docs := inputs
	for i, m := range modules {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		child := ec.child(fmt.Sprintf("%s/%d", base, i), m)
		out, err := child.run(ctx, docs)
		if err != nil {
			return nil, err
		}
		docs = out
	}
	return docs, nil
}

// ForEach calls fn for every input, at most Parallelism at a time, and
// concatenates the results in input order.
func (ec *ExecutionContext) ForEach(ctx context.Context, inputs []*document.Document, fn func(ctx context.Context, d *document.Document) ([]*document.Document, error)) ([]*document.Document, error) {
	results := make([][]*document.Document, len(inputs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(ec.engine.parallelism)
	for i, d := range inputs {
		g.Go(func() (err error) {
			defer func() {
				if r := recover(); r != nil {
					err = &panicError{value: r, stack: debug.Stack()}
				}
			}()
			out, err := fn(gctx, d)
			if err != nil {
				return err
			}
			results[i] = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	var out []*document.Document
	for _, r := range results {
		out = append(out, r...)
	}
	return compact(out), nil
}

// Map is ForEach for one-to-one transforms.
func (ec *ExecutionContext) Map(ctx context.Context, inputs []*document.Document, fn func(ctx context.Context, d *document.Document) (*document.Document, error)) ([]*document.Document, error) {
	return ec.ForEach(ctx, inputs, func(ctx context.Context, d *document.Document) ([]*document.Document, error) {
		out, err := fn(ctx, d)
		if err != nil || out == nil {
			return nil, err
		}
		return []*document.Document{out}, nil
	})
}

func (ec *ExecutionContext) child(path string, m Module) *ExecutionContext {
	c := *ec
	c.path = path
	c.module = m
	c.logger = ec.engine.logger.With(
		logfields.RunID(ec.runID),
		logfields.Pipeline(ec.pipeline.Name),
		logfields.ModulePath(path),
		logfields.Module(ModuleName(m)),
	)
	return &c
}

// run executes the context's module and converts failures to ModuleError.
func (ec *ExecutionContext) run(ctx context.Context, inputs []*document.Document) (out []*document.Document, err error) {
	start := time.Now()
	name := ModuleName(ec.module)
	defer func() {
		if r := recover(); r != nil {
			err = &panicError{value: r, stack: debug.Stack()}
		}
		if err != nil {
			out = nil
			err = ec.wrap(name, err)
		}
		ec.engine.observers.OnModuleComplete(ec.pipeline.Name, name, ec.path, time.Since(start), err)
	}()

	ec.logger.Debug("Executing module", logfields.Documents(len(inputs)))
	out, err = ec.module.Execute(ctx, ec, inputs)
	if err != nil {
		return nil, err
	}
	out = compact(out)
	ec.logger.Debug("Module complete", logfields.Documents(len(out)), logfields.DurationMS(msSince(start)))
	return out, nil
}

func (ec *ExecutionContext) wrap(name string, err error) error {
	if _, ok := AsModuleError(err); ok {
		return err
	}
	me := &ModuleError{Pipeline: ec.pipeline.Name, Module: name, Path: ec.path, Err: err}
	var pe *panicError
	if errors.As(err, &pe) {
		me.Panicked = true
		me.Err = fmt.Errorf("%v", pe.value)
		ec.logger.Error("Module panicked", slog.String("panic", fmt.Sprint(pe.value)), slog.String("stack", string(pe.stack)))
	}
	return me
}

type panicError struct {
	value any
	stack []byte
}

func (p *panicError) Error() string { return fmt.Sprintf("panic: %v", p.value) }

func compact(docs []*document.Document) []*document.Document {
	out := docs[:0:0]
	for _, d := range docs {
		if d != nil {
			out = append(out, d)
		}
	}
	return out
}

func msSince(t time.Time) float64 {
	return float64(time.Since(t)) / float64(time.Millisecond)
}
