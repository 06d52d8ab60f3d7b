package engine

import (
	"context"
	"strings"
	"time"

	"git.home.luguber.info/inful/sitepipe/internal/document"
)

// create returns a module that ignores its inputs and creates one document
// per content string.
func create(contents ...string) Module {
	return Named("create", ModuleFunc(func(_ context.Context, ec *ExecutionContext, _ []*document.Document) ([]*document.Document, error) {
		var out []*document.Document
		for _, c := range contents {
			d, err := ec.NewDocumentString(c, nil)
			if err != nil {
				return nil, err
			}
			out = append(out, d)
		}
		return out, nil
	}))
}

// appendText clones every input with suffix appended to its content.
func appendText(suffix string) Module {
	return Named("append", ModuleFunc(func(ctx context.Context, ec *ExecutionContext, inputs []*document.Document) ([]*document.Document, error) {
		return ec.Map(ctx, inputs, func(_ context.Context, d *document.Document) (*document.Document, error) {
			return ec.Clone(d, document.WithString(d.ContentString()+suffix))
		})
	}))
}

func fail(err error) Module {
	return Named("fail", ModuleFunc(func(context.Context, *ExecutionContext, []*document.Document) ([]*document.Document, error) {
		return nil, err
	}))
}

func contents(docs []*document.Document) []string {
	out := make([]string, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.ContentString())
	}
	return out
}

type recordingObserver struct {
	events []string
}

func (r *recordingObserver) OnRunStart(string) { r.events = append(r.events, "run:start") }
func (r *recordingObserver) OnPipelineStart(_ string, p string) {
	r.events = append(r.events, "pipeline:start:"+p)
}

func (r *recordingObserver) OnModuleComplete(_, module, path string, _ time.Duration, err error) {
	s := "module:" + path + ":" + module
	if err != nil {
		s += ":error"
	}
	r.events = append(r.events, s)
}

func (r *recordingObserver) OnPipelineComplete(_ string, res PipelineResult) {
	r.events = append(r.events, "pipeline:done:"+res.Name+":"+string(res.Status))
}

func (r *recordingObserver) OnRunComplete(rep *Report) {
	r.events = append(r.events, "run:done:"+string(rep.Outcome))
}

func joined(s []string) string { return strings.Join(s, ",") }
