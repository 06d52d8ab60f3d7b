package testutil

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/sitepipe/internal/document"
	"git.home.luguber.info/inful/sitepipe/internal/engine"
)

// Doc describes a document created by Seed.
type Doc struct {
	Source  string
	Content string
	Meta    map[string]any
}

// Seed returns a module that ignores its inputs and creates docs.
func Seed(docs ...Doc) engine.Module {
	return engine.Named("seed", engine.ModuleFunc(func(_ context.Context, ec *engine.ExecutionContext, _ []*document.Document) ([]*document.Document, error) {
		out := make([]*document.Document, 0, len(docs))
		for _, d := range docs {
			doc, err := ec.NewDocument(d.Source, document.BytesContent(d.Content), d.Meta)
			if err != nil {
				return nil, err
			}
			out = append(out, doc)
		}
		return out, nil
	}))
}

// Run executes modules as the single pipeline "test" of a fresh engine and
// returns its outputs. The engine is closed when the test ends.
func Run(t *testing.T, modules []engine.Module, opts ...engine.Option) []*document.Document {
	t.Helper()
	e := NewEngine(t, opts...)
	require.NoError(t, e.AddPipeline(&engine.Pipeline{Name: "test", Modules: modules}))
	_, err := e.Execute(context.Background())
	require.NoError(t, err)
	return e.Documents().FromPipeline("test")
}

// RunErr is Run for modules expected to fail.
func RunErr(t *testing.T, modules []engine.Module, opts ...engine.Option) error {
	t.Helper()
	e := NewEngine(t, opts...)
	require.NoError(t, e.AddPipeline(&engine.Pipeline{Name: "test", Modules: modules}))
	_, err := e.Execute(context.Background())
	require.Error(t, err)
	return err
}

// NewEngine creates an engine closed at test cleanup.
func NewEngine(t *testing.T, opts ...engine.Option) *engine.Engine {
	t.Helper()
	e := engine.New(opts...)
	t.Cleanup(func() { _ = e.Close() })
	return e
}

// Contents returns the content of each document.
func Contents(docs []*document.Document) []string {
	out := make([]string, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.ContentString())
	}
	return out
}

// Strings returns the metadata value key of each document.
func Strings(docs []*document.Document, key string) []string {
	out := make([]string, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.String(key))
	}
	return out
}
