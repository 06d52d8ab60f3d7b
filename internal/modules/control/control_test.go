package control

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/sitepipe/internal/document"
	"git.home.luguber.info/inful/sitepipe/internal/engine"
	"git.home.luguber.info/inful/sitepipe/internal/testutil"
)

func suffix(s string) engine.Module {
	return engine.ModuleFunc(func(ctx context.Context, ec *engine.ExecutionContext, in []*document.Document) ([]*document.Document, error) {
		return ec.Map(ctx, in, func(_ context.Context, d *document.Document) (*document.Document, error) {
			return ec.Clone(d, document.WithString(d.ContentString()+s))
		})
	})
}

func seed(contents ...string) engine.Module {
	docs := make([]testutil.Doc, len(contents))
	for i, c := range contents {
		docs[i] = testutil.Doc{Content: c}
	}
	return testutil.Seed(docs...)
}

func TestBranchOutputsInputs(t *testing.T) {
	var ran atomic.Int32
	count := engine.ModuleFunc(func(_ context.Context, _ *engine.ExecutionContext, in []*document.Document) ([]*document.Document, error) {
		ran.Add(int32(len(in)))
		return in, nil
	})
	out := testutil.Run(t, []engine.Module{seed("a", "b"), &Branch{Modules: []engine.Module{suffix("!"), count}}})
	assert.Equal(t, []string{"a", "b"}, testutil.Contents(out))
	assert.Equal(t, int32(2), ran.Load())
}

func TestConcat(t *testing.T) {
	out := testutil.Run(t, []engine.Module{seed("a"), &Concat{Modules: []engine.Module{suffix("!")}}})
	assert.Equal(t, []string{"a", "a!"}, testutil.Contents(out))
}

func TestForEachRunsChildrenPerDocument(t *testing.T) {
	var batches atomic.Int32
	batch := engine.ModuleFunc(func(_ context.Context, _ *engine.ExecutionContext, in []*document.Document) ([]*document.Document, error) {
		if len(in) != 1 {
			return nil, errors.New("expected one document")
		}
		batches.Add(1)
		return in, nil
	})
	out := testutil.Run(t, []engine.Module{seed("a", "b", "c"), &ForEach{Modules: []engine.Module{batch, suffix("+")}}})
	assert.Equal(t, []string{"a+", "b+", "c+"}, testutil.Contents(out))
	assert.Equal(t, int32(3), batches.Load())
}

func TestIf(t *testing.T) {
	draft := "true"
	docs := testutil.Seed(
		testutil.Doc{Content: "a", Meta: map[string]any{"draft": true}},
		testutil.Doc{Content: "b"},
		testutil.Doc{Content: "c", Meta: map[string]any{"draft": "true"}},
	)

	t.Run("pass through without else", func(t *testing.T) {
		out := testutil.Run(t, []engine.Module{docs, &If{Predicate: Predicate{Key: "draft"}, Then: []engine.Module{suffix("*")}}})
		assert.Equal(t, []string{"a*", "c*", "b"}, testutil.Contents(out))
	})
	t.Run("else chain", func(t *testing.T) {
		out := testutil.Run(t, []engine.Module{docs, &If{
			Predicate: Predicate{Key: "draft", Equals: &draft},
			Then:      []engine.Module{suffix("*")},
			Else:      []engine.Module{suffix("-")},
		}})
		assert.Equal(t, []string{"a*", "c*", "b-"}, testutil.Contents(out))
	})
	t.Run("exists", func(t *testing.T) {
		no := false
		out := testutil.Run(t, []engine.Module{docs, &If{Predicate: Predicate{Key: "draft", Exists: &no}, Then: []engine.Module{suffix("?")}}})
		assert.Equal(t, []string{"b?", "a", "c"}, testutil.Contents(out))
	})
}

func TestIfElsePath(t *testing.T) {
	var path string
	record := engine.ModuleFunc(func(_ context.Context, ec *engine.ExecutionContext, in []*document.Document) ([]*document.Document, error) {
		path = ec.Module()
		return in, nil
	})
	testutil.Run(t, []engine.Module{seed("a"), &If{Predicate: Predicate{Key: "missing"}, Else: []engine.Module{record}}})
	assert.Equal(t, "test/1/else/0", path)
}

func TestWhere(t *testing.T) {
	g, err := CompileGlob("posts/**/*.md")
	require.NoError(t, err)
	docs := testutil.Seed(
		testutil.Doc{Content: "1", Meta: map[string]any{document.KeyRelativeFilePath: "posts/2024/a.md"}},
		testutil.Doc{Content: "2", Meta: map[string]any{document.KeyRelativeFilePath: "pages/b.md"}},
		testutil.Doc{Content: "3", Source: "posts/c.txt"},
	)
	out := testutil.Run(t, []engine.Module{docs, &Where{Predicate: Predicate{Glob: g}}})
	assert.Equal(t, []string{"1"}, testutil.Contents(out))
}

func TestOrderBy(t *testing.T) {
	docs := testutil.Seed(
		testutil.Doc{Content: "b", Meta: map[string]any{"date": "2024-02-01", "n": 10}},
		testutil.Doc{Content: "none"},
		testutil.Doc{Content: "a", Meta: map[string]any{"date": "2024-01-01", "n": 9}},
		testutil.Doc{Content: "c", Meta: map[string]any{"date": "2024-03-01", "n": "11"}},
	)
	tests := []struct {
		key  string
		desc bool
		want []string
	}{
		{"date", false, []string{"a", "b", "c", "none"}},
		{"date", true, []string{"c", "b", "a", "none"}},
		{"n", false, []string{"a", "b", "c", "none"}},
	}
	for _, tt := range tests {
		out := testutil.Run(t, []engine.Module{docs, &OrderBy{Key: tt.key, Descending: tt.desc}})
		assert.Equal(t, tt.want, testutil.Contents(out), "%s desc=%v", tt.key, tt.desc)
	}
}

func TestTake(t *testing.T) {
	out := testutil.Run(t, []engine.Module{seed("a", "b", "c"), &Take{Count: 2}})
	assert.Equal(t, []string{"a", "b"}, testutil.Contents(out))
	out = testutil.Run(t, []engine.Module{seed("a"), &Take{Count: 5}})
	assert.Len(t, out, 1)
}

func TestDocumentsFromOtherPipelines(t *testing.T) {
	e := testutil.NewEngine(t)
	require.NoError(t, e.AddPipeline(&engine.Pipeline{Name: "posts", Modules: []engine.Module{seed("p1", "p2")}}))
	require.NoError(t, e.AddPipeline(&engine.Pipeline{Name: "pages", Modules: []engine.Module{seed("g1")}}))
	require.NoError(t, e.AddPipeline(&engine.Pipeline{Name: "named", Modules: []engine.Module{&Documents{Pipelines: []string{"pages"}}}}))
	require.NoError(t, e.AddPipeline(&engine.Pipeline{Name: "rest", Modules: []engine.Module{&Documents{}}}))
	require.NoError(t, e.AddPipeline(&engine.Pipeline{Name: "bad", Modules: []engine.Module{&Documents{Pipelines: []string{"nope"}}}}))

	_, err := e.Execute(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, engine.ErrPipelineNotFound)
	assert.Equal(t, []string{"g1"}, testutil.Contents(e.Documents().FromPipeline("named")))
	assert.Equal(t, []string{"p1", "p2", "g1", "g1"}, testutil.Contents(e.Documents().FromPipeline("rest")))
}

func TestCombine(t *testing.T) {
	docs := testutil.Seed(
		testutil.Doc{Content: "a", Meta: map[string]any{"Title": "first", "only": 1}},
		testutil.Doc{Content: "b", Meta: map[string]any{"title": "second"}},
	)
	out := testutil.Run(t, []engine.Module{docs, &Combine{Separator: "\n"}})
	require.Len(t, out, 1)
	assert.Equal(t, "a\nb", out[0].ContentString())
	assert.Equal(t, "second", out[0].String("Title"))
	assert.Equal(t, 1, out[0].Metadata().Int("only", 0))

	assert.Empty(t, testutil.Run(t, []engine.Module{&Combine{}}))
}

func TestGroupBy(t *testing.T) {
	docs := testutil.Seed(
		testutil.Doc{Content: "a", Meta: map[string]any{"tags": []any{"go", "web"}}},
		testutil.Doc{Content: "b", Meta: map[string]any{"tags": "web"}},
		testutil.Doc{Content: "c"},
	)
	out := testutil.Run(t, []engine.Module{docs, &GroupBy{Key: "tags"}})
	require.Len(t, out, 2)
	assert.Equal(t, []string{"go", "web"}, testutil.Strings(out, document.KeyGroupKey))
	assert.Equal(t, []string{"a"}, testutil.Contents(out[0].Metadata().Documents(document.KeyGroupDocuments)))
	assert.Equal(t, []string{"a", "b"}, testutil.Contents(out[1].Metadata().Documents(document.KeyGroupDocuments)))
	for _, d := range out[1].Metadata().Documents(document.KeyGroupDocuments) {
		assert.False(t, d.Released(), "grouped documents stay alive with the group")
	}
}

func TestPaginate(t *testing.T) {
	out := testutil.Run(t, []engine.Module{seed("1", "2", "3", "4", "5"), &Paginate{Size: 2}})
	require.Len(t, out, 3)
	for i, page := range out {
		assert.Equal(t, i+1, page.Metadata().Int(document.KeyCurrentPage, 0))
		assert.Equal(t, 3, page.Metadata().Int(document.KeyTotalPages, 0))
	}
	assert.Equal(t, []string{"5"}, testutil.Contents(out[2].Metadata().Documents(document.KeyPageDocuments)))
}
