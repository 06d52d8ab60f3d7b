package markdown

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/sitepipe/internal/document"
	"git.home.luguber.info/inful/sitepipe/internal/engine"
	"git.home.luguber.info/inful/sitepipe/internal/registry"
	"git.home.luguber.info/inful/sitepipe/internal/storage"
	"git.home.luguber.info/inful/sitepipe/internal/testutil"
)

func TestMarkdownRendersGFM(t *testing.T) {
	seed := testutil.Seed(testutil.Doc{Content: "# Title\n\n~~old~~ text\n\n| a |\n|---|\n| 1 |\n"})
	out := testutil.Run(t, []engine.Module{seed, &Markdown{}})
	require.Len(t, out, 1)

	html := out[0].ContentString()
	assert.Contains(t, html, `<h1 id="title">Title</h1>`)
	assert.Contains(t, html, "<del>old</del>")
	assert.Contains(t, html, "<table>")
}

func TestMarkdownUnsafe(t *testing.T) {
	seed := testutil.Seed(testutil.Doc{Content: "<div>raw</div>\n"})

	out := testutil.Run(t, []engine.Module{seed, &Markdown{}})
	assert.NotContains(t, out[0].ContentString(), "<div>raw</div>")

	out = testutil.Run(t, []engine.Module{seed, &Markdown{Unsafe: true}})
	assert.Contains(t, out[0].ContentString(), "<div>raw</div>")
}

func TestMarkdownLinks(t *testing.T) {
	body := "See [docs](./docs.md), ![img](a.png) and <https://example.com>.\n\n[ref]: ./ref.md\n\nAgain [docs](./docs.md).\n"
	seed := testutil.Seed(testutil.Doc{Content: body})
	out := testutil.Run(t, []engine.Module{seed, &Markdown{Links: true}})
	assert.Equal(t, []string{"./docs.md", "a.png", "https://example.com", "./ref.md"}, out[0].Metadata().Strings(KeyLinks))
}

func TestExtractLinksKinds(t *testing.T) {
	links := ExtractLinks(NewRenderer(false), []byte("[a](x) ![b](y)\n\n[z]: w\n"))
	assert.Equal(t, []Link{
		{Kind: LinkKindInline, Destination: "x"},
		{Kind: LinkKindImage, Destination: "y"},
		{Kind: LinkKindReferenceDefinition, Destination: "w"},
	}, links)
}

func TestMarkdownUsesCacheAcrossRuns(t *testing.T) {
	var created atomic.Int32
	seed := engine.ModuleFunc(func(_ context.Context, ec *engine.ExecutionContext, _ []*document.Document) ([]*document.Document, error) {
		created.Add(1)
		d, err := ec.NewDocumentString("*hi*", nil)
		return []*document.Document{d}, err
	})
	store := storage.NewMockStore()
	e := testutil.NewEngine(t, engine.WithCacheStore(store))
	require.NoError(t, e.AddPipeline(&engine.Pipeline{Name: "test", Modules: []engine.Module{seed, &Markdown{}}}))

	for range 2 {
		_, err := e.Execute(context.Background())
		require.NoError(t, err)
	}
	stats := e.Cache().Stats()
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, int64(1), stats.Entries)
	assert.Equal(t, []string{"<p><em>hi</em></p>\n"}, testutil.Contents(e.Documents().FromPipeline("test")))
	assert.Equal(t, int32(2), created.Load())
}

func TestRegister(t *testing.T) {
	r := registry.New()
	Register(r)
	mods, err := r.Build("p", []any{map[string]any{"markdown": map[string]any{"unsafe": "true"}}})
	require.NoError(t, err)
	assert.Equal(t, "markdown", engine.ModuleName(mods[0]))
}
