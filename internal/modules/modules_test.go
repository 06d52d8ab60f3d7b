package modules

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/sitepipe/internal/engine"
	"git.home.luguber.info/inful/sitepipe/internal/testutil"
)

func TestNewRegistryCatalog(t *testing.T) {
	names := NewRegistry().Names()
	for _, want := range []string{
		"append", "branch", "combine", "concat", "content", "copy_files", "documents",
		"excerpt", "fingerprint", "for_each", "front_matter", "git_commits", "group_by",
		"headings", "if", "layout", "markdown", "meta", "order_by", "paginate", "prepend",
		"read_files", "replace", "take", "title", "where", "write_files", "yaml",
	} {
		assert.Contains(t, names, want)
	}
}

func TestBlogPipelineEndToEnd(t *testing.T) {
	in, out := t.TempDir(), t.TempDir()
	testutil.WriteFiles(t, in, map[string]string{
		"posts/first-post.md":  "---\ndate: 2024-01-02\n---\n# First\n\nHello **world**.\n",
		"posts/second-post.md": "---\ntitle: Second\ndate: 2024-03-04\ndraft: true\n---\nDraft body.\n",
		"posts/third-post.md":  "---\ndate: 2024-02-03\n---\nThird body.\n",
		"layouts/post.html":    "<title>{{.Meta.Title}}</title>{{.Content}}",
		"static/site.css":      "body{}",
	})

	r := NewRegistry()
	posts, err := r.Build("posts", []any{
		map[string]any{"read_files": map[string]any{"patterns": []any{"posts/*.md"}}},
		"front_matter",
		map[string]any{"where": map[string]any{"key": "draft", "exists": false}},
		"title",
		"markdown",
		"excerpt",
		map[string]any{"order_by": map[string]any{"key": "date", "descending": true}},
		map[string]any{"layout": map[string]any{"file": "layouts/post.html"}},
		map[string]any{"write_files": map[string]any{"extension": ".html"}},
	})
	require.NoError(t, err)
	static, err := r.Build("static", []any{
		map[string]any{"copy_files": map[string]any{"patterns": "static/**"}},
	})
	require.NoError(t, err)

	e := testutil.NewEngine(t, engine.WithInputDir(in), engine.WithOutputDir(out))
	require.NoError(t, e.AddPipeline(&engine.Pipeline{Name: "posts", Modules: posts}))
	require.NoError(t, e.AddPipeline(&engine.Pipeline{Name: "static", Modules: static}))
	report, err := e.Execute(t.Context())
	require.NoError(t, err)
	assert.Equal(t, engine.OutcomeSuccess, report.Outcome)

	docs := e.Documents().FromPipeline("posts")
	assert.Equal(t, []string{"Third Post", "First Post"}, testutil.Strings(docs, "Title"))
	assert.Equal(t, "<p>Third body.</p>", docs[0].String("Excerpt"))

	b, err := os.ReadFile(filepath.Join(out, "posts", "first-post.html"))
	require.NoError(t, err)
	assert.Contains(t, string(b), "<title>First Post</title>")
	assert.Contains(t, string(b), "<strong>world</strong>")

	testutil.NewFileAssertions(t, out).
		AssertFileNotExists("posts/second-post.html").
		AssertFileExists("static/site.css")
}
