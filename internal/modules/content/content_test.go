package content

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/sitepipe/internal/document"
	"git.home.luguber.info/inful/sitepipe/internal/engine"
	"git.home.luguber.info/inful/sitepipe/internal/registry"
	"git.home.luguber.info/inful/sitepipe/internal/testutil"
)

func TestSetModes(t *testing.T) {
	seed := testutil.Seed(testutil.Doc{Content: "body"})
	tests := []struct {
		mode Mode
		want string
	}{
		{Replace, "new"},
		{Append, "bodynew"},
		{Prepend, "newbody"},
	}
	for _, tc := range tests {
		out := testutil.Run(t, []engine.Module{seed, &Set{Value: "new", Mode: tc.mode}})
		assert.Equal(t, []string{tc.want}, testutil.Contents(out))
	}
}

func TestSubstitute(t *testing.T) {
	seed := testutil.Seed(testutil.Doc{Content: "v1 and v2"})

	out := testutil.Run(t, []engine.Module{seed, &Substitute{Search: "v1", With: "one"}})
	assert.Equal(t, []string{"one and v2"}, testutil.Contents(out))

	out = testutil.Run(t, []engine.Module{seed, &Substitute{Pattern: regexp.MustCompile(`v(\d)`), With: "ver$1"}})
	assert.Equal(t, []string{"ver1 and ver2"}, testutil.Contents(out))
}

func TestSubstituteNoMatchKeepsDocument(t *testing.T) {
	seed := testutil.Seed(testutil.Doc{Content: "text"})
	out := testutil.Run(t, []engine.Module{seed, &Substitute{Search: "missing", With: "x"}})
	require.Len(t, out, 1)
	assert.Equal(t, 0, out[0].Version())
}

func TestMeta(t *testing.T) {
	seed := testutil.Seed(
		testutil.Doc{Meta: map[string]any{"Name": "a"}},
		testutil.Doc{},
	)
	out := testutil.Run(t, []engine.Module{seed, &Meta{Key: "Layout", Value: "post"}})
	assert.Equal(t, []string{"post", "post"}, testutil.Strings(out, "layout"))

	out = testutil.Run(t, []engine.Module{seed, &Meta{Key: "Slug", From: "Name"}})
	assert.Equal(t, []string{"a", ""}, testutil.Strings(out, "Slug"))
	assert.False(t, out[1].Metadata().Has("Slug"))
	assert.Equal(t, 0, out[1].Version(), "document without the From key is not cloned")
}

func TestTitle(t *testing.T) {
	seed := testutil.Seed(
		testutil.Doc{Source: "/in/getting-started.md"},
		testutil.Doc{Meta: map[string]any{document.KeyFileName: "release_notes.v2.md"}},
		testutil.Doc{Source: "/in/x.md", Meta: map[string]any{"Title": "Kept"}},
		testutil.Doc{},
	)
	out := testutil.Run(t, []engine.Module{seed, &Title{}})
	assert.Equal(t, []string{"Getting Started", "Release Notes V2", "Kept", ""}, testutil.Strings(out, "Title"))
}

func TestTitleParallel(t *testing.T) {
	docs := make([]testutil.Doc, 200)
	want := make([]string, 200)
	for i := range docs {
		docs[i] = testutil.Doc{Source: fmt.Sprintf("/in/post-number-%d.md", i)}
		want[i] = fmt.Sprintf("Post Number %d", i)
	}
	out := testutil.Run(t, []engine.Module{testutil.Seed(docs...), &Title{}}, engine.WithParallelism(16))
	assert.Equal(t, want, testutil.Strings(out, "Title"))
}

func TestTitleFromFileName(t *testing.T) {
	assert.Equal(t, "Api Reference", TitleFromFileName("api_reference.html"))
	assert.Equal(t, "Readme", TitleFromFileName("/a/b/README"))
}

func TestLayoutInline(t *testing.T) {
	seed := testutil.Seed(testutil.Doc{Content: "<p>hi</p>", Meta: map[string]any{"Title": "A & B"}})
	out := testutil.Run(t, []engine.Module{seed, &Layout{Template: "<h1>{{.Meta.Title}}</h1>{{.Content}}"}})
	assert.Equal(t, []string{"<h1>A &amp; B</h1><p>hi</p>"}, testutil.Contents(out))
}

func TestLayoutFileAndDocuments(t *testing.T) {
	in := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(in, "base.html"),
		[]byte(`{{range .Documents "nav"}}[{{.String "Title"}}]{{end}}{{.Content}}`), 0o600))

	e := testutil.NewEngine(t, engine.WithInputDir(in))
	require.NoError(t, e.AddPipeline(&engine.Pipeline{Name: "nav", Modules: []engine.Module{
		testutil.Seed(testutil.Doc{Meta: map[string]any{"Title": "Home"}}, testutil.Doc{Meta: map[string]any{"Title": "Blog"}}),
	}}))
	require.NoError(t, e.AddPipeline(&engine.Pipeline{Name: "pages", DependsOn: []string{"nav"}, Modules: []engine.Module{
		testutil.Seed(testutil.Doc{Content: "page"}),
		&Layout{File: "base.html"},
	}}))
	_, err := e.Execute(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"[Home][Blog]page"}, testutil.Contents(e.Documents().FromPipeline("pages")))
}

func TestLayoutErrors(t *testing.T) {
	seed := testutil.Seed(testutil.Doc{Content: "x"})

	err := testutil.RunErr(t, []engine.Module{seed, &Layout{Template: "{{.Broken"}})
	assert.Contains(t, err.Error(), "parse layout")

	err = testutil.RunErr(t, []engine.Module{seed, &Layout{File: "missing.html"}}, engine.WithInputDir(t.TempDir()))
	assert.Contains(t, err.Error(), "read layout")
}

func TestLayoutSkipsParseWithoutInputs(t *testing.T) {
	out := testutil.Run(t, []engine.Module{&Layout{File: "missing.html"}})
	assert.Empty(t, out)
}

func TestRegister(t *testing.T) {
	r := registry.New()
	Register(r)
	assert.Equal(t, []string{"append", "content", "layout", "meta", "prepend", "replace", "title"}, r.Names())

	mods, err := r.Build("p", []any{
		map[string]any{"replace": map[string]any{"search": `\d+`, "with": "N", "regex": true}},
		map[string]any{"meta": map[string]any{"key": "Count", "value": 3}},
		"title",
	})
	require.NoError(t, err)
	require.Len(t, mods, 3)

	for _, spec := range []any{
		map[string]any{"replace": map[string]any{"with": "x"}},
		map[string]any{"replace": map[string]any{"search": "(", "regex": true}},
		map[string]any{"meta": map[string]any{"value": 1}},
		"layout",
		map[string]any{"layout": map[string]any{"file": "a", "template": "b"}},
	} {
		_, err := r.Build("p", []any{spec})
		assert.Error(t, err, "%v", spec)
	}
}
