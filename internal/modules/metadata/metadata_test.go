package metadata

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/sitepipe/internal/document"
	"git.home.luguber.info/inful/sitepipe/internal/engine"
	"git.home.luguber.info/inful/sitepipe/internal/frontmatter"
	"git.home.luguber.info/inful/sitepipe/internal/registry"
	"git.home.luguber.info/inful/sitepipe/internal/testutil"
)

func TestFrontMatter(t *testing.T) {
	seed := testutil.Seed(
		testutil.Doc{Source: "/in/a.md", Content: "---\ntitle: Hello\ntags: [go]\n---\n# Body\n"},
		testutil.Doc{Source: "/in/b.md", Content: "no front matter"},
	)
	out := testutil.Run(t, []engine.Module{seed, FrontMatter{}})
	require.Len(t, out, 2)

	assert.Equal(t, "# Body\n", out[0].ContentString())
	assert.Equal(t, "Hello", out[0].String("Title"))
	assert.Equal(t, []string{"go"}, out[0].Metadata().Strings("tags"))
	assert.Equal(t, 0, out[1].Version(), "documents without front matter are not cloned")
}

func TestFrontMatterMissingDelimiter(t *testing.T) {
	seed := testutil.Seed(testutil.Doc{Source: "/in/broken.md", Content: "---\ntitle: x\n"})
	err := testutil.RunErr(t, []engine.Module{seed, FrontMatter{}})
	assert.True(t, errors.Is(err, frontmatter.ErrMissingClosingDelimiter))
	assert.Contains(t, err.Error(), "/in/broken.md")
}

func TestYAML(t *testing.T) {
	seed := testutil.Seed(testutil.Doc{Content: "name: site\nitems:\n  - a\n  - b\n"})

	out := testutil.Run(t, []engine.Module{seed, &YAML{}})
	assert.Equal(t, "site", out[0].String("name"))
	assert.Equal(t, []string{"a", "b"}, out[0].Metadata().Strings("items"))

	out = testutil.Run(t, []engine.Module{seed, &YAML{Key: "Data"}})
	data, ok := out[0].Get("Data")
	require.True(t, ok)
	assert.Equal(t, "site", data.(map[string]any)["name"])
	assert.False(t, out[0].Metadata().Has("name"))
}

func TestYAMLRejectsNonMapping(t *testing.T) {
	seed := testutil.Seed(testutil.Doc{Content: "- a\n- b\n"})
	testutil.RunErr(t, []engine.Module{seed, &YAML{}})

	out := testutil.Run(t, []engine.Module{seed, &YAML{Key: "List"}})
	assert.Equal(t, []string{"a", "b"}, out[0].Metadata().Strings("List"))
}

func TestFingerprint(t *testing.T) {
	seed := testutil.Seed(
		testutil.Doc{Content: "body", Meta: map[string]any{"title": "A"}},
		testutil.Doc{Content: "body", Meta: map[string]any{"title": "A", "build": 7}},
		testutil.Doc{Content: "other", Meta: map[string]any{"title": "A"}},
	)
	out := testutil.Run(t, []engine.Module{seed, &Fingerprint{Exclude: []string{"Build"}}})
	fps := testutil.Strings(out, document.KeyFingerprint)

	want, err := frontmatter.Fingerprint(map[string]any{"title": "A"}, []byte("body"))
	require.NoError(t, err)
	assert.Equal(t, want, fps[0])
	assert.Equal(t, fps[0], fps[1], "excluded keys do not participate")
	assert.NotEqual(t, fps[0], fps[2])

	again := testutil.Run(t, []engine.Module{seed, &Fingerprint{Exclude: []string{"build"}}, &Fingerprint{Exclude: []string{"build"}}})
	assert.Equal(t, fps, testutil.Strings(again, document.KeyFingerprint), "stored fingerprint is stable")
}

func TestRegister(t *testing.T) {
	r := registry.New()
	Register(r)
	assert.Equal(t, []string{"fingerprint", "front_matter", "yaml"}, r.Names())

	_, err := r.Build("p", []any{"front_matter", map[string]any{"fingerprint": map[string]any{"exclude": []any{"date"}}}})
	require.NoError(t, err)
	_, err = r.Build("p", []any{map[string]any{"front_matter": map[string]any{"strict": true}}})
	assert.Error(t, err)
}
