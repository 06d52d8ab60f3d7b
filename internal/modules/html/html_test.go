package html

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"

	"git.home.luguber.info/inful/sitepipe/internal/document"
	"git.home.luguber.info/inful/sitepipe/internal/engine"
	"git.home.luguber.info/inful/sitepipe/internal/registry"
	"git.home.luguber.info/inful/sitepipe/internal/testutil"
)

const page = `<h1>Guide</h1>
<div class="note intro" id="top"><p>Read <b>this</b>.</p></div>
<h2>Install  <code>tool</code></h2>
<p>First paragraph.</p>
<h3>Details</h3>`

func TestHeadings(t *testing.T) {
	seed := testutil.Seed(testutil.Doc{Content: page})

	out := testutil.Run(t, []engine.Module{seed, &Headings{}})
	assert.Equal(t, []string{"Guide"}, out[0].Metadata().Strings(document.KeyHeadings))

	out = testutil.Run(t, []engine.Module{seed, &Headings{Level: 2}})
	assert.Equal(t, []string{"Guide", "Install tool"}, out[0].Metadata().Strings(document.KeyHeadings))

	out = testutil.Run(t, []engine.Module{seed, &Headings{Level: 9}})
	assert.Len(t, out[0].Metadata().Strings(document.KeyHeadings), 3)
}

func TestExcerpt(t *testing.T) {
	seed := testutil.Seed(testutil.Doc{Content: page}, testutil.Doc{Content: "<span>none</span>"})

	out := testutil.Run(t, []engine.Module{seed, &Excerpt{}})
	assert.Equal(t, "<p>Read <b>this</b>.</p>", out[0].String(document.KeyExcerpt))
	assert.False(t, out[1].Metadata().Has(document.KeyExcerpt))

	out = testutil.Run(t, []engine.Module{seed, &Excerpt{Selector: "div.note"}})
	assert.True(t, strings.HasPrefix(out[0].String(document.KeyExcerpt), `<div class="note intro" id="top">`))
}

func TestSelector(t *testing.T) {
	root, err := html.Parse(strings.NewReader(page))
	require.NoError(t, err)

	count := func(s string) int {
		sel, err := ParseSelector(s)
		require.NoError(t, err)
		n := 0
		walk(root, func(node *html.Node) bool {
			if sel.Match(node) {
				n++
			}
			return true
		})
		return n
	}
	assert.Equal(t, 2, count("p"))
	assert.Equal(t, 1, count(".intro.note"))
	assert.Equal(t, 1, count("#top"))
	assert.Equal(t, 0, count("div#other"))
	assert.Equal(t, 0, count("span.note"))

	for _, bad := range []string{"div p", "a[href]", "p.", "#"} {
		_, err := ParseSelector(bad)
		assert.Error(t, err, bad)
	}
}

func TestRegister(t *testing.T) {
	r := registry.New()
	Register(r)
	assert.Equal(t, []string{"excerpt", "headings"}, r.Names())

	_, err := r.Build("p", []any{map[string]any{"headings": map[string]any{"level": 2}}, "excerpt"})
	require.NoError(t, err)
	_, err = r.Build("p", []any{map[string]any{"excerpt": map[string]any{"selector": "div > p"}}})
	assert.Error(t, err)
	_, err = r.Build("p", []any{map[string]any{"headings": map[string]any{"level": 7}}})
	assert.Error(t, err)
}
