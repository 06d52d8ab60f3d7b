// Package markdown renders Markdown content to HTML with goldmark.
package markdown

import (
	"bytes"
	"context"
	"fmt"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer/html"

	"git.home.luguber.info/inful/sitepipe/internal/document"
	"git.home.luguber.info/inful/sitepipe/internal/engine"
	"git.home.luguber.info/inful/sitepipe/internal/registry"
)

// KeyLinks holds the link destinations found in the Markdown source.
const KeyLinks = "Links"

const cacheKeyHTML = "html"

// Markdown renders each document with the GFM extensions. Rendered HTML is
// memoized in the execution cache by document fingerprint.
type Markdown struct {
	// Unsafe passes raw HTML in the source through to the output.
	Unsafe bool
	// Links records link destinations under KeyLinks.
	Links bool
}

// NewRenderer returns the goldmark instance used by the module.
func NewRenderer(unsafe bool) goldmark.Markdown {
	opts := []goldmark.Option{
		goldmark.WithExtensions(extension.GFM, extension.Footnote),
		goldmark.WithParserOptions(parser.WithAutoHeadingID()),
	}
	if unsafe {
		opts = append(opts, goldmark.WithRendererOptions(html.WithUnsafe()))
	}
	return goldmark.New(opts...)
}

func (m *Markdown) Execute(ctx context.Context, ec *engine.ExecutionContext, inputs []*document.Document) ([]*document.Document, error) {
	md := NewRenderer(m.Unsafe)
	cache := ec.Cache()
	return ec.Map(ctx, inputs, func(_ context.Context, d *document.Document) (*document.Document, error) {
		source, err := d.Content()
		if err != nil {
			return nil, err
		}

		var rendered []byte
		if v, ok := cache.Get(d, cacheKeyHTML); ok {
			rendered, _ = v.([]byte)
		}
		if rendered == nil {
			var buf bytes.Buffer
			if err := md.Convert(source, &buf); err != nil {
				return nil, fmt.Errorf("render %s: %w", d.Source(), err)
			}
			rendered = buf.Bytes()
			cache.Set(d, cacheKeyHTML, rendered)
		}

		opts := []document.CloneOption{document.WithBytes(rendered)}
		if m.Links {
			opts = append(opts, document.WithMeta(KeyLinks, Destinations(ExtractLinks(md, source))))
		}
		return ec.Clone(d, opts...)
	})
}

// Register adds the markdown module to r.
func Register(r *registry.Registry) {
	r.Register("markdown", "renders Markdown to HTML", func(a *registry.Args) (engine.Module, error) {
		var cfg struct {
			Unsafe bool `mapstructure:"unsafe"`
			Links  bool `mapstructure:"links"`
		}
		if err := a.Decode(&cfg); err != nil {
			return nil, err
		}
		return &Markdown{Unsafe: cfg.Unsafe, Links: cfg.Links}, nil
	})
}
