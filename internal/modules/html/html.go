// Package html extracts metadata from rendered HTML content.
package html

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"golang.org/x/net/html"

	"git.home.luguber.info/inful/sitepipe/internal/document"
	"git.home.luguber.info/inful/sitepipe/internal/engine"
)

// Headings stores the text of every h1..hLevel element under Headings, in
// document order.
type Headings struct {
	Level int
}

func (h *Headings) Execute(ctx context.Context, ec *engine.ExecutionContext, inputs []*document.Document) ([]*document.Document, error) {
	level := min(max(h.Level, 1), 6)
	return ec.Map(ctx, inputs, func(_ context.Context, d *document.Document) (*document.Document, error) {
		root, err := parse(d)
		if err != nil {
			return nil, err
		}
		headings := []string{}
		walk(root, func(n *html.Node) bool {
			if l := headingLevel(n); l > 0 && l <= level {
				headings = append(headings, extractText(n))
				return false
			}
			return true
		})
		return ec.Clone(d, document.WithMeta(document.KeyHeadings, headings))
	})
}

// Excerpt stores the outer HTML of the first element matching Selector
// (default "p") under Excerpt. Documents without a match pass through.
type Excerpt struct {
	Selector string
}

func (e *Excerpt) Execute(ctx context.Context, ec *engine.ExecutionContext, inputs []*document.Document) ([]*document.Document, error) {
	sel, err := ParseSelector(e.Selector)
	if err != nil {
		return nil, err
	}
	return ec.Map(ctx, inputs, func(_ context.Context, d *document.Document) (*document.Document, error) {
		root, err := parse(d)
		if err != nil {
			return nil, err
		}
		var found *html.Node
		walk(root, func(n *html.Node) bool {
			if found == nil && sel.Match(n) {
				found = n
			}
			return found == nil
		})
		if found == nil {
			return d, nil
		}
		var buf bytes.Buffer
		if err := html.Render(&buf, found); err != nil {
			return nil, fmt.Errorf("render excerpt of %s: %w", d.Source(), err)
		}
		return ec.Clone(d, document.WithMeta(document.KeyExcerpt, buf.String()))
	})
}

func parse(d *document.Document) (*html.Node, error) {
	rc, err := d.Open()
	if err != nil {
		return nil, err
	}
	defer func() { _ = rc.Close() }()
	root, err := html.Parse(rc)
	if err != nil {
		return nil, fmt.Errorf("parse html of %s: %w", d.Source(), err)
	}
	return root, nil
}

// walk visits n depth first. Returning false from visit skips the node's
// children.
func walk(n *html.Node, visit func(*html.Node) bool) {
	if n.Type == html.ElementNode && !visit(n) {
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walk(c, visit)
	}
}

func headingLevel(n *html.Node) int {
	if len(n.Data) == 2 && n.Data[0] == 'h' && n.Data[1] >= '1' && n.Data[1] <= '6' {
		return int(n.Data[1] - '0')
	}
	return 0
}

func getAttr(n *html.Node, key string) string {
	for _, attr := range n.Attr {
		if attr.Key == key {
			return attr.Val
		}
	}
	return ""
}

func extractText(n *html.Node) string {
	if n.Type == html.TextNode {
		return n.Data
	}
	var text strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		text.WriteString(extractText(c))
	}
	return strings.Join(strings.Fields(text.String()), " ")
}
