// Package content provides modules that rewrite document content and set
// metadata.
package content

import (
	"bytes"
	"context"
	"regexp"
	"strings"

	"git.home.luguber.info/inful/sitepipe/internal/document"
	"git.home.luguber.info/inful/sitepipe/internal/engine"
)

// Mode selects how Set combines its value with existing content.
type Mode int

const (
	Replace Mode = iota
	Append
	Prepend
)

// Set replaces, appends to or prepends to each document's content.
type Set struct {
	Value string
	Mode  Mode
}

func (s *Set) Execute(ctx context.Context, ec *engine.ExecutionContext, inputs []*document.Document) ([]*document.Document, error) {
	return ec.Map(ctx, inputs, func(_ context.Context, d *document.Document) (*document.Document, error) {
		if s.Mode == Replace {
			return ec.Clone(d, document.WithString(s.Value))
		}
		body, err := d.Content()
		if err != nil {
			return nil, err
		}
		var out []byte
		if s.Mode == Append {
			out = append(append(out, body...), s.Value...)
		} else {
			out = append(append(out, s.Value...), body...)
		}
		return ec.Clone(d, document.WithBytes(out))
	})
}

// Substitute replaces occurrences of Search, or matches of Pattern, with
// With. Pattern replacements expand $1 style references.
type Substitute struct {
	Search  string
	Pattern *regexp.Regexp
	With    string
}

func (s *Substitute) Execute(ctx context.Context, ec *engine.ExecutionContext, inputs []*document.Document) ([]*document.Document, error) {
	return ec.Map(ctx, inputs, func(_ context.Context, d *document.Document) (*document.Document, error) {
		body, err := d.Content()
		if err != nil {
			return nil, err
		}
		var out []byte
		if s.Pattern != nil {
			out = s.Pattern.ReplaceAll(body, []byte(s.With))
		} else {
			out = bytes.ReplaceAll(body, []byte(s.Search), []byte(s.With))
		}
		if bytes.Equal(out, body) {
			return d, nil
		}
		return ec.Clone(d, document.WithBytes(out))
	})
}

// Meta sets Key to Value, or to the value of From when From is set.
// When From is set, documents that lack the From key pass through unchanged.
type Meta struct {
	Key   string
	Value any
	From  string
}

func (m *Meta) Execute(ctx context.Context, ec *engine.ExecutionContext, inputs []*document.Document) ([]*document.Document, error) {
	return ec.Map(ctx, inputs, func(_ context.Context, d *document.Document) (*document.Document, error) {
		value := m.Value
		if m.From != "" {
			v, ok := d.Get(m.From)
			if !ok {
				return d, nil
			}
			value = v
		}
		return ec.Clone(d, document.WithMeta(m.Key, value))
	})
}

// trimExt strips the last extension from a file name.
func trimExt(name string) string {
	if i := strings.LastIndexByte(name, '.'); i > 0 {
		return name[:i]
	}
	return name
}
