// Package control provides modules that shape the document flow: running
// child chains, filtering, ordering, grouping and paging.
package control

import (
	"context"

	"git.home.luguber.info/inful/sitepipe/internal/document"
	"git.home.luguber.info/inful/sitepipe/internal/engine"
)

// Branch runs its children on the inputs and outputs the inputs unchanged.
type Branch struct {
	Modules []engine.Module
}

func (b *Branch) Execute(ctx context.Context, ec *engine.ExecutionContext, inputs []*document.Document) ([]*document.Document, error) {
	if _, err := ec.Execute(ctx, b.Modules, inputs); err != nil {
		return nil, err
	}
	return inputs, nil
}

func (b *Branch) Children() []engine.Chain {
	return []engine.Chain{{Modules: b.Modules}}
}

// Concat outputs the inputs followed by the output of its children.
type Concat struct {
	Modules []engine.Module
}

func (c *Concat) Execute(ctx context.Context, ec *engine.ExecutionContext, inputs []*document.Document) ([]*document.Document, error) {
	out, err := ec.Execute(ctx, c.Modules, inputs)
	if err != nil {
		return nil, err
	}
	return append(append([]*document.Document(nil), inputs...), out...), nil
}

func (c *Concat) Children() []engine.Chain {
	return []engine.Chain{{Modules: c.Modules}}
}

// ForEach runs its children once per input document.
type ForEach struct {
	Modules []engine.Module
}

func (f *ForEach) Execute(ctx context.Context, ec *engine.ExecutionContext, inputs []*document.Document) ([]*document.Document, error) {
	return ec.ForEach(ctx, inputs, func(ctx context.Context, d *document.Document) ([]*document.Document, error) {
		return ec.Execute(ctx, f.Modules, []*document.Document{d})
	})
}

func (f *ForEach) Children() []engine.Chain {
	return []engine.Chain{{Modules: f.Modules}}
}

// If sends documents matching Predicate through Then and the rest through
// Else. Without an Else chain non-matching documents pass through. Matching
// results come first.
type If struct {
	Predicate Predicate
	Then      []engine.Module
	Else      []engine.Module
}

func (m *If) Execute(ctx context.Context, ec *engine.ExecutionContext, inputs []*document.Document) ([]*document.Document, error) {
	var matched, rest []*document.Document
	for _, d := range inputs {
		if m.Predicate.Match(d) {
			matched = append(matched, d)
		} else {
			rest = append(rest, d)
		}
	}

	out, err := ec.Execute(ctx, m.Then, matched)
	if err != nil {
		return nil, err
	}
	if len(m.Else) == 0 {
		return append(out, rest...), nil
	}
	other, err := ec.ExecuteLabeled(ctx, "else", m.Else, rest)
	if err != nil {
		return nil, err
	}
	return append(out, other...), nil
}

func (m *If) Children() []engine.Chain {
	chains := []engine.Chain{{Modules: m.Then}}
	if len(m.Else) > 0 {
		chains = append(chains, engine.Chain{Label: "else", Modules: m.Else})
	}
	return chains
}
