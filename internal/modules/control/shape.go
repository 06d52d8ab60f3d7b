package control

import (
	"bytes"
	"context"
	"math"
	"sort"
	"strings"

	"git.home.luguber.info/inful/sitepipe/internal/document"
	"git.home.luguber.info/inful/sitepipe/internal/engine"
)

// Where keeps documents matching its predicate.
type Where struct {
	Predicate Predicate
}

func (w *Where) Execute(_ context.Context, _ *engine.ExecutionContext, inputs []*document.Document) ([]*document.Document, error) {
	var out []*document.Document
	for _, d := range inputs {
		if w.Predicate.Match(d) {
			out = append(out, d)
		}
	}
	return out, nil
}

// OrderBy stable-sorts documents by a metadata value. Documents missing the
// key sort last regardless of direction.
type OrderBy struct {
	Key        string
	Descending bool
}

func (o *OrderBy) Execute(_ context.Context, _ *engine.ExecutionContext, inputs []*document.Document) ([]*document.Document, error) {
	out := append([]*document.Document(nil), inputs...)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i].Metadata(), out[j].Metadata()
		hasA, hasB := a.Has(o.Key), b.Has(o.Key)
		if !hasA || !hasB {
			return hasA && !hasB
		}
		c := compareValues(a, b, o.Key)
		if o.Descending {
			return c > 0
		}
		return c < 0
	})
	return out, nil
}

// compareValues orders times, then numbers, then strings.
func compareValues(a, b document.Metadata, key string) int {
	if ta, ok := a.Time(key); ok {
		if tb, ok := b.Time(key); ok {
			return ta.Compare(tb)
		}
	}
	fa, fb := a.Float(key, math.NaN()), b.Float(key, math.NaN())
	if !math.IsNaN(fa) && !math.IsNaN(fb) {
		switch {
		case fa < fb:
			return -1
		case fa > fb:
			return 1
		}
		return 0
	}
	return strings.Compare(a.String(key), b.String(key))
}

// Take keeps the first Count documents.
type Take struct {
	Count int
}

func (t *Take) Execute(_ context.Context, _ *engine.ExecutionContext, inputs []*document.Document) ([]*document.Document, error) {
	if t.Count >= len(inputs) {
		return inputs, nil
	}
	return inputs[:max(t.Count, 0)], nil
}

// Documents replaces its inputs with the outputs of other pipelines. Without
// pipeline names it outputs every other pipeline's documents.
type Documents struct {
	Pipelines []string
}

func (m *Documents) Execute(_ context.Context, ec *engine.ExecutionContext, _ []*document.Document) ([]*document.Document, error) {
	if len(m.Pipelines) == 0 {
		return ec.Documents().ExceptPipeline(ec.Pipeline()), nil
	}
	var out []*document.Document
	for _, p := range m.Pipelines {
		if _, ok := ec.Engine().Pipeline(p); !ok {
			return nil, &unknownPipelineError{name: p}
		}
		out = append(out, ec.Documents().FromPipeline(p)...)
	}
	return out, nil
}

type unknownPipelineError struct{ name string }

func (e *unknownPipelineError) Error() string { return "unknown pipeline " + e.name }

func (e *unknownPipelineError) Unwrap() error { return engine.ErrPipelineNotFound }

// Combine merges all inputs into one document: contents joined by
// Separator and metadata layered in input order.
type Combine struct {
	Separator string
}

func (c *Combine) Execute(_ context.Context, ec *engine.ExecutionContext, inputs []*document.Document) ([]*document.Document, error) {
	if len(inputs) == 0 {
		return nil, nil
	}
	var buf bytes.Buffer
	meta := map[string]any{}
	for i, d := range inputs {
		if i > 0 {
			buf.WriteString(c.Separator)
		}
		b, err := d.Content()
		if err != nil {
			return nil, err
		}
		buf.Write(b)
		for k, v := range d.Metadata().All() {
			for existing := range meta {
				if strings.EqualFold(existing, k) {
					delete(meta, existing)
				}
			}
			meta[k] = v
		}
	}
	d, err := ec.NewDocument(inputs[0].Source(), document.BytesContent(buf.Bytes()), meta)
	if err != nil {
		return nil, err
	}
	return []*document.Document{d}, nil
}

// GroupBy outputs one document per distinct value of Key. A list value puts
// the document into several groups. Groups keep first-seen order.
type GroupBy struct {
	Key string
}

func (g *GroupBy) Execute(_ context.Context, ec *engine.ExecutionContext, inputs []*document.Document) ([]*document.Document, error) {
	var order []string
	groups := map[string][]*document.Document{}
	for _, d := range inputs {
		for _, v := range d.Metadata().Strings(g.Key) {
			if _, ok := groups[v]; !ok {
				order = append(order, v)
			}
			groups[v] = append(groups[v], d)
		}
	}
	out := make([]*document.Document, 0, len(order))
	for _, k := range order {
		d, err := ec.NewDocumentString("", map[string]any{
			document.KeyGroupKey:       k,
			document.KeyGroupDocuments: groups[k],
		})
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, nil
}

// Paginate outputs one document per page of Size inputs.
type Paginate struct {
	Size int
}

func (p *Paginate) Execute(_ context.Context, ec *engine.ExecutionContext, inputs []*document.Document) ([]*document.Document, error) {
	size := max(p.Size, 1)
	total := (len(inputs) + size - 1) / size
	out := make([]*document.Document, 0, total)
	for page := range total {
		end := min((page+1)*size, len(inputs))
		d, err := ec.NewDocumentString("", map[string]any{
			document.KeyPageDocuments: append([]*document.Document(nil), inputs[page*size:end]...),
			document.KeyCurrentPage:   page + 1,
			document.KeyTotalPages:    total,
		})
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, nil
}
