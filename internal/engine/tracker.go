package engine

import (
	"sync"

	"git.home.luguber.info/inful/sitepipe/internal/document"
)

// tracker records every document created during one pipeline run.
type tracker struct {
	mu   sync.Mutex
	docs []*document.Document
}

func (t *tracker) add(d *document.Document) {
	t.mu.Lock()
	t.docs = append(t.docs, d)
	t.mu.Unlock()
}

func (t *tracker) len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.docs)
}

// releaseAll drops the creation reference of every tracked document.
func (t *tracker) releaseAll() error {
	t.mu.Lock()
	docs := t.docs
	t.docs = nil
	t.mu.Unlock()
	return releaseEach(docs)
}

func releaseEach(docs []*document.Document) error {
	var first error
	for _, d := range docs {
		if err := d.Release(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func retainEach(docs []*document.Document) {
	for _, d := range docs {
		d.Retain()
	}
}
