package engine

import (
	"strings"

	"git.home.luguber.info/inful/sitepipe/internal/document"
)

// DocumentCollection gives read access to published pipeline outputs.
type DocumentCollection struct {
	e *Engine
}

// FromPipeline returns the outputs of the named pipeline. Names match
// case-insensitively.
func (c DocumentCollection) FromPipeline(name string) []*document.Document {
	c.e.mu.RLock()
	defer c.e.mu.RUnlock()
	if s, ok := c.e.states[pipelineKey(name)]; ok {
		return append([]*document.Document(nil), s.outputs...)
	}
	return nil
}

// All returns the outputs of every pipeline in declaration order.
func (c DocumentCollection) All() []*document.Document {
	return c.collect(func(string) bool { return true })
}

// ExceptPipeline returns the outputs of every pipeline but the named one.
func (c DocumentCollection) ExceptPipeline(name string) []*document.Document {
	return c.collect(func(n string) bool { return !strings.EqualFold(n, name) })
}

func (c DocumentCollection) collect(keep func(string) bool) []*document.Document {
	c.e.mu.RLock()
	defer c.e.mu.RUnlock()
	var out []*document.Document
	for _, p := range c.e.pipelines {
		if !keep(p.Name) {
			continue
		}
		if s, ok := c.e.states[pipelineKey(p.Name)]; ok {
			out = append(out, s.outputs...)
		}
	}
	return out
}
