package engine

import (
	"context"
	"fmt"
	"strings"

	"git.home.luguber.info/inful/sitepipe/internal/document"
)

// Module transforms a list of documents. Implementations must not mutate
// their inputs; new documents are created through the ExecutionContext.
type Module interface {
	Execute(ctx context.Context, ec *ExecutionContext, inputs []*document.Document) ([]*document.Document, error)
}

// ModuleFunc adapts a function to Module.
type ModuleFunc func(ctx context.Context, ec *ExecutionContext, inputs []*document.Document) ([]*document.Document, error)

func (f ModuleFunc) Execute(ctx context.Context, ec *ExecutionContext, inputs []*document.Document) ([]*document.Document, error) {
	return f(ctx, ec, inputs)
}

// Namer is implemented by modules that report a type name.
type Namer interface {
	Name() string
}

// Chain is a labeled list of child modules.
type Chain struct {
	Label   string
	Modules []Module
}

// Container is implemented by modules that run child modules.
type Container interface {
	Children() []Chain
}

type named struct {
	Module
	name string
}

func (n named) Name() string   { return n.name }
func (n named) Unwrap() Module { return n.Module }

// Named attaches a name to m for logs, metrics and visualization.
func Named(name string, m Module) Module {
	return named{Module: m, name: name}
}

// ModuleName returns the module's name, falling back to its Go type.
func ModuleName(m Module) string {
	if n, ok := m.(Namer); ok {
		return n.Name()
	}
	t := fmt.Sprintf("%T", m)
	t = strings.TrimPrefix(t, "*")
	if i := strings.LastIndex(t, "."); i >= 0 {
		t = t[i+1:]
	}
	return t
}

// ChildChains returns the child chains of m, looking through Named wrappers.
func ChildChains(m Module) []Chain {
	for {
		if c, ok := m.(Container); ok {
			return c.Children()
		}
		u, ok := m.(interface{ Unwrap() Module })
		if !ok {
			return nil
		}
		m = u.Unwrap()
	}
}
