// Package modules wires the built-in module catalog into a registry.
package modules

import (
	"git.home.luguber.info/inful/sitepipe/internal/modules/content"
	"git.home.luguber.info/inful/sitepipe/internal/modules/control"
	"git.home.luguber.info/inful/sitepipe/internal/modules/git"
	"git.home.luguber.info/inful/sitepipe/internal/modules/html"
	"git.home.luguber.info/inful/sitepipe/internal/modules/io"
	"git.home.luguber.info/inful/sitepipe/internal/modules/markdown"
	"git.home.luguber.info/inful/sitepipe/internal/modules/metadata"
	"git.home.luguber.info/inful/sitepipe/internal/registry"
)

// RegisterAll adds every built-in module to r.
func RegisterAll(r *registry.Registry) {
	control.Register(r)
	content.Register(r)
	metadata.Register(r)
	markdown.Register(r)
	html.Register(r)
	git.Register(r)
	io.Register(r)
}

// NewRegistry returns a registry holding the built-in modules.
func NewRegistry() *registry.Registry {
	r := registry.New()
	RegisterAll(r)
	return r
}
