package control

import (
	"fmt"
	"path/filepath"

	"github.com/gobwas/glob"

	"git.home.luguber.info/inful/sitepipe/internal/document"
)

// Predicate matches documents by metadata and source path. Every configured
// condition must hold.
type Predicate struct {
	// Key is the metadata key tested. Without Equals or Exists the value must
	// be truthy.
	Key    string
	Equals *string
	Exists *bool

	// Glob matches the document's relative path, or its source when the
	// relative path is unknown.
	Glob glob.Glob
}

// CompileGlob compiles a slash-separated glob pattern supporting "**".
func CompileGlob(pattern string) (glob.Glob, error) {
	g, err := glob.Compile(pattern, '/')
	if err != nil {
		return nil, fmt.Errorf("compile glob %q: %w", pattern, err)
	}
	return g, nil
}

// Match reports whether d satisfies the predicate.
func (p Predicate) Match(d *document.Document) bool {
	if p.Glob != nil {
		rel := d.String(document.KeyRelativeFilePath)
		if rel == "" {
			rel = d.Source()
		}
		if !p.Glob.Match(filepath.ToSlash(rel)) {
			return false
		}
	}
	if p.Key == "" {
		return true
	}
	meta := d.Metadata()
	switch {
	case p.Exists != nil:
		return meta.Has(p.Key) == *p.Exists
	case p.Equals != nil:
		return meta.Has(p.Key) && meta.String(p.Key) == *p.Equals
	default:
		return meta.Bool(p.Key, false)
	}
}
