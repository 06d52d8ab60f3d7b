package watch

import (
	"path/filepath"
	"strings"

	"github.com/gobwas/glob"
)

// Filter decides which paths are irrelevant to a rebuild.
type Filter struct {
	root     string
	patterns []glob.Glob
	// excluded are absolute directories whose events never trigger a build,
	// such as an output directory nested inside the input.
	excluded []string
}

// NewFilter compiles ignore patterns. A pattern is matched against both the
// base name and the slash-separated path relative to root.
func NewFilter(root string, patterns []string, excluded ...string) (*Filter, error) {
	f := &Filter{root: root}
	for _, p := range patterns {
		g, err := glob.Compile(p, '/')
		if err != nil {
			return nil, err
		}
		f.patterns = append(f.patterns, g)
	}
	for _, dir := range excluded {
		if dir != "" {
			f.excluded = append(f.excluded, filepath.Clean(dir))
		}
	}
	return f, nil
}

// Ignored reports whether changes to path should be skipped.
func (f *Filter) Ignored(path string) bool {
	clean := filepath.Clean(path)
	for _, dir := range f.excluded {
		if clean == dir || strings.HasPrefix(clean, dir+string(filepath.Separator)) {
			return true
		}
	}
	if isScratchFile(filepath.Base(clean)) {
		return true
	}
	rel, err := filepath.Rel(f.root, clean)
	if err != nil || strings.HasPrefix(rel, "..") {
		rel = clean
	}
	rel = filepath.ToSlash(rel)
	segments := strings.Split(rel, "/")
	for _, g := range f.patterns {
		if g.Match(rel) {
			return true
		}
		for _, seg := range segments {
			if g.Match(seg) {
				return true
			}
		}
	}
	return false
}

// isScratchFile matches editor swap and backup files and OS litter.
func isScratchFile(base string) bool {
	switch {
	case strings.HasSuffix(base, "~"),
		strings.HasSuffix(base, ".swp"),
		strings.HasSuffix(base, ".swx"),
		strings.HasPrefix(base, ".#"),
		strings.HasPrefix(base, "#") && strings.HasSuffix(base, "#"),
		base == ".DS_Store",
		base == "Thumbs.db":
		return true
	}
	return false
}
