package io

import (
	"context"

	"github.com/gobwas/glob"

	"git.home.luguber.info/inful/sitepipe/internal/document"
	"git.home.luguber.info/inful/sitepipe/internal/engine"
)

// ReadFiles outputs one file-backed document per file in the input
// directory matching any pattern, sorted by relative path. Inputs are
// ignored.
type ReadFiles struct {
	globs []glob.Glob
}

// NewReadFiles compiles patterns such as "posts/**/*.md".
func NewReadFiles(patterns ...string) (*ReadFiles, error) {
	globs, err := compileGlobs(patterns)
	if err != nil {
		return nil, err
	}
	return &ReadFiles{globs: globs}, nil
}

func (r *ReadFiles) Execute(ctx context.Context, ec *engine.ExecutionContext, _ []*document.Document) ([]*document.Document, error) {
	root := ec.InputDir()
	rels, err := matchFiles(root, r.globs)
	if err != nil {
		return nil, err
	}
	out := make([]*document.Document, 0, len(rels))
	for _, rel := range rels {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		meta := fileMetadata(root, rel)
		d, err := ec.NewDocumentFromFile(meta[document.KeySourceFilePath].(string), meta)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	ec.Logger().Debug("Read input files", "count", len(out))
	return out, nil
}
