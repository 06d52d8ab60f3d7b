package io

import (
	"context"
	"fmt"
	stdio "io"
	"os"
	"path/filepath"

	"github.com/gobwas/glob"

	"git.home.luguber.info/inful/sitepipe/internal/document"
	"git.home.luguber.info/inful/sitepipe/internal/engine"
	serrors "git.home.luguber.info/inful/sitepipe/internal/errors"
)

// WriteFiles writes each document's content below the output directory at
// DestinationPath, or else at RelativeFilePath with Extension applied, and
// records the absolute path under WritePath. Documents with neither key pass
// through unwritten.
type WriteFiles struct {
	Extension string
}

// Destination returns the output-relative path d would be written to.
func (w *WriteFiles) Destination(d *document.Document) string {
	if dest := d.String(document.KeyDestinationPath); dest != "" {
		return dest
	}
	if rel := d.String(document.KeyRelativeFilePath); rel != "" {
		return changeExt(rel, w.Extension)
	}
	return ""
}

func (w *WriteFiles) Execute(ctx context.Context, ec *engine.ExecutionContext, inputs []*document.Document) ([]*document.Document, error) {
	root := ec.OutputDir()
	return ec.Map(ctx, inputs, func(_ context.Context, d *document.Document) (*document.Document, error) {
		rel := w.Destination(d)
		if rel == "" {
			ec.Logger().Debug("Skipping document without destination", "document", d.ID())
			return d, nil
		}
		path, err := resolveOutput(root, rel)
		if err != nil {
			return nil, serrors.FileSystemError("write", rel, err)
		}
		src, err := d.Open()
		if err != nil {
			return nil, err
		}
		defer func() { _ = src.Close() }()
		if err := writeFile(path, src); err != nil {
			return nil, err
		}
		return ec.Clone(d, document.WithMeta(document.KeyWritePath, path))
	})
}

// CopyFiles copies files in the input directory matching any pattern to the
// same relative path below the output directory. It outputs one document per
// copied file; inputs are ignored.
type CopyFiles struct {
	globs []glob.Glob
}

// NewCopyFiles compiles patterns such as "assets/**".
func NewCopyFiles(patterns ...string) (*CopyFiles, error) {
	globs, err := compileGlobs(patterns)
	if err != nil {
		return nil, err
	}
	return &CopyFiles{globs: globs}, nil
}

func (c *CopyFiles) Execute(ctx context.Context, ec *engine.ExecutionContext, _ []*document.Document) ([]*document.Document, error) {
	in, outRoot := ec.InputDir(), ec.OutputDir()
	rels, err := matchFiles(in, c.globs)
	if err != nil {
		return nil, err
	}
	out := make([]*document.Document, 0, len(rels))
	for _, rel := range rels {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		meta := fileMetadata(in, rel)
		source := meta[document.KeySourceFilePath].(string)
		dest, err := resolveOutput(outRoot, rel)
		if err != nil {
			return nil, serrors.FileSystemError("copy", rel, err)
		}
		if err := copyFile(source, dest); err != nil {
			return nil, err
		}
		meta[document.KeyWritePath] = dest
		d, err := ec.NewDocumentFromFile(source, meta)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	ec.Logger().Debug("Copied files", "count", len(out))
	return out, nil
}

func copyFile(source, dest string) error {
	// #nosec G304 - source comes from walking the input directory
	f, err := os.Open(source)
	if err != nil {
		return serrors.FileSystemError("open", source, err)
	}
	defer func() { _ = f.Close() }()
	return writeFile(dest, f)
}

// writeFile streams r into path through a temp file in the same directory so
// readers never see partial output.
func writeFile(path string, r stdio.Reader) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, dirPerm); err != nil {
		return serrors.FileSystemError("mkdir", dir, err)
	}
	tmp, err := os.CreateTemp(dir, ".sitepipe-*")
	if err != nil {
		return serrors.FileSystemError("create", path, err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()
	if _, err := stdio.Copy(tmp, r); err != nil {
		_ = tmp.Close()
		return serrors.FileSystemError("write", path, err)
	}
	if err := tmp.Close(); err != nil {
		return serrors.FileSystemError("write", path, err)
	}
	if err := os.Chmod(tmp.Name(), filePerm); err != nil {
		return serrors.FileSystemError("chmod", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return serrors.FileSystemError("rename", path, fmt.Errorf("replace output: %w", err))
	}
	return nil
}
