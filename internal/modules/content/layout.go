package content

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"os"
	"path/filepath"

	"git.home.luguber.info/inful/sitepipe/internal/document"
	"git.home.luguber.info/inful/sitepipe/internal/engine"
)

// Layout renders every document through a Go html/template. The template
// sees .Content (the document content as trusted HTML), .Meta (all metadata),
// .Doc and the .Documents method for other pipelines' outputs.
type Layout struct {
	// File is resolved against the input directory. Exactly one of File and
	// Template is set.
	File     string
	Template string
}

// LayoutData is the template context.
type LayoutData struct {
	Content template.HTML
	Meta    map[string]any
	Doc     *document.Document

	docs engine.DocumentCollection
}

// Documents returns the outputs of the named pipeline.
func (l LayoutData) Documents(pipeline string) []*document.Document {
	return l.docs.FromPipeline(pipeline)
}

func (l *Layout) parse(ec *engine.ExecutionContext) (*template.Template, error) {
	src := l.Template
	name := "inline"
	if l.File != "" {
		path := l.File
		if !filepath.IsAbs(path) {
			path = filepath.Join(ec.InputDir(), path)
		}
		// #nosec G304 - layout path comes from pipeline configuration
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read layout: %w", err)
		}
		src = string(b)
		name = filepath.Base(path)
	}
	tmpl, err := template.New(name).Option("missingkey=zero").Parse(src)
	if err != nil {
		return nil, fmt.Errorf("parse layout %s: %w", name, err)
	}
	return tmpl, nil
}

func (l *Layout) Execute(ctx context.Context, ec *engine.ExecutionContext, inputs []*document.Document) ([]*document.Document, error) {
	if len(inputs) == 0 {
		return nil, nil
	}
	tmpl, err := l.parse(ec)
	if err != nil {
		return nil, err
	}
	return ec.Map(ctx, inputs, func(_ context.Context, d *document.Document) (*document.Document, error) {
		body, err := d.Content()
		if err != nil {
			return nil, err
		}
		data := LayoutData{
			// #nosec G203 - content is the site's own rendered HTML
			Content: template.HTML(body),
			Meta:    d.Metadata().All(),
			Doc:     d,
			docs:    ec.Documents(),
		}
		var buf bytes.Buffer
		if err := tmpl.Execute(&buf, data); err != nil {
			return nil, fmt.Errorf("render %s: %w", d.Source(), err)
		}
		return ec.Clone(d, document.WithBytes(buf.Bytes()))
	})
}
