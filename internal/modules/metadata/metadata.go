// Package metadata provides modules that extract metadata from document
// content.
package metadata

import (
	"context"
	"fmt"
	"slices"

	"git.home.luguber.info/inful/sitepipe/internal/document"
	"git.home.luguber.info/inful/sitepipe/internal/engine"
	"git.home.luguber.info/inful/sitepipe/internal/frontmatter"
)

// FrontMatter moves YAML front matter into metadata and leaves the body as
// content. Documents without front matter pass through unchanged.
type FrontMatter struct{}

func (FrontMatter) Execute(ctx context.Context, ec *engine.ExecutionContext, inputs []*document.Document) ([]*document.Document, error) {
	return ec.Map(ctx, inputs, func(_ context.Context, d *document.Document) (*document.Document, error) {
		content, err := d.Content()
		if err != nil {
			return nil, err
		}
		parts, err := frontmatter.Split(content)
		if err != nil {
			return nil, fmt.Errorf("front matter of %s: %w", describe(d), err)
		}
		if !parts.Present {
			return d, nil
		}
		fields, err := frontmatter.ParseYAML(parts.Raw)
		if err != nil {
			return nil, fmt.Errorf("front matter of %s: %w", describe(d), err)
		}
		return ec.Clone(d, document.WithBytes(parts.Body), document.WithMetadata(fields))
	})
}

// YAML parses the whole content as YAML. With Key set the parsed value is
// stored under Key; otherwise the top-level mapping is merged into metadata.
type YAML struct {
	Key string
}

func (y *YAML) Execute(ctx context.Context, ec *engine.ExecutionContext, inputs []*document.Document) ([]*document.Document, error) {
	return ec.Map(ctx, inputs, func(_ context.Context, d *document.Document) (*document.Document, error) {
		content, err := d.Content()
		if err != nil {
			return nil, err
		}
		if y.Key != "" {
			var value any
			if err := unmarshal(content, &value); err != nil {
				return nil, fmt.Errorf("yaml in %s: %w", describe(d), err)
			}
			return ec.Clone(d, document.WithMeta(y.Key, value))
		}
		fields, err := frontmatter.ParseYAML(content)
		if err != nil {
			return nil, fmt.Errorf("yaml in %s: %w", describe(d), err)
		}
		return ec.Clone(d, document.WithMetadata(fields))
	})
}

// Fingerprint stores the content fingerprint of each document's metadata and
// body under Fingerprint. Document-valued metadata and Exclude keys do not
// participate.
type Fingerprint struct {
	Exclude []string
}

func (f *Fingerprint) Execute(ctx context.Context, ec *engine.ExecutionContext, inputs []*document.Document) ([]*document.Document, error) {
	exclude := append(slices.Clone(f.Exclude), document.KeyFingerprint)
	return ec.Map(ctx, inputs, func(_ context.Context, d *document.Document) (*document.Document, error) {
		body, err := d.Content()
		if err != nil {
			return nil, err
		}
		fields := d.Metadata().All()
		for k, v := range fields {
			switch v.(type) {
			case *document.Document, []*document.Document:
				delete(fields, k)
			}
		}
		fp, err := frontmatter.Fingerprint(fields, body, exclude...)
		if err != nil {
			return nil, fmt.Errorf("fingerprint %s: %w", describe(d), err)
		}
		return ec.Clone(d, document.WithMeta(document.KeyFingerprint, fp))
	})
}

func describe(d *document.Document) string {
	if d.Source() != "" {
		return d.Source()
	}
	return "document " + d.ID()
}
