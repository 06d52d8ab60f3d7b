package content

import (
	"context"
	"path/filepath"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"git.home.luguber.info/inful/sitepipe/internal/document"
	"git.home.luguber.info/inful/sitepipe/internal/engine"
)

// Title sets Key (default "Title") from the file name when it is not already
// set: "getting-started.md" becomes "Getting Started".
type Title struct {
	Key string
}

func (t *Title) Execute(ctx context.Context, ec *engine.ExecutionContext, inputs []*document.Document) ([]*document.Document, error) {
	key := t.Key
	if key == "" {
		key = document.KeyTitle
	}
	return ec.Map(ctx, inputs, func(_ context.Context, d *document.Document) (*document.Document, error) {
		if d.Metadata().String(key) != "" {
			return d, nil
		}
		name := d.String(document.KeyFileName)
		if name == "" && d.Source() != "" {
			name = filepath.Base(d.Source())
		}
		if name == "" {
			return d, nil
		}
		return ec.Clone(d, document.WithMeta(key, TitleFromFileName(name)))
	})
}

// TitleFromFileName turns a file name into a title. A Caser holds state, so
// each call gets its own.
func TitleFromFileName(name string) string {
	base := trimExt(filepath.Base(name))
	words := strings.FieldsFunc(base, func(r rune) bool {
		return r == '-' || r == '_' || r == ' ' || r == '.'
	})
	return cases.Title(language.English).String(strings.Join(words, " "))
}
