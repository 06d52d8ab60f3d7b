package document

import (
	"bytes"
	"io"

	"github.com/google/uuid"
	"github.com/huandu/go-clone"
)

// Factory creates documents. OnCreate, when set, observes every document the
// factory creates; the engine uses it to track documents per pipeline run.
type Factory struct {
	// Settings seed the first metadata layer of every new document.
	Settings map[string]any

	// SpillThreshold moves byte content larger than this many bytes to a
	// temp file. Zero disables spilling.
	SpillThreshold int64
	TempDir        string

	OnCreate func(*Document)
}

// CloneOption alters a clone.
type CloneOption func(*cloneSpec)

type cloneSpec struct {
	source     *string
	content    Provider
	metadata   map[string]any
	hasContent bool
}

// WithSource replaces the source path.
func WithSource(source string) CloneOption {
	return func(s *cloneSpec) { s.source = &source }
}

// WithContent replaces the content.
func WithContent(p Provider) CloneOption {
	return func(s *cloneSpec) {
		s.content = p
		s.hasContent = true
	}
}

// WithBytes replaces the content with b.
func WithBytes(b []byte) CloneOption {
	return WithContent(BytesContent(b))
}

// WithString replaces the content with s.
func WithString(s string) CloneOption {
	return WithContent(BytesContent(s))
}

// WithMetadata layers items over the existing metadata.
func WithMetadata(items map[string]any) CloneOption {
	return func(s *cloneSpec) {
		if s.metadata == nil {
			s.metadata = make(map[string]any, len(items))
		}
		for k, v := range items {
			s.metadata[k] = v
		}
	}
}

// WithMeta layers a single key.
func WithMeta(key string, value any) CloneOption {
	return WithMetadata(map[string]any{key: value})
}

// New creates a document with the given content and metadata layered over
// the factory settings. A nil provider yields empty content.
func (f *Factory) New(source string, content Provider, metadata map[string]any) (*Document, error) {
	p, err := f.spill(content)
	if err != nil {
		return nil, err
	}
	meta := Metadata{}
	if len(f.Settings) > 0 {
		settings, _ := clone.Clone(f.Settings).(map[string]any)
		meta = meta.With(settings)
	}
	d := &Document{
		id:      uuid.NewString(),
		source:  source,
		content: share(p),
		meta:    meta.With(metadata),
	}
	d.refs.Store(1)
	f.created(d)
	return d, nil
}

// NewString is a convenience for in-memory string content.
func (f *Factory) NewString(source, content string, metadata map[string]any) (*Document, error) {
	return f.New(source, BytesContent(content), metadata)
}

// Clone derives a new document from d. The clone keeps d's ID, increments its
// version and shares d's content unless replaced.
func (f *Factory) Clone(d *Document, opts ...CloneOption) (*Document, error) {
	spec := &cloneSpec{}
	for _, opt := range opts {
		opt(spec)
	}

	var content *sharedContent
	if spec.hasContent {
		p, err := f.spill(spec.content)
		if err != nil {
			return nil, err
		}
		content = share(p)
	} else {
		content = d.content.retain()
	}

	source := d.source
	if spec.source != nil {
		source = *spec.source
	}

	c := &Document{
		id:      d.id,
		version: d.version + 1,
		source:  source,
		content: content,
		meta:    d.meta.With(spec.metadata),
	}
	c.refs.Store(1)
	f.created(c)
	return c, nil
}

func (f *Factory) created(d *Document) {
	if f.OnCreate != nil {
		f.OnCreate(d)
	}
}

func (f *Factory) spill(p Provider) (Provider, error) {
	if p == nil {
		return emptyContent, nil
	}
	b, isBytes := p.(BytesContent)
	if !isBytes || f.SpillThreshold <= 0 || int64(len(b)) <= f.SpillThreshold {
		return p, nil
	}
	return NewTempFileContent(f.TempDir, bytes.NewReader(b))
}

// ReadAll is a helper that spills a reader through the factory.
func (f *Factory) ReadAll(r io.Reader) (Provider, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return f.spill(BytesContent(b))
}
