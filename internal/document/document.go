package document

import (
	"bytes"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"
)

// Document is an immutable content+metadata record.
type Document struct {
	id      string
	version int
	source  string
	content *sharedContent
	meta    Metadata

	refs     atomic.Int64
	released atomic.Bool

	fpOnce sync.Once
	fp     string
	fpErr  error
}

// ID is assigned when a document is first created and preserved by clones.
func (d *Document) ID() string { return d.id }

// Version counts the clones between this document and its origin.
func (d *Document) Version() int { return d.version }

// Source is the absolute source path, or "" for generated documents.
func (d *Document) Source() string { return d.source }

// Metadata returns the document's metadata.
func (d *Document) Metadata() Metadata { return d.meta }

// Get is shorthand for Metadata().Get.
func (d *Document) Get(key string) (any, bool) { return d.meta.Get(key) }

// String is shorthand for Metadata().String.
func (d *Document) String(key string) string { return d.meta.String(key) }

// Time is shorthand for Metadata().Time.
func (d *Document) Time(key string) (time.Time, bool) { return d.meta.Time(key) }

// Open returns a reader over the document content.
func (d *Document) Open() (io.ReadCloser, error) {
	if d.released.Load() {
		return nil, fmt.Errorf("document %s released", d.id)
	}
	return d.content.p.Open()
}

// ContentLength returns the content size in bytes.
func (d *Document) ContentLength() int64 { return d.content.p.Len() }

// Content reads the full content.
func (d *Document) Content() ([]byte, error) {
	rc, err := d.Open()
	if err != nil {
		return nil, err
	}
	defer func() { _ = rc.Close() }()
	var buf bytes.Buffer
	if n := d.ContentLength(); n > 0 {
		buf.Grow(int(n))
	}
	if _, err := io.Copy(&buf, rc); err != nil {
		return nil, fmt.Errorf("read content of %s: %w", d.id, err)
	}
	return buf.Bytes(), nil
}

// ContentString reads the full content as a string, returning "" on error.
func (d *Document) ContentString() string {
	b, err := d.Content()
	if err != nil {
		return ""
	}
	return string(b)
}

// Provider exposes the underlying content provider.
func (d *Document) Provider() Provider { return d.content.p }

// Retain adds a reference.
func (d *Document) Retain() *Document {
	d.refs.Add(1)
	return d
}

// Release drops a reference. When the last reference goes the content
// reference is released. Releasing a fully released document is a no-op.
func (d *Document) Release() error {
	for {
		cur := d.refs.Load()
		if cur <= 0 {
			return nil
		}
		if d.refs.CompareAndSwap(cur, cur-1) {
			if cur-1 > 0 {
				return nil
			}
			break
		}
	}
	if !d.released.CompareAndSwap(false, true) {
		return nil
	}
	return d.content.release()
}

// Released reports whether the document has dropped its content.
func (d *Document) Released() bool { return d.released.Load() }

// RefCount returns the current reference count.
func (d *Document) RefCount() int64 { return d.refs.Load() }
