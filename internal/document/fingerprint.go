package document

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"sort"
	"time"
)

// Fingerprint returns a SHA-256 over the content and the rendered metadata.
// Equal content and metadata give equal fingerprints across runs; document
// IDs and versions do not participate.
func (d *Document) Fingerprint() (string, error) {
	d.fpOnce.Do(func() {
		h := sha256.New()
		rc, err := d.Open()
		if err != nil {
			d.fpErr = err
			return
		}
		_, err = io.Copy(h, rc)
		_ = rc.Close()
		if err != nil {
			d.fpErr = fmt.Errorf("hash content: %w", err)
			return
		}
		_, _ = h.Write([]byte{0})
		if err := writeMetadata(h, d.meta); err != nil {
			d.fpErr = err
			return
		}
		d.fp = hex.EncodeToString(h.Sum(nil))
	})
	return d.fp, d.fpErr
}

func writeMetadata(h hash.Hash, m Metadata) error {
	for _, k := range m.Keys() {
		v, _ := m.Get(k)
		fmt.Fprintf(h, "%s=", k)
		if err := writeValue(h, v); err != nil {
			return err
		}
		_, _ = h.Write([]byte{0})
	}
	return nil
}

func writeValue(h hash.Hash, v any) error {
	switch val := v.(type) {
	case nil:
		_, _ = io.WriteString(h, "<nil>")
	case *Document:
		fp, err := val.Fingerprint()
		if err != nil {
			return err
		}
		_, _ = io.WriteString(h, "doc:"+fp)
	case []*Document:
		_, _ = io.WriteString(h, "[")
		for _, d := range val {
			if err := writeValue(h, d); err != nil {
				return err
			}
			_, _ = io.WriteString(h, ",")
		}
		_, _ = io.WriteString(h, "]")
	case map[string]any:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		_, _ = io.WriteString(h, "{")
		for _, k := range keys {
			fmt.Fprintf(h, "%s:", k)
			if err := writeValue(h, val[k]); err != nil {
				return err
			}
			_, _ = io.WriteString(h, ",")
		}
		_, _ = io.WriteString(h, "}")
	case []any:
		_, _ = io.WriteString(h, "[")
		for _, item := range val {
			if err := writeValue(h, item); err != nil {
				return err
			}
			_, _ = io.WriteString(h, ",")
		}
		_, _ = io.WriteString(h, "]")
	case time.Time:
		_, _ = io.WriteString(h, "time:"+val.UTC().Format(time.RFC3339Nano))
	default:
		fmt.Fprintf(h, "%T:%v", v, v)
	}
	return nil
}
