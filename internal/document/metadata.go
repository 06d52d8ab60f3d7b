package document

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/huandu/go-clone"
	"github.com/mitchellh/mapstructure"
)

// Computed is a metadata value evaluated on every access against the full
// metadata of the document holding it.
type Computed func(m Metadata) any

type entry struct {
	key   string
	value any
}

// Metadata is an immutable, layered set of key/value pairs. Keys are matched
// case-insensitively; later layers shadow earlier ones.
type Metadata struct {
	layers []map[string]entry
}

// NewMetadata builds metadata with a single layer.
func NewMetadata(items map[string]any) Metadata {
	return Metadata{}.With(items)
}

// With returns new metadata with items layered on top. The receiver is not
// modified.
func (m Metadata) With(items map[string]any) Metadata {
	if len(items) == 0 {
		return m
	}
	layer := make(map[string]entry, len(items))
	for k, v := range items {
		layer[strings.ToLower(k)] = entry{key: k, value: v}
	}
	layers := make([]map[string]entry, len(m.layers), len(m.layers)+1)
	copy(layers, m.layers)
	return Metadata{layers: append(layers, layer)}
}

// Raw returns the stored value without evaluating computed values.
func (m Metadata) Raw(key string) (any, bool) {
	lk := strings.ToLower(key)
	for i := len(m.layers) - 1; i >= 0; i-- {
		if e, ok := m.layers[i][lk]; ok {
			return e.value, true
		}
	}
	return nil, false
}

// Get returns the value for key, evaluating computed values.
func (m Metadata) Get(key string) (any, bool) {
	v, ok := m.Raw(key)
	if !ok {
		return nil, false
	}
	if c, isComputed := v.(Computed); isComputed {
		return c(m), true
	}
	return v, true
}

// Has reports whether key is present.
func (m Metadata) Has(key string) bool {
	_, ok := m.Raw(key)
	return ok
}

// Keys returns the visible keys in sorted order, using the casing of the
// layer that defines them.
func (m Metadata) Keys() []string {
	seen := make(map[string]string)
	for i := len(m.layers) - 1; i >= 0; i-- {
		for lk, e := range m.layers[i] {
			if _, ok := seen[lk]; !ok {
				seen[lk] = e.key
			}
		}
	}
	keys := make([]string, 0, len(seen))
	for _, k := range seen {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Len returns the number of visible keys.
func (m Metadata) Len() int { return len(m.Keys()) }

// All returns a deep copy of the visible values with computed values
// evaluated.
func (m Metadata) All() map[string]any {
	out := make(map[string]any)
	for _, k := range m.Keys() {
		v, _ := m.Get(k)
		out[k] = clonePlain(v)
	}
	return out
}

// String returns the value as a string, or "" when absent.
func (m Metadata) String(key string) string {
	return m.StringOr(key, "")
}

// StringOr returns the value as a string or def when absent.
func (m Metadata) StringOr(key, def string) string {
	v, ok := m.Get(key)
	if !ok || v == nil {
		return def
	}
	switch s := v.(type) {
	case string:
		return s
	case []byte:
		return string(s)
	case fmt.Stringer:
		return s.String()
	case time.Time:
		return s.Format(time.RFC3339)
	}
	return fmt.Sprint(v)
}

// Int returns the value converted to int, or def.
func (m Metadata) Int(key string, def int) int {
	var out int
	if !m.decode(key, &out) {
		return def
	}
	return out
}

// Float returns the value converted to float64, or def.
func (m Metadata) Float(key string, def float64) float64 {
	var out float64
	if !m.decode(key, &out) {
		return def
	}
	return out
}

// Bool returns the value converted to bool, or def.
func (m Metadata) Bool(key string, def bool) bool {
	var out bool
	if !m.decode(key, &out) {
		return def
	}
	return out
}

// Strings returns the value as a string slice. A scalar becomes a one-element
// slice.
func (m Metadata) Strings(key string) []string {
	v, ok := m.Get(key)
	if !ok || v == nil {
		return nil
	}
	var out []string
	if err := mapstructure.WeakDecode(v, &out); err != nil {
		return []string{fmt.Sprint(v)}
	}
	return out
}

var timeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// Time returns the value as a time, parsing common string layouts.
func (m Metadata) Time(key string) (time.Time, bool) {
	v, ok := m.Get(key)
	if !ok {
		return time.Time{}, false
	}
	switch t := v.(type) {
	case time.Time:
		return t, true
	case *time.Time:
		if t == nil {
			return time.Time{}, false
		}
		return *t, true
	case string:
		s := strings.TrimSpace(t)
		for _, layout := range timeLayouts {
			if parsed, err := time.Parse(layout, s); err == nil {
				return parsed, true
			}
		}
	}
	return time.Time{}, false
}

// Document returns the value when it is a document.
func (m Metadata) Document(key string) *Document {
	v, _ := m.Get(key)
	d, _ := v.(*Document)
	return d
}

// Documents returns the value when it is a document list.
func (m Metadata) Documents(key string) []*Document {
	v, _ := m.Get(key)
	switch d := v.(type) {
	case []*Document:
		return d
	case *Document:
		return []*Document{d}
	}
	return nil
}

func (m Metadata) decode(key string, out any) bool {
	v, ok := m.Get(key)
	if !ok || v == nil {
		return false
	}
	return mapstructure.WeakDecode(v, out) == nil
}

// clonePlain deep copies maps and slices; documents and computed values are
// returned as-is since they are immutable.
func clonePlain(v any) any {
	switch v.(type) {
	case map[string]any, []any, []string, map[string]string:
		return clone.Clone(v)
	}
	return v
}
