// Package storage provides a content-addressable object store used to persist
// execution cache entries and run reports between sitepipe runs.
package storage

import (
	"context"
	"errors"
	"time"
)

// ObjectStore stores immutable objects keyed by the SHA-256 of their data.
type ObjectStore interface {
	// Put stores an object and returns its content hash. Putting data that is
	// already present merges the custom metadata and returns the same hash.
	Put(ctx context.Context, obj *Object) (hash string, err error)

	// Get retrieves an object by hash. Returns ErrNotFound when missing.
	Get(ctx context.Context, hash string) (*Object, error)

	Exists(ctx context.Context, hash string) (bool, error)

	// Delete removes an object. Returns ErrNotFound when missing.
	Delete(ctx context.Context, hash string) error

	// List returns hashes of objects of the given type, or all objects when
	// objectType is empty.
	List(ctx context.Context, objectType ObjectType) ([]string, error)

	Close() error
}

// Object is a stored blob with its metadata.
type Object struct {
	Hash     string
	Type     ObjectType
	Size     int64
	Data     []byte
	Metadata Metadata
}

// Metadata is stored next to each object.
type Metadata struct {
	CreatedAt    time.Time         `json:"created_at"`
	LastAccessed time.Time         `json:"last_accessed"`
	Custom       map[string]string `json:"custom,omitempty"`
}

// ObjectType identifies the kind of stored object.
type ObjectType string

const (
	// ObjectTypeCacheEntry is a serialized execution cache value.
	ObjectTypeCacheEntry ObjectType = "cache_entry"
)

// Custom metadata keys.
const (
	MetaObjectType = "object_type"
	MetaModule     = "module"
)

// ErrNotFound is returned when an object doesn't exist.
type ErrNotFound struct {
	Hash string
}

func (e ErrNotFound) Error() string {
	return "object not found: " + e.Hash
}

// IsNotFound reports whether err is or wraps ErrNotFound.
func IsNotFound(err error) bool {
	var nf ErrNotFound
	return errors.As(err, &nf)
}

// Purge deletes every object of the given type and returns how many were
// removed.
func Purge(ctx context.Context, store ObjectStore, objectType ObjectType) (int, error) {
	hashes, err := store.List(ctx, objectType)
	if err != nil {
		return 0, err
	}
	removed := 0
	for _, h := range hashes {
		if err := store.Delete(ctx, h); err != nil && !IsNotFound(err) {
			return removed, err
		}
		removed++
	}
	return removed, nil
}
