package storage

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// FSStore is a filesystem ObjectStore with the layout
//
//	<base>/
//	  objects/
//	    ab/
//	      cd1234...            object data
//	      cd1234....meta.json  object metadata
type FSStore struct {
	basePath string
	mu       sync.RWMutex
}

// NewFSStore creates the store directory structure under basePath.
func NewFSStore(basePath string) (*FSStore, error) {
	dir := filepath.Join(basePath, "objects")
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create directory %s: %w", dir, err)
	}
	return &FSStore{basePath: basePath}, nil
}

// Put stores an object and returns its content hash.
func (fs *FSStore) Put(ctx context.Context, obj *Object) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	fs.mu.Lock()
	defer fs.mu.Unlock()

	hash := obj.Hash
	if hash == "" {
		h := sha256.Sum256(obj.Data)
		hash = hex.EncodeToString(h[:])
	}

	now := time.Now()
	objectPath := fs.objectPath(hash)
	if _, err := os.Stat(objectPath); err == nil {
		meta, err := fs.readMetadata(hash)
		if err != nil {
			meta = Metadata{CreatedAt: now, Custom: map[string]string{}}
		}
		meta.LastAccessed = now
		for k, v := range obj.Metadata.Custom {
			meta.Custom[k] = v
		}
		meta.Custom[MetaObjectType] = string(obj.Type)
		if err := fs.writeMetadata(hash, meta); err != nil {
			return hash, fmt.Errorf("update metadata: %w", err)
		}
		return hash, nil
	}

	if err := os.MkdirAll(filepath.Dir(objectPath), 0o750); err != nil {
		return "", fmt.Errorf("create object directory: %w", err)
	}
	if err := os.WriteFile(objectPath, obj.Data, 0o600); err != nil {
		return "", fmt.Errorf("write object: %w", err)
	}

	meta := Metadata{CreatedAt: now, LastAccessed: now, Custom: make(map[string]string, len(obj.Metadata.Custom)+1)}
	for k, v := range obj.Metadata.Custom {
		meta.Custom[k] = v
	}
	meta.Custom[MetaObjectType] = string(obj.Type)
	if err := fs.writeMetadata(hash, meta); err != nil {
		return hash, fmt.Errorf("write metadata: %w", err)
	}
	return hash, nil
}

// Get retrieves an object by its content hash.
func (fs *FSStore) Get(ctx context.Context, hash string) (*Object, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	// #nosec G304 - path is built from a hex hash under basePath
	data, err := os.ReadFile(fs.objectPath(hash))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound{Hash: hash}
		}
		return nil, fmt.Errorf("read object: %w", err)
	}
	meta, err := fs.readMetadata(hash)
	if err != nil {
		meta = Metadata{Custom: map[string]string{}}
	}
	return &Object{
		Hash:     hash,
		Type:     ObjectType(meta.Custom[MetaObjectType]),
		Size:     int64(len(data)),
		Data:     data,
		Metadata: meta,
	}, nil
}

// Exists checks if an object with the given hash exists.
func (fs *FSStore) Exists(_ context.Context, hash string) (bool, error) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()
	_, err := os.Stat(fs.objectPath(hash))
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, err
}

// Delete removes an object and its metadata.
func (fs *FSStore) Delete(_ context.Context, hash string) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	if err := os.Remove(fs.objectPath(hash)); err != nil {
		if os.IsNotExist(err) {
			return ErrNotFound{Hash: hash}
		}
		return fmt.Errorf("delete object: %w", err)
	}
	_ = os.Remove(fs.metadataPath(hash))
	return nil
}

// List returns hashes of objects matching objectType.
func (fs *FSStore) List(ctx context.Context, objectType ObjectType) ([]string, error) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	var hashes []string
	objectsDir := filepath.Join(fs.basePath, "objects")
	err := filepath.Walk(objectsDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if info.IsDir() || strings.HasSuffix(path, ".meta.json") {
			return nil
		}
		rel, err := filepath.Rel(objectsDir, path)
		if err != nil {
			return nil
		}
		hash := strings.ReplaceAll(rel, string(filepath.Separator), "")
		if objectType != "" {
			meta, err := fs.readMetadata(hash)
			if err != nil || meta.Custom[MetaObjectType] != string(objectType) {
				return nil
			}
		}
		hashes = append(hashes, hash)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list objects: %w", err)
	}
	return hashes, nil
}

// Close is a no-op for the filesystem store.
func (fs *FSStore) Close() error { return nil }

// Path returns the store root.
func (fs *FSStore) Path() string { return fs.basePath }

func (fs *FSStore) objectPath(hash string) string {
	if len(hash) < 3 {
		return filepath.Join(fs.basePath, "objects", hash)
	}
	return filepath.Join(fs.basePath, "objects", hash[:2], hash[2:])
}

func (fs *FSStore) metadataPath(hash string) string {
	return fs.objectPath(hash) + ".meta.json"
}

func (fs *FSStore) readMetadata(hash string) (Metadata, error) {
	// #nosec G304 - path is built from a hex hash under basePath
	data, err := os.ReadFile(fs.metadataPath(hash))
	if err != nil {
		return Metadata{}, err
	}
	var meta Metadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return Metadata{}, fmt.Errorf("decode metadata: %w", err)
	}
	if meta.Custom == nil {
		meta.Custom = map[string]string{}
	}
	return meta, nil
}

func (fs *FSStore) writeMetadata(hash string, meta Metadata) error {
	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(fs.metadataPath(hash), data, 0o600)
}
