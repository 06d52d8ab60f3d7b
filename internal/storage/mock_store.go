package storage

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"maps"
	"sync"
	"time"
)

// MockStore is an in-memory ObjectStore for tests.
type MockStore struct {
	mu      sync.RWMutex
	objects map[string]*Object
	calls   MockCalls

	// PutErr, when set, is returned by every Put.
	PutErr error
}

// MockCalls counts method invocations.
type MockCalls struct {
	Put    int
	Get    int
	Exists int
	Delete int
	List   int
}

// NewMockStore creates an empty mock store.
func NewMockStore() *MockStore {
	return &MockStore{objects: make(map[string]*Object)}
}

func (m *MockStore) Put(_ context.Context, obj *Object) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls.Put++
	if m.PutErr != nil {
		return "", m.PutErr
	}

	hash := obj.Hash
	if hash == "" {
		h := sha256.Sum256(obj.Data)
		hash = hex.EncodeToString(h[:])
	}
	now := time.Now()
	if existing, ok := m.objects[hash]; ok {
		existing.Metadata.LastAccessed = now
		maps.Copy(existing.Metadata.Custom, obj.Metadata.Custom)
		existing.Type = obj.Type
		return hash, nil
	}
	custom := make(map[string]string, len(obj.Metadata.Custom))
	maps.Copy(custom, obj.Metadata.Custom)
	m.objects[hash] = &Object{
		Hash:     hash,
		Type:     obj.Type,
		Size:     int64(len(obj.Data)),
		Data:     append([]byte(nil), obj.Data...),
		Metadata: Metadata{CreatedAt: now, LastAccessed: now, Custom: custom},
	}
	return hash, nil
}

func (m *MockStore) Get(_ context.Context, hash string) (*Object, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls.Get++
	obj, ok := m.objects[hash]
	if !ok {
		return nil, ErrNotFound{Hash: hash}
	}
	obj.Metadata.LastAccessed = time.Now()
	out := *obj
	out.Data = append([]byte(nil), obj.Data...)
	out.Metadata.Custom = maps.Clone(obj.Metadata.Custom)
	return &out, nil
}

func (m *MockStore) Exists(_ context.Context, hash string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls.Exists++
	_, ok := m.objects[hash]
	return ok, nil
}

func (m *MockStore) Delete(_ context.Context, hash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls.Delete++
	if _, ok := m.objects[hash]; !ok {
		return ErrNotFound{Hash: hash}
	}
	delete(m.objects, hash)
	return nil
}

func (m *MockStore) List(_ context.Context, objectType ObjectType) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls.List++
	var hashes []string
	for hash, obj := range m.objects {
		if objectType == "" || obj.Type == objectType {
			hashes = append(hashes, hash)
		}
	}
	return hashes, nil
}

func (m *MockStore) Close() error { return nil }

// Calls returns the invocation counters.
func (m *MockStore) Calls() MockCalls {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.calls
}

// Size returns the number of stored objects.
func (m *MockStore) Size() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.objects)
}

func (m *MockStore) String() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return fmt.Sprintf("MockStore{objects: %d, calls: %+v}", len(m.objects), m.calls)
}
