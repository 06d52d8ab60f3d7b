package storage

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMockStoreReturnsCopies(t *testing.T) {
	store := NewMockStore()
	ctx := context.Background()

	hash, err := store.Put(ctx, &Object{Type: ObjectTypeCacheEntry, Data: []byte("abc"), Metadata: Metadata{Custom: map[string]string{"k": "v"}}})
	require.NoError(t, err)

	got, err := store.Get(ctx, hash)
	require.NoError(t, err)
	got.Data[0] = 'z'
	got.Metadata.Custom["k"] = "changed"

	again, err := store.Get(ctx, hash)
	require.NoError(t, err)
	assert.Equal(t, "abc", string(again.Data))
	assert.Equal(t, "v", again.Metadata.Custom["k"])

	calls := store.Calls()
	assert.Equal(t, 1, calls.Put)
	assert.Equal(t, 2, calls.Get)
}

func TestMockStorePutErr(t *testing.T) {
	store := NewMockStore()
	store.PutErr = errors.New("disk full")
	_, err := store.Put(context.Background(), &Object{Data: []byte("x")})
	assert.EqualError(t, err, "disk full")
	assert.Equal(t, 0, store.Size())
}
