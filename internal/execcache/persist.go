package execcache

import (
	"context"
	"fmt"
	"log/slog"

	"git.home.luguber.info/inful/sitepipe/internal/storage"
)

// Save replaces the cache entries held in store with the current []byte
// entries. Values of other types live only in memory.
func (c *Cache) Save(ctx context.Context, store storage.ObjectStore) (int, error) {
	if !c.enabled || store == nil {
		return 0, nil
	}
	if _, err := storage.Purge(ctx, store, storage.ObjectTypeCacheEntry); err != nil {
		return 0, fmt.Errorf("purge cache objects: %w", err)
	}

	saved := 0
	var saveErr error
	c.modules.Range(func(id string, mc *ModuleCache) bool {
		mc.entries.Range(func(key string, e *entry) bool {
			data, ok := e.value.([]byte)
			if !ok {
				return true
			}
			// Keys are folded into the object data so identical values from
			// different entries are stored separately.
			obj := &storage.Object{
				Type: storage.ObjectTypeCacheEntry,
				Data: encodeEntry(id, key, data),
				Metadata: storage.Metadata{Custom: map[string]string{
					storage.MetaModule: id,
				}},
			}
			if _, err := store.Put(ctx, obj); err != nil {
				saveErr = fmt.Errorf("save cache entry for %s: %w", id, err)
				return false
			}
			saved++
			return true
		})
		return saveErr == nil
	})
	if saveErr != nil {
		return saved, saveErr
	}
	c.logger.Debug("Saved execution cache", slog.Int("entries", saved))
	return saved, nil
}

// Load adds the entries held in store to the cache. Loaded entries are not
// marked hit, so a run that never reads them evicts them.
func (c *Cache) Load(ctx context.Context, store storage.ObjectStore) (int, error) {
	if !c.enabled || store == nil {
		return 0, nil
	}
	hashes, err := store.List(ctx, storage.ObjectTypeCacheEntry)
	if err != nil {
		return 0, fmt.Errorf("list cache objects: %w", err)
	}
	loaded := 0
	for _, h := range hashes {
		obj, err := store.Get(ctx, h)
		if err != nil {
			if storage.IsNotFound(err) {
				continue
			}
			return loaded, fmt.Errorf("load cache object %s: %w", h, err)
		}
		id, key, data, err := decodeEntry(obj.Data)
		if err != nil {
			c.logger.Warn("Skipping corrupt cache object", slog.String("hash", h), slog.String("error", err.Error()))
			continue
		}
		mc := c.ForModule(id)
		mc.entries.Store(key, &entry{value: data})
		loaded++
	}
	c.logger.Debug("Loaded execution cache", slog.Int("entries", loaded))
	return loaded, nil
}
