// Package execcache memoizes per-module computation results across engine
// runs. Entries are keyed by document fingerprint plus an optional string key
// and survive a run only when they were read or written during it.
package execcache

import (
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/puzpuzpuz/xsync/v3"

	"git.home.luguber.info/inful/sitepipe/internal/document"
	"git.home.luguber.info/inful/sitepipe/internal/logfields"
)

// Stats summarizes cache activity since the last ResetHits.
type Stats struct {
	Hits      int64 `json:"hits"`
	Misses    int64 `json:"misses"`
	Evictions int64 `json:"evictions"`
	Entries   int64 `json:"entries"`
}

type entry struct {
	value any
	hit   atomic.Bool
}

// Cache holds one ModuleCache per module identity.
type Cache struct {
	enabled bool
	logger  *slog.Logger
	modules *xsync.MapOf[string, *ModuleCache]

	hits      atomic.Int64
	misses    atomic.Int64
	evictions atomic.Int64
}

// New creates a cache. A disabled cache misses every lookup and drops writes.
func New(enabled bool, logger *slog.Logger) *Cache {
	if logger == nil {
		logger = slog.Default()
	}
	return &Cache{
		enabled: enabled,
		logger:  logger,
		modules: xsync.NewMapOf[string, *ModuleCache](),
	}
}

// Enabled reports whether the cache stores anything.
func (c *Cache) Enabled() bool { return c.enabled }

// ForModule returns the cache scoped to the module with the given path ID.
func (c *Cache) ForModule(id string) *ModuleCache {
	mc, _ := c.modules.LoadOrCompute(id, func() *ModuleCache {
		return &ModuleCache{id: id, parent: c, entries: xsync.NewMapOf[string, *entry]()}
	})
	return mc
}

// ResetHits clears hit marks and counters. Called at the start of each run.
func (c *Cache) ResetHits() {
	c.hits.Store(0)
	c.misses.Store(0)
	c.evictions.Store(0)
	c.modules.Range(func(_ string, mc *ModuleCache) bool {
		mc.entries.Range(func(_ string, e *entry) bool {
			e.hit.Store(false)
			return true
		})
		return true
	})
}

// ClearUnhit evicts entries not read or written since ResetHits and returns
// how many were removed. Modules left without entries are dropped.
func (c *Cache) ClearUnhit() int {
	removed := 0
	c.modules.Range(func(id string, mc *ModuleCache) bool {
		mc.entries.Range(func(k string, e *entry) bool {
			if !e.hit.Load() {
				mc.entries.Delete(k)
				removed++
			}
			return true
		})
		if mc.entries.Size() == 0 {
			c.modules.Delete(id)
		}
		return true
	})
	c.evictions.Add(int64(removed))
	if removed > 0 {
		c.logger.Debug("Evicted unhit cache entries", slog.Int("count", removed))
	}
	return removed
}

// Clear drops every entry.
func (c *Cache) Clear() {
	c.modules.Clear()
}

// Stats returns counters since the last ResetHits.
func (c *Cache) Stats() Stats {
	var n int64
	c.modules.Range(func(_ string, mc *ModuleCache) bool {
		n += int64(mc.entries.Size())
		return true
	})
	return Stats{
		Hits:      c.hits.Load(),
		Misses:    c.misses.Load(),
		Evictions: c.evictions.Load(),
		Entries:   n,
	}
}

// ModuleCache is the cache view of a single module.
type ModuleCache struct {
	id      string
	parent  *Cache
	entries *xsync.MapOf[string, *entry]
}

// ID returns the module path this cache belongs to.
func (m *ModuleCache) ID() string { return m.id }

// Get looks up the value cached for doc and key.
func (m *ModuleCache) Get(doc *document.Document, key string) (any, bool) {
	k, err := docKey(doc, key)
	if err != nil {
		m.parent.logger.Debug("Cache lookup skipped", logfields.ModulePath(m.id), logfields.Error(err))
		m.parent.misses.Add(1)
		return nil, false
	}
	return m.GetKey(k)
}

// Set stores value for doc and key.
func (m *ModuleCache) Set(doc *document.Document, key string, value any) {
	k, err := docKey(doc, key)
	if err != nil {
		return
	}
	m.SetKey(k, value)
}

// GetKey looks up a value by bare key.
func (m *ModuleCache) GetKey(key string) (any, bool) {
	if !m.parent.enabled {
		m.parent.misses.Add(1)
		return nil, false
	}
	e, ok := m.entries.Load(key)
	if !ok {
		m.parent.misses.Add(1)
		return nil, false
	}
	e.hit.Store(true)
	m.parent.hits.Add(1)
	return e.value, true
}

// SetKey stores a value by bare key.
func (m *ModuleCache) SetKey(key string, value any) {
	if !m.parent.enabled {
		return
	}
	e := &entry{value: value}
	e.hit.Store(true)
	m.entries.Store(key, e)
}

// Len returns the number of entries held for the module.
func (m *ModuleCache) Len() int { return m.entries.Size() }

func docKey(doc *document.Document, key string) (string, error) {
	if doc == nil {
		return key, nil
	}
	fp, err := doc.Fingerprint()
	if err != nil {
		return "", fmt.Errorf("fingerprint: %w", err)
	}
	if key == "" {
		return fp, nil
	}
	return fp + "\x00" + key, nil
}
