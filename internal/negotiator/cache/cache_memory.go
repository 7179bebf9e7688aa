package cache

import (
	"context"
	"metadata-negotiator/internal/domain/data"
	"sync"
)

// MemoryCache keeps entries in process. Entries are copied in and out, so callers never share them.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]*data.CacheEntry
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{
		entries: make(map[string]*data.CacheEntry),
	}
}

func (c *MemoryCache) Get(_ context.Context, key string) (*data.CacheEntry, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.entries[key]
	if !ok {
		return nil, ErrCacheMiss
	}

	return entry.Clone(), nil
}

// Set replaces whatever is stored under key; the last writer wins.
func (c *MemoryCache) Set(_ context.Context, key string, entry *data.CacheEntry) error {
	clone := entry.Clone()

	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = clone
	return nil
}

func (c *MemoryCache) Reset(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]*data.CacheEntry)
	return nil
}

func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.entries)
}
