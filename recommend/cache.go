package recommend

import (
	"sync"
	"time"
)

// Cache stores generated recommendations for reuse within a TTL window.
// Implementations must be safe for concurrent use; last-writer-wins on
// racing Sets is acceptable because entries are idempotent recomputations
// of the same key.
type Cache interface {
	Get(key string) (string, bool)
	Set(key, value string)
	Evict(key string)
}

type memoryEntry struct {
	text      string
	createdAt time.Time
}

// MemoryCache is a TTL map cache owned by the pipeline instance. Expired
// entries are ignored on lookup and dropped opportunistically rather than
// purged by a background goroutine.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	ttl     time.Duration
	now     func() time.Time
}

// NewMemoryCache creates a cache with the given TTL.
func NewMemoryCache(ttl time.Duration) *MemoryCache {
	return &MemoryCache{
		entries: make(map[string]memoryEntry),
		ttl:     ttl,
		now:     time.Now,
	}
}

func (c *MemoryCache) Get(key string) (string, bool) {
	c.mu.RLock()
	entry, found := c.entries[key]
	c.mu.RUnlock()

	if !found {
		return "", false
	}
	if c.now().Sub(entry.createdAt) > c.ttl {
		c.Evict(key)
		return "", false
	}
	return entry.text, true
}

func (c *MemoryCache) Set(key, value string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = memoryEntry{text: value, createdAt: c.now()}
}

func (c *MemoryCache) Evict(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

// Len reports the number of entries including expired ones.
func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
