package messaging

import (
	"sync"
	"time"
)

// DefaultCacheTTL bounds how stale a cached page may be. Writes never
// invalidate the cache; the TTL alone limits the staleness window, which
// keeps concurrent write/read races trivial.
const DefaultCacheTTL = 3 * time.Second

// PageKey identifies one cached page of one conversation. Reader is set only
// where reads are reader-specific (direct messages); channel pages decrypt
// with the shared channel key and are cached once for everyone.
type PageKey struct {
	Scope  string
	Reader string
	Page   int
	Size   int
}

type cacheEntry struct {
	batch    any
	storedAt time.Time
}

// PageCache is a short-lived result cache in front of the decryption
// pipeline, absorbing repeated reads of the same page. Entries expire lazily
// on lookup; there is no background sweep. Each entry is written atomically
// as one batch, and the last writer for a key wins.
type PageCache struct {
	ttl time.Duration
	now func() time.Time

	mu      sync.RWMutex
	entries map[PageKey]cacheEntry
}

// NewPageCache builds a cache with the given TTL. now may be nil, in which
// case time.Now is used; tests inject a fake clock.
func NewPageCache(ttl time.Duration, now func() time.Time) *PageCache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	if now == nil {
		now = time.Now
	}
	return &PageCache{
		ttl:     ttl,
		now:     now,
		entries: make(map[PageKey]cacheEntry),
	}
}

// Get returns the cached batch for key if it is still fresh. An expired entry
// is dropped on the spot.
func (c *PageCache) Get(key PageKey) (any, bool) {
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		return nil, false
	}

	if c.now().Sub(entry.storedAt) >= c.ttl {
		c.mu.Lock()
		// Re-check: a fresher batch may have landed since the read lock.
		if current, ok := c.entries[key]; ok && current.storedAt == entry.storedAt {
			delete(c.entries, key)
		}
		c.mu.Unlock()
		return nil, false
	}
	return entry.batch, true
}

// Put stores a batch for key, replacing any previous entry.
func (c *PageCache) Put(key PageKey, batch any) {
	c.mu.Lock()
	c.entries[key] = cacheEntry{batch: batch, storedAt: c.now()}
	c.mu.Unlock()
}
