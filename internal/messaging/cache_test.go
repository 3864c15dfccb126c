package messaging

import (
	"testing"
	"time"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time          { return c.now }
func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func TestPageCacheFreshness(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1700000000, 0)}
	cache := NewPageCache(3*time.Second, clock.Now)
	key := PageKey{Scope: "channel:abc", Page: 0, Size: 20}

	if _, ok := cache.Get(key); ok {
		t.Fatal("Get() hit on empty cache")
	}

	cache.Put(key, "batch-1")

	clock.Advance(2 * time.Second)
	got, ok := cache.Get(key)
	if !ok || got != "batch-1" {
		t.Fatalf("Get() within TTL = %v, %v; want batch-1, true", got, ok)
	}

	clock.Advance(1 * time.Second)
	if _, ok := cache.Get(key); ok {
		t.Fatal("Get() hit at TTL boundary; entry should have expired")
	}

	// Expired entry is dropped lazily, and a new Put starts a fresh window.
	cache.Put(key, "batch-2")
	if got, ok := cache.Get(key); !ok || got != "batch-2" {
		t.Fatalf("Get() after re-put = %v, %v; want batch-2, true", got, ok)
	}
}

func TestPageCacheLastWriterWins(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1700000000, 0)}
	cache := NewPageCache(3*time.Second, clock.Now)
	key := PageKey{Scope: "channel:abc", Page: 1, Size: 20}

	cache.Put(key, "stale")
	cache.Put(key, "fresh")

	if got, _ := cache.Get(key); got != "fresh" {
		t.Errorf("Get() = %v, want fresh", got)
	}
}

func TestPageCacheKeysAreDistinct(t *testing.T) {
	cache := NewPageCache(DefaultCacheTTL, nil)

	base := PageKey{Scope: "direct:a:b", Reader: "a", Page: 0, Size: 20}
	cache.Put(base, "mine")

	variants := []PageKey{
		{Scope: "direct:a:b", Reader: "b", Page: 0, Size: 20},
		{Scope: "direct:a:b", Reader: "a", Page: 1, Size: 20},
		{Scope: "direct:a:b", Reader: "a", Page: 0, Size: 10},
		{Scope: "channel:c", Reader: "a", Page: 0, Size: 20},
	}
	for _, k := range variants {
		if _, ok := cache.Get(k); ok {
			t.Errorf("Get(%+v) hit; keys should be distinct", k)
		}
	}
}
