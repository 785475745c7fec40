package crawler

import (
	"sync"
	"testing"
	"time"
)

func TestResponseCachePutGet(t *testing.T) {
	t.Parallel()

	cache := NewResponseCache(2 * time.Hour)
	cache.Put("https://example.org/a", "<html>a</html>")

	body, ok := cache.Get("https://example.org/a")
	if !ok || body != "<html>a</html>" {
		t.Fatalf("Get = (%q, %v), want cached body", body, ok)
	}

	if _, ok := cache.Get("https://example.org/missing"); ok {
		t.Fatal("Get on unknown URL must miss")
	}
}

func TestResponseCacheExpiry(t *testing.T) {
	t.Parallel()

	current := time.Date(2025, time.March, 1, 12, 0, 0, 0, time.UTC)
	cache := NewResponseCache(2 * time.Hour)
	cache.now = func() time.Time { return current }

	cache.Put("https://example.org/a", "a")

	current = current.Add(119 * time.Minute)
	if _, ok := cache.Get("https://example.org/a"); !ok {
		t.Fatal("entry within TTL must be returned")
	}

	current = current.Add(2 * time.Minute)
	if _, ok := cache.Get("https://example.org/a"); ok {
		t.Fatal("entry past TTL must never be returned")
	}
	if cache.Len() != 0 {
		t.Fatal("expired entry must be purged lazily on Get")
	}
}

func TestResponseCacheEvictExpired(t *testing.T) {
	t.Parallel()

	current := time.Date(2025, time.March, 1, 12, 0, 0, 0, time.UTC)
	cache := NewResponseCache(2 * time.Hour)
	cache.now = func() time.Time { return current }

	cache.Put("https://example.org/old", "old")
	current = current.Add(3 * time.Hour)
	cache.Put("https://example.org/fresh", "fresh")

	if dropped := cache.EvictExpired(); dropped != 1 {
		t.Fatalf("EvictExpired dropped %d, want 1", dropped)
	}
	if _, ok := cache.Get("https://example.org/fresh"); !ok {
		t.Fatal("fresh entry must survive eviction")
	}
	if cache.Len() != 1 {
		t.Fatalf("Len = %d, want 1", cache.Len())
	}
}

func TestResponseCacheConcurrentAccess(t *testing.T) {
	t.Parallel()

	cache := NewResponseCache(2 * time.Hour)
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			cache.Put("https://example.org/shared", "body")
			cache.Get("https://example.org/shared")
			cache.EvictExpired()
		}()
	}
	wg.Wait()

	if body, ok := cache.Get("https://example.org/shared"); !ok || body != "body" {
		t.Fatal("shared entry lost under concurrent access")
	}
}
