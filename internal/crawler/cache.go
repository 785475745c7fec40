package crawler

import (
	"sync"
	"time"
)

type cacheEntry struct {
	body      string
	fetchedAt time.Time
}

// ResponseCache keeps fetched page bodies for the cache TTL so concurrent
// workers never refetch a URL within one run. Entries live only in memory;
// a fresh process starts empty. There is no size bound — runs are short.
type ResponseCache struct {
	mu      sync.Mutex
	entries map[string]cacheEntry
	ttl     time.Duration
	now     func() time.Time
}

// NewResponseCache builds an empty cache with the given TTL.
func NewResponseCache(ttl time.Duration) *ResponseCache {
	return &ResponseCache{
		entries: make(map[string]cacheEntry),
		ttl:     ttl,
		now:     time.Now,
	}
}

// Get returns the cached body for url. An entry older than the TTL is never
// returned; it is purged on the spot.
func (c *ResponseCache) Get(url string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[url]
	if !ok {
		return "", false
	}
	if c.now().Sub(entry.fetchedAt) >= c.ttl {
		delete(c.entries, url)
		return "", false
	}
	return entry.body, true
}

// Put stores the body for url, stamping it with the current time.
func (c *ResponseCache) Put(url, body string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[url] = cacheEntry{body: body, fetchedAt: c.now()}
}

// EvictExpired removes every entry older than the TTL and returns how many
// were dropped. Called once per crawl invocation.
func (c *ResponseCache) EvictExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	cutoff := c.now().Add(-c.ttl)
	var dropped int
	for url, entry := range c.entries {
		if entry.fetchedAt.Before(cutoff) {
			delete(c.entries, url)
			dropped++
		}
	}
	return dropped
}

// Len reports the number of live entries, expired ones included until purged.
func (c *ResponseCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
