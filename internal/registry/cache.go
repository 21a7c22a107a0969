package registry

import (
	"strings"
	"sync"
	"time"
)

// SearchCache holds recent successful search results so the aggregator can
// serve slightly stale data during a catalog outage. It is process-local and
// best-effort: a resilience aid, not a consistency guarantee.
type SearchCache struct {
	mu      sync.Mutex
	ttl     time.Duration
	now     func() time.Time
	entries map[string]cacheEntry
}

type cacheEntry struct {
	at      time.Time
	records []Record
}

// NewSearchCache creates a cache with the given TTL. The clock defaults to
// time.Now and is injectable for tests.
func NewSearchCache(ttl time.Duration) *SearchCache {
	return &SearchCache{
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]cacheEntry),
	}
}

// WithClock replaces the cache's clock and returns the cache.
func (c *SearchCache) WithClock(now func() time.Time) *SearchCache {
	c.now = now
	return c
}

// normalizeQuery collapses whitespace and case so "PG  Server" and
// "pg server" share a cache slot.
func normalizeQuery(query string) string {
	return strings.ToLower(strings.Join(strings.Fields(query), " "))
}

// Put stores a result set under the query. Empty result sets are never
// cached.
func (c *SearchCache) Put(query string, records []Record) {
	if len(records) == 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[normalizeQuery(query)] = cacheEntry{at: c.now(), records: records}
}

// Lookup returns the cached records for the query and their age. Expired
// entries are pruned on read and reported as a miss.
func (c *SearchCache) Lookup(query string) ([]Record, time.Duration, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := normalizeQuery(query)
	entry, ok := c.entries[key]
	if !ok {
		return nil, 0, false
	}

	age := c.now().Sub(entry.at)
	if age > c.ttl {
		delete(c.entries, key)
		return nil, 0, false
	}

	return entry.records, age, true
}
