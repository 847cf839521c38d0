package catalog

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// DefaultCacheTTL is how long one aggregation outcome stays reusable.
const DefaultCacheTTL = 5 * time.Minute

type cacheEntry struct {
	records []Record
	expires time.Time
}

// ResultCache memoizes aggregation outcomes for a short window so that
// rapid repeated or debounced queries do not refire the fan-out.
// Entries are derived and idempotent, so writes are last-writer-wins.
// It is an optimization only: callers behave identically with a nil
// cache.
type ResultCache struct {
	ttl     time.Duration
	mu      sync.Mutex
	entries map[string]cacheEntry
	group   singleflight.Group
}

func NewResultCache(ttl time.Duration) *ResultCache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &ResultCache{ttl: ttl, entries: make(map[string]cacheEntry)}
}

// CacheKey builds a deterministic key from the normalized query, the
// pdf-only flag and a sorted signature of the active source set, so a
// source configuration change implicitly invalidates older entries.
func CacheKey(query string, onlyPDF bool, sources []Source) string {
	ids := make([]string, len(sources))
	for i, s := range sources {
		ids[i] = string(s)
	}
	sort.Strings(ids)
	flag := "0"
	if onlyPDF {
		flag = "1"
	}
	return Normalize(query) + "|" + flag + "|" + strings.Join(ids, ",")
}

// GetOrFill returns the cached value for key, or runs fill and stores
// the outcome. Concurrent callers with the same key share one fill. A
// fill cut short by context cancelation is returned but not stored, so
// an interrupted fan-out never poisons the window for later callers.
func (c *ResultCache) GetOrFill(ctx context.Context, key string, fill func() []Record) []Record {
	if c == nil {
		return fill()
	}
	if records, ok := c.get(key); ok {
		return records
	}
	v, _, _ := c.group.Do(key, func() (any, error) {
		if records, ok := c.get(key); ok {
			return records, nil
		}
		records := fill()
		if ctx.Err() == nil {
			c.put(key, records)
		}
		return records, nil
	})
	return v.([]Record)
}

func (c *ResultCache) get(key string) ([]Record, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if time.Now().After(e.expires) {
		delete(c.entries, key)
		return nil, false
	}
	return e.records, true
}

func (c *ResultCache) put(key string, records []Record) {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := time.Now()
	// opportunistic prune keeps the map bounded without a sweeper
	for k, e := range c.entries {
		if now.After(e.expires) {
			delete(c.entries, k)
		}
	}
	c.entries[key] = cacheEntry{records: records, expires: now.Add(c.ttl)}
}
