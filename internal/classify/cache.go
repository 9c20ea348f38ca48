package classify

import (
	"strings"
	"sync"
)

// Cache memoizes classifier outcomes for the lifetime of one run, keyed by
// normalized input text. Negative ("unknown") outcomes are cached too, so
// repeated fruitless inputs do not trigger repeated external calls. Entries
// are immutable once written: the client consults the cache before calling
// out, so the first writer for a key is also the last.
type Cache[V any] struct {
	mu      sync.Mutex
	entries map[string]V
}

// NewCache returns an empty run-scoped cache.
func NewCache[V any]() *Cache[V] {
	return &Cache[V]{entries: make(map[string]V)}
}

// Get returns the cached outcome for key and whether it was present.
func (c *Cache[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.entries[key]
	return v, ok
}

// Put stores the outcome for key. The first write wins; later writes for
// the same key are ignored.
func (c *Cache[V]) Put(key string, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.entries[key]; exists {
		return
	}
	c.entries[key] = value
}

// Len returns the number of cached outcomes.
func (c *Cache[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// CacheKey normalizes input text into a cache key: trimmed, lowercased,
// with interior whitespace collapsed.
func CacheKey(parts ...string) string {
	fields := strings.Fields(strings.ToLower(strings.Join(parts, "\x1f")))
	return strings.Join(fields, " ")
}
