// Package dedup tracks recently seen update identities so flooded messages
// are processed and forwarded at most once per node. Entries expire after a
// configurable window; the cache is also size-bounded so a hostile or buggy
// peer cannot grow it without limit.
package dedup

import (
	"fmt"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// DefaultTTL is how long a seen (origin, counter) pair suppresses
// reprocessing.
const DefaultTTL = 2 * time.Minute

// DefaultSize bounds the number of tracked pairs.
const DefaultSize = 4096

// Cache remembers (origin, counter) pairs for a bounded window.
type Cache struct {
	mu   sync.Mutex
	seen *expirable.LRU[string, struct{}]
}

// New creates a cache. Non-positive size or ttl fall back to the defaults.
func New(size int, ttl time.Duration) *Cache {
	if size <= 0 {
		size = DefaultSize
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{
		seen: expirable.NewLRU[string, struct{}](size, nil, ttl),
	}
}

// Seen marks the pair as seen and reports whether it was already present
// within the window. The check and the mark are one atomic step, so two
// concurrent deliveries of the same update race to exactly one false.
func (c *Cache) Seen(origin string, counter uint64) bool {
	key := fmt.Sprintf("%s#%d", origin, counter)

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.seen.Get(key); ok {
		return true
	}
	c.seen.Add(key, struct{}{})
	return false
}

// Len returns the number of tracked pairs, for introspection in tests.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.seen.Len()
}
