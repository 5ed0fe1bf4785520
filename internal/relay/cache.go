// ABOUTME: Thread-safe TTL cache for deduplicating inbound webhook events.
// ABOUTME: Messenger redelivers events on slow acknowledgement; seen mids are dropped.

package relay

import (
	"sync"
	"time"
)

// Cache tracks recently seen message IDs so redelivered webhook events are
// processed at most once. Entries expire after the TTL, and the cache is
// size-bounded: when full, the entry closest to expiry is evicted.
type Cache struct {
	mu      sync.Mutex
	seen    map[string]time.Time
	ttl     time.Duration
	maxSize int
	done    chan struct{}
	closed  bool
}

// NewCache creates a dedupe cache with the given TTL and maximum size.
// A background goroutine sweeps expired entries periodically.
func NewCache(ttl time.Duration, maxSize int) *Cache {
	c := &Cache{
		seen:    make(map[string]time.Time),
		ttl:     ttl,
		maxSize: maxSize,
		done:    make(chan struct{}),
	}
	go c.sweep()
	return c
}

// CheckAndMark atomically reports whether the key was already seen and
// marks it as seen if not. Returns true for a duplicate.
func (c *Cache) CheckAndMark(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	if ts, ok := c.seen[key]; ok && now.Sub(ts) < c.ttl {
		return true
	}

	if len(c.seen) >= c.maxSize {
		c.evictOldestLocked()
	}
	c.seen[key] = now
	return false
}

// evictOldestLocked removes the entry with the earliest timestamp.
// Must be called with mu held.
func (c *Cache) evictOldestLocked() {
	var oldestKey string
	var oldest time.Time
	for key, ts := range c.seen {
		if oldestKey == "" || ts.Before(oldest) {
			oldestKey = key
			oldest = ts
		}
	}
	if oldestKey != "" {
		delete(c.seen, oldestKey)
	}
}

// sweep periodically removes expired entries until the cache is closed.
func (c *Cache) sweep() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.removeExpired()
		case <-c.done:
			return
		}
	}
}

// removeExpired drops all entries past the TTL.
func (c *Cache) removeExpired() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	for key, ts := range c.seen {
		if now.Sub(ts) >= c.ttl {
			delete(c.seen, key)
		}
	}
}

// Close stops the sweep goroutine. Safe to call multiple times.
func (c *Cache) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		close(c.done)
		c.closed = true
	}
}
