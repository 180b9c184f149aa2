// ABOUTME: Thread-safe TTL cache for deduplicating webhook update IDs.
// ABOUTME: Telegram redelivers updates until acknowledged; seen IDs are dropped.

package dedupe

import (
	"container/list"
	"sync"
	"time"
)

// cacheEntry stores the timestamp and list element for a cached update ID.
type cacheEntry struct {
	timestamp time.Time
	element   *list.Element
}

// Cache provides a thread-safe, TTL-based, size-limited cache of update IDs
// already handled. Telegram redelivers an update when the webhook answers
// non-2xx or times out; replaying it would double-drive a user's dialogue.
// Uses a doubly-linked list to maintain insertion order for O(1) eviction.
type Cache struct {
	mu      sync.RWMutex
	seen    map[int64]*cacheEntry
	order   *list.List // update IDs in insertion order (oldest at front)
	ttl     time.Duration
	maxSize int
	done    chan struct{}
	closed  bool
}

// New creates a dedupe cache with the specified TTL and maximum size.
// A background goroutine periodically cleans up expired entries.
func New(ttl time.Duration, maxSize int) *Cache {
	c := &Cache{
		seen:    make(map[int64]*cacheEntry),
		order:   list.New(),
		ttl:     ttl,
		maxSize: maxSize,
		done:    make(chan struct{}),
	}
	go c.cleanup()
	return c
}

// Seen returns true if the update ID is cached and not expired.
func (c *Cache) Seen(updateID int64) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.seen[updateID]
	if !ok {
		return false
	}
	return time.Since(entry.timestamp) < c.ttl
}

// SeenOrMark atomically checks whether an update ID was already handled and
// marks it if not. Returns true for a duplicate, false when the ID is new
// and now marked. The single lock prevents two concurrent deliveries of the
// same update from both claiming it.
func (c *Cache) SeenOrMark(updateID int64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.seen[updateID]
	if ok && time.Since(entry.timestamp) < c.ttl {
		return true // Already handled, drop
	}

	// Not seen (or expired), mark it
	c.markLocked(updateID)
	return false
}

// Mark records that an update ID has been handled. If the cache is at
// capacity, the oldest entry is evicted to make room.
func (c *Cache) Mark(updateID int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.markLocked(updateID)
}

// markLocked is the internal mark implementation. Must be called with mu held.
func (c *Cache) markLocked(updateID int64) {
	now := time.Now()

	// If the ID already exists, update timestamp and move to back
	if entry, exists := c.seen[updateID]; exists {
		entry.timestamp = now
		c.order.MoveToBack(entry.element)
		return
	}

	// Evict oldest if at capacity
	if len(c.seen) >= c.maxSize {
		c.evictOldest()
	}

	// Add new entry
	elem := c.order.PushBack(updateID)
	c.seen[updateID] = &cacheEntry{
		timestamp: now,
		element:   elem,
	}
}

// evictOldest removes the oldest entry from the cache.
// Must be called with mu held. O(1) operation using linked list.
func (c *Cache) evictOldest() {
	front := c.order.Front()
	if front == nil {
		return
	}

	updateID, _ := front.Value.(int64)
	c.order.Remove(front)
	delete(c.seen, updateID)
}

// cleanup runs in a background goroutine, periodically removing expired entries.
func (c *Cache) cleanup() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.runCleanup()
		case <-c.done:
			return
		}
	}
}

// runCleanup removes all expired entries from the cache.
func (c *Cache) runCleanup() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	for updateID, entry := range c.seen {
		if now.Sub(entry.timestamp) > c.ttl {
			c.order.Remove(entry.element)
			delete(c.seen, updateID)
		}
	}
}

// Close stops the background cleanup goroutine. It is safe to call multiple times.
func (c *Cache) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.closed {
		close(c.done)
		c.closed = true
	}
}
