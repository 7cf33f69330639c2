package memocache

import (
	"container/list"
	"sync"
	"time"
)

// Cache is a thread-safe LRU cache with optional per-entry TTL. When size
// exceeds capacity, the least-recently-touched entry is evicted; both Get and
// Set count as touches. Expired entries read as absent.
type Cache[V any] struct {
	mu         sync.Mutex
	capacity   int
	defaultTTL time.Duration

	ll      *list.List
	entries map[string]*list.Element

	now func() time.Time
}

type entry[V any] struct {
	key       string
	value     V
	expiresAt time.Time
}

// New creates a cache holding at most capacity entries. A defaultTTL of zero
// means entries do not expire unless SetWithTTL is used.
func New[V any](capacity int, defaultTTL time.Duration) *Cache[V] {
	if capacity < 1 {
		capacity = 1
	}
	return &Cache[V]{
		capacity:   capacity,
		defaultTTL: defaultTTL,
		ll:         list.New(),
		entries:    make(map[string]*list.Element, capacity),
		now:        time.Now,
	}
}

// Get returns the cached value and marks the key most-recently-used.
func (c *Cache[V]) Get(key string) (V, bool) {
	var zero V
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.entries[key]
	if !ok {
		return zero, false
	}
	ent := elem.Value.(entry[V])
	if !ent.expiresAt.IsZero() && !c.now().Before(ent.expiresAt) {
		c.ll.Remove(elem)
		delete(c.entries, key)
		return zero, false
	}
	c.ll.MoveToFront(elem)
	return ent.value, true
}

// Set inserts or overwrites a value using the default TTL.
func (c *Cache[V]) Set(key string, value V) {
	c.SetWithTTL(key, value, c.defaultTTL)
}

// SetWithTTL inserts or overwrites a value with an explicit TTL. A zero ttl
// stores the entry without expiry.
func (c *Cache[V]) SetWithTTL(key string, value V, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var expiresAt time.Time
	if ttl > 0 {
		expiresAt = c.now().Add(ttl)
	}
	ent := entry[V]{key: key, value: value, expiresAt: expiresAt}

	if elem, ok := c.entries[key]; ok {
		elem.Value = ent
		c.ll.MoveToFront(elem)
		return
	}

	c.entries[key] = c.ll.PushFront(ent)
	if c.ll.Len() > c.capacity {
		oldest := c.ll.Back()
		if oldest != nil {
			c.ll.Remove(oldest)
			delete(c.entries, oldest.Value.(entry[V]).key)
		}
	}
}

// Len reports the number of stored entries, including any not yet expired.
func (c *Cache[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ll.Len()
}
