// Package cache provides a small lock-guarded TTL cache used to avoid
// duplicate upstream calls within and across closely spaced aggregation
// runs in the same process. Entries expire lazily on access.
package cache

import (
	"sync"
	"time"
)

type entry[T any] struct {
	value     T
	expiresAt time.Time
}

// Cache is a TTL cache keyed by string. Safe for concurrent use.
type Cache[T any] struct {
	data  map[string]entry[T]
	ttl   time.Duration
	mutex sync.Mutex

	// now is replaceable in tests
	now func() time.Time
}

// New creates a cache whose entries live for ttl.
func New[T any](ttl time.Duration) *Cache[T] {
	return &Cache[T]{
		data: make(map[string]entry[T]),
		ttl:  ttl,
		now:  time.Now,
	}
}

// Get returns the cached value for key. An expired entry is evicted and
// reported as a miss.
func (c *Cache[T]) Get(key string) (T, bool) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	e, exists := c.data[key]
	if !exists {
		var zero T
		return zero, false
	}

	if c.now().After(e.expiresAt) {
		delete(c.data, key)
		var zero T
		return zero, false
	}

	return e.value, true
}

// Set stores value under key with the current timestamp.
func (c *Cache[T]) Set(key string, value T) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.data[key] = entry[T]{
		value:     value,
		expiresAt: c.now().Add(c.ttl),
	}
}

// Clear drops all entries.
func (c *Cache[T]) Clear() {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.data = make(map[string]entry[T])
}

// Len reports the number of entries, including any not yet lazily expired.
func (c *Cache[T]) Len() int {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	return len(c.data)
}
