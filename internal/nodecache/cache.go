// Package nodecache provides the per-node singleton cache used to attach a
// rig to a scene node exactly once. The host equivalent stores instances in
// per-node cached user data; here the cache is explicit and keyed by the
// stable node path.
package nodecache

import "sync"

// Cache maps stable node paths to lazily constructed values. Construction
// happens at most once per key.
type Cache[T any] struct {
	mu      sync.Mutex
	entries map[string]T
}

// New returns an empty cache.
func New[T any]() *Cache[T] {
	return &Cache[T]{entries: make(map[string]T)}
}

// GetOrCreate returns the cached value for key, building it on first access.
// A build error leaves the cache unchanged so the next access retries.
func (c *Cache[T]) GetOrCreate(key string, build func() (T, error)) (T, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if value, ok := c.entries[key]; ok {
		return value, nil
	}
	value, err := build()
	if err != nil {
		var zero T
		return zero, err
	}
	c.entries[key] = value
	return value, nil
}

// Peek returns the cached value without constructing one.
func (c *Cache[T]) Peek(key string) (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	value, ok := c.entries[key]
	return value, ok
}

// Invalidate drops the cached value for key.
func (c *Cache[T]) Invalidate(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}
