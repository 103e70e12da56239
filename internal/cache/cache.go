// Package cache is the client-side query cache. It holds the current user
// record and opportunistically prefetched resources for the lifetime of the
// process.
package cache

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/mcoot/miniapp-session/internal/dependencies/clock"
)

// Well-known keys
const (
	KeyCurrentUser    = "current_user"
	KeyLinkedAccounts = "linked_accounts"
)

// Entry is a cached value and when it was stored
type Entry struct {
	Value     any
	UpdatedAt time.Time
}

// Cache is a concurrency-safe keyed cache
type Cache struct {
	mu      sync.RWMutex
	entries map[string]Entry
	clock   clock.Clock
	group   singleflight.Group
}

// New creates an empty cache
func New(clk clock.Clock) *Cache {
	if clk == nil {
		clk = clock.New()
	}
	return &Cache{
		entries: make(map[string]Entry),
		clock:   clk,
	}
}

// Get returns the value stored under key
func (c *Cache) Get(key string) (any, bool) {
	entry, ok := c.Entry(key)
	return entry.Value, ok
}

// Entry returns the entry stored under key
func (c *Cache) Entry(key string) (Entry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	entry, ok := c.entries[key]
	return entry, ok
}

// Set stores a value under key
func (c *Cache) Set(key string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = Entry{Value: value, UpdatedAt: c.clock.Now()}
}

// Invalidate removes key
func (c *Cache) Invalidate(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

// Clear removes every entry
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]Entry)
}

// Fetch returns the cached value for key, loading it with fn on a miss.
// Concurrent misses for the same key share one call to fn. Errors are not cached.
func (c *Cache) Fetch(ctx context.Context, key string, fn func(ctx context.Context) (any, error)) (any, error) {
	if v, ok := c.Get(key); ok {
		return v, nil
	}
	v, err, _ := c.group.Do(key, func() (any, error) {
		if v, ok := c.Get(key); ok {
			return v, nil
		}
		v, err := fn(ctx)
		if err != nil {
			return nil, err
		}
		c.Set(key, v)
		return v, nil
	})
	return v, err
}

// Refresh loads key with fn and replaces the cached value
func (c *Cache) Refresh(ctx context.Context, key string, fn func(ctx context.Context) (any, error)) (any, error) {
	c.Invalidate(key)
	return c.Fetch(ctx, key, fn)
}

// GetAs returns the value under key when it has type T
func GetAs[T any](c *Cache, key string) (T, bool) {
	var zero T
	v, ok := c.Get(key)
	if !ok {
		return zero, false
	}
	typed, ok := v.(T)
	if !ok {
		return zero, false
	}
	return typed, true
}
