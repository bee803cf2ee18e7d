package querycache

import (
	"context"
	"sync"
	"time"
)

// FetchFunc loads the value for a key from upstream.
type FetchFunc func(ctx context.Context) (any, error)

type entry struct {
	key      Key
	value    any
	storedAt time.Time
}

// Cache is safe for concurrent use. Its lock is never held across a fetch or
// an upstream mutation.
type Cache struct {
	ttl time.Duration
	now func() time.Time

	mu      sync.Mutex
	entries map[string]*entry
	epoch   uint64
	// invalidated maps a prefix (as Key.String) to the epoch of its latest
	// invalidation.
	invalidated map[string]uint64
}

// New returns an empty cache whose entries are fresh for ttl. ttl <= 0 means
// entries never go stale on their own.
func New(ttl time.Duration) *Cache {
	return &Cache{
		ttl:         ttl,
		now:         time.Now,
		entries:     make(map[string]*entry),
		invalidated: make(map[string]uint64),
	}
}

func (c *Cache) fresh(e *entry, now time.Time) bool {
	return c.ttl <= 0 || now.Sub(e.storedAt) < c.ttl
}

// Get returns the cached value for key if present and fresh.
func (c *Cache) Get(key Key) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key.String()]
	if !ok || !c.fresh(e, c.now()) {
		return nil, false
	}
	return e.value, true
}

// Set stores value under key unconditionally.
func (c *Cache) Set(key Key, value any) {
	c.mu.Lock()
	c.entries[key.String()] = &entry{key: key, value: value, storedAt: c.now()}
	c.mu.Unlock()
}

// Fetch returns the cached value for key, or calls fn and caches its result.
// A result whose key was invalidated while fn was running is returned to the
// caller but not stored, so a stale response never overwrites a newer
// invalidation. Errors are never cached.
func (c *Cache) Fetch(ctx context.Context, key Key, fn FetchFunc) (any, error) {
	c.mu.Lock()
	if e, ok := c.entries[key.String()]; ok && c.fresh(e, c.now()) {
		c.mu.Unlock()
		cacheHits.WithLabelValues(key.Root()).Inc()
		return e.value, nil
	}
	start := c.epoch
	c.mu.Unlock()
	cacheMisses.WithLabelValues(key.Root()).Inc()

	v, err := fn(ctx)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.invalidatedSince(key, start) {
		cacheStale.WithLabelValues(key.Root()).Inc()
		return v, nil
	}
	c.entries[key.String()] = &entry{key: key, value: v, storedAt: c.now()}
	return v, nil
}

// invalidatedSince reports whether any prefix of key was invalidated after
// epoch. Caller holds c.mu.
func (c *Cache) invalidatedSince(key Key, epoch uint64) bool {
	for i := 1; i <= len(key); i++ {
		if at, ok := c.invalidated[key[:i].String()]; ok && at > epoch {
			return true
		}
	}
	return false
}

// Invalidate drops every entry whose key starts with prefix and returns how
// many were dropped. In-flight fetches under prefix will not be stored.
func (c *Cache) Invalidate(prefix Key) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.epoch++
	c.invalidated[prefix.String()] = c.epoch
	n := 0
	for k, e := range c.entries {
		if e.key.HasPrefix(prefix) {
			delete(c.entries, k)
			n++
		}
	}
	if n > 0 {
		cacheInvalidations.WithLabelValues(prefix.Root()).Add(float64(n))
	}
	return n
}

// InvalidateRoots invalidates RootKey(r) for every r.
func (c *Cache) InvalidateRoots(roots ...string) int {
	n := 0
	for _, r := range roots {
		n += c.Invalidate(RootKey(r))
	}
	return n
}

// Len returns the number of stored entries, stale ones included.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
