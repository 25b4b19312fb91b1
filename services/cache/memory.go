package cachesvc

import (
	"context"
	"sync"
	"time"

	"github.com/nae-imUam/coaching-app-api/core"
)

type entry struct {
	count   int64
	expires time.Time
}

// memoryCache is a single-process core.Cache. Expired keys are dropped lazily.
type memoryCache struct {
	mu      sync.Mutex
	entries map[string]entry
	now     func() time.Time // mockable
}

var _ core.Cache = (*memoryCache)(nil)

func NewMemoryCache() *memoryCache {
	return &memoryCache{entries: make(map[string]entry), now: time.Now}
}

// get must be called with mu held.
func (c *memoryCache) get(key string) (entry, bool) {
	e, ok := c.entries[key]
	if ok && !c.now().Before(e.expires) {
		delete(c.entries, key)
		return entry{}, false
	}
	return e, ok
}

func (c *memoryCache) Set(_ context.Context, key string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = entry{count: 1, expires: c.now().Add(ttl)}
	return nil
}

func (c *memoryCache) Exists(_ context.Context, key string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.get(key)
	return ok, nil
}

func (c *memoryCache) Incr(_ context.Context, key string, window time.Duration) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.get(key)
	if !ok {
		e = entry{expires: c.now().Add(window)}
	}
	e.count++
	c.entries[key] = e
	return e.count, nil
}

func (c *memoryCache) TTL(_ context.Context, key string) (time.Duration, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.get(key)
	if !ok {
		return 0, nil
	}
	return e.expires.Sub(c.now()), nil
}

func (c *memoryCache) Delete(_ context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range keys {
		delete(c.entries, k)
	}
	return nil
}
