package core

import (
	"context"
	"time"
)

// Cache is a small key/value store with expiring keys.
// It backs the session token denylist and the rate limiter.
type Cache interface {
	// Set stores a flag under key until ttl elapses.
	Set(ctx context.Context, key string, ttl time.Duration) error
	Exists(ctx context.Context, key string) (bool, error)
	// Incr increments the counter under key and returns its new value.
	// The counter expires window after its first increment.
	Incr(ctx context.Context, key string, window time.Duration) (int64, error)
	// TTL returns how long key still lives; 0 if it does not exist.
	TTL(ctx context.Context, key string) (time.Duration, error)
	Delete(ctx context.Context, keys ...string) error
}
