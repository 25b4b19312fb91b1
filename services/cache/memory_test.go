package cachesvc

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryCache(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 1, 10, 9, 0, 0, 0, time.UTC)
	c := NewMemoryCache()
	c.now = func() time.Time { return now }

	t.Run("Set and expire", func(t *testing.T) {
		require.NoError(t, c.Set(ctx, "jti", time.Minute))
		ok, err := c.Exists(ctx, "jti")
		require.NoError(t, err)
		assert.True(t, ok)

		ttl, err := c.TTL(ctx, "jti")
		require.NoError(t, err)
		assert.Equal(t, time.Minute, ttl)

		now = now.Add(time.Minute)
		ok, _ = c.Exists(ctx, "jti")
		assert.False(t, ok)
	})

	t.Run("Set ignores non-positive ttl", func(t *testing.T) {
		require.NoError(t, c.Set(ctx, "expired", 0))
		ok, _ := c.Exists(ctx, "expired")
		assert.False(t, ok)
	})

	t.Run("Incr counts within window", func(t *testing.T) {
		for i := int64(1); i <= 3; i++ {
			n, err := c.Incr(ctx, "login:+919876543210", 10*time.Minute)
			require.NoError(t, err)
			assert.Equal(t, i, n)
		}
		now = now.Add(5 * time.Minute)
		n, _ := c.Incr(ctx, "login:+919876543210", 10*time.Minute)
		assert.Equal(t, int64(4), n) // window not extended by later hits

		now = now.Add(5 * time.Minute)
		n, _ = c.Incr(ctx, "login:+919876543210", 10*time.Minute)
		assert.Equal(t, int64(1), n)
	})

	t.Run("Delete", func(t *testing.T) {
		_, _ = c.Incr(ctx, "a", time.Minute)
		require.NoError(t, c.Delete(ctx, "a", "missing"))
		ok, _ := c.Exists(ctx, "a")
		assert.False(t, ok)
		ttl, _ := c.TTL(ctx, "a")
		assert.Zero(t, ttl)
	})
}
