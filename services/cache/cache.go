// Package cachesvc provides the core.Cache implementations: Redis in deployed
// environments, and an in-process map when Redis is disabled or unreachable.
package cachesvc

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"github.com/nae-imUam/coaching-app-api/core"
)

const (
	keyPrefix   = "coaching:"
	pingTimeout = 3 * time.Second
)

// New connects to Redis, falling back to an in-memory cache when Redis is disabled or unreachable.
func New(conf core.RedisConfig, logger core.Logger) core.Cache {
	if conf.Disabled {
		return NewMemoryCache()
	}
	cache, err := NewRedisCache(conf.URL)
	if err != nil {
		logger.Warn("redis unavailable, using in-memory cache", err)
		return NewMemoryCache()
	}
	return cache
}

type redisCache struct {
	client *redis.Client
}

var _ core.Cache = (*redisCache)(nil)

func NewRedisCache(url string) (*redisCache, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, errors.Wrap(err, "parsing redis url")
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	if err = client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, errors.Wrap(err, "pinging redis")
	}
	return &redisCache{client: client}, nil
}

func (c *redisCache) Close() error {
	return c.client.Close()
}

func (c *redisCache) Set(ctx context.Context, key string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	return errors.Wrap(c.client.Set(ctx, keyPrefix+key, 1, ttl).Err(), "setting key")
}

func (c *redisCache) Exists(ctx context.Context, key string) (bool, error) {
	n, err := c.client.Exists(ctx, keyPrefix+key).Result()
	if err != nil {
		return false, errors.Wrap(err, "checking key")
	}
	return n > 0, nil
}

func (c *redisCache) Incr(ctx context.Context, key string, window time.Duration) (int64, error) {
	key = keyPrefix + key
	var incr *redis.IntCmd
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, key)
		pipe.ExpireNX(ctx, key, window)
		return nil
	})
	if err != nil {
		return 0, errors.Wrap(err, "incrementing counter")
	}
	return incr.Val(), nil
}

func (c *redisCache) TTL(ctx context.Context, key string) (time.Duration, error) {
	ttl, err := c.client.PTTL(ctx, keyPrefix+key).Result()
	if err != nil {
		return 0, errors.Wrap(err, "reading ttl")
	}
	if ttl < 0 { // -2: missing, -1: no expiry
		return 0, nil
	}
	return ttl, nil
}

func (c *redisCache) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	prefixed := make([]string, 0, len(keys))
	for _, k := range keys {
		prefixed = append(prefixed, keyPrefix+k)
	}
	return errors.Wrap(c.client.Del(ctx, prefixed...).Err(), "deleting keys")
}
