package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/blissito/formmy-agent-core/internal/core/errx"
)

// ErrMiss is returned when no entry exists for the key.
var ErrMiss = errors.New("cache: miss")

// Cache is the explicit, externally-owned replacement for the process-local
// result maps the platform used to carry. Keys are caller-composed
// (tenant + query) so multi-instance deployments share entries.
type Cache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
}

type redisCache struct {
	client *redis.Client
	prefix string
}

// NewRedis returns a Redis-backed Cache with the given key prefix.
func NewRedis(client *redis.Client, prefix string) Cache {
	return &redisCache{client: client, prefix: prefix}
}

func (c *redisCache) Get(ctx context.Context, key string) (string, error) {
	v, err := c.client.Get(ctx, c.prefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrMiss
	}
	if err != nil {
		return "", errx.WrapRedis(err)
	}
	return v, nil
}

func (c *redisCache) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if err := c.client.Set(ctx, c.prefix+key, value, ttl).Err(); err != nil {
		return errx.WrapRedis(err)
	}
	return nil
}
