package usecase

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"
)

// Cache stores serialized attempts for quick lookup by object key. Get must
// report a miss as redis.Nil.
type Cache interface {
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
}

// RedisCache keeps attempts in Redis under a namespace shared by all kiosks
// of one deployment.
type RedisCache struct {
	client    redis.Cmdable
	namespace string
}

// NewRedisCache returns a cache using the "photoauth:" namespace.
func NewRedisCache(client redis.Cmdable) *RedisCache {
	return &RedisCache{client: client, namespace: "photoauth:"}
}

func (c *RedisCache) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return c.client.Set(ctx, c.namespace+key, value, ttl).Err()
}

func (c *RedisCache) Get(ctx context.Context, key string) (string, error) {
	return c.client.Get(ctx, c.namespace+key).Result()
}

func attemptCacheKey(objectKey string) string {
	return "attempt:" + objectKey
}
