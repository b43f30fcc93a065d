package redis

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"
	"github.com/w-h-a/insight/cache"
)

// redisCache delegates bounding to redis itself: entries carry the
// configured TTL and the server's eviction policy caps total size.
type redisCache struct {
	options cache.Options
	client  *redis.Client
}

func (c *redisCache) Get(ctx context.Context, key string) ([]byte, bool) {
	bs, err := c.client.Get(ctx, c.prefixed(key)).Bytes()
	if err != nil {
		return nil, false
	}
	return bs, true
}

func (c *redisCache) Set(ctx context.Context, key string, value []byte) {
	if err := c.client.Set(ctx, c.prefixed(key), value, c.options.TTL).Err(); err != nil {
		slog.WarnContext(ctx, "failed to cache value", "error", err)
	}
}

func (c *redisCache) prefixed(key string) string {
	return fmt.Sprintf("%s:%s", c.options.Prefix, key)
}

func NewCache(opts ...cache.Option) cache.Cache {
	options := cache.NewOptions(opts...)

	c := &redisCache{
		options: options,
	}

	client := redis.NewClient(&redis.Options{
		Addr: options.Location,
	})

	if err := client.Ping(context.Background()).Err(); err != nil {
		detail := "failed to ping with redis cache"
		slog.ErrorContext(context.Background(), detail, "error", err)
		panic(detail)
	}

	c.client = client

	return c
}
