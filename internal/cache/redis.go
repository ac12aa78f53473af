package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

type RedisCache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
	logger zerolog.Logger
}

func NewRedisCache(client *redis.Client, prefix string, ttl time.Duration, logger zerolog.Logger) *RedisCache {
	return &RedisCache{
		client: client,
		prefix: prefix,
		ttl:    ttl,
		logger: logger,
	}
}

func (c *RedisCache) Get(ctx context.Context, key string) ([][]string, bool) {
	raw, err := c.client.Get(ctx, c.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false
	}
	if err != nil {
		c.logger.Warn().Err(err).Str("key", key).Msg("Redis cache read failed")
		return nil, false
	}

	var values [][]string
	if err := json.Unmarshal(raw, &values); err != nil {
		c.logger.Warn().Err(err).Str("key", key).Msg("Corrupt cache entry")
		return nil, false
	}

	return values, true
}

func (c *RedisCache) Set(ctx context.Context, key string, values [][]string) {
	if c.ttl <= 0 {
		return
	}

	raw, err := json.Marshal(values)
	if err != nil {
		return
	}

	if err := c.client.Set(ctx, c.prefix+key, raw, c.ttl).Err(); err != nil {
		c.logger.Warn().Err(err).Str("key", key).Msg("Redis cache write failed")
	}
}

func (c *RedisCache) Delete(ctx context.Context, key string) {
	if err := c.client.Del(ctx, c.prefix+key).Err(); err != nil {
		c.logger.Warn().Err(err).Str("key", key).Msg("Redis cache invalidation failed")
	}
}
