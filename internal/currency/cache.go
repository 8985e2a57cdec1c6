package currency

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const cacheKeyPrefix = "fx:latest:"

type Cache interface {
	Get(ctx context.Context, base string) (Rates, bool, error)
	Set(ctx context.Context, base string, rates Rates, ttl time.Duration) error
}

// RedisClient is the part of the redis client the cache uses.
type RedisClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
}

type RedisCache struct {
	client RedisClient
}

func NewRedisCache(client RedisClient) *RedisCache {
	return &RedisCache{client: client}
}

func (c *RedisCache) Get(ctx context.Context, base string) (Rates, bool, error) {
	raw, err := c.client.Get(ctx, cacheKeyPrefix+base).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read cached rates: %w", err)
	}

	var rates Rates
	if err := json.Unmarshal(raw, &rates); err != nil {
		return nil, false, fmt.Errorf("failed to decode cached rates: %w", err)
	}
	return rates, true, nil
}

func (c *RedisCache) Set(ctx context.Context, base string, rates Rates, ttl time.Duration) error {
	raw, err := json.Marshal(rates)
	if err != nil {
		return fmt.Errorf("failed to encode rates: %w", err)
	}
	if err := c.client.Set(ctx, cacheKeyPrefix+base, raw, ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache rates: %w", err)
	}
	return nil
}
