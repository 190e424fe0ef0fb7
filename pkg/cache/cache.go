package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// TTL constants
const (
	TTLStats  = 30 * time.Second // aggregated stats (frequently refreshed)
	TTLDetail = 30 * time.Second // group detail views
)

// Cache key prefixes
const (
	PrefixStats  = "errstats:"
	PrefixDetail = "errdetail:"
)

// Service is the Redis read-cache for query endpoints
type Service interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	Exists(ctx context.Context, key string) (bool, error)

	// Stats cache
	SetStats(ctx context.Context, timeRange string, data interface{}) error
	InvalidateStats(ctx context.Context) error

	// Group detail cache
	SetGroupDetail(ctx context.Context, fingerprint string, data interface{}) error
	InvalidateGroupDetail(ctx context.Context, fingerprint string) error

	IsAvailable() bool
	Ping(ctx context.Context) error
}

// redisCache is the Redis-backed implementation
type redisCache struct {
	client *redis.Client
}

// NewService creates a new cache service
func NewService(client *redis.Client) Service {
	return &redisCache{client: client}
}

func (c *redisCache) IsAvailable() bool {
	return c.client != nil
}

func (c *redisCache) Ping(ctx context.Context) error {
	if c.client == nil {
		return fmt.Errorf("redis client is nil")
	}
	return c.client.Ping(ctx).Err()
}

func (c *redisCache) Get(ctx context.Context, key string, dest interface{}) error {
	if c.client == nil {
		return redis.Nil
	}
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		return err
	}
	return json.Unmarshal(data, dest)
}

func (c *redisCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if c.client == nil {
		return nil
	}
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, key, data, ttl).Err()
}

func (c *redisCache) Delete(ctx context.Context, keys ...string) error {
	if c.client == nil || len(keys) == 0 {
		return nil
	}
	return c.client.Del(ctx, keys...).Err()
}

func (c *redisCache) Exists(ctx context.Context, key string) (bool, error) {
	if c.client == nil {
		return false, nil
	}
	n, err := c.client.Exists(ctx, key).Result()
	return n > 0, err
}

func (c *redisCache) SetStats(ctx context.Context, timeRange string, data interface{}) error {
	return c.Set(ctx, PrefixStats+timeRange, data, TTLStats)
}

func (c *redisCache) InvalidateStats(ctx context.Context) error {
	if c.client == nil {
		return nil
	}
	iter := c.client.Scan(ctx, 0, PrefixStats+"*", 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return err
	}
	return c.Delete(ctx, keys...)
}

func (c *redisCache) SetGroupDetail(ctx context.Context, fingerprint string, data interface{}) error {
	return c.Set(ctx, PrefixDetail+fingerprint, data, TTLDetail)
}

func (c *redisCache) InvalidateGroupDetail(ctx context.Context, fingerprint string) error {
	return c.Delete(ctx, PrefixDetail+fingerprint)
}
