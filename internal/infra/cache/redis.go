// Package cache holds PreviewCache implementations.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/bryanwahyu/datalens/internal/domain/datasets"
)

const previewPrefix = "datalens:preview:"

// RedisCache stores previews as JSON with a TTL.
type RedisCache struct {
	client *redis.Client
}

var _ datasets.PreviewCache = (*RedisCache)(nil)

// NewRedis connects using a redis:// URL and pings the server.
func NewRedis(ctx context.Context, redisURL string) (*RedisCache, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return &RedisCache{client: client}, nil
}

// NewRedisClient wraps an existing client.
func NewRedisClient(client *redis.Client) *RedisCache { return &RedisCache{client: client} }

func (c *RedisCache) key(filename string) string { return previewPrefix + filename }

func (c *RedisCache) Get(ctx context.Context, filename string) (*datasets.PreviewResponse, bool, error) {
	data, err := c.client.Get(ctx, c.key(filename)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to get preview: %w", err)
	}
	var p datasets.PreviewResponse
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, false, fmt.Errorf("failed to unmarshal preview: %w", err)
	}
	return &p, true, nil
}

func (c *RedisCache) Set(ctx context.Context, filename string, p *datasets.PreviewResponse, ttl time.Duration) error {
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("failed to marshal preview: %w", err)
	}
	if err := c.client.Set(ctx, c.key(filename), data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to set preview: %w", err)
	}
	return nil
}

func (c *RedisCache) Delete(ctx context.Context, filename string) error {
	return c.client.Del(ctx, c.key(filename)).Err()
}

func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *RedisCache) Close() error { return c.client.Close() }
