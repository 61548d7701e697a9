package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	billing "estate-billing/internal/billing/domain"
)

// RedisCache stores summaries in redis with a fixed TTL.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisCache constructs a redis-backed cache.
func NewRedisCache(addr, password string, db int, ttl time.Duration) (*RedisCache, error) {
	if addr == "" {
		return nil, errors.New("summary cache: empty redis addr")
	}
	if ttl <= 0 {
		ttl = time.Hour
	}
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	return &RedisCache{client: client, ttl: ttl}, nil
}

type cachedSummary struct {
	billing.EstateSummary
	Month int `json:"month"`
	Year  int `json:"year"`
}

// Get returns a cached summary, or (nil, nil) on miss.
func (c *RedisCache) Get(ctx context.Context, key string) (*billing.EstateSummary, error) {
	raw, err := c.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var cached cachedSummary
	if err := json.Unmarshal([]byte(raw), &cached); err != nil {
		return nil, err
	}
	summary := cached.EstateSummary
	summary.Month = cached.Month
	summary.Year = cached.Year
	return &summary, nil
}

// Set stores a summary with the configured TTL.
func (c *RedisCache) Set(ctx context.Context, key string, summary billing.EstateSummary) error {
	raw, err := json.Marshal(cachedSummary{EstateSummary: summary, Month: summary.Month, Year: summary.Year})
	if err != nil {
		return err
	}
	return c.client.Set(ctx, key, raw, c.ttl).Err()
}

// Invalidate drops a cached entry.
func (c *RedisCache) Invalidate(ctx context.Context, key string) error {
	return c.client.Del(ctx, key).Err()
}

// Close releases the underlying client.
func (c *RedisCache) Close() error {
	return c.client.Close()
}
