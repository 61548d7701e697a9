package cache

import (
	"context"
	"sync"
	"time"

	billing "estate-billing/internal/billing/domain"
)

// Clock provides time for TTL checks.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// MemoryCache is a process-local TTL cache for demo/testing.
type MemoryCache struct {
	mu    sync.RWMutex
	ttl   time.Duration
	clock Clock
	data  map[string]memoryEntry
}

type memoryEntry struct {
	summary   billing.EstateSummary
	expiresAt time.Time
}

// NewMemoryCache constructs a cache with the given TTL.
func NewMemoryCache(ttl time.Duration, clock Clock) *MemoryCache {
	if clock == nil {
		clock = systemClock{}
	}
	return &MemoryCache{
		ttl:   ttl,
		clock: clock,
		data:  make(map[string]memoryEntry),
	}
}

// Get returns a cached summary, or (nil, nil) on miss or expiry.
func (c *MemoryCache) Get(ctx context.Context, key string) (*billing.EstateSummary, error) {
	_ = ctx
	c.mu.RLock()
	entry, ok := c.data[key]
	c.mu.RUnlock()
	if !ok {
		return nil, nil
	}
	if c.clock.Now().After(entry.expiresAt) {
		c.mu.Lock()
		delete(c.data, key)
		c.mu.Unlock()
		return nil, nil
	}
	summary := entry.summary
	return &summary, nil
}

// Set stores a summary until the TTL elapses.
func (c *MemoryCache) Set(ctx context.Context, key string, summary billing.EstateSummary) error {
	_ = ctx
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = memoryEntry{summary: summary, expiresAt: c.clock.Now().Add(c.ttl)}
	return nil
}

// Invalidate drops a cached entry.
func (c *MemoryCache) Invalidate(ctx context.Context, key string) error {
	_ = ctx
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.data, key)
	return nil
}
