package cache

import (
	"context"
	"testing"
	"time"

	billing "estate-billing/internal/billing/domain"
)

type fixedClock struct {
	now time.Time
}

func (c *fixedClock) Now() time.Time { return c.now }

func TestMemoryCacheExpiry(t *testing.T) {
	clock := &fixedClock{now: time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)}
	c := NewMemoryCache(time.Hour, clock)
	ctx := context.Background()

	summary := billing.EstateSummary{EstateCode: "CODE", Month: 3, Year: 2025, TotalAmountCollected: 350000}
	key := Key(summary.EstateCode, summary.Period())

	if err := c.Set(ctx, key, summary); err != nil {
		t.Fatalf("set: %v", err)
	}

	got, err := c.Get(ctx, key)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got == nil || got.TotalAmountCollected != 350000 {
		t.Fatalf("unexpected hit result: %+v", got)
	}

	clock.now = clock.now.Add(61 * time.Minute)
	got, err = c.Get(ctx, key)
	if err != nil {
		t.Fatalf("get after expiry: %v", err)
	}
	if got != nil {
		t.Fatalf("expected expiry miss, got %+v", got)
	}
}

func TestMemoryCacheInvalidate(t *testing.T) {
	c := NewMemoryCache(time.Hour, nil)
	ctx := context.Background()
	key := Key("CODE", billing.Period{Month: 1, Year: 2025})

	if err := c.Set(ctx, key, billing.EstateSummary{EstateCode: "CODE", Month: 1, Year: 2025}); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := c.Invalidate(ctx, key); err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	got, err := c.Get(ctx, key)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got != nil {
		t.Fatalf("expected miss after invalidate, got %+v", got)
	}
}

func TestKeyFormat(t *testing.T) {
	key := Key("CODE", billing.Period{Month: 3, Year: 2025})
	if key != "billing:summary:CODE:2025-03" {
		t.Fatalf("key mismatch: %s", key)
	}
}
