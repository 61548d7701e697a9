package cache

import (
	"context"
	"fmt"

	billing "estate-billing/internal/billing/domain"
)

// SummaryCache memoizes computed estate summaries for a billing period.
// A miss is reported as (nil, nil); cache failures must never fail a run.
type SummaryCache interface {
	Get(ctx context.Context, key string) (*billing.EstateSummary, error)
	Set(ctx context.Context, key string, summary billing.EstateSummary) error
	Invalidate(ctx context.Context, key string) error
}

// Key builds the cache key for an estate + period.
func Key(estateCode string, period billing.Period) string {
	return fmt.Sprintf("billing:summary:%s:%s", estateCode, period.Key())
}
