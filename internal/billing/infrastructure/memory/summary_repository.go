package memory

import (
	"context"
	"errors"
	"sort"
	"sync"

	billing "estate-billing/internal/billing/domain"
)

// SummaryRepository is an in-memory summary store for demo/testing.
type SummaryRepository struct {
	mu   sync.RWMutex
	data map[string]billing.EstateSummary
}

// NewSummaryRepository constructs a repository.
func NewSummaryRepository() *SummaryRepository {
	return &SummaryRepository{data: make(map[string]billing.EstateSummary)}
}

func summaryKey(estateCode string, period billing.Period) string {
	return estateCode + "|" + period.Key()
}

// Upsert stores or replaces the row for (estate_code, month, year).
func (r *SummaryRepository) Upsert(ctx context.Context, summary billing.EstateSummary) error {
	_ = ctx
	if summary.EstateCode == "" {
		return errors.New("memory summary repo: empty estate code")
	}
	if err := summary.Validate(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.data[summaryKey(summary.EstateCode, summary.Period())] = summary
	return nil
}

// Find loads a summary row.
func (r *SummaryRepository) Find(ctx context.Context, estateCode string, period billing.Period) (*billing.EstateSummary, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	summary, ok := r.data[summaryKey(estateCode, period)]
	if !ok {
		return nil, billing.ErrSummaryNotFound
	}
	return &summary, nil
}

// ListByPeriod returns all rows for a period ordered by estate code.
func (r *SummaryRepository) ListByPeriod(ctx context.Context, period billing.Period) ([]billing.EstateSummary, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	var result []billing.EstateSummary
	for _, summary := range r.data {
		if summary.Month == period.Month && summary.Year == period.Year {
			result = append(result, summary)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].EstateCode < result[j].EstateCode })
	return result, nil
}

// Len reports the stored row count.
func (r *SummaryRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.data)
}
