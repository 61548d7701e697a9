// Package memory provides in-memory forecast stores for tests and
// single-process setups.
package memory

import (
	"context"
	"sort"
	"sync"

	forecast "estate-billing/internal/forecast/domain"
)

// PredictionRepository is an in-memory forecast.PredictionRepository.
type PredictionRepository struct {
	mu      sync.RWMutex
	records map[string]forecast.PredictionRecord
}

// NewPredictionRepository constructs an empty repository.
func NewPredictionRepository() *PredictionRepository {
	return &PredictionRepository{records: make(map[string]forecast.PredictionRecord)}
}

func recordKey(record forecast.PredictionRecord) string {
	return record.PredictedMonth.Format("2006-01") + "|" + record.PredictionDate.Format("2006-01-02")
}

// Upsert stores the record, replacing any row with the same
// (predicted_month, prediction_date) key.
func (r *PredictionRepository) Upsert(_ context.Context, record forecast.PredictionRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records[recordKey(record)] = record
	return nil
}

// ListUnreconciled returns records without accuracy figures, ordered by
// predicted month then prediction date.
func (r *PredictionRepository) ListUnreconciled(_ context.Context) ([]forecast.PredictionRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var pending []forecast.PredictionRecord
	for _, record := range r.records {
		if !record.Reconciled() {
			pending = append(pending, record)
		}
	}
	sort.Slice(pending, func(i, j int) bool {
		if !pending[i].PredictedMonth.Equal(pending[j].PredictedMonth) {
			return pending[i].PredictedMonth.Before(pending[j].PredictedMonth)
		}
		return pending[i].PredictionDate.Before(pending[j].PredictionDate)
	})
	return pending, nil
}

// UpdateAccuracy stores the actual/accuracy fields of an existing record.
func (r *PredictionRepository) UpdateAccuracy(_ context.Context, record forecast.PredictionRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := recordKey(record)
	stored, ok := r.records[key]
	if !ok {
		return forecast.ErrPredictionNotFound
	}
	stored.ActualRevenue = record.ActualRevenue
	stored.AccuracyPct = record.AccuracyPct
	r.records[key] = stored
	return nil
}

// ListRecent returns up to limit rows, newest run date first, predicted
// month ascending within a run.
func (r *PredictionRepository) ListRecent(_ context.Context, limit int) ([]forecast.PredictionRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	records := make([]forecast.PredictionRecord, 0, len(r.records))
	for _, record := range r.records {
		records = append(records, record)
	}
	sort.Slice(records, func(i, j int) bool {
		if !records[i].PredictionDate.Equal(records[j].PredictionDate) {
			return records[i].PredictionDate.After(records[j].PredictionDate)
		}
		return records[i].PredictedMonth.Before(records[j].PredictedMonth)
	})
	if limit > 0 && len(records) > limit {
		records = records[:limit]
	}
	return records, nil
}

// Len reports the number of stored rows.
func (r *PredictionRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.records)
}

// All returns every stored record, ordered by predicted month then
// prediction date.
func (r *PredictionRepository) All() []forecast.PredictionRecord {
	r.mu.RLock()
	defer r.mu.RUnlock()
	records := make([]forecast.PredictionRecord, 0, len(r.records))
	for _, record := range r.records {
		records = append(records, record)
	}
	sort.Slice(records, func(i, j int) bool {
		if !records[i].PredictedMonth.Equal(records[j].PredictedMonth) {
			return records[i].PredictedMonth.Before(records[j].PredictedMonth)
		}
		return records[i].PredictionDate.Before(records[j].PredictionDate)
	})
	return records
}
