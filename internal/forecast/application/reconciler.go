package application

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	forecast "estate-billing/internal/forecast/domain"
)

// ActualRevenueReader reads the realized revenue for a closed month.
type ActualRevenueReader interface {
	MonthlyActualRevenue(ctx context.Context, month time.Time) (float64, error)
}

// ReconcileResult is the outcome of one accuracy pass.
type ReconcileResult struct {
	Examined   int
	Reconciled int
	Skipped    int
}

// Reconciler fills accuracy figures on predictions whose month has closed.
type Reconciler struct {
	repo    forecast.PredictionRepository
	actuals ActualRevenueReader
	clock   Clock
	logger  *log.Logger
}

// NewReconciler constructs a Reconciler.
func NewReconciler(repo forecast.PredictionRepository, actuals ActualRevenueReader, clock Clock, logger *log.Logger) (*Reconciler, error) {
	if repo == nil {
		return nil, errors.New("reconciler: nil prediction repository")
	}
	if actuals == nil {
		return nil, errors.New("reconciler: nil actual revenue reader")
	}
	if clock == nil {
		clock = SystemClock{}
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Reconciler{repo: repo, actuals: actuals, clock: clock, logger: logger}, nil
}

// Run scores every unreconciled prediction whose predicted month has
// fully elapsed. Months with no recorded revenue are skipped and retried
// on the next pass.
func (r *Reconciler) Run(ctx context.Context) (*ReconcileResult, error) {
	now := r.clock.Now().UTC()
	currentMonth := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)

	pending, err := r.repo.ListUnreconciled(ctx)
	if err != nil {
		return nil, fmt.Errorf("list unreconciled predictions: %w", err)
	}

	result := &ReconcileResult{}
	for _, record := range pending {
		if !record.PredictedMonth.Before(currentMonth) {
			continue
		}
		result.Examined++

		actual, err := r.actuals.MonthlyActualRevenue(ctx, record.PredictedMonth)
		if err != nil {
			if errors.Is(err, forecast.ErrNoActualRevenue) {
				result.Skipped++
				continue
			}
			return result, fmt.Errorf("read actual revenue for %s: %w", record.PredictedMonth.Format("2006-01"), err)
		}

		if err := record.Reconcile(actual); err != nil {
			if errors.Is(err, forecast.ErrNoActualRevenue) {
				result.Skipped++
				continue
			}
			return result, err
		}
		if err := r.repo.UpdateAccuracy(ctx, record); err != nil {
			return result, fmt.Errorf("update accuracy for %s: %w", record.PredictedMonth.Format("2006-01"), err)
		}
		result.Reconciled++
	}

	r.logger.Printf("accuracy pass complete: examined=%d reconciled=%d skipped=%d",
		result.Examined, result.Reconciled, result.Skipped)
	return result, nil
}
