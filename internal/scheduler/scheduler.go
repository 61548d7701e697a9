// Package scheduler fires the nightly aggregation and forecast jobs.
package scheduler

import (
	"context"
	"log"
	"time"

	billingapp "estate-billing/internal/billing/application"
	forecastapp "estate-billing/internal/forecast/application"
)

// Scheduler triggers the billing, forecast and accuracy jobs once per day.
type Scheduler struct {
	billing    *billingapp.SummaryService
	forecaster *forecastapp.ForecastService
	reconciler *forecastapp.Reconciler
	dailyAt    string
	logger     *log.Logger
}

// New constructs a Scheduler. Any job reference may be nil; a nil job is
// skipped.
func New(billing *billingapp.SummaryService, forecaster *forecastapp.ForecastService, reconciler *forecastapp.Reconciler, dailyAt string, logger *log.Logger) *Scheduler {
	if logger == nil {
		logger = log.Default()
	}
	return &Scheduler{
		billing:    billing,
		forecaster: forecaster,
		reconciler: reconciler,
		dailyAt:    dailyAt,
		logger:     logger,
	}
}

// Start begins the scheduler loop.
func (s *Scheduler) Start(ctx context.Context) {
	if s == nil {
		return
	}
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if !s.shouldRun(now.UTC()) {
				continue
			}
			s.runOnce(ctx)
		}
	}
}

func (s *Scheduler) shouldRun(now time.Time) bool {
	hour, minute, err := parseDailyAt(s.dailyAt)
	if err != nil {
		return false
	}
	return now.Hour() == hour && now.Minute() == minute
}

// runOnce executes the jobs in dependency order: summaries feed the
// forecast, and the forecast rows feed the accuracy pass.
func (s *Scheduler) runOnce(ctx context.Context) {
	if s.billing != nil {
		if _, err := s.billing.Generate(ctx, billingapp.GenerateRequest{}); err != nil {
			s.logger.Printf("scheduled billing run error: %v", err)
		}
	}
	if s.forecaster != nil {
		if _, err := s.forecaster.Run(ctx); err != nil {
			s.logger.Printf("scheduled forecast run error: %v", err)
		}
	}
	if s.reconciler != nil {
		if _, err := s.reconciler.Run(ctx); err != nil {
			s.logger.Printf("scheduled reconcile run error: %v", err)
		}
	}
}

func parseDailyAt(value string) (int, int, error) {
	t, err := time.Parse("15:04", value)
	if err != nil {
		return 0, 0, err
	}
	return t.Hour(), t.Minute(), nil
}
