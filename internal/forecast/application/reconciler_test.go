package application

import (
	"context"
	"errors"
	"log"
	"strings"
	"testing"
	"time"

	forecast "estate-billing/internal/forecast/domain"
	"estate-billing/internal/forecast/infrastructure/memory"
)

type stubActuals struct {
	revenue map[string]float64
	err     error
}

func (s *stubActuals) MonthlyActualRevenue(_ context.Context, m time.Time) (float64, error) {
	if s.err != nil {
		return 0, s.err
	}
	revenue, ok := s.revenue[m.Format("2006-01")]
	if !ok {
		return 0, forecast.ErrNoActualRevenue
	}
	return revenue, nil
}

func seedPrediction(t *testing.T, repo *memory.PredictionRepository, predicted time.Time, revenue float64) {
	t.Helper()
	err := repo.Upsert(context.Background(), forecast.PredictionRecord{
		PredictedMonth:   predicted,
		PredictionDate:   time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC),
		PredictedRevenue: revenue,
		Method:           forecast.MethodLinearRegression,
	})
	if err != nil {
		t.Fatalf("seed prediction: %v", err)
	}
}

func newTestReconciler(t *testing.T, repo *memory.PredictionRepository, actuals ActualRevenueReader, now time.Time) *Reconciler {
	t.Helper()
	reconciler, err := NewReconciler(repo, actuals, fixedClock{now: now}, log.New(&strings.Builder{}, "", 0))
	if err != nil {
		t.Fatalf("new reconciler: %v", err)
	}
	return reconciler
}

func TestReconcileScoresClosedMonths(t *testing.T) {
	repo := memory.NewPredictionRepository()
	seedPrediction(t, repo, month(2026, time.April), 900)
	actuals := &stubActuals{revenue: map[string]float64{"2026-04": 1000}}
	reconciler := newTestReconciler(t, repo, actuals, time.Date(2026, time.May, 2, 0, 0, 0, 0, time.UTC))

	result, err := reconciler.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if result.Reconciled != 1 || result.Skipped != 0 {
		t.Fatalf("unexpected result: %+v", result)
	}

	records := repo.All()
	if len(records) != 1 || !records[0].Reconciled() {
		t.Fatalf("record not reconciled: %+v", records)
	}
	if *records[0].ActualRevenue != 1000 {
		t.Fatalf("actual = %v, want 1000", *records[0].ActualRevenue)
	}
	if *records[0].AccuracyPct != 90 {
		t.Fatalf("accuracy = %v, want 90", *records[0].AccuracyPct)
	}
}

func TestReconcileIgnoresOpenMonths(t *testing.T) {
	repo := memory.NewPredictionRepository()
	seedPrediction(t, repo, month(2026, time.May), 500)
	seedPrediction(t, repo, month(2026, time.June), 600)
	actuals := &stubActuals{revenue: map[string]float64{"2026-05": 500, "2026-06": 600}}
	// Mid-May: neither month has fully elapsed.
	reconciler := newTestReconciler(t, repo, actuals, time.Date(2026, time.May, 20, 0, 0, 0, 0, time.UTC))

	result, err := reconciler.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if result.Examined != 0 || result.Reconciled != 0 {
		t.Fatalf("unexpected result: %+v", result)
	}
	for _, record := range repo.All() {
		if record.Reconciled() {
			t.Fatalf("open month reconciled early: %+v", record)
		}
	}
}

func TestReconcileSkipsMissingActuals(t *testing.T) {
	repo := memory.NewPredictionRepository()
	seedPrediction(t, repo, month(2026, time.April), 900)
	seedPrediction(t, repo, month(2026, time.March), 700)
	actuals := &stubActuals{revenue: map[string]float64{"2026-03": 700}}
	reconciler := newTestReconciler(t, repo, actuals, time.Date(2026, time.June, 1, 0, 0, 0, 0, time.UTC))

	result, err := reconciler.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if result.Reconciled != 1 || result.Skipped != 1 {
		t.Fatalf("unexpected result: %+v", result)
	}

	// The skipped row stays pending for the next pass.
	pending, err := repo.ListUnreconciled(context.Background())
	if err != nil {
		t.Fatalf("list unreconciled: %v", err)
	}
	if len(pending) != 1 || !pending[0].PredictedMonth.Equal(month(2026, time.April)) {
		t.Fatalf("unexpected pending rows: %+v", pending)
	}
}

func TestReconcileReaderFailure(t *testing.T) {
	repo := memory.NewPredictionRepository()
	seedPrediction(t, repo, month(2026, time.April), 900)
	actuals := &stubActuals{err: errors.New("connection refused")}
	reconciler := newTestReconciler(t, repo, actuals, time.Date(2026, time.June, 1, 0, 0, 0, 0, time.UTC))

	if _, err := reconciler.Run(context.Background()); err == nil {
		t.Fatal("expected error from failing actuals reader")
	}
}
