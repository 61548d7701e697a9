package application

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"time"

	forecast "estate-billing/internal/forecast/domain"
	"estate-billing/internal/notify"

	"github.com/google/uuid"
)

// Clock provides time for prediction dating.
type Clock interface {
	Now() time.Time
}

// SystemClock uses time.Now.
type SystemClock struct{}

// Now returns the current UTC time.
func (SystemClock) Now() time.Time { return time.Now().UTC() }

// ModelReport summarizes the fitted model for API responses.
type ModelReport struct {
	RSquared   float64 `json:"r_squared"`
	DataPoints int     `json:"data_points"`
	Method     string  `json:"method"`
}

// RunResult is the outcome of one forecast run.
type RunResult struct {
	RunID       string
	Predictions []forecast.PredictionRecord
	Model       ModelReport
	GeneratedAt time.Time
}

// ForecastService runs the revenue trend forecast.
type ForecastService struct {
	reader   forecast.TrendReader
	repo     forecast.PredictionRepository
	notifier notify.Notifier
	clock    Clock
	logger   *log.Logger
	history  int
	horizon  int
}

// ForecastOption customizes a ForecastService.
type ForecastOption func(*ForecastService)

// WithHistoryMonths bounds the revenue series read for fitting.
func WithHistoryMonths(months int) ForecastOption {
	return func(s *ForecastService) {
		if months >= forecast.MinHistoryPoints {
			s.history = months
		}
	}
}

// WithHorizonMonths sets the number of forward months predicted.
func WithHorizonMonths(months int) ForecastOption {
	return func(s *ForecastService) {
		if months > 0 {
			s.horizon = months
		}
	}
}

// WithNotifier attaches an alert notifier for fatal run failures.
func WithNotifier(notifier notify.Notifier) ForecastOption {
	return func(s *ForecastService) {
		s.notifier = notifier
	}
}

// NewForecastService constructs a ForecastService.
func NewForecastService(reader forecast.TrendReader, repo forecast.PredictionRepository, clock Clock, logger *log.Logger, opts ...ForecastOption) (*ForecastService, error) {
	if reader == nil {
		return nil, errors.New("forecast service: nil trend reader")
	}
	if repo == nil {
		return nil, errors.New("forecast service: nil prediction repository")
	}
	if clock == nil {
		clock = SystemClock{}
	}
	if logger == nil {
		logger = log.Default()
	}
	service := &ForecastService{
		reader:  reader,
		repo:    repo,
		clock:   clock,
		logger:  logger,
		history: 12,
		horizon: forecast.DefaultHorizonMonths,
	}
	for _, opt := range opts {
		opt(service)
	}
	return service, nil
}

// Run fetches the revenue series, fits the trend and upserts one
// prediction row per forward month. Fatal failures raise a webhook alert
// before returning.
func (s *ForecastService) Run(ctx context.Context) (*RunResult, error) {
	runID := uuid.NewString()
	now := s.clock.Now().UTC()
	predictionDate := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	series, err := s.reader.ListMonthlyRevenue(ctx, s.history)
	if err != nil {
		return nil, s.fatal(ctx, runID, fmt.Errorf("read revenue series: %w", err))
	}

	model, err := forecast.FitTrend(series)
	if err != nil {
		return nil, s.fatal(ctx, runID, err)
	}

	predictions, err := model.Predict(s.horizon)
	if err != nil {
		return nil, s.fatal(ctx, runID, err)
	}

	records := make([]forecast.PredictionRecord, 0, len(predictions))
	for _, prediction := range predictions {
		record := forecast.PredictionRecord{
			PredictedMonth:       prediction.PredictedMonth,
			PredictionDate:       predictionDate,
			PredictedRevenue:     prediction.PredictedRevenue,
			ConfidenceLevel:      prediction.ConfidenceLevel,
			Method:               forecast.MethodLinearRegression,
			HistoricalDataPoints: model.DataPoints,
			AvgHistoricalRevenue: round2(model.AvgRevenue),
			Params:               prediction.Params,
		}
		if err := s.repo.Upsert(ctx, record); err != nil {
			return nil, s.fatal(ctx, runID, fmt.Errorf("upsert prediction %s: %w", record.PredictedMonth.Format("2006-01"), err))
		}
		records = append(records, record)
	}

	s.logger.Printf("forecast run complete: run_id=%s data_points=%d r_squared=%.3f predictions=%d",
		runID, model.DataPoints, model.Params.RSquared, len(records))

	return &RunResult{
		RunID:       runID,
		Predictions: records,
		Model: ModelReport{
			RSquared:   round3(model.Params.RSquared),
			DataPoints: model.DataPoints,
			Method:     forecast.MethodLinearRegression,
		},
		GeneratedAt: now,
	}, nil
}

func (s *ForecastService) fatal(ctx context.Context, runID string, err error) error {
	s.logger.Printf("forecast run failed: run_id=%s err=%v", runID, err)
	if s.notifier != nil {
		alert := notify.AlertMessage{
			JobName:      "predict-trends",
			ErrorMessage: err.Error(),
			Severity:     notify.SeverityHigh,
			OccurredAt:   s.clock.Now().UTC(),
		}
		if notifyErr := s.notifier.Notify(ctx, alert); notifyErr != nil {
			s.logger.Printf("forecast alert delivery failed: %v", notifyErr)
		}
	}
	return err
}

func round2(value float64) float64 {
	return math.Round(value*100) / 100
}

func round3(value float64) float64 {
	return math.Round(value*1000) / 1000
}
