package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	forecast "estate-billing/internal/forecast/domain"
)

const defaultPredictionTable = "revenue_predictions"

// PredictionRepository is the Postgres prediction store. Writes go through
// a single conditional insert-or-update statement keyed on
// (predicted_month, prediction_date): a same-day rerun replaces that day's
// forecast, runs on other days keep their own rows.
type PredictionRepository struct {
	db    *sql.DB
	table string
}

// PredictionRepositoryOption configures the repository.
type PredictionRepositoryOption func(*PredictionRepository)

// WithPredictionTable overrides the default table name.
func WithPredictionTable(table string) PredictionRepositoryOption {
	return func(repo *PredictionRepository) {
		if table != "" {
			repo.table = table
		}
	}
}

// NewPredictionRepository creates a repository using the default table name.
func NewPredictionRepository(db *sql.DB, opts ...PredictionRepositoryOption) *PredictionRepository {
	repo := &PredictionRepository{db: db, table: defaultPredictionTable}
	for _, opt := range opts {
		opt(repo)
	}
	return repo
}

// Upsert writes the prediction row atomically. Accuracy fields are not
// touched here; an overwritten same-day row reverts to unreconciled.
func (r *PredictionRepository) Upsert(ctx context.Context, record forecast.PredictionRecord) error {
	params, err := json.Marshal(record.Params)
	if err != nil {
		return fmt.Errorf("encode model parameters: %w", err)
	}

	query := fmt.Sprintf(`
INSERT INTO %s (
	predicted_month,
	prediction_date,
	predicted_revenue,
	confidence_level,
	prediction_method,
	historical_data_points,
	avg_historical_revenue,
	model_parameters
) VALUES (
	$1, $2, $3, $4, $5, $6, $7, $8
)
ON CONFLICT (predicted_month, prediction_date)
DO UPDATE SET
	predicted_revenue = EXCLUDED.predicted_revenue,
	confidence_level = EXCLUDED.confidence_level,
	prediction_method = EXCLUDED.prediction_method,
	historical_data_points = EXCLUDED.historical_data_points,
	avg_historical_revenue = EXCLUDED.avg_historical_revenue,
	model_parameters = EXCLUDED.model_parameters,
	actual_revenue = NULL,
	accuracy_pct = NULL,
	updated_at = NOW()`, r.table)

	_, err = r.db.ExecContext(
		ctx,
		query,
		record.PredictedMonth,
		record.PredictionDate,
		record.PredictedRevenue,
		record.ConfidenceLevel,
		record.Method,
		record.HistoricalDataPoints,
		record.AvgHistoricalRevenue,
		params,
	)
	return err
}

// ListUnreconciled returns predictions without accuracy figures, ordered
// by predicted month then prediction date.
func (r *PredictionRepository) ListUnreconciled(ctx context.Context) ([]forecast.PredictionRecord, error) {
	query := fmt.Sprintf(`
SELECT %s
FROM %s
WHERE actual_revenue IS NULL OR accuracy_pct IS NULL
ORDER BY predicted_month ASC, prediction_date ASC`, predictionColumns, r.table)

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectPredictions(rows)
}

// ListByPredictionDate returns every forecast row written on one run date,
// ordered by predicted month.
func (r *PredictionRepository) ListByPredictionDate(ctx context.Context, date string) ([]forecast.PredictionRecord, error) {
	query := fmt.Sprintf(`
SELECT %s
FROM %s
WHERE prediction_date = $1
ORDER BY predicted_month ASC`, predictionColumns, r.table)

	rows, err := r.db.QueryContext(ctx, query, date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectPredictions(rows)
}

// ListRecent returns the most recent prediction rows, newest run first.
func (r *PredictionRepository) ListRecent(ctx context.Context, limit int) ([]forecast.PredictionRecord, error) {
	if limit <= 0 {
		limit = 30
	}
	query := fmt.Sprintf(`
SELECT %s
FROM %s
ORDER BY prediction_date DESC, predicted_month ASC
LIMIT $1`, predictionColumns, r.table)

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectPredictions(rows)
}

// UpdateAccuracy stores the actual/accuracy fields of an existing row.
func (r *PredictionRepository) UpdateAccuracy(ctx context.Context, record forecast.PredictionRecord) error {
	if record.ActualRevenue == nil || record.AccuracyPct == nil {
		return errors.New("prediction repo: accuracy fields not set")
	}

	query := fmt.Sprintf(`
UPDATE %s
SET actual_revenue = $3,
	accuracy_pct = $4,
	updated_at = NOW()
WHERE predicted_month = $1 AND prediction_date = $2`, r.table)

	result, err := r.db.ExecContext(
		ctx,
		query,
		record.PredictedMonth,
		record.PredictionDate,
		*record.ActualRevenue,
		*record.AccuracyPct,
	)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return forecast.ErrPredictionNotFound
	}
	return nil
}

const predictionColumns = `
	predicted_month,
	prediction_date,
	predicted_revenue,
	confidence_level,
	prediction_method,
	historical_data_points,
	avg_historical_revenue,
	model_parameters,
	actual_revenue,
	accuracy_pct`

func scanPrediction(scanner interface{ Scan(dest ...any) error }) (*forecast.PredictionRecord, error) {
	var (
		record   forecast.PredictionRecord
		params   []byte
		actual   sql.NullFloat64
		accuracy sql.NullFloat64
	)
	if err := scanner.Scan(
		&record.PredictedMonth,
		&record.PredictionDate,
		&record.PredictedRevenue,
		&record.ConfidenceLevel,
		&record.Method,
		&record.HistoricalDataPoints,
		&record.AvgHistoricalRevenue,
		&params,
		&actual,
		&accuracy,
	); err != nil {
		return nil, err
	}
	if len(params) > 0 {
		if err := json.Unmarshal(params, &record.Params); err != nil {
			return nil, fmt.Errorf("decode model parameters: %w", err)
		}
	}
	if actual.Valid {
		record.ActualRevenue = &actual.Float64
	}
	if accuracy.Valid {
		record.AccuracyPct = &accuracy.Float64
	}
	return &record, nil
}

func collectPredictions(rows *sql.Rows) ([]forecast.PredictionRecord, error) {
	var result []forecast.PredictionRecord
	for rows.Next() {
		record, err := scanPrediction(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *record)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
