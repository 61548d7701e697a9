// Package postgres implements the forecast read and write stores over
// the billing summary tables.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	forecast "estate-billing/internal/forecast/domain"
)

// TrendReader reads the monthly revenue series out of the billing
// summary table. Each point is the summed collected amount across all
// estates for one closed month.
type TrendReader struct {
	db    *sql.DB
	table string
}

// TrendReaderOption configures the reader.
type TrendReaderOption func(*TrendReader)

// WithRevenueTable overrides the default summary table name.
func WithRevenueTable(table string) TrendReaderOption {
	return func(reader *TrendReader) {
		if table != "" {
			reader.table = table
		}
	}
}

// NewTrendReader creates a reader over the billing summary table.
func NewTrendReader(db *sql.DB, opts ...TrendReaderOption) *TrendReader {
	reader := &TrendReader{db: db, table: defaultSummaryTable}
	for _, opt := range opts {
		opt(reader)
	}
	return reader
}

const defaultSummaryTable = "billing_summaries"

// ListMonthlyRevenue returns up to limit closed months of total revenue,
// ascending by month. The current calendar month is excluded; it is still
// accumulating payments.
func (r *TrendReader) ListMonthlyRevenue(ctx context.Context, limit int) ([]forecast.RevenuePoint, error) {
	if limit <= 0 {
		limit = 12
	}

	query := fmt.Sprintf(`
SELECT year, month, SUM(total_amount_collected)
FROM %s
WHERE make_date(year, month, 1) < date_trunc('month', NOW())
GROUP BY year, month
ORDER BY year DESC, month DESC
LIMIT $1`, r.table)

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var points []forecast.RevenuePoint
	for rows.Next() {
		var (
			year    int
			month   int
			revenue float64
		)
		if err := rows.Scan(&year, &month, &revenue); err != nil {
			return nil, err
		}
		points = append(points, forecast.RevenuePoint{
			Month:        time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC),
			TotalRevenue: revenue,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// The query walks backwards to apply the limit; flip to ascending
	// for the regression.
	for i, j := 0, len(points)-1; i < j; i, j = i+1, j-1 {
		points[i], points[j] = points[j], points[i]
	}
	return points, nil
}

// MonthlyActualRevenue returns the summed collected amount for one month.
// A month with no summary rows yields ErrNoActualRevenue.
func (r *TrendReader) MonthlyActualRevenue(ctx context.Context, month time.Time) (float64, error) {
	month = month.UTC()

	query := fmt.Sprintf(`
SELECT SUM(total_amount_collected)
FROM %s
WHERE year = $1 AND month = $2`, r.table)

	var revenue sql.NullFloat64
	err := r.db.QueryRowContext(ctx, query, month.Year(), int(month.Month())).Scan(&revenue)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, forecast.ErrNoActualRevenue
	}
	if err != nil {
		return 0, err
	}
	if !revenue.Valid || revenue.Float64 <= 0 {
		return 0, forecast.ErrNoActualRevenue
	}
	return revenue.Float64, nil
}
