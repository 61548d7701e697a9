package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	billing "estate-billing/internal/billing/domain"
)

const defaultSummaryTable = "billing_summaries"

// SummaryRepository is the Postgres summary store. Writes go through a
// single conditional insert-or-update statement keyed on
// (estate_code, month, year); two overlapping runs for the same period
// cannot create duplicate rows.
type SummaryRepository struct {
	db    *sql.DB
	table string
}

// SummaryRepositoryOption configures the repository.
type SummaryRepositoryOption func(*SummaryRepository)

// WithSummaryTable overrides the default table name.
func WithSummaryTable(table string) SummaryRepositoryOption {
	return func(repo *SummaryRepository) {
		if table != "" {
			repo.table = table
		}
	}
}

// NewSummaryRepository creates a repository using the default table name.
func NewSummaryRepository(db *sql.DB, opts ...SummaryRepositoryOption) *SummaryRepository {
	repo := &SummaryRepository{db: db, table: defaultSummaryTable}
	for _, opt := range opts {
		opt(repo)
	}
	return repo
}

// Upsert writes the summary row atomically. created_at is preserved on
// update; updated_at is always bumped.
func (r *SummaryRepository) Upsert(ctx context.Context, summary billing.EstateSummary) error {
	if summary.EstateCode == "" {
		return errors.New("summary repo: empty estate code")
	}
	if err := summary.Validate(); err != nil {
		return err
	}

	query := fmt.Sprintf(`
INSERT INTO %s (
	estate_code,
	month,
	year,
	estate_id,
	estate_name,
	total_payments,
	confirmed_payments,
	pending_payments,
	total_amount_collected,
	total_commissions,
	pending_commissions,
	approved_commissions,
	paid_commissions,
	total_customers,
	active_allocations,
	completed_allocations,
	outstanding_balance,
	collection_rate
) VALUES (
	$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18
)
ON CONFLICT (estate_code, month, year)
DO UPDATE SET
	estate_id = EXCLUDED.estate_id,
	estate_name = EXCLUDED.estate_name,
	total_payments = EXCLUDED.total_payments,
	confirmed_payments = EXCLUDED.confirmed_payments,
	pending_payments = EXCLUDED.pending_payments,
	total_amount_collected = EXCLUDED.total_amount_collected,
	total_commissions = EXCLUDED.total_commissions,
	pending_commissions = EXCLUDED.pending_commissions,
	approved_commissions = EXCLUDED.approved_commissions,
	paid_commissions = EXCLUDED.paid_commissions,
	total_customers = EXCLUDED.total_customers,
	active_allocations = EXCLUDED.active_allocations,
	completed_allocations = EXCLUDED.completed_allocations,
	outstanding_balance = EXCLUDED.outstanding_balance,
	collection_rate = EXCLUDED.collection_rate,
	updated_at = NOW()`, r.table)

	_, err := r.db.ExecContext(
		ctx,
		query,
		summary.EstateCode,
		summary.Month,
		summary.Year,
		summary.EstateID,
		summary.EstateName,
		summary.TotalPayments,
		summary.ConfirmedPayments,
		summary.PendingPayments,
		summary.TotalAmountCollected,
		summary.TotalCommissions,
		summary.PendingCommissions,
		summary.ApprovedCommissions,
		summary.PaidCommissions,
		summary.TotalCustomers,
		summary.ActiveAllocations,
		summary.CompletedAllocations,
		summary.OutstandingBalance,
		summary.CollectionRate,
	)
	return err
}

// Find loads the summary row for an estate + period.
func (r *SummaryRepository) Find(ctx context.Context, estateCode string, period billing.Period) (*billing.EstateSummary, error) {
	if err := period.Validate(); err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`
SELECT %s
FROM %s
WHERE estate_code = $1 AND month = $2 AND year = $3
LIMIT 1`, summaryColumns, r.table)

	row := r.db.QueryRowContext(ctx, query, estateCode, period.Month, period.Year)
	summary, err := scanSummary(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, billing.ErrSummaryNotFound
	}
	if err != nil {
		return nil, err
	}
	return summary, nil
}

// ListByPeriod returns all summary rows for a period ordered by estate code.
func (r *SummaryRepository) ListByPeriod(ctx context.Context, period billing.Period) ([]billing.EstateSummary, error) {
	if err := period.Validate(); err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`
SELECT %s
FROM %s
WHERE month = $1 AND year = $2
ORDER BY estate_code ASC`, summaryColumns, r.table)

	rows, err := r.db.QueryContext(ctx, query, period.Month, period.Year)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []billing.EstateSummary
	for rows.Next() {
		summary, err := scanSummary(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *summary)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

const summaryColumns = `
	estate_code,
	month,
	year,
	estate_id,
	estate_name,
	total_payments,
	confirmed_payments,
	pending_payments,
	total_amount_collected,
	total_commissions,
	pending_commissions,
	approved_commissions,
	paid_commissions,
	total_customers,
	active_allocations,
	completed_allocations,
	outstanding_balance,
	collection_rate`

func scanSummary(scanner interface{ Scan(dest ...any) error }) (*billing.EstateSummary, error) {
	var (
		summary    billing.EstateSummary
		estateID   sql.NullString
		estateName sql.NullString
	)
	if err := scanner.Scan(
		&summary.EstateCode,
		&summary.Month,
		&summary.Year,
		&estateID,
		&estateName,
		&summary.TotalPayments,
		&summary.ConfirmedPayments,
		&summary.PendingPayments,
		&summary.TotalAmountCollected,
		&summary.TotalCommissions,
		&summary.PendingCommissions,
		&summary.ApprovedCommissions,
		&summary.PaidCommissions,
		&summary.TotalCustomers,
		&summary.ActiveAllocations,
		&summary.CompletedAllocations,
		&summary.OutstandingBalance,
		&summary.CollectionRate,
	); err != nil {
		return nil, err
	}
	if estateID.Valid {
		summary.EstateID = estateID.String
	}
	if estateName.Valid {
		summary.EstateName = estateName.String
	}
	return &summary, nil
}
