package postgres

import (
	"context"
	"database/sql"

	billing "estate-billing/internal/billing/domain"
)

// SourceGateway reads estates, payments, allocations and commissions from
// the upstream relational store. All queries are read-only; estate
// membership is resolved through the allocation's plot.
type SourceGateway struct {
	db *sql.DB
}

// NewSourceGateway constructs a gateway.
func NewSourceGateway(db *sql.DB) *SourceGateway {
	return &SourceGateway{db: db}
}

// ListActiveEstates returns estates with active status.
func (g *SourceGateway) ListActiveEstates(ctx context.Context) ([]billing.Estate, error) {
	rows, err := g.db.QueryContext(ctx, `
SELECT id, estate_code, estate_name, status
FROM estates
WHERE status = $1
ORDER BY estate_code ASC`, billing.EstateStatusActive)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var estates []billing.Estate
	for rows.Next() {
		var estate billing.Estate
		if err := rows.Scan(&estate.ID, &estate.Code, &estate.Name, &estate.Status); err != nil {
			return nil, err
		}
		estates = append(estates, estate)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return estates, nil
}

// ListEstatePayments returns payments dated within the calendar month whose
// allocation's plot belongs to the estate.
func (g *SourceGateway) ListEstatePayments(ctx context.Context, estateCode string, period billing.Period) ([]billing.Payment, error) {
	rows, err := g.db.QueryContext(ctx, `
SELECT p.id, p.allocation_id, p.amount, p.status, p.payment_date
FROM payments p
JOIN allocations a ON a.id = p.allocation_id
JOIN plots pl ON pl.id = a.plot_id
WHERE pl.estate_code = $1
	AND p.payment_date >= $2
	AND p.payment_date < $3
ORDER BY p.payment_date ASC`, estateCode, period.Start(), period.End())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var payments []billing.Payment
	for rows.Next() {
		var payment billing.Payment
		if err := rows.Scan(&payment.ID, &payment.AllocationID, &payment.Amount, &payment.Status, &payment.PaymentDate); err != nil {
			return nil, err
		}
		payment.PaymentDate = payment.PaymentDate.UTC()
		payments = append(payments, payment)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return payments, nil
}

// ListEstateAllocations returns every allocation whose plot belongs to the
// estate, regardless of period.
func (g *SourceGateway) ListEstateAllocations(ctx context.Context, estateCode string) ([]billing.Allocation, error) {
	rows, err := g.db.QueryContext(ctx, `
SELECT a.id, a.customer_id, a.plot_id, COALESCE(a.agent_id, ''), a.total_amount, a.balance, a.status
FROM allocations a
JOIN plots pl ON pl.id = a.plot_id
WHERE pl.estate_code = $1
ORDER BY a.id ASC`, estateCode)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var allocations []billing.Allocation
	for rows.Next() {
		var allocation billing.Allocation
		if err := rows.Scan(
			&allocation.ID,
			&allocation.CustomerID,
			&allocation.PlotID,
			&allocation.AgentID,
			&allocation.TotalAmount,
			&allocation.Balance,
			&allocation.Status,
		); err != nil {
			return nil, err
		}
		allocations = append(allocations, allocation)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return allocations, nil
}

// ListEstateCommissions returns commissions created within the month for the
// given agents, restricted to allocations in the estate.
func (g *SourceGateway) ListEstateCommissions(ctx context.Context, estateCode string, agentIDs []string, period billing.Period) ([]billing.Commission, error) {
	if len(agentIDs) == 0 {
		return nil, nil
	}
	rows, err := g.db.QueryContext(ctx, `
SELECT c.agent_id, c.commission_amount, c.status, c.created_at
FROM commissions c
JOIN allocations a ON a.id = c.allocation_id
JOIN plots pl ON pl.id = a.plot_id
WHERE pl.estate_code = $1
	AND c.agent_id = ANY($2)
	AND c.created_at >= $3
	AND c.created_at < $4
ORDER BY c.created_at ASC`, estateCode, agentIDs, period.Start(), period.End())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var commissions []billing.Commission
	for rows.Next() {
		var commission billing.Commission
		if err := rows.Scan(&commission.AgentID, &commission.Amount, &commission.Status, &commission.CreatedAt); err != nil {
			return nil, err
		}
		commission.CreatedAt = commission.CreatedAt.UTC()
		commissions = append(commissions, commission)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return commissions, nil
}
