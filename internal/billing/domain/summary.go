package billing

import (
	"context"
	"math"
)

// EstateSummary is one monthly metrics row per estate. The persistence
// unique key is estate_code + month + year.
type EstateSummary struct {
	EstateID   string `json:"estate_id"`
	EstateCode string `json:"estate_code"`
	EstateName string `json:"estate_name"`
	Month      int    `json:"-"`
	Year       int    `json:"-"`

	TotalPayments        int     `json:"total_payments"`
	ConfirmedPayments    int     `json:"confirmed_payments"`
	PendingPayments      int     `json:"pending_payments"`
	TotalAmountCollected float64 `json:"total_amount_collected"`

	TotalCommissions    float64 `json:"total_commissions"`
	PendingCommissions  float64 `json:"pending_commissions"`
	ApprovedCommissions float64 `json:"approved_commissions"`
	PaidCommissions     float64 `json:"paid_commissions"`

	TotalCustomers       int     `json:"total_customers"`
	ActiveAllocations    int     `json:"active_allocations"`
	CompletedAllocations int     `json:"completed_allocations"`
	OutstandingBalance   float64 `json:"outstanding_balance"`
	CollectionRate       float64 `json:"collection_rate"`
}

// Period returns the summary's billing period.
func (s EstateSummary) Period() Period {
	return Period{Month: s.Month, Year: s.Year}
}

// Validate enforces that monetary and count metrics are non-negative.
func (s EstateSummary) Validate() error {
	if s.TotalPayments < 0 || s.ConfirmedPayments < 0 || s.PendingPayments < 0 ||
		s.TotalCustomers < 0 || s.ActiveAllocations < 0 || s.CompletedAllocations < 0 {
		return ErrNegativeMetric
	}
	if s.TotalAmountCollected < 0 || s.TotalCommissions < 0 || s.PendingCommissions < 0 ||
		s.ApprovedCommissions < 0 || s.PaidCommissions < 0 || s.OutstandingBalance < 0 ||
		s.CollectionRate < 0 {
		return ErrNegativeMetric
	}
	return s.Period().Validate()
}

// BuildEstateSummary computes the monthly metrics row for one estate from
// already-fetched upstream rows. Payments are expected month-scoped,
// allocations estate-scoped but not month-scoped, commissions month-scoped
// and restricted to the estate's agents.
func BuildEstateSummary(estate Estate, period Period, payments []Payment, allocations []Allocation, commissions []Commission) EstateSummary {
	summary := EstateSummary{
		EstateID:   estate.ID,
		EstateCode: estate.Code,
		EstateName: estate.Name,
		Month:      period.Month,
		Year:       period.Year,
	}

	for _, payment := range payments {
		summary.TotalPayments++
		switch payment.Status {
		case PaymentStatusConfirmed:
			summary.ConfirmedPayments++
			summary.TotalAmountCollected += payment.Amount
		case PaymentStatusPending:
			summary.PendingPayments++
		}
	}

	var expectedAmount float64
	customers := make(map[string]struct{}, len(allocations))
	for _, allocation := range allocations {
		if allocation.CustomerID != "" {
			customers[allocation.CustomerID] = struct{}{}
		}
		switch allocation.Status {
		case AllocationStatusActive:
			summary.ActiveAllocations++
			summary.OutstandingBalance += allocation.Balance
			expectedAmount += allocation.TotalAmount
		case AllocationStatusCompleted:
			summary.CompletedAllocations++
		}
	}
	summary.TotalCustomers = len(customers)

	for _, commission := range commissions {
		summary.TotalCommissions += commission.Amount
		switch commission.Status {
		case CommissionStatusPending:
			summary.PendingCommissions += commission.Amount
		case CommissionStatusApproved:
			summary.ApprovedCommissions += commission.Amount
		case CommissionStatusPaid:
			summary.PaidCommissions += commission.Amount
		}
	}

	// Expected amount of zero means no active plan value to collect against;
	// the rate is defined as zero, never a division by zero.
	if expectedAmount > 0 {
		summary.CollectionRate = Round2(summary.TotalAmountCollected / expectedAmount * 100)
	}

	return summary
}

// AgentIDs returns the distinct non-empty agent ids owning allocations.
func AgentIDs(allocations []Allocation) []string {
	seen := make(map[string]struct{}, len(allocations))
	var ids []string
	for _, allocation := range allocations {
		if allocation.AgentID == "" {
			continue
		}
		if _, ok := seen[allocation.AgentID]; ok {
			continue
		}
		seen[allocation.AgentID] = struct{}{}
		ids = append(ids, allocation.AgentID)
	}
	return ids
}

// Round2 rounds to two decimal places.
func Round2(value float64) float64 {
	return math.Round(value*100) / 100
}

// SourceGateway is read-only access to the upstream relational store.
type SourceGateway interface {
	ListActiveEstates(ctx context.Context) ([]Estate, error)
	ListEstatePayments(ctx context.Context, estateCode string, period Period) ([]Payment, error)
	ListEstateAllocations(ctx context.Context, estateCode string) ([]Allocation, error)
	ListEstateCommissions(ctx context.Context, estateCode string, agentIDs []string, period Period) ([]Commission, error)
}

// SummaryRepository persists computed summaries. Upsert must be atomic on
// the (estate_code, month, year) key so that overlapping runs for the same
// period cannot race into duplicate rows.
type SummaryRepository interface {
	Upsert(ctx context.Context, summary EstateSummary) error
	Find(ctx context.Context, estateCode string, period Period) (*EstateSummary, error)
	ListByPeriod(ctx context.Context, period Period) ([]EstateSummary, error)
}
