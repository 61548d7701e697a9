package billing

import (
	"fmt"
	"time"
)

// Estate is a read-only master-data record from the upstream store.
type Estate struct {
	ID     string
	Code   string
	Name   string
	Status string
}

// EstateStatusActive marks estates eligible for aggregation.
const EstateStatusActive = "active"

// Payment statuses as stored upstream.
const (
	PaymentStatusConfirmed = "confirmed"
	PaymentStatusPending   = "pending"
)

// Allocation statuses as stored upstream.
const (
	AllocationStatusActive    = "active"
	AllocationStatusCompleted = "completed"
)

// Commission statuses as stored upstream.
const (
	CommissionStatusPending  = "pending"
	CommissionStatusApproved = "approved"
	CommissionStatusPaid     = "paid"
)

// Payment is a single payment row joined to an estate via its allocation's plot.
type Payment struct {
	ID           string
	AllocationID string
	Amount       float64
	Status       string
	PaymentDate  time.Time
}

// Allocation assigns a plot to a customer under a payment plan.
type Allocation struct {
	ID          string
	CustomerID  string
	PlotID      string
	AgentID     string
	TotalAmount float64
	Balance     float64
	Status      string
}

// Commission is an agent commission row.
type Commission struct {
	AgentID   string
	Amount    float64
	Status    string
	CreatedAt time.Time
}

// Period identifies one calendar month.
type Period struct {
	Month int
	Year  int
}

// Validate checks month and year ranges.
func (p Period) Validate() error {
	if p.Month < 1 || p.Month > 12 {
		return ErrInvalidMonth
	}
	if p.Year < 2000 || p.Year > 2200 {
		return ErrInvalidYear
	}
	return nil
}

// Key renders the period as "YYYY-MM".
func (p Period) Key() string {
	return fmt.Sprintf("%04d-%02d", p.Year, p.Month)
}

// Start returns the first instant of the month in UTC.
func (p Period) Start() time.Time {
	return time.Date(p.Year, time.Month(p.Month), 1, 0, 0, 0, 0, time.UTC)
}

// End returns the first instant of the following month in UTC.
func (p Period) End() time.Time {
	return p.Start().AddDate(0, 1, 0)
}

// Contains reports whether t falls inside the calendar month.
func (p Period) Contains(t time.Time) bool {
	t = t.UTC()
	return !t.Before(p.Start()) && t.Before(p.End())
}

// PeriodOf returns the period containing t.
func PeriodOf(t time.Time) Period {
	t = t.UTC()
	return Period{Month: int(t.Month()), Year: t.Year()}
}
