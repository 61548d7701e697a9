package billing

import "errors"

var (
	// ErrInvalidMonth is returned when the requested month is outside 1-12.
	ErrInvalidMonth = errors.New("billing: invalid month")
	// ErrInvalidYear is returned when the requested year is implausible.
	ErrInvalidYear = errors.New("billing: invalid year")
	// ErrNoActiveEstates is returned when no estate matches the request.
	ErrNoActiveEstates = errors.New("billing: no active estates found")
	// ErrNegativeMetric guards summary invariants.
	ErrNegativeMetric = errors.New("billing: negative summary metric")
	// ErrSummaryNotFound is returned when a summary row does not exist.
	ErrSummaryNotFound = errors.New("billing: summary not found")
)
