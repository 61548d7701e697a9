package forecast

import "errors"

var (
	// ErrInsufficientHistory is returned when fewer than MinHistoryPoints
	// closed months are available.
	ErrInsufficientHistory = errors.New("forecast: insufficient historical data (minimum 3 months required)")
	// ErrUnorderedSeries is returned when the revenue series is not in
	// ascending month order.
	ErrUnorderedSeries = errors.New("forecast: revenue series not in ascending order")
	// ErrInvalidHorizon is returned for a non-positive forecast horizon.
	ErrInvalidHorizon = errors.New("forecast: invalid horizon")
	// ErrPredictionNotFound is returned when a prediction row does not exist.
	ErrPredictionNotFound = errors.New("forecast: prediction not found")
	// ErrNoActualRevenue marks a predicted month with no closed actual yet.
	ErrNoActualRevenue = errors.New("forecast: no actual revenue for predicted month")
)
