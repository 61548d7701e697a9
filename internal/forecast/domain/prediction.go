package forecast

import (
	"context"
	"math"
	"time"
)

// Prediction is one forward month emitted by a forecast run.
type Prediction struct {
	PredictedMonth   time.Time
	PredictedRevenue float64
	ConfidenceLevel  int
	Params           ModelParameters
}

// PredictionRecord is the persisted shape, keyed by
// (predicted_month, prediction_date). Re-running a forecast on the same
// calendar day overwrites that day's row; runs on other days keep their own
// rows as a forecast-over-time audit trail. Reconciliation fills
// ActualRevenue and AccuracyPct later and never touches PredictedRevenue.
type PredictionRecord struct {
	PredictedMonth       time.Time
	PredictionDate       time.Time
	PredictedRevenue     float64
	ConfidenceLevel      int
	Method               string
	HistoricalDataPoints int
	AvgHistoricalRevenue float64
	Params               ModelParameters

	ActualRevenue *float64
	AccuracyPct   *float64
}

// Reconciled reports whether the record has been compared to an actual.
func (r PredictionRecord) Reconciled() bool {
	return r.ActualRevenue != nil && r.AccuracyPct != nil
}

// Reconcile computes the accuracy of the record against the actual monthly
// revenue and fills the actual/accuracy fields. Zero actual revenue is
// treated as absent.
func (r *PredictionRecord) Reconcile(actual float64) error {
	if actual <= 0 {
		return ErrNoActualRevenue
	}
	accuracy := 100 - math.Abs(actual-r.PredictedRevenue)/actual*100
	if accuracy < 0 {
		accuracy = 0
	}
	if accuracy > 100 {
		accuracy = 100
	}
	accuracy = round2(accuracy)
	r.ActualRevenue = &actual
	r.AccuracyPct = &accuracy
	return nil
}

// TrendReader returns the ascending monthly revenue series used as
// forecasting input. The read is a pure query with no cursor state.
type TrendReader interface {
	ListMonthlyRevenue(ctx context.Context, limit int) ([]RevenuePoint, error)
}

// PredictionRepository persists prediction rows. Upsert must be atomic on
// the (predicted_month, prediction_date) key.
type PredictionRepository interface {
	Upsert(ctx context.Context, record PredictionRecord) error
	ListUnreconciled(ctx context.Context) ([]PredictionRecord, error)
	UpdateAccuracy(ctx context.Context, record PredictionRecord) error
}
