package forecast

import (
	"math"
	"time"
)

// MinHistoryPoints is the minimum series length the model accepts.
const MinHistoryPoints = 3

// DefaultHorizonMonths is the number of forward months predicted per run.
const DefaultHorizonMonths = 3

// MethodLinearRegression names the only supported trend model.
const MethodLinearRegression = "linear_regression"

// RevenuePoint is one closed month of total revenue.
type RevenuePoint struct {
	Month        time.Time
	TotalRevenue float64
}

// ModelParameters describe a fitted linear trend.
type ModelParameters struct {
	Slope     float64 `json:"slope"`
	Intercept float64 `json:"intercept"`
	RSquared  float64 `json:"r_squared"`
}

// TrendModel is the result of fitting the revenue series.
type TrendModel struct {
	Params          ModelParameters
	DataPoints      int
	AvgRevenue      float64
	ConfidenceLevel int
	LastMonth       time.Time
}

// FitTrend fits an ordinary least-squares line over the series with
// x = 0..n-1. The series must be ascending by month.
func FitTrend(series []RevenuePoint) (*TrendModel, error) {
	n := len(series)
	if n < MinHistoryPoints {
		return nil, ErrInsufficientHistory
	}
	for i := 1; i < n; i++ {
		if !series[i].Month.After(series[i-1].Month) {
			return nil, ErrUnorderedSeries
		}
	}

	var sumX, sumY, sumXY, sumX2 float64
	for i, point := range series {
		x := float64(i)
		y := point.TotalRevenue
		sumX += x
		sumY += y
		sumXY += x * y
		sumX2 += x * x
	}

	fn := float64(n)
	slope := (fn*sumXY - sumX*sumY) / (fn*sumX2 - sumX*sumX)
	intercept := (sumY - slope*sumX) / fn

	meanY := sumY / fn
	var ssTotal, ssResidual float64
	for i, point := range series {
		predicted := slope*float64(i) + intercept
		ssTotal += math.Pow(point.TotalRevenue-meanY, 2)
		ssResidual += math.Pow(point.TotalRevenue-predicted, 2)
	}

	// A flat series leaves nothing for the model to explain; treat the
	// degenerate fit as perfect instead of dividing by zero.
	rSquared := 1.0
	if ssTotal > 0 {
		rSquared = 1 - ssResidual/ssTotal
	}

	return &TrendModel{
		Params: ModelParameters{
			Slope:     slope,
			Intercept: intercept,
			RSquared:  rSquared,
		},
		DataPoints:      n,
		AvgRevenue:      meanY,
		ConfidenceLevel: ConfidenceLevel(rSquared, n),
		LastMonth:       series[n-1].Month,
	}, nil
}

// ConfidenceLevel blends fit quality (up to 70 points) with sample depth
// (up to 30 points) into a 0-100 dashboard score. The weighting is a
// heuristic carried over unchanged from the prior reporting pipeline.
func ConfidenceLevel(rSquared float64, dataPoints int) int {
	base := math.Max(0, math.Min(70, rSquared*70))
	depth := math.Min(30, float64(dataPoints)/12*30)
	score := int(math.Round(base + depth))
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

// Predict emits horizon forward months. Predicted revenue is floored at
// zero; a downward trend never yields a negative prediction.
func (m *TrendModel) Predict(horizon int) ([]Prediction, error) {
	if horizon <= 0 {
		return nil, ErrInvalidHorizon
	}

	predictions := make([]Prediction, 0, horizon)
	for i := 0; i < horizon; i++ {
		x := float64(m.DataPoints + i)
		value := m.Params.Slope*x + m.Params.Intercept
		value = math.Max(0, round2(value))

		predictions = append(predictions, Prediction{
			PredictedMonth:   monthStart(m.LastMonth.AddDate(0, i+1, 0)),
			PredictedRevenue: value,
			ConfidenceLevel:  m.ConfidenceLevel,
			Params: ModelParameters{
				Slope:     round2(m.Params.Slope),
				Intercept: round2(m.Params.Intercept),
				RSquared:  round3(m.Params.RSquared),
			},
		})
	}
	return predictions, nil
}

func monthStart(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

func round2(value float64) float64 {
	return math.Round(value*100) / 100
}

func round3(value float64) float64 {
	return math.Round(value*1000) / 1000
}
