// Package apihttp serves the dashboard read API over the billing
// summary and revenue prediction stores.
package apihttp

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	billing "estate-billing/internal/billing/domain"
	forecast "estate-billing/internal/forecast/domain"
)

// SummaryReader reads stored billing summaries.
type SummaryReader interface {
	ListByPeriod(ctx context.Context, period billing.Period) ([]billing.EstateSummary, error)
}

// PredictionReader reads stored revenue predictions.
type PredictionReader interface {
	ListRecent(ctx context.Context, limit int) ([]forecast.PredictionRecord, error)
}

// SummariesHandler serves stored summary queries for a period.
type SummariesHandler struct {
	reader SummaryReader
}

// NewSummariesHandler constructs a SummariesHandler.
func NewSummariesHandler(reader SummaryReader) *SummariesHandler {
	return &SummariesHandler{reader: reader}
}

// ServeHTTP handles GET /api/v1/summaries.
func (h *SummariesHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if h == nil || h.reader == nil {
		http.Error(w, "server not ready", http.StatusServiceUnavailable)
		return
	}

	period, err := parsePeriodQuery(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	summaries, err := h.reader.ListByPeriod(r.Context(), period)
	if err != nil {
		http.Error(w, "query summaries error", http.StatusInternalServerError)
		return
	}

	if code := r.URL.Query().Get("estate_code"); code != "" {
		filtered := summaries[:0]
		for _, summary := range summaries {
			if summary.EstateCode == code {
				filtered = append(filtered, summary)
			}
		}
		summaries = filtered
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(summariesResponse{
		Period:    period.Key(),
		Count:     len(summaries),
		Summaries: summaries,
	})
}

type summariesResponse struct {
	Period    string                  `json:"period"`
	Count     int                     `json:"count"`
	Summaries []billing.EstateSummary `json:"summaries"`
}

// PredictionsHandler serves stored prediction queries.
type PredictionsHandler struct {
	reader PredictionReader
}

// NewPredictionsHandler constructs a PredictionsHandler.
func NewPredictionsHandler(reader PredictionReader) *PredictionsHandler {
	return &PredictionsHandler{reader: reader}
}

// ServeHTTP handles GET /api/v1/predictions.
func (h *PredictionsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if h == nil || h.reader == nil {
		http.Error(w, "server not ready", http.StatusServiceUnavailable)
		return
	}

	limit := 30
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > 500 {
			http.Error(w, "limit must be between 1 and 500", http.StatusBadRequest)
			return
		}
		limit = parsed
	}

	records, err := h.reader.ListRecent(r.Context(), limit)
	if err != nil {
		http.Error(w, "query predictions error", http.StatusInternalServerError)
		return
	}

	rows := make([]predictionRow, 0, len(records))
	for _, record := range records {
		rows = append(rows, newPredictionRow(record))
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(predictionsResponse{
		Count:       len(rows),
		Predictions: rows,
	})
}

type predictionsResponse struct {
	Count       int             `json:"count"`
	Predictions []predictionRow `json:"predictions"`
}

type predictionRow struct {
	PredictedMonth       string                   `json:"predicted_month"`
	PredictionDate       string                   `json:"prediction_date"`
	PredictedRevenue     float64                  `json:"predicted_revenue"`
	ConfidenceLevel      int                      `json:"confidence_level"`
	PredictionMethod     string                   `json:"prediction_method"`
	HistoricalDataPoints int                      `json:"historical_data_points"`
	AvgHistoricalRevenue float64                  `json:"avg_historical_revenue"`
	ModelParameters      forecast.ModelParameters `json:"model_parameters"`
	ActualRevenue        *float64                 `json:"actual_revenue"`
	AccuracyPct          *float64                 `json:"accuracy_pct"`
}

func newPredictionRow(record forecast.PredictionRecord) predictionRow {
	return predictionRow{
		PredictedMonth:       record.PredictedMonth.Format("2006-01-02"),
		PredictionDate:       record.PredictionDate.Format("2006-01-02"),
		PredictedRevenue:     record.PredictedRevenue,
		ConfidenceLevel:      record.ConfidenceLevel,
		PredictionMethod:     record.Method,
		HistoricalDataPoints: record.HistoricalDataPoints,
		AvgHistoricalRevenue: record.AvgHistoricalRevenue,
		ModelParameters:      record.Params,
		ActualRevenue:        record.ActualRevenue,
		AccuracyPct:          record.AccuracyPct,
	}
}

func parsePeriodQuery(r *http.Request) (billing.Period, error) {
	monthRaw := r.URL.Query().Get("month")
	yearRaw := r.URL.Query().Get("year")
	if monthRaw == "" || yearRaw == "" {
		return billing.Period{}, errors.New("month and year are required")
	}
	month, err := strconv.Atoi(monthRaw)
	if err != nil {
		return billing.Period{}, errors.New("month must be an integer")
	}
	year, err := strconv.Atoi(yearRaw)
	if err != nil {
		return billing.Period{}, errors.New("year must be an integer")
	}
	period := billing.Period{Month: month, Year: year}
	if err := period.Validate(); err != nil {
		return billing.Period{}, err
	}
	return period, nil
}
