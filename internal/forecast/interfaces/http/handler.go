// Package http exposes the forecast trigger endpoint.
package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"estate-billing/internal/forecast/application"
	forecast "estate-billing/internal/forecast/domain"
	"estate-billing/internal/observability/metrics"
)

// PredictHandler triggers a forecast run. POST and GET behave the same;
// the run has no request parameters beyond its configuration.
type PredictHandler struct {
	service *application.ForecastService
	logger  *log.Logger
}

// NewPredictHandler constructs the handler.
func NewPredictHandler(service *application.ForecastService, logger *log.Logger) (*PredictHandler, error) {
	if service == nil {
		return nil, errors.New("forecast handler: nil service")
	}
	if logger == nil {
		logger = log.Default()
	}
	return &PredictHandler{service: service, logger: logger}, nil
}

type predictionPayload struct {
	PredictedMonth       string                   `json:"predicted_month"`
	PredictedRevenue     float64                  `json:"predicted_revenue"`
	ConfidenceLevel      int                      `json:"confidence_level"`
	PredictionMethod     string                   `json:"prediction_method"`
	HistoricalDataPoints int                      `json:"historical_data_points"`
	AvgHistoricalRevenue float64                  `json:"avg_historical_revenue"`
	ModelParameters      forecast.ModelParameters `json:"model_parameters"`
}

type predictResponse struct {
	Success     bool                     `json:"success"`
	Predictions []predictionPayload      `json:"predictions,omitempty"`
	Model       *application.ModelReport `json:"model,omitempty"`
	Message     string                   `json:"message,omitempty"`
	Error       string                   `json:"error,omitempty"`
}

// ServeHTTP handles the forecast trigger.
func (h *PredictHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost && r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	start := time.Now()
	result, err := h.service.Run(r.Context())
	if err != nil {
		metrics.ObserveForecastRun(metrics.ResultError, time.Since(start), 0)
		h.logger.Printf("forecast run error: %v", err)
		status := http.StatusInternalServerError
		if errors.Is(err, forecast.ErrInsufficientHistory) {
			status = http.StatusUnprocessableEntity
		}
		writePredictError(w, status, err.Error())
		return
	}
	metrics.ObserveForecastRun(metrics.ResultSuccess, time.Since(start), len(result.Predictions))

	payload := make([]predictionPayload, 0, len(result.Predictions))
	for _, record := range result.Predictions {
		payload = append(payload, predictionPayload{
			PredictedMonth:       record.PredictedMonth.Format("2006-01-02"),
			PredictedRevenue:     record.PredictedRevenue,
			ConfidenceLevel:      record.ConfidenceLevel,
			PredictionMethod:     record.Method,
			HistoricalDataPoints: record.HistoricalDataPoints,
			AvgHistoricalRevenue: record.AvgHistoricalRevenue,
			ModelParameters:      record.Params,
		})
	}

	model := result.Model
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(predictResponse{
		Success:     true,
		Predictions: payload,
		Model:       &model,
		Message:     fmt.Sprintf("Generated %d revenue predictions", len(payload)),
	})
}

func writePredictError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(predictResponse{Success: false, Error: msg})
}
