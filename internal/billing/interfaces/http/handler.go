package http

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"estate-billing/internal/billing/application"
	billing "estate-billing/internal/billing/domain"
	"estate-billing/internal/observability/metrics"
)

// GenerateHandler triggers billing summary aggregation. POST carries an
// explicit period request; GET runs the scheduled default (current month).
type GenerateHandler struct {
	service *application.SummaryService
	logger  *log.Logger
}

// NewGenerateHandler constructs the handler.
func NewGenerateHandler(service *application.SummaryService, logger *log.Logger) (*GenerateHandler, error) {
	if service == nil {
		return nil, errors.New("billing handler: nil service")
	}
	if logger == nil {
		logger = log.Default()
	}
	return &GenerateHandler{service: service, logger: logger}, nil
}

type generateRequestBody struct {
	Month           int    `json:"month"`
	Year            int    `json:"year"`
	EstateCode      string `json:"estate_code"`
	ForceRegenerate bool   `json:"force_regenerate"`
}

type generateResponse struct {
	Success          bool                    `json:"success"`
	Period           string                  `json:"period,omitempty"`
	EstatesProcessed int                     `json:"estates_processed,omitempty"`
	Totals           *application.Totals     `json:"totals,omitempty"`
	Summaries        []billing.EstateSummary `json:"summaries,omitempty"`
	Errors           []string                `json:"errors,omitempty"`
	GeneratedAt      string                  `json:"generated_at,omitempty"`
	Error            string                  `json:"error,omitempty"`
}

// ServeHTTP handles the aggregation trigger.
func (h *GenerateHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req application.GenerateRequest

	switch r.Method {
	case http.MethodPost:
		var body generateRequestBody
		if r.Body != nil {
			if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
				writeGenerateError(w, http.StatusBadRequest, "invalid json body")
				return
			}
		}
		req = application.GenerateRequest{
			Month:           body.Month,
			Year:            body.Year,
			EstateCode:      body.EstateCode,
			ForceRegenerate: body.ForceRegenerate,
		}
	case http.MethodGet:
		// Scheduled default: current month, all estates.
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	start := time.Now()
	result, err := h.service.Generate(r.Context(), req)
	if err != nil {
		metrics.ObserveBillingRun(metrics.ResultError, time.Since(start), 0, 0)
		h.logger.Printf("billing generate error: %v", err)
		status := http.StatusInternalServerError
		if errors.Is(err, billing.ErrInvalidMonth) || errors.Is(err, billing.ErrInvalidYear) {
			status = http.StatusBadRequest
		}
		if errors.Is(err, billing.ErrNoActiveEstates) {
			status = http.StatusNotFound
		}
		writeGenerateError(w, status, err.Error())
		return
	}

	runResult := metrics.ResultSuccess
	if len(result.Errors) > 0 {
		runResult = metrics.ResultPartial
	}
	metrics.ObserveBillingRun(runResult, time.Since(start), result.EstatesProcessed, len(result.Errors))

	totals := result.Totals
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(generateResponse{
		Success:          true,
		Period:           result.Period.Key(),
		EstatesProcessed: result.EstatesProcessed,
		Totals:           &totals,
		Summaries:        result.Summaries,
		Errors:           result.Errors,
		GeneratedAt:      result.GeneratedAt.UTC().Format(time.RFC3339),
	})
}

func writeGenerateError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(generateResponse{Success: false, Error: msg})
}
