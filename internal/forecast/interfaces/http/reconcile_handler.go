package http

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"estate-billing/internal/forecast/application"
	"estate-billing/internal/observability/metrics"
)

// ReconcileHandler triggers an accuracy pass over stored predictions.
type ReconcileHandler struct {
	reconciler *application.Reconciler
	logger     *log.Logger
}

// NewReconcileHandler constructs the handler.
func NewReconcileHandler(reconciler *application.Reconciler, logger *log.Logger) (*ReconcileHandler, error) {
	if reconciler == nil {
		return nil, errors.New("reconcile handler: nil reconciler")
	}
	if logger == nil {
		logger = log.Default()
	}
	return &ReconcileHandler{reconciler: reconciler, logger: logger}, nil
}

type reconcileResponse struct {
	Success    bool   `json:"success"`
	Examined   int    `json:"examined"`
	Reconciled int    `json:"reconciled"`
	Skipped    int    `json:"skipped"`
	Error      string `json:"error,omitempty"`
}

// ServeHTTP handles the reconcile trigger.
func (h *ReconcileHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost && r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	result, err := h.reconciler.Run(r.Context())
	if err != nil {
		metrics.ObserveReconcileRun(metrics.ResultError, 0)
		h.logger.Printf("reconcile run error: %v", err)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_ = json.NewEncoder(w).Encode(reconcileResponse{Success: false, Error: err.Error()})
		return
	}
	metrics.ObserveReconcileRun(metrics.ResultSuccess, result.Reconciled)

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(reconcileResponse{
		Success:    true,
		Examined:   result.Examined,
		Reconciled: result.Reconciled,
		Skipped:    result.Skipped,
	})
}
