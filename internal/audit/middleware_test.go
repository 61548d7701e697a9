package audit

import (
	"context"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"estate-billing/internal/auth"
)

type stubLogger struct {
	entries []Entry
}

func (s *stubLogger) Log(_ context.Context, entry Entry) error {
	s.entries = append(s.entries, entry)
	return nil
}

func TestAuditRecordsMutations(t *testing.T) {
	logger := &stubLogger{}
	mw := NewMiddleware(logger, log.New(&strings.Builder{}, "", 0))
	handler := mw.Wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/billing/generate", nil)
	req = req.WithContext(auth.WithIdentity(req.Context(), auth.RoleOperator, "user-7"))
	req.Header.Set("X-Forwarded-For", "10.1.2.3, 10.0.0.1")
	handler.ServeHTTP(httptest.NewRecorder(), req)

	if len(logger.entries) != 1 {
		t.Fatalf("entries = %d, want 1", len(logger.entries))
	}
	entry := logger.entries[0]
	if entry.Action != "billing.generate" {
		t.Fatalf("action = %q", entry.Action)
	}
	if entry.Actor != "user-7" || entry.Role != "operator" {
		t.Fatalf("identity = %q/%q", entry.Actor, entry.Role)
	}
	if entry.Status != http.StatusCreated {
		t.Fatalf("status = %d", entry.Status)
	}
	if entry.IP != "10.1.2.3" {
		t.Fatalf("ip = %q", entry.IP)
	}
}

func TestAuditRecordsTriggersFiredAsGet(t *testing.T) {
	logger := &stubLogger{}
	mw := NewMiddleware(logger, log.New(&strings.Builder{}, "", 0))
	handler := mw.Wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	for _, path := range []string{
		"/api/v1/billing/generate",
		"/api/v1/forecast/predict",
		"/api/v1/forecast/reconcile",
	} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		req = req.WithContext(auth.WithIdentity(req.Context(), auth.RoleOperator, "scheduler"))
		handler.ServeHTTP(httptest.NewRecorder(), req)
	}

	if len(logger.entries) != 3 {
		t.Fatalf("entries = %d, want 3", len(logger.entries))
	}
	if logger.entries[1].Action != "forecast.predict" {
		t.Fatalf("action = %q", logger.entries[1].Action)
	}
}

func TestAuditSkipsReads(t *testing.T) {
	logger := &stubLogger{}
	mw := NewMiddleware(logger, log.New(&strings.Builder{}, "", 0))
	handler := mw.Wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/v1/summaries?month=5&year=2026", nil))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if len(logger.entries) != 0 {
		t.Fatalf("entries = %d, want 0", len(logger.entries))
	}
}
