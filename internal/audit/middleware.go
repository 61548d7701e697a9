package audit

import (
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"time"

	"estate-billing/internal/auth"
)

// Middleware records mutating API requests after they complete. Reads are
// not audited.
type Middleware struct {
	logger   Logger
	errorLog *log.Logger
}

// NewMiddleware constructs an audit middleware. A nil logger disables
// auditing.
func NewMiddleware(logger Logger, errorLog *log.Logger) *Middleware {
	if errorLog == nil {
		errorLog = log.Default()
	}
	return &Middleware{logger: logger, errorLog: errorLog}
}

// Wrap applies audit recording to the handler.
func (m *Middleware) Wrap(next http.Handler) http.Handler {
	if m == nil || m.logger == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !auditable(r) {
			next.ServeHTTP(w, r)
			return
		}

		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(recorder, r)

		metadata, _ := json.Marshal(map[string]any{
			"method": r.Method,
			"query":  r.URL.RawQuery,
		})
		entry := Entry{
			Actor:     auth.SubjectFromContext(r.Context()),
			Role:      string(auth.RoleFromContext(r.Context())),
			Action:    actionFor(r),
			Path:      r.URL.Path,
			Status:    recorder.status,
			Metadata:  metadata,
			IP:        clientIP(r),
			UserAgent: r.UserAgent(),
			CreatedAt: time.Now().UTC(),
		}
		if err := m.logger.Log(r.Context(), entry); err != nil {
			m.errorLog.Printf("audit log error: %v", err)
		}
	})
}

// The run triggers mutate state even when fired as GET, so they are audited
// regardless of method.
var triggerPaths = map[string]struct{}{
	"/api/v1/billing/generate":   {},
	"/api/v1/forecast/predict":   {},
	"/api/v1/forecast/reconcile": {},
}

func auditable(r *http.Request) bool {
	if r == nil || !strings.HasPrefix(r.URL.Path, "/api/") {
		return false
	}
	if _, ok := triggerPaths[r.URL.Path]; ok {
		return true
	}
	switch r.Method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	default:
		return false
	}
}

func actionFor(r *http.Request) string {
	trimmed := strings.TrimPrefix(r.URL.Path, "/api/v1/")
	return strings.ReplaceAll(trimmed, "/", ".")
}

func clientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		parts := strings.Split(forwarded, ",")
		return strings.TrimSpace(parts[0])
	}
	host := r.RemoteAddr
	if idx := strings.LastIndex(host, ":"); idx > 0 {
		host = host[:idx]
	}
	return host
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (w *statusRecorder) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}
