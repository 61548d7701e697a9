package notify

import (
	"context"
	"time"
)

// Severity levels understood by the downstream alerting collaborator.
const (
	SeverityHigh   = "high"
	SeverityMedium = "medium"
)

// AlertMessage is the payload for a job failure alert.
type AlertMessage struct {
	JobName      string    `json:"job_name"`
	ErrorMessage string    `json:"error_message"`
	Severity     string    `json:"severity"`
	OccurredAt   time.Time `json:"occurred_at"`
}

// Notifier sends alerts to an external collaborator.
type Notifier interface {
	Notify(ctx context.Context, msg AlertMessage) error
}
