package notify

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestWebhookNotifierPayload(t *testing.T) {
	payloadCh := make(chan AlertMessage, 1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		var msg AlertMessage
		if err := json.Unmarshal(body, &msg); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		payloadCh <- msg
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	notifier := NewWebhookNotifier(server.URL)
	err := notifier.Notify(context.Background(), AlertMessage{
		JobName:      "predict-trends",
		ErrorMessage: "insufficient historical data",
		Severity:     SeverityHigh,
	})
	if err != nil {
		t.Fatalf("notify: %v", err)
	}

	select {
	case msg := <-payloadCh:
		if msg.JobName != "predict-trends" || msg.Severity != SeverityHigh {
			t.Fatalf("unexpected payload: %+v", msg)
		}
		if msg.OccurredAt.IsZero() {
			t.Fatal("occurred_at must be filled")
		}
	case <-time.After(time.Second):
		t.Fatal("no payload received")
	}
}

func TestWebhookNotifierNon2xx(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	notifier := NewWebhookNotifier(server.URL)
	if err := notifier.Notify(context.Background(), AlertMessage{JobName: "predict-trends"}); err == nil {
		t.Fatal("expected error on non-2xx response")
	}
}

func TestWebhookNotifierEmptyURL(t *testing.T) {
	notifier := NewWebhookNotifier("")
	if err := notifier.Notify(context.Background(), AlertMessage{}); err == nil {
		t.Fatal("expected error on empty url")
	}
}
