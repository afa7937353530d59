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
	payloadCh := make(chan webhookPayload, 1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		var payload webhookPayload
		if err := json.Unmarshal(body, &payload); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		payloadCh <- payload
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	notifier, err := NewWebhookNotifier(server.URL, nil)
	if err != nil {
		t.Fatalf("new webhook notifier: %v", err)
	}

	message := Message{
		Type:        "alert",
		EquipmentID: 12,
		Severity:    "critical",
		Title:       "temperature Critical Threshold Exceeded",
		At:          time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC),
	}
	notifier.BroadcastToEquipment(context.Background(), 12, message)

	select {
	case payload := <-payloadCh:
		if payload.Scope != "equipment" {
			t.Fatalf("expected equipment scope, got %s", payload.Scope)
		}
		if payload.EquipmentID != 12 {
			t.Fatalf("expected equipment id 12, got %d", payload.EquipmentID)
		}
		if payload.Message.Title != message.Title {
			t.Fatalf("unexpected title %q", payload.Message.Title)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for webhook payload")
	}
}

func TestWebhookNotifierRejectsInvalidURL(t *testing.T) {
	if _, err := NewWebhookNotifier("", nil); err == nil {
		t.Fatal("expected error for empty url")
	}
	if _, err := NewWebhookNotifier("not-a-url", nil); err == nil {
		t.Fatal("expected error for invalid url")
	}
}
