package auth

import (
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestIngestAuthValidSignature(t *testing.T) {
	secret := []byte("feed-secret")
	mw := NewIngestAuthMiddleware(secret, 5*time.Minute)

	var seenBody string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		seenBody = string(body)
		w.WriteHeader(http.StatusOK)
	})

	body := `{"equipment_id":1,"ts":1719400000,"values":{"temperature":70}}`
	timestamp := fmt.Sprintf("%d", time.Now().Unix())
	req := httptest.NewRequest(http.MethodPost, "/ingest/telemetry", strings.NewReader(body))
	req.Header.Set("X-Ingest-Timestamp", timestamp)
	req.Header.Set("X-Ingest-Signature", computeIngestSignature(secret, timestamp, []byte(body)))

	rec := httptest.NewRecorder()
	mw.Wrap(next).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if seenBody != body {
		t.Fatalf("handler body = %q, want replayed original", seenBody)
	}
}

func TestIngestAuthRejectsBadSignature(t *testing.T) {
	mw := NewIngestAuthMiddleware([]byte("feed-secret"), 5*time.Minute)
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not run")
	})

	timestamp := fmt.Sprintf("%d", time.Now().Unix())
	req := httptest.NewRequest(http.MethodPost, "/ingest/telemetry", strings.NewReader("{}"))
	req.Header.Set("X-Ingest-Timestamp", timestamp)
	req.Header.Set("X-Ingest-Signature", "deadbeef")

	rec := httptest.NewRecorder()
	mw.Wrap(next).ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestIngestAuthRejectsStaleTimestamp(t *testing.T) {
	secret := []byte("feed-secret")
	mw := NewIngestAuthMiddleware(secret, time.Minute)
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not run")
	})

	body := "{}"
	timestamp := fmt.Sprintf("%d", time.Now().Add(-time.Hour).Unix())
	req := httptest.NewRequest(http.MethodPost, "/ingest/telemetry", strings.NewReader(body))
	req.Header.Set("X-Ingest-Timestamp", timestamp)
	req.Header.Set("X-Ingest-Signature", computeIngestSignature(secret, timestamp, []byte(body)))

	rec := httptest.NewRecorder()
	mw.Wrap(next).ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestIngestAuthRejectsMissingHeaders(t *testing.T) {
	mw := NewIngestAuthMiddleware([]byte("feed-secret"), time.Minute)
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not run")
	})

	req := httptest.NewRequest(http.MethodPost, "/ingest/telemetry", strings.NewReader("{}"))
	rec := httptest.NewRecorder()
	mw.Wrap(next).ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}
