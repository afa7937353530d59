package auth

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
)

const (
	headerIngestTimestamp = "X-Ingest-Timestamp"
	headerIngestSignature = "X-Ingest-Signature"
)

// IngestAuthMiddleware authenticates gateway sensor feeds. Gateways sign each
// request with HMAC-SHA256 over "<unix-timestamp>\n<body>" using a shared
// secret, so feeds need no JWT and replays outside the skew window are
// rejected.
type IngestAuthMiddleware struct {
	secret  []byte
	maxSkew time.Duration
}

// NewIngestAuthMiddleware constructs ingest auth middleware.
func NewIngestAuthMiddleware(secret []byte, maxSkew time.Duration) *IngestAuthMiddleware {
	return &IngestAuthMiddleware{secret: secret, maxSkew: maxSkew}
}

// Wrap enforces signature validation and replays the body to the next handler.
func (m *IngestAuthMiddleware) Wrap(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, "read body error", http.StatusBadRequest)
			return
		}
		_ = r.Body.Close()

		if err := m.verify(r, body); err != nil {
			http.Error(w, err.Error(), http.StatusUnauthorized)
			return
		}

		r.Body = io.NopCloser(bytes.NewReader(body))
		next.ServeHTTP(w, r)
	})
}

func (m *IngestAuthMiddleware) verify(r *http.Request, body []byte) error {
	if len(m.secret) == 0 {
		return errors.New("ingest auth not configured")
	}
	timestamp := strings.TrimSpace(r.Header.Get(headerIngestTimestamp))
	signature := strings.TrimSpace(r.Header.Get(headerIngestSignature))
	if timestamp == "" || signature == "" {
		return errors.New("missing ingest signature")
	}

	ts, err := strconv.ParseInt(timestamp, 10, 64)
	if err != nil {
		return errors.New("invalid ingest timestamp")
	}
	if m.maxSkew > 0 {
		skew := time.Since(time.Unix(ts, 0))
		if skew < 0 {
			skew = -skew
		}
		if skew > m.maxSkew {
			return errors.New("ingest signature expired")
		}
	}

	expected := computeIngestSignature(m.secret, timestamp, body)
	if !hmac.Equal([]byte(strings.ToLower(signature)), []byte(expected)) {
		return errors.New("invalid ingest signature")
	}
	return nil
}

func computeIngestSignature(secret []byte, timestamp string, body []byte) string {
	mac := hmac.New(sha256.New, secret)
	_, _ = mac.Write([]byte(timestamp))
	_, _ = mac.Write([]byte("\n"))
	_, _ = mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}
