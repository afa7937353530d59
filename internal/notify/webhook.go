package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"
)

const defaultWebhookTimeout = 5 * time.Second

// WebhookNotifier posts notification messages as JSON to a configured URL.
type WebhookNotifier struct {
	url    string
	client *http.Client
	logger *zap.Logger
}

// WebhookOption configures the notifier.
type WebhookOption func(*WebhookNotifier)

// WithTimeout overrides the request timeout.
func WithTimeout(timeout time.Duration) WebhookOption {
	return func(n *WebhookNotifier) {
		if timeout > 0 {
			n.client.Timeout = timeout
		}
	}
}

// NewWebhookNotifier constructs a webhook notifier.
func NewWebhookNotifier(rawURL string, logger *zap.Logger, opts ...WebhookOption) (*WebhookNotifier, error) {
	if rawURL == "" {
		return nil, errors.New("webhook notifier: empty url")
	}
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("webhook notifier: invalid url %q", rawURL)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	notifier := &WebhookNotifier{
		url:    rawURL,
		client: &http.Client{Timeout: defaultWebhookTimeout},
		logger: logger,
	}
	for _, opt := range opts {
		opt(notifier)
	}
	return notifier, nil
}

type webhookPayload struct {
	Scope       string  `json:"scope"`
	EquipmentID int     `json:"equipment_id,omitempty"`
	Message     Message `json:"message"`
}

// Broadcast implements Notifier.
func (n *WebhookNotifier) Broadcast(ctx context.Context, message Message) {
	n.send(ctx, webhookPayload{Scope: "all", Message: message})
}

// BroadcastToEquipment implements Notifier.
func (n *WebhookNotifier) BroadcastToEquipment(ctx context.Context, equipmentID int, message Message) {
	n.send(ctx, webhookPayload{Scope: "equipment", EquipmentID: equipmentID, Message: message})
}

func (n *WebhookNotifier) send(ctx context.Context, payload webhookPayload) {
	if n == nil || n.client == nil {
		return
	}
	body, err := json.Marshal(payload)
	if err != nil {
		n.logger.Warn("webhook payload marshal failed", zap.Error(err))
		return
	}
	request, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(body))
	if err != nil {
		n.logger.Warn("webhook request build failed", zap.Error(err))
		return
	}
	request.Header.Set("Content-Type", "application/json")

	response, err := n.client.Do(request)
	if err != nil {
		n.logger.Warn("webhook delivery failed", zap.Error(err))
		return
	}
	defer response.Body.Close()
	if response.StatusCode >= 300 {
		n.logger.Warn("webhook delivery rejected", zap.Int("status", response.StatusCode))
	}
}
