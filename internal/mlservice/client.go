// Package mlservice is the HTTP client for the external machine-learning
// service: anomaly verdicts, maintenance predictions, and digital-twin sync.
package mlservice

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	telemetry "maintenance-cloud/internal/telemetry/domain"
)

// Client calls the ML service over HTTP. All methods honor the caller's
// context for cancellation.
type Client struct {
	httpClient *resty.Client
	logger     *zap.Logger
}

// ClientOption configures the client.
type ClientOption func(*Client)

// WithTimeout overrides the per-request timeout.
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		if timeout > 0 {
			c.httpClient.SetTimeout(timeout)
		}
	}
}

// NewClient constructs an ML service client.
func NewClient(baseURL string, logger *zap.Logger, opts ...ClientOption) (*Client, error) {
	if baseURL == "" {
		return nil, errors.New("mlservice: empty base url")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	httpClient := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(10 * time.Second).
		SetRetryCount(2).
		SetRetryWaitTime(500 * time.Millisecond).
		SetRetryMaxWaitTime(2 * time.Second).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")

	client := &Client{httpClient: httpClient, logger: logger}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

type detectRequest struct {
	Reading telemetry.SensorReading   `json:"reading"`
	History []telemetry.SensorReading `json:"history"`
}

type detectResponse struct {
	Anomalous bool    `json:"anomalous"`
	Score     float64 `json:"score"`
}

// DetectAnomaly asks the service for a verdict on one reading.
func (c *Client) DetectAnomaly(ctx context.Context, reading telemetry.SensorReading, history []telemetry.SensorReading) (bool, error) {
	result, err := c.detect(ctx, reading, history)
	if err != nil {
		return false, err
	}
	return result.Anomalous, nil
}

// AnomalyScore asks the service for the anomaly score of one reading.
func (c *Client) AnomalyScore(ctx context.Context, reading telemetry.SensorReading, history []telemetry.SensorReading) (float64, error) {
	result, err := c.detect(ctx, reading, history)
	if err != nil {
		return 0, err
	}
	return result.Score, nil
}

func (c *Client) detect(ctx context.Context, reading telemetry.SensorReading, history []telemetry.SensorReading) (detectResponse, error) {
	var result detectResponse
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetBody(detectRequest{Reading: reading, History: history}).
		SetResult(&result).
		Post("/v1/anomaly/detect")
	if err != nil {
		return detectResponse{}, fmt.Errorf("mlservice: detect anomaly: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return detectResponse{}, fmt.Errorf("mlservice: detect anomaly: status %d", resp.StatusCode())
	}
	return result, nil
}

type maintenanceResponse struct {
	ScheduleMaintenance bool    `json:"schedule_maintenance"`
	RemainingUsefulLife float64 `json:"remaining_useful_life_hours"`
}

// ShouldScheduleMaintenance asks whether maintenance should be scheduled.
func (c *Client) ShouldScheduleMaintenance(ctx context.Context, equipmentID int) (bool, error) {
	result, err := c.maintenance(ctx, equipmentID)
	if err != nil {
		return false, err
	}
	return result.ScheduleMaintenance, nil
}

// PredictRemainingUsefulLife returns the predicted remaining useful life in
// hours.
func (c *Client) PredictRemainingUsefulLife(ctx context.Context, equipmentID int) (float64, error) {
	result, err := c.maintenance(ctx, equipmentID)
	if err != nil {
		return 0, err
	}
	return result.RemainingUsefulLife, nil
}

func (c *Client) maintenance(ctx context.Context, equipmentID int) (maintenanceResponse, error) {
	var result maintenanceResponse
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetResult(&result).
		Get(fmt.Sprintf("/v1/maintenance/%d/prediction", equipmentID))
	if err != nil {
		return maintenanceResponse{}, fmt.Errorf("mlservice: maintenance prediction: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return maintenanceResponse{}, fmt.Errorf("mlservice: maintenance prediction: status %d", resp.StatusCode())
	}
	return result, nil
}

// SyncWithPhysicalAsset triggers a twin sync for the equipment.
func (c *Client) SyncWithPhysicalAsset(ctx context.Context, equipmentID int) error {
	resp, err := c.httpClient.R().
		SetContext(ctx).
		Post(fmt.Sprintf("/v1/twin/%d/sync", equipmentID))
	if err != nil {
		return fmt.Errorf("mlservice: twin sync: %w", err)
	}
	if resp.StatusCode() != http.StatusOK && resp.StatusCode() != http.StatusAccepted {
		return fmt.Errorf("mlservice: twin sync: status %d", resp.StatusCode())
	}
	return nil
}

// UpdateTwinState pushes the latest sensor map to the twin.
func (c *Client) UpdateTwinState(ctx context.Context, equipmentID int, sensors map[string]float64) error {
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetBody(map[string]any{"sensors": sensors}).
		Post(fmt.Sprintf("/v1/twin/%d/state", equipmentID))
	if err != nil {
		return fmt.Errorf("mlservice: twin update: %w", err)
	}
	if resp.StatusCode() != http.StatusOK && resp.StatusCode() != http.StatusAccepted {
		return fmt.Errorf("mlservice: twin update: status %d", resp.StatusCode())
	}
	return nil
}
