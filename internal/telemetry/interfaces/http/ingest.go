// Package telemetryhttp exposes the sensor-feed ingestion endpoint.
package telemetryhttp

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"maintenance-cloud/internal/observability/metrics"
)

// SensorSink consumes sensor batches for a monitored unit.
type SensorSink interface {
	ProcessSensorData(ctx context.Context, equipmentID int, sensors map[string]float64) error
}

// IngestHandler handles telemetry ingestion from gateway webhooks.
type IngestHandler struct {
	sink   SensorSink
	logger *zap.Logger
}

// NewIngestHandler constructs an ingest handler.
func NewIngestHandler(sink SensorSink, logger *zap.Logger) (*IngestHandler, error) {
	if sink == nil {
		return nil, errors.New("telemetry ingest: nil sink")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &IngestHandler{sink: sink, logger: logger}, nil
}

// ServeHTTP ingests sensor batches.
func (h *IngestHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	started := time.Now()

	body, err := io.ReadAll(r.Body)
	if err != nil {
		h.logger.Warn("telemetry ingest: read body error", zap.Error(err))
		metrics.IncIngestError("read")
		http.Error(w, "read body error", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	var req ingestRequest
	if err := json.Unmarshal(body, &req); err != nil {
		h.logger.Warn("telemetry ingest: decode error", zap.Error(err))
		metrics.IncIngestError("decode")
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}

	batches, err := req.toBatches()
	if err != nil {
		h.logger.Warn("telemetry ingest: invalid payload", zap.Error(err))
		metrics.IncIngestError("payload")
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}

	accepted := 0
	for _, batch := range batches {
		if err := h.sink.ProcessSensorData(r.Context(), req.EquipmentID, batch); err != nil {
			h.logger.Error("telemetry ingest: process error",
				zap.Int("equipment_id", req.EquipmentID), zap.Error(err))
			metrics.IncIngestError("process")
			http.Error(w, "process error", http.StatusInternalServerError)
			return
		}
		accepted++
	}
	metrics.ObserveIngest(metrics.ResultSuccess, time.Since(started))

	resp := map[string]any{"accepted": accepted}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

type ingestRequest struct {
	EquipmentID int                `json:"equipment_id"`
	TS          int64              `json:"ts"`
	Values      map[string]float64 `json:"values"`
	Points      []ingestPoint      `json:"points"`
}

type ingestPoint struct {
	TS     int64              `json:"ts"`
	Values map[string]float64 `json:"values"`
}

// toBatches validates the request and returns one sensor map per point.
// Readings are timestamped at processing time; the point ts is validated to
// reject malformed gateways but not carried further.
func (r ingestRequest) toBatches() ([]map[string]float64, error) {
	if r.EquipmentID <= 0 {
		return nil, errors.New("missing equipment_id")
	}

	points := r.Points
	if len(points) == 0 && r.TS != 0 {
		points = []ingestPoint{{TS: r.TS, Values: r.Values}}
	}
	if len(points) == 0 {
		return nil, errors.New("no telemetry points")
	}

	batches := make([]map[string]float64, 0, len(points))
	for _, point := range points {
		if err := validateTimestamp(point.TS); err != nil {
			return nil, err
		}
		if len(point.Values) == 0 {
			return nil, errors.New("empty values")
		}
		batches = append(batches, point.Values)
	}
	return batches, nil
}

// validateTimestamp accepts positive epoch milliseconds or seconds.
func validateTimestamp(value int64) error {
	if value <= 0 {
		return errors.New("invalid ts")
	}
	return nil
}
