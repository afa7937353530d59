package telemetry

import (
	"context"
	"errors"
	"time"
)

// SensorReading is a single sensor sample for one piece of equipment.
// Immutable once ingested except the Anomalous flag, which the monitoring
// core may set after anomaly detection.
type SensorReading struct {
	EquipmentID int       `json:"equipment_id"`
	SensorType  string    `json:"sensor_type"`
	Value       float64   `json:"value"`
	Timestamp   time.Time `json:"timestamp"`
	Anomalous   bool      `json:"anomalous,omitempty"`
}

// Validate checks reading invariants.
func (r SensorReading) Validate() error {
	if r.EquipmentID <= 0 {
		return errors.New("reading: invalid equipment id")
	}
	if r.SensorType == "" {
		return errors.New("reading: empty sensor type")
	}
	if r.Timestamp.IsZero() {
		return errors.New("reading: zero timestamp")
	}
	return nil
}

// ReadingStore is the time-series collaborator used by the monitoring core.
type ReadingStore interface {
	WriteReading(ctx context.Context, reading SensorReading) error
	ReadingsForEquipment(ctx context.Context, equipmentID int, from, to time.Time) ([]SensorReading, error)
	LatestReadings(ctx context.Context, limit int) ([]SensorReading, error)
}

// FilterBySensor returns the readings matching one sensor type, preserving order.
func FilterBySensor(readings []SensorReading, sensorType string) []SensorReading {
	if sensorType == "" {
		return readings
	}
	var result []SensorReading
	for _, reading := range readings {
		if reading.SensorType == sensorType {
			result = append(result, reading)
		}
	}
	return result
}
