// Package anomaly provides a statistical fallback for the external
// anomaly-detection capability: a z-score test against the rolling history
// of the same sensor.
package anomaly

import (
	"context"
	"math"

	telemetry "maintenance-cloud/internal/telemetry/domain"
)

const (
	defaultMinHistory = 10
	defaultZThreshold = 3.0
)

// Detector flags readings whose z-score against history exceeds a threshold.
// With too little history every reading is considered normal.
type Detector struct {
	minHistory int
	zThreshold float64
}

// DetectorOption configures the detector.
type DetectorOption func(*Detector)

// WithMinHistory overrides how many samples are required before detection.
func WithMinHistory(minHistory int) DetectorOption {
	return func(d *Detector) {
		if minHistory > 1 {
			d.minHistory = minHistory
		}
	}
}

// WithZThreshold overrides the z-score cutoff.
func WithZThreshold(threshold float64) DetectorOption {
	return func(d *Detector) {
		if threshold > 0 {
			d.zThreshold = threshold
		}
	}
}

// NewDetector constructs a z-score detector.
func NewDetector(opts ...DetectorOption) *Detector {
	detector := &Detector{
		minHistory: defaultMinHistory,
		zThreshold: defaultZThreshold,
	}
	for _, opt := range opts {
		opt(detector)
	}
	return detector
}

// DetectAnomaly reports whether the reading deviates from history beyond the
// z-score threshold.
func (d *Detector) DetectAnomaly(ctx context.Context, reading telemetry.SensorReading, history []telemetry.SensorReading) (bool, error) {
	score, err := d.AnomalyScore(ctx, reading, history)
	if err != nil {
		return false, err
	}
	return score > d.zThreshold, nil
}

// AnomalyScore returns the absolute z-score of the reading against history.
// Zero when history is too short or has no variance.
func (d *Detector) AnomalyScore(_ context.Context, reading telemetry.SensorReading, history []telemetry.SensorReading) (float64, error) {
	if len(history) < d.minHistory {
		return 0, nil
	}

	var sum float64
	for _, sample := range history {
		sum += sample.Value
	}
	mean := sum / float64(len(history))

	var variance float64
	for _, sample := range history {
		variance += (sample.Value - mean) * (sample.Value - mean)
	}
	variance /= float64(len(history))
	if variance == 0 {
		return 0, nil
	}
	return math.Abs(reading.Value-mean) / math.Sqrt(variance), nil
}
