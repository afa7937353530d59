package application

import (
	"sync"
	"time"
)

// PerformanceTracker accumulates per-equipment OEE inputs from sensor
// batches: availability from batch cadence against the sampling interval,
// performance from the latest load/speed readings, quality from the share of
// anomaly-free batches.
type PerformanceTracker struct {
	mu        sync.Mutex
	startedAt time.Time
	interval  time.Duration

	batches     int
	anomalies   int
	lastBatchAt time.Time
	lastSensors map[string]float64

	availability float64
	performance  float64
	quality      float64
	computed     bool
}

// NewPerformanceTracker starts a tracker for one equipment.
func NewPerformanceTracker(startedAt time.Time, interval time.Duration) *PerformanceTracker {
	if interval <= 0 {
		interval = time.Minute
	}
	return &PerformanceTracker{
		startedAt:   startedAt,
		interval:    interval,
		lastSensors: make(map[string]float64),
	}
}

// RecordBatch notes an arrived sensor batch.
func (t *PerformanceTracker) RecordBatch(now time.Time, sensors map[string]float64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.batches++
	t.lastBatchAt = now
	for sensorType, value := range sensors {
		t.lastSensors[sensorType] = value
	}
}

// RecordAnomaly notes an anomalous batch for the quality component.
func (t *PerformanceTracker) RecordAnomaly() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.anomalies++
}

// Recompute derives availability, performance, and quality from the
// accumulated inputs. Called periodically by the orchestrator's loop.
func (t *PerformanceTracker) Recompute(now time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()

	elapsed := now.Sub(t.startedAt)
	if elapsed <= 0 || t.batches == 0 {
		return
	}

	expected := float64(elapsed) / float64(t.interval)
	if expected < 1 {
		expected = 1
	}
	t.availability = clampPercent(float64(t.batches) / expected * 100)

	t.performance = 100
	if load, ok := t.lastSensors["load"]; ok {
		t.performance = clampPercent(load)
	} else if speed, ok := t.lastSensors["speed"]; ok {
		t.performance = clampPercent(speed)
	}

	t.quality = clampPercent((1 - float64(t.anomalies)/float64(t.batches)) * 100)
	t.computed = true
}

// OEE returns Availability x Performance x Quality / 100^2 and whether the
// components have been computed yet.
func (t *PerformanceTracker) OEE() (float64, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.computed {
		return 0, false
	}
	return t.availability * t.performance * t.quality / 10000, true
}

// Components returns the last computed availability/performance/quality.
func (t *PerformanceTracker) Components() (availability, performance, quality float64, ok bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.availability, t.performance, t.quality, t.computed
}

func clampPercent(value float64) float64 {
	if value < 0 {
		return 0
	}
	if value > 100 {
		return 100
	}
	return value
}
