package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	telemetry "maintenance-cloud/internal/telemetry/domain"
)

// ReadingStore is an in-memory telemetry.ReadingStore for tests and
// single-node deployments without Redis.
type ReadingStore struct {
	mu        sync.RWMutex
	series    map[int][]telemetry.SensorReading
	retention time.Duration
}

// NewReadingStore constructs an empty store retaining readings for the given
// duration (default 7 days when zero).
func NewReadingStore(retention time.Duration) *ReadingStore {
	if retention <= 0 {
		retention = 7 * 24 * time.Hour
	}
	return &ReadingStore{
		series:    make(map[int][]telemetry.SensorReading),
		retention: retention,
	}
}

// WriteReading appends a reading.
func (s *ReadingStore) WriteReading(_ context.Context, reading telemetry.SensorReading) error {
	if err := reading.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	readings := append(s.series[reading.EquipmentID], reading)
	sort.SliceStable(readings, func(i, j int) bool {
		return readings[i].Timestamp.Before(readings[j].Timestamp)
	})

	cutoff := reading.Timestamp.Add(-s.retention)
	start := 0
	for start < len(readings) && readings[start].Timestamp.Before(cutoff) {
		start++
	}
	s.series[reading.EquipmentID] = readings[start:]
	return nil
}

// ReadingsForEquipment returns readings in [from, to] ordered ascending.
func (s *ReadingStore) ReadingsForEquipment(_ context.Context, equipmentID int, from, to time.Time) ([]telemetry.SensorReading, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []telemetry.SensorReading
	for _, reading := range s.series[equipmentID] {
		if reading.Timestamp.Before(from) || reading.Timestamp.After(to) {
			continue
		}
		result = append(result, reading)
	}
	return result, nil
}

// LatestReadings returns up to limit most recent readings across equipment,
// newest first.
func (s *ReadingStore) LatestReadings(_ context.Context, limit int) ([]telemetry.SensorReading, error) {
	if limit <= 0 {
		limit = 100
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	var all []telemetry.SensorReading
	for _, readings := range s.series {
		all = append(all, readings...)
	}
	sort.SliceStable(all, func(i, j int) bool {
		return all[i].Timestamp.After(all[j].Timestamp)
	})
	if len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}
