package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	telemetry "maintenance-cloud/internal/telemetry/domain"
)

const (
	defaultRetention = 7 * 24 * time.Hour
	latestKey        = "readings:latest"
	latestCap        = 1000
)

// ReadingStore keeps sensor readings in Redis sorted sets keyed by equipment id,
// scored by the reading timestamp in nanoseconds.
type ReadingStore struct {
	client    *redis.Client
	retention time.Duration
}

// StoreOption configures the store.
type StoreOption func(*ReadingStore)

// WithRetention overrides how long readings are kept before eviction.
func WithRetention(retention time.Duration) StoreOption {
	return func(s *ReadingStore) {
		if retention > 0 {
			s.retention = retention
		}
	}
}

// NewReadingStore constructs a Redis-backed reading store.
func NewReadingStore(client *redis.Client, opts ...StoreOption) (*ReadingStore, error) {
	if client == nil {
		return nil, errors.New("reading store: nil redis client")
	}
	store := &ReadingStore{client: client, retention: defaultRetention}
	for _, opt := range opts {
		opt(store)
	}
	return store, nil
}

func equipmentKey(equipmentID int) string {
	return fmt.Sprintf("readings:%d", equipmentID)
}

// WriteReading appends a reading and evicts entries past retention.
func (s *ReadingStore) WriteReading(ctx context.Context, reading telemetry.SensorReading) error {
	if s == nil || s.client == nil {
		return errors.New("reading store: nil client")
	}
	if err := reading.Validate(); err != nil {
		return err
	}

	payload, err := json.Marshal(reading)
	if err != nil {
		return err
	}

	key := equipmentKey(reading.EquipmentID)
	pipe := s.client.TxPipeline()
	pipe.ZAdd(ctx, key, &redis.Z{Score: float64(reading.Timestamp.UnixNano()), Member: payload})
	cutoff := reading.Timestamp.Add(-s.retention).UnixNano()
	pipe.ZRemRangeByScore(ctx, key, "-inf", fmt.Sprintf("%d", cutoff))
	pipe.LPush(ctx, latestKey, payload)
	pipe.LTrim(ctx, latestKey, 0, latestCap-1)
	_, err = pipe.Exec(ctx)
	return err
}

// ReadingsForEquipment returns readings in [from, to] ordered by timestamp ascending.
func (s *ReadingStore) ReadingsForEquipment(ctx context.Context, equipmentID int, from, to time.Time) ([]telemetry.SensorReading, error) {
	if s == nil || s.client == nil {
		return nil, errors.New("reading store: nil client")
	}
	if equipmentID <= 0 {
		return nil, errors.New("reading store: invalid equipment id")
	}
	if to.Before(from) {
		return nil, errors.New("reading store: invalid time range")
	}

	members, err := s.client.ZRangeByScore(ctx, equipmentKey(equipmentID), &redis.ZRangeBy{
		Min: fmt.Sprintf("%d", from.UnixNano()),
		Max: fmt.Sprintf("%d", to.UnixNano()),
	}).Result()
	if err != nil {
		return nil, err
	}

	readings := make([]telemetry.SensorReading, 0, len(members))
	for _, member := range members {
		var reading telemetry.SensorReading
		if err := json.Unmarshal([]byte(member), &reading); err != nil {
			continue
		}
		readings = append(readings, reading)
	}
	return readings, nil
}

// LatestReadings returns up to limit most recent readings across all equipment,
// newest first.
func (s *ReadingStore) LatestReadings(ctx context.Context, limit int) ([]telemetry.SensorReading, error) {
	if s == nil || s.client == nil {
		return nil, errors.New("reading store: nil client")
	}
	if limit <= 0 {
		limit = 100
	}

	members, err := s.client.LRange(ctx, latestKey, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, err
	}

	readings := make([]telemetry.SensorReading, 0, len(members))
	for _, member := range members {
		var reading telemetry.SensorReading
		if err := json.Unmarshal([]byte(member), &reading); err != nil {
			continue
		}
		readings = append(readings, reading)
	}
	return readings, nil
}
