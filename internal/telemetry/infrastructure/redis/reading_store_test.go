package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/require"

	telemetry "maintenance-cloud/internal/telemetry/domain"
)

func newTestStore(t *testing.T) *ReadingStore {
	t.Helper()
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	store, err := NewReadingStore(client)
	require.NoError(t, err)
	return store
}

func TestRedisReadingRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	at := time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)

	written := telemetry.SensorReading{EquipmentID: 3, SensorType: "pressure", Value: 4.75, Timestamp: at}
	require.NoError(t, store.WriteReading(ctx, written))

	got, err := store.ReadingsForEquipment(ctx, 3, at.Add(-time.Minute), at.Add(time.Minute))
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, "pressure", got[0].SensorType)
	require.InDelta(t, 4.75, got[0].Value, 1e-9)
	require.True(t, got[0].Timestamp.Equal(at))
}

func TestRedisRangeFiltering(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	at := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	for i := 0; i < 6; i++ {
		reading := telemetry.SensorReading{
			EquipmentID: 9,
			SensorType:  "temperature",
			Value:       70 + float64(i),
			Timestamp:   at.Add(time.Duration(i) * 10 * time.Minute),
		}
		require.NoError(t, store.WriteReading(ctx, reading))
	}

	got, err := store.ReadingsForEquipment(ctx, 9, at.Add(10*time.Minute), at.Add(30*time.Minute))
	require.NoError(t, err)
	require.Len(t, got, 3)
	for i := 1; i < len(got); i++ {
		require.False(t, got[i].Timestamp.Before(got[i-1].Timestamp))
	}
}

func TestRedisLatestReadings(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	at := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		reading := telemetry.SensorReading{
			EquipmentID: 4,
			SensorType:  "voltage",
			Value:       float64(i),
			Timestamp:   at.Add(time.Duration(i) * time.Second),
		}
		require.NoError(t, store.WriteReading(ctx, reading))
	}

	got, err := store.LatestReadings(ctx, 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Equal(t, float64(2), got[0].Value)
}
