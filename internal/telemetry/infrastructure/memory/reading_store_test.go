package memory

import (
	"context"
	"math"
	"testing"
	"time"

	telemetry "maintenance-cloud/internal/telemetry/domain"
)

func TestReadingRoundTrip(t *testing.T) {
	store := NewReadingStore(0)
	ctx := context.Background()
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	written := telemetry.SensorReading{EquipmentID: 7, SensorType: "temperature", Value: 81.25, Timestamp: at}
	if err := store.WriteReading(ctx, written); err != nil {
		t.Fatalf("write reading: %v", err)
	}

	got, err := store.ReadingsForEquipment(ctx, 7, at.Add(-time.Minute), at.Add(time.Minute))
	if err != nil {
		t.Fatalf("readings for equipment: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 reading, got %d", len(got))
	}
	if got[0].SensorType != "temperature" {
		t.Fatalf("expected temperature reading, got %s", got[0].SensorType)
	}
	if math.Abs(got[0].Value-81.25) > 1e-9 {
		t.Fatalf("expected value 81.25, got %f", got[0].Value)
	}
}

func TestReadingsOutsideRangeExcluded(t *testing.T) {
	store := NewReadingStore(0)
	ctx := context.Background()
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		reading := telemetry.SensorReading{
			EquipmentID: 1,
			SensorType:  "vibration",
			Value:       float64(i),
			Timestamp:   at.Add(time.Duration(i) * time.Hour),
		}
		if err := store.WriteReading(ctx, reading); err != nil {
			t.Fatalf("write reading: %v", err)
		}
	}

	got, err := store.ReadingsForEquipment(ctx, 1, at.Add(time.Hour), at.Add(3*time.Hour))
	if err != nil {
		t.Fatalf("readings for equipment: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 readings in range, got %d", len(got))
	}
}

func TestLatestReadingsNewestFirst(t *testing.T) {
	store := NewReadingStore(0)
	ctx := context.Background()
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 4; i++ {
		reading := telemetry.SensorReading{
			EquipmentID: 1 + i%2,
			SensorType:  "current",
			Value:       float64(i),
			Timestamp:   at.Add(time.Duration(i) * time.Minute),
		}
		if err := store.WriteReading(ctx, reading); err != nil {
			t.Fatalf("write reading: %v", err)
		}
	}

	got, err := store.LatestReadings(ctx, 2)
	if err != nil {
		t.Fatalf("latest readings: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 readings, got %d", len(got))
	}
	if got[0].Value != 3 || got[1].Value != 2 {
		t.Fatalf("expected newest first, got %f then %f", got[0].Value, got[1].Value)
	}
}
