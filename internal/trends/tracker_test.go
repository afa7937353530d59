package trends

import (
	"strings"
	"testing"
)

func TestAnalyzeRequiresMinimumSamples(t *testing.T) {
	tracker := NewTracker()
	for i := 0; i < 9; i++ {
		tracker.Record(1, "temperature", float64(i))
	}
	if _, ok := tracker.Analyze(1, "temperature"); ok {
		t.Fatal("expected analysis to require at least 10 samples")
	}
	tracker.Record(1, "temperature", 9)
	if _, ok := tracker.Analyze(1, "temperature"); !ok {
		t.Fatal("expected analysis with 10 samples")
	}
}

func TestRapidIncreaseFlagged(t *testing.T) {
	tracker := NewTracker()
	for i := 0; i < 10; i++ {
		tracker.Record(1, "temperature", 50+2.0*float64(i))
	}

	analysis, ok := tracker.Analyze(1, "temperature")
	if !ok {
		t.Fatal("expected analysis")
	}
	if !analysis.IsConcerning {
		t.Fatal("expected a slope above 1.0 to be concerning")
	}
	if analysis.Direction != DirectionIncreasing {
		t.Fatalf("expected Increasing direction, got %s", analysis.Direction)
	}
	if !strings.Contains(analysis.Message, "Rapid") {
		t.Fatalf("expected rapid-increase message, got %q", analysis.Message)
	}
}

func TestSteadyDecreaseMessage(t *testing.T) {
	tracker := NewTracker()
	for i := 0; i < 20; i++ {
		tracker.Record(2, "pressure", 100-0.8*float64(i))
	}

	analysis, ok := tracker.Analyze(2, "pressure")
	if !ok {
		t.Fatal("expected analysis")
	}
	if analysis.Direction != DirectionDecreasing {
		t.Fatalf("expected Decreasing direction, got %s", analysis.Direction)
	}
	if analysis.Message != "Steady decrease observed" {
		t.Fatalf("unexpected message %q", analysis.Message)
	}
}

func TestStableSeriesNotConcerning(t *testing.T) {
	tracker := NewTracker()
	for i := 0; i < 30; i++ {
		tracker.Record(3, "voltage", 230+0.1*float64(i%2))
	}

	analysis, ok := tracker.Analyze(3, "voltage")
	if !ok {
		t.Fatal("expected analysis")
	}
	if analysis.IsConcerning {
		t.Fatalf("expected stable series not to be concerning: %+v", analysis)
	}
	if analysis.Message != "Normal variation" {
		t.Fatalf("unexpected message %q", analysis.Message)
	}
}

func TestWindowBounded(t *testing.T) {
	tracker := NewTracker(WithCapacity(50))
	for i := 0; i < 120; i++ {
		tracker.Record(4, "current", float64(i))
	}

	analysis, ok := tracker.Analyze(4, "current")
	if !ok {
		t.Fatal("expected analysis")
	}
	if analysis.Samples != 50 {
		t.Fatalf("expected window capped at 50 samples, got %d", analysis.Samples)
	}
}

func TestReset(t *testing.T) {
	tracker := NewTracker()
	for i := 0; i < 15; i++ {
		tracker.Record(5, "temperature", float64(i))
	}
	tracker.Reset(5)
	if _, ok := tracker.Analyze(5, "temperature"); ok {
		t.Fatal("expected no analysis after reset")
	}
}
