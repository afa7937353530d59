package monitoring

import (
	"testing"
	"time"

	equipment "maintenance-cloud/internal/equipment/domain"
)

func TestModeDerivation(t *testing.T) {
	cases := []struct {
		criticality equipment.Criticality
		health      float64
		want        Mode
	}{
		{equipment.CriticalityCritical, 100, ModeContinuous},
		{equipment.CriticalityCritical, 50, ModeContinuous},
		{equipment.CriticalityHigh, 60, ModeIntensive},
		{equipment.CriticalityMedium, 90, ModeNormal},
		{equipment.CriticalityLow, 69.9, ModeIntensive},
	}
	for _, tc := range cases {
		if got := ModeFor(tc.criticality, tc.health); got != tc.want {
			t.Fatalf("ModeFor(%s, %.1f) = %s, want %s", tc.criticality, tc.health, got, tc.want)
		}
	}
}

func TestSamplingIntervals(t *testing.T) {
	cases := map[equipment.Criticality]time.Duration{
		equipment.CriticalityCritical: 5 * time.Second,
		equipment.CriticalityHigh:     15 * time.Second,
		equipment.CriticalityMedium:   30 * time.Second,
		equipment.CriticalityLow:      60 * time.Second,
	}
	for criticality, want := range cases {
		if got := SamplingIntervalFor(criticality); got != want {
			t.Fatalf("SamplingIntervalFor(%s) = %s, want %s", criticality, got, want)
		}
	}
}

func TestTrendHysteresis(t *testing.T) {
	if got := ClassifyTrend(80, 76); got != TrendStable {
		t.Fatalf("small movement should be stable, got %s", got)
	}
	if got := ClassifyTrend(86, 80); got != TrendImproving {
		t.Fatalf("expected improving, got %s", got)
	}
	if got := ClassifyTrend(70, 80); got != TrendDeclining {
		t.Fatalf("expected declining, got %s", got)
	}
	if got := ClassifyTrend(20, 20); got != TrendCritical {
		t.Fatalf("expected critical below threshold, got %s", got)
	}
}

func TestRelativeThresholdCheck(t *testing.T) {
	config := ThresholdConfig{SensorType: "current", Warning: 90, Critical: 105, Relative: true}

	if breach := config.Check(80, 100); breach.Level != BreachNone {
		t.Fatalf("expected no breach, got %s", breach.Level)
	}
	if breach := config.Check(95, 100); breach.Level != BreachWarning {
		t.Fatalf("expected warning breach, got %s", breach.Level)
	}
	breach := config.Check(110, 100)
	if breach.Level != BreachCritical {
		t.Fatalf("expected critical breach, got %s", breach.Level)
	}
	if breach.Limit != 105 {
		t.Fatalf("expected limit 105, got %f", breach.Limit)
	}
	if breach := config.Check(110, 0); breach.Level != BreachNone {
		t.Fatalf("relative check without rated capacity should be skipped, got %s", breach.Level)
	}
}

func TestAbsoluteThresholdCheck(t *testing.T) {
	set := DefaultThresholds()
	config, ok := set.Lookup("temperature")
	if !ok {
		t.Fatal("expected default temperature thresholds")
	}
	if breach := config.Check(95, 0); breach.Level != BreachCritical {
		t.Fatalf("expected critical breach at 95, got %s", breach.Level)
	}
	if breach := config.Check(85, 0); breach.Level != BreachWarning {
		t.Fatalf("expected warning breach at 85, got %s", breach.Level)
	}
}

func TestMotorRules(t *testing.T) {
	rules := RulesFor(equipment.TypeMotor)
	if len(rules) == 0 {
		t.Fatal("expected motor rules")
	}

	sensors := map[string]float64{"temperature": 90, "load": 95}
	violatedAny := false
	for _, rule := range rules {
		if violated, detail := rule.Evaluate(sensors); violated {
			violatedAny = true
			if detail == "" {
				t.Fatalf("rule %s violated without detail", rule.Name())
			}
		}
	}
	if !violatedAny {
		t.Fatal("expected overheat-under-load to trigger")
	}

	if violated, _ := rules[0].Evaluate(map[string]float64{"temperature": 90}); violated {
		t.Fatal("rule requiring load should not trigger without it")
	}
}
