package monitoring

import "time"

// Trend is the direction of health-score movement between recomputations.
type Trend string

const (
	TrendImproving Trend = "improving"
	TrendStable    Trend = "stable"
	TrendDeclining Trend = "declining"
	TrendCritical  Trend = "critical"
)

const (
	// trendHysteresis keeps the trend stable for small score movements.
	trendHysteresis = 5.0
	// criticalScore marks the health level below which the trend is critical
	// regardless of direction.
	criticalScore = 25.0
)

// HealthProfile tracks the synthetic health of one piece of equipment.
// Scores are always clamped to [0, 100].
type HealthProfile struct {
	EquipmentID     int                `json:"equipment_id"`
	CurrentScore    float64            `json:"current_score"`
	PreviousScore   float64            `json:"previous_score"`
	BaselineScore   float64            `json:"baseline_score"`
	Trend           Trend              `json:"trend"`
	LastUpdated     time.Time          `json:"last_updated"`
	ComponentHealth map[string]float64 `json:"component_health,omitempty"`
}

// NewHealthProfile seeds a profile from the stored equipment health score.
func NewHealthProfile(equipmentID int, seedScore float64, now time.Time) *HealthProfile {
	score := ClampScore(seedScore)
	return &HealthProfile{
		EquipmentID:     equipmentID,
		CurrentScore:    score,
		PreviousScore:   score,
		BaselineScore:   score,
		Trend:           TrendStable,
		LastUpdated:     now,
		ComponentHealth: make(map[string]float64),
	}
}

// ApplyScore records a newly computed score and reclassifies the trend.
func (p *HealthProfile) ApplyScore(score float64, now time.Time) {
	p.PreviousScore = p.CurrentScore
	p.CurrentScore = ClampScore(score)
	p.Trend = ClassifyTrend(p.CurrentScore, p.PreviousScore)
	p.LastUpdated = now
}

// SetComponentHealth records a component-level score, clamped to [0, 100].
func (p *HealthProfile) SetComponentHealth(component string, score float64) {
	if p.ComponentHealth == nil {
		p.ComponentHealth = make(map[string]float64)
	}
	p.ComponentHealth[component] = ClampScore(score)
}

// ComponentAverage returns the mean component health and whether any exists.
func (p *HealthProfile) ComponentAverage() (float64, bool) {
	if len(p.ComponentHealth) == 0 {
		return 0, false
	}
	var sum float64
	for _, score := range p.ComponentHealth {
		sum += score
	}
	return sum / float64(len(p.ComponentHealth)), true
}

// ClassifyTrend compares current and previous scores with hysteresis.
func ClassifyTrend(current, previous float64) Trend {
	if current < criticalScore {
		return TrendCritical
	}
	switch diff := current - previous; {
	case diff > trendHysteresis:
		return TrendImproving
	case diff < -trendHysteresis:
		return TrendDeclining
	default:
		return TrendStable
	}
}

// ClampScore bounds a score to [0, 100].
func ClampScore(score float64) float64 {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}
