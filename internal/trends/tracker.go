package trends

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"
)

const (
	defaultCapacity  = 50
	defaultMinPoints = 10

	concerningSlope      = 0.5
	rapidSlope           = 1.0
	concerningVolatility = 0.3
	highVolatility       = 0.5
)

// Direction labels the sign of the fitted slope.
const (
	DirectionIncreasing = "Increasing"
	DirectionDecreasing = "Decreasing"
	DirectionStable     = "Stable"
)

// Analysis is the result of analysing one equipment+sensor series.
type Analysis struct {
	EquipmentID  int     `json:"equipment_id"`
	SensorType   string  `json:"sensor_type"`
	Direction    string  `json:"direction"`
	Slope        float64 `json:"slope"`
	Volatility   float64 `json:"volatility"`
	IsConcerning bool    `json:"is_concerning"`
	Message      string  `json:"message"`
	Samples      int     `json:"samples"`
}

// Tracker maintains rolling windows of recent values per equipment+sensor and
// fits an ordinary-least-squares slope plus a coefficient of variation.
type Tracker struct {
	mu        sync.RWMutex
	series    map[string][]float64
	capacity  int
	minPoints int
}

// TrackerOption configures the tracker.
type TrackerOption func(*Tracker)

// WithCapacity overrides the rolling-window size.
func WithCapacity(capacity int) TrackerOption {
	return func(t *Tracker) {
		if capacity > 0 {
			t.capacity = capacity
		}
	}
}

// WithMinPoints overrides how many samples an analysis requires.
func WithMinPoints(minPoints int) TrackerOption {
	return func(t *Tracker) {
		if minPoints > 1 {
			t.minPoints = minPoints
		}
	}
}

// NewTracker constructs an empty tracker.
func NewTracker(opts ...TrackerOption) *Tracker {
	tracker := &Tracker{
		series:    make(map[string][]float64),
		capacity:  defaultCapacity,
		minPoints: defaultMinPoints,
	}
	for _, opt := range opts {
		opt(tracker)
	}
	return tracker
}

func seriesKey(equipmentID int, sensorType string) string {
	return fmt.Sprintf("%d|%s", equipmentID, sensorType)
}

// Record appends a value to the rolling window for equipment+sensor.
func (t *Tracker) Record(equipmentID int, sensorType string, value float64) {
	key := seriesKey(equipmentID, sensorType)

	t.mu.Lock()
	defer t.mu.Unlock()

	values := append(t.series[key], value)
	if len(values) > t.capacity {
		values = values[len(values)-t.capacity:]
	}
	t.series[key] = values
}

// Analyze fits the series for equipment+sensor. The second return value is
// false when fewer than the minimum number of samples are available.
func (t *Tracker) Analyze(equipmentID int, sensorType string) (Analysis, bool) {
	t.mu.RLock()
	values := append([]float64(nil), t.series[seriesKey(equipmentID, sensorType)]...)
	t.mu.RUnlock()

	if len(values) < t.minPoints {
		return Analysis{}, false
	}

	slope := olsSlope(values)
	volatility := coefficientOfVariation(values)

	analysis := Analysis{
		EquipmentID: equipmentID,
		SensorType:  sensorType,
		Slope:       slope,
		Volatility:  volatility,
		Samples:     len(values),
	}

	switch {
	case slope > 0:
		analysis.Direction = DirectionIncreasing
	case slope < 0:
		analysis.Direction = DirectionDecreasing
	default:
		analysis.Direction = DirectionStable
	}

	analysis.IsConcerning = math.Abs(slope) > concerningSlope || volatility > concerningVolatility
	analysis.Message = classify(slope, volatility)
	return analysis, true
}

// AnalyzeAll returns analyses for every tracked sensor of one equipment,
// ordered by sensor type.
func (t *Tracker) AnalyzeAll(equipmentID int) []Analysis {
	prefix := fmt.Sprintf("%d|", equipmentID)

	t.mu.RLock()
	var sensors []string
	for key := range t.series {
		if strings.HasPrefix(key, prefix) {
			sensors = append(sensors, strings.TrimPrefix(key, prefix))
		}
	}
	t.mu.RUnlock()

	sort.Strings(sensors)
	var result []Analysis
	for _, sensor := range sensors {
		if analysis, ok := t.Analyze(equipmentID, sensor); ok {
			result = append(result, analysis)
		}
	}
	return result
}

// Reset discards all series for one equipment.
func (t *Tracker) Reset(equipmentID int) {
	prefix := fmt.Sprintf("%d|", equipmentID)

	t.mu.Lock()
	defer t.mu.Unlock()
	for key := range t.series {
		if strings.HasPrefix(key, prefix) {
			delete(t.series, key)
		}
	}
}

func classify(slope, volatility float64) string {
	abs := math.Abs(slope)
	switch {
	case abs > rapidSlope && slope > 0:
		return "Rapid increase detected"
	case abs > rapidSlope:
		return "Rapid decrease detected"
	case volatility > highVolatility:
		return "High volatility detected"
	case abs > concerningSlope && slope > 0:
		return "Steady increase observed"
	case abs > concerningSlope:
		return "Steady decrease observed"
	default:
		return "Normal variation"
	}
}

// olsSlope fits y = a + b*x with x as the sample index and returns b.
func olsSlope(values []float64) float64 {
	n := float64(len(values))
	var sumX, sumY, sumXY, sumXX float64
	for i, y := range values {
		x := float64(i)
		sumX += x
		sumY += y
		sumXY += x * y
		sumXX += x * x
	}
	denom := n*sumXX - sumX*sumX
	if denom == 0 {
		return 0
	}
	return (n*sumXY - sumX*sumY) / denom
}

func coefficientOfVariation(values []float64) float64 {
	n := float64(len(values))
	var sum float64
	for _, v := range values {
		sum += v
	}
	mean := sum / n
	if mean == 0 {
		return 0
	}
	var variance float64
	for _, v := range values {
		variance += (v - mean) * (v - mean)
	}
	variance /= n
	return math.Sqrt(variance) / math.Abs(mean)
}
