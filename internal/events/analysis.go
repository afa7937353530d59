package events

import (
	"time"
)

// StreamAnalysis is a derived view over an equipment's retained events.
// Computing it has no side effects on the stream.
type StreamAnalysis struct {
	EquipmentID   int            `json:"equipment_id"`
	Window        time.Duration  `json:"window"`
	TotalEvents   int            `json:"total_events"`
	CountsByKind  map[Kind]int   `json:"counts_by_kind"`
	EventsPerMin  float64        `json:"events_per_minute"`
	PeakPerMin    int            `json:"peak_per_minute"`
	Patterns      []PatternMatch `json:"patterns,omitempty"`
	Anomalous     []Event        `json:"anomalous_events,omitempty"`
	TrendSummary  string         `json:"trend_summary"`
	RiskScore     float64        `json:"risk_score"`
	GeneratedAt   time.Time      `json:"generated_at"`
}

// AnalyzeEventStream computes statistics, pattern matches, anomalous-event
// extraction, a trend summary, and a 0-100 risk score from the equipment's
// events inside the requested window.
func (p *Processor) AnalyzeEventStream(equipmentID int, window time.Duration) StreamAnalysis {
	now := p.clock.Now().UTC()
	if window <= 0 || window > p.retention {
		window = p.retention
	}
	events := p.windowSnapshot(equipmentID, now.Add(-window))

	analysis := StreamAnalysis{
		EquipmentID:  equipmentID,
		Window:       window,
		TotalEvents:  len(events),
		CountsByKind: make(map[Kind]int),
		GeneratedAt:  now,
	}
	for _, event := range events {
		analysis.CountsByKind[event.Kind]++
		switch event.Kind {
		case KindAnomaly, KindAlert:
			analysis.Anomalous = append(analysis.Anomalous, event)
		case KindSensorData:
			if event.SensorData.Anomalous {
				analysis.Anomalous = append(analysis.Anomalous, event)
			}
		}
	}

	minutes := window.Minutes()
	if minutes > 0 {
		analysis.EventsPerMin = float64(len(events)) / minutes
	}
	analysis.PeakPerMin = peakEventsPerMinute(events)
	analysis.Patterns = p.detectPatterns(events, now)
	analysis.TrendSummary = summarizeTrend(events)
	analysis.RiskScore = riskScore(analysis)
	return analysis
}

func peakEventsPerMinute(events []Event) int {
	if len(events) == 0 {
		return 0
	}
	buckets := make(map[int64]int)
	peak := 0
	for _, event := range events {
		bucket := event.OccurredAt.Unix() / 60
		buckets[bucket]++
		if buckets[bucket] > peak {
			peak = buckets[bucket]
		}
	}
	return peak
}

// summarizeTrend compares event density in the first and second half of the
// window to describe whether activity is rising or falling.
func summarizeTrend(events []Event) string {
	if len(events) < 4 {
		return "insufficient activity"
	}
	first, last := events[0].OccurredAt, events[len(events)-1].OccurredAt
	span := last.Sub(first)
	if span <= 0 {
		return "stable activity"
	}
	midpoint := first.Add(span / 2)
	firstHalf := 0
	for _, event := range events {
		if event.OccurredAt.Before(midpoint) {
			firstHalf++
		}
	}
	secondHalf := len(events) - firstHalf
	switch {
	case secondHalf > firstHalf*2:
		return "activity accelerating"
	case firstHalf > secondHalf*2:
		return "activity subsiding"
	default:
		return "stable activity"
	}
}

// riskScore derives a 0-100 score from the share of anomalous events, the
// detected patterns, and overall event rate.
func riskScore(analysis StreamAnalysis) float64 {
	if analysis.TotalEvents == 0 {
		return 0
	}
	score := 0.0
	anomalousShare := float64(len(analysis.Anomalous)) / float64(analysis.TotalEvents)
	score += anomalousShare * 60

	for _, match := range analysis.Patterns {
		switch match.Severity {
		case "critical":
			score += 25
		case "high":
			score += 15
		default:
			score += 5
		}
	}
	if analysis.EventsPerMin > 10 {
		score += 10
	}
	if score > 100 {
		score = 100
	}
	return score
}
