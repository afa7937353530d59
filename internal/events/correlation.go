package events

import (
	"fmt"
	"sort"
	"time"
)

// Correlation is a detected relationship between retained events, ranked by
// strength in [0,1].
type Correlation struct {
	Rule         string    `json:"rule"`
	Category     string    `json:"category"`
	EquipmentIDs []int     `json:"equipment_ids"`
	Strength     float64   `json:"strength"`
	Description  string    `json:"description"`
	DetectedAt   time.Time `json:"detected_at"`
}

// CorrelationRule pairs two sensor types expected to move together inside a
// time window.
type CorrelationRule struct {
	Name         string
	SensorA      string
	SensorB      string
	Window       time.Duration
	BaseStrength float64
}

// DefaultCorrelationRules returns the configured sensor-pair rules.
func DefaultCorrelationRules() []CorrelationRule {
	return []CorrelationRule{
		{Name: "temperature-vibration", SensorA: "temperature", SensorB: "vibration", Window: 5 * time.Minute, BaseStrength: 0.9},
		{Name: "load-power", SensorA: "load", SensorB: "power", Window: 15 * time.Minute, BaseStrength: 0.7},
	}
}

const cascadeCorrelationWindow = 30 * time.Minute

// CorrelateEvents inspects all retained events inside [from, to]: configured
// sensor-pair rules and the cascade-failure pattern per equipment, generic
// statistical and temporal correlation, and cross-equipment clustering.
// Results are ordered by strength descending.
func (p *Processor) CorrelateEvents(from, to time.Time) []Correlation {
	now := p.clock.Now().UTC()
	byEquipment := p.allWindowSnapshots(from)

	var correlations []Correlation
	for equipmentID, events := range byEquipment {
		events = eventsBetween(events, from, to)
		if len(events) == 0 {
			continue
		}
		correlations = append(correlations, sensorPairCorrelations(equipmentID, events, now)...)
		if c, ok := cascadeCorrelation(equipmentID, events, now); ok {
			correlations = append(correlations, c)
		}
		if c, ok := statisticalCorrelation(equipmentID, events, now); ok {
			correlations = append(correlations, c)
		}
		if c, ok := temporalCorrelation(equipmentID, events, now); ok {
			correlations = append(correlations, c)
		}
	}
	correlations = append(correlations, crossEquipmentCorrelations(byEquipment, from, to, now)...)

	sort.SliceStable(correlations, func(i, j int) bool {
		return correlations[i].Strength > correlations[j].Strength
	})
	return correlations
}

func eventsBetween(events []Event, from, to time.Time) []Event {
	var result []Event
	for _, event := range events {
		if event.OccurredAt.Before(from) || event.OccurredAt.After(to) {
			continue
		}
		result = append(result, event)
	}
	return result
}

// sensorPairCorrelations applies each configured rule: a reading of sensor A
// followed by one of sensor B (or vice versa) inside the rule window.
func sensorPairCorrelations(equipmentID int, events []Event, now time.Time) []Correlation {
	var correlations []Correlation
	for _, rule := range DefaultCorrelationRules() {
		var timesA, timesB []time.Time
		for _, event := range events {
			if event.Kind != KindSensorData {
				continue
			}
			switch event.SensorData.SensorType {
			case rule.SensorA:
				timesA = append(timesA, event.OccurredAt)
			case rule.SensorB:
				timesB = append(timesB, event.OccurredAt)
			}
		}
		pairs := 0
		for _, ta := range timesA {
			for _, tb := range timesB {
				gap := tb.Sub(ta)
				if gap < 0 {
					gap = -gap
				}
				if gap <= rule.Window {
					pairs++
					break
				}
			}
		}
		if pairs == 0 {
			continue
		}
		strength := rule.BaseStrength
		if pairs < len(timesA) {
			strength *= float64(pairs) / float64(len(timesA))
		}
		correlations = append(correlations, Correlation{
			Rule:         rule.Name,
			Category:     "rule",
			EquipmentIDs: []int{equipmentID},
			Strength:     strength,
			Description:  fmt.Sprintf("%s and %s readings paired within %s", rule.SensorA, rule.SensorB, rule.Window),
			DetectedAt:   now,
		})
	}
	return correlations
}

func cascadeCorrelation(equipmentID int, events []Event, now time.Time) (Correlation, bool) {
	var alertTimes []time.Time
	for _, event := range events {
		if event.Kind == KindAlert || event.Kind == KindAnomaly {
			alertTimes = append(alertTimes, event.OccurredAt)
		}
	}
	for i := 0; i+2 < len(alertTimes); i++ {
		if alertTimes[i+2].Sub(alertTimes[i]) <= cascadeCorrelationWindow {
			return Correlation{
				Rule:         "cascade-failure",
				Category:     "rule",
				EquipmentIDs: []int{equipmentID},
				Strength:     0.95,
				Description:  "three or more alert/anomaly events within 30 minutes",
				DetectedAt:   now,
			}, true
		}
	}
	return Correlation{}, false
}

// statisticalCorrelation flags an event kind that dominates the window.
func statisticalCorrelation(equipmentID int, events []Event, now time.Time) (Correlation, bool) {
	if len(events) < 5 {
		return Correlation{}, false
	}
	counts := make(map[Kind]int)
	for _, event := range events {
		counts[event.Kind]++
	}
	for kind, count := range counts {
		share := float64(count) / float64(len(events))
		if kind != KindSensorData && share >= 0.5 {
			return Correlation{
				Rule:         fmt.Sprintf("dominant-%s", kind),
				Category:     "statistical",
				EquipmentIDs: []int{equipmentID},
				Strength:     share,
				Description:  fmt.Sprintf("%s events make up %.0f%% of the window", kind, share*100),
				DetectedAt:   now,
			}, true
		}
	}
	return Correlation{}, false
}

// temporalCorrelation flags a burst of five or more events inside one minute.
func temporalCorrelation(equipmentID int, events []Event, now time.Time) (Correlation, bool) {
	const burstSize = 5
	for i := 0; i+burstSize-1 < len(events); i++ {
		if events[i+burstSize-1].OccurredAt.Sub(events[i].OccurredAt) <= time.Minute {
			return Correlation{
				Rule:         "event-burst",
				Category:     "temporal",
				EquipmentIDs: []int{equipmentID},
				Strength:     0.6,
				Description:  "five or more events within one minute",
				DetectedAt:   now,
			}, true
		}
	}
	return Correlation{}, false
}

// crossEquipmentCorrelations clusters anomaly/alert events on different
// equipment that occurred within one minute of each other.
func crossEquipmentCorrelations(byEquipment map[int][]Event, from, to time.Time, now time.Time) []Correlation {
	type stamped struct {
		equipmentID int
		at          time.Time
	}
	var incidents []stamped
	for equipmentID, events := range byEquipment {
		for _, event := range eventsBetween(events, from, to) {
			if event.Kind == KindAlert || event.Kind == KindAnomaly {
				incidents = append(incidents, stamped{equipmentID: equipmentID, at: event.OccurredAt})
			}
		}
	}
	if len(incidents) < 2 {
		return nil
	}
	sort.Slice(incidents, func(i, j int) bool { return incidents[i].at.Before(incidents[j].at) })

	var correlations []Correlation
	seen := make(map[string]bool)
	for i := 0; i < len(incidents); i++ {
		for j := i + 1; j < len(incidents); j++ {
			if incidents[j].at.Sub(incidents[i].at) > time.Minute {
				break
			}
			a, b := incidents[i].equipmentID, incidents[j].equipmentID
			if a == b {
				continue
			}
			if a > b {
				a, b = b, a
			}
			key := fmt.Sprintf("%d-%d", a, b)
			if seen[key] {
				continue
			}
			seen[key] = true
			correlations = append(correlations, Correlation{
				Rule:         "coincident-incidents",
				Category:     "cross_equipment",
				EquipmentIDs: []int{a, b},
				Strength:     0.5,
				Description:  "alert or anomaly events on both units within one minute",
				DetectedAt:   now,
			})
		}
	}
	return correlations
}
