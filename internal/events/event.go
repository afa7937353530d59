package events

import (
	"errors"
	"time"

	"github.com/google/uuid"

	telemetry "maintenance-cloud/internal/telemetry/domain"
)

// Kind tags the closed set of event variants.
type Kind string

const (
	KindSensorData  Kind = "sensor_data"
	KindEquipment   Kind = "equipment"
	KindAnomaly     Kind = "anomaly"
	KindMaintenance Kind = "maintenance"
	KindAlert       Kind = "alert"
)

// SensorDataPayload carries a sensor sample.
type SensorDataPayload struct {
	SensorType string  `json:"sensor_type"`
	Value      float64 `json:"value"`
	Anomalous  bool    `json:"anomalous,omitempty"`
}

// EquipmentPayload carries a generic equipment-level event.
type EquipmentPayload struct {
	EventType   string `json:"event_type"`
	Severity    string `json:"severity"`
	Description string `json:"description,omitempty"`
}

// AnomalyPayload carries an anomaly verdict.
type AnomalyPayload struct {
	SensorType  string  `json:"sensor_type"`
	Score       float64 `json:"score"`
	Description string  `json:"description,omitempty"`
}

// MaintenancePayload carries a maintenance action.
type MaintenancePayload struct {
	Action      string    `json:"action"`
	ScheduledAt time.Time `json:"scheduled_at,omitempty"`
	Description string    `json:"description,omitempty"`
}

// AlertPayload carries an alert lifecycle event.
type AlertPayload struct {
	AlertID   string `json:"alert_id"`
	AlertType string `json:"alert_type"`
	Severity  string `json:"severity"`
	Title     string `json:"title"`
}

// Event is a tagged union over the five event variants. Exactly one payload
// field matching Kind is set; consumers dispatch by switching on Kind.
type Event struct {
	ID          string    `json:"id"`
	EquipmentID int       `json:"equipment_id"`
	Kind        Kind      `json:"kind"`
	OccurredAt  time.Time `json:"occurred_at"`

	SensorData  *SensorDataPayload  `json:"sensor_data,omitempty"`
	Equipment   *EquipmentPayload   `json:"equipment,omitempty"`
	Anomaly     *AnomalyPayload     `json:"anomaly,omitempty"`
	Maintenance *MaintenancePayload `json:"maintenance,omitempty"`
	Alert       *AlertPayload       `json:"alert,omitempty"`
}

// NewSensorDataEvent builds a sensor-data event from a reading.
func NewSensorDataEvent(reading telemetry.SensorReading) Event {
	return Event{
		ID:          uuid.NewString(),
		EquipmentID: reading.EquipmentID,
		Kind:        KindSensorData,
		OccurredAt:  reading.Timestamp,
		SensorData: &SensorDataPayload{
			SensorType: reading.SensorType,
			Value:      reading.Value,
			Anomalous:  reading.Anomalous,
		},
	}
}

// NewEquipmentEvent builds a generic equipment event.
func NewEquipmentEvent(equipmentID int, eventType, severity, description string, at time.Time) Event {
	return Event{
		ID:          uuid.NewString(),
		EquipmentID: equipmentID,
		Kind:        KindEquipment,
		OccurredAt:  at,
		Equipment: &EquipmentPayload{
			EventType:   eventType,
			Severity:    severity,
			Description: description,
		},
	}
}

// NewAnomalyEvent builds an anomaly event.
func NewAnomalyEvent(equipmentID int, sensorType string, score float64, description string, at time.Time) Event {
	return Event{
		ID:          uuid.NewString(),
		EquipmentID: equipmentID,
		Kind:        KindAnomaly,
		OccurredAt:  at,
		Anomaly: &AnomalyPayload{
			SensorType:  sensorType,
			Score:       score,
			Description: description,
		},
	}
}

// NewMaintenanceEvent builds a maintenance event.
func NewMaintenanceEvent(equipmentID int, action string, scheduledAt time.Time, description string, at time.Time) Event {
	return Event{
		ID:          uuid.NewString(),
		EquipmentID: equipmentID,
		Kind:        KindMaintenance,
		OccurredAt:  at,
		Maintenance: &MaintenancePayload{
			Action:      action,
			ScheduledAt: scheduledAt,
			Description: description,
		},
	}
}

// NewAlertEvent builds an alert event.
func NewAlertEvent(equipmentID int, alertID, alertType, severity, title string, at time.Time) Event {
	return Event{
		ID:          uuid.NewString(),
		EquipmentID: equipmentID,
		Kind:        KindAlert,
		OccurredAt:  at,
		Alert: &AlertPayload{
			AlertID:   alertID,
			AlertType: alertType,
			Severity:  severity,
			Title:     title,
		},
	}
}

// Validate checks that exactly the payload matching Kind is present.
func (e Event) Validate() error {
	if e.EquipmentID <= 0 {
		return errors.New("event: invalid equipment id")
	}
	if e.OccurredAt.IsZero() {
		return errors.New("event: zero timestamp")
	}
	set := 0
	for _, present := range []bool{
		e.SensorData != nil,
		e.Equipment != nil,
		e.Anomaly != nil,
		e.Maintenance != nil,
		e.Alert != nil,
	} {
		if present {
			set++
		}
	}
	if set != 1 {
		return errors.New("event: exactly one payload must be set")
	}
	var ok bool
	switch e.Kind {
	case KindSensorData:
		ok = e.SensorData != nil
	case KindEquipment:
		ok = e.Equipment != nil
	case KindAnomaly:
		ok = e.Anomaly != nil
	case KindMaintenance:
		ok = e.Maintenance != nil
	case KindAlert:
		ok = e.Alert != nil
	default:
		return errors.New("event: unknown kind")
	}
	if !ok {
		return errors.New("event: payload does not match kind")
	}
	return nil
}

// Severity extracts the severity for variants that carry one.
func (e Event) Severity() string {
	switch e.Kind {
	case KindEquipment:
		return e.Equipment.Severity
	case KindAlert:
		return e.Alert.Severity
	default:
		return ""
	}
}

// Pattern describes a sequence of event kinds expected inside a time window.
type Pattern struct {
	Name     string
	Sequence []Kind
	Window   time.Duration
	Severity string
}

// Matches reports whether the pattern's sequence occurs in order within the
// pattern window ending at now.
func (p Pattern) Matches(window []Event, now time.Time) bool {
	if len(p.Sequence) == 0 {
		return false
	}
	cutoff := now.Add(-p.Window)
	next := 0
	for _, event := range window {
		if event.OccurredAt.Before(cutoff) {
			continue
		}
		if event.Kind == p.Sequence[next] {
			next++
			if next == len(p.Sequence) {
				return true
			}
		}
	}
	return false
}

// PatternMatch is a detected pattern occurrence.
type PatternMatch struct {
	Pattern    string    `json:"pattern"`
	Severity   string    `json:"severity"`
	DetectedAt time.Time `json:"detected_at"`
}
