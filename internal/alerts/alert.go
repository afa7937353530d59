package alerts

import (
	"errors"
	"strings"
	"time"
)

// ErrNotFound indicates a missing alert record.
var ErrNotFound = errors.New("alert: not found")

// Type classifies the condition that raised an alert.
type Type string

const (
	TypeThresholdExceeded      Type = "threshold_exceeded"
	TypeAnomalyDetected        Type = "anomaly_detected"
	TypeTrendAlert             Type = "trend_alert"
	TypeMaintenanceRequired    Type = "maintenance_required"
	TypeSystemError            Type = "system_error"
	TypePerformanceDegradation Type = "performance_degradation"
	TypePredictiveAlert        Type = "predictive_alert"
)

// Severity ranks the urgency of an alert.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Rank returns an ordinal for severity comparison.
func (s Severity) Rank() int {
	switch Severity(strings.ToLower(string(s))) {
	case SeverityCritical:
		return 4
	case SeverityHigh:
		return 3
	case SeverityMedium:
		return 2
	case SeverityLow:
		return 1
	default:
		return 0
	}
}

// AtLeast reports whether s is at least as severe as target.
func (s Severity) AtLeast(target Severity) bool {
	return s.Rank() >= target.Rank()
}

// Alert is one detected condition for a piece of equipment.
type Alert struct {
	ID          string    `json:"id"`
	EquipmentID int       `json:"equipment_id"`
	Type        Type      `json:"type"`
	Severity    Severity  `json:"severity"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`

	// Optional sensor context for threshold/anomaly/trend alerts.
	SensorType string  `json:"sensor_type,omitempty"`
	Value      float64 `json:"value,omitempty"`
	Threshold  float64 `json:"threshold,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	Active    bool      `json:"active"`

	Acknowledged   bool      `json:"acknowledged"`
	AcknowledgedBy string    `json:"acknowledged_by,omitempty"`
	AcknowledgedAt time.Time `json:"acknowledged_at,omitempty"`

	Resolved   bool      `json:"resolved"`
	ResolvedAt time.Time `json:"resolved_at,omitempty"`
	Resolution string    `json:"resolution,omitempty"`
}

// Validate checks alert invariants.
func (a Alert) Validate() error {
	if a.EquipmentID <= 0 {
		return errors.New("alert: invalid equipment id")
	}
	if a.Type == "" {
		return errors.New("alert: empty type")
	}
	if a.Severity.Rank() == 0 {
		return errors.New("alert: invalid severity")
	}
	if a.Title == "" {
		return errors.New("alert: empty title")
	}
	return nil
}
