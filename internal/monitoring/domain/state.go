package monitoring

import (
	"time"

	equipment "maintenance-cloud/internal/equipment/domain"
)

// Mode is the monitoring intensity for one piece of equipment.
type Mode string

const (
	ModeNormal     Mode = "normal"
	ModeIntensive  Mode = "intensive"
	ModeContinuous Mode = "continuous"
	ModePredictive Mode = "predictive"
)

// Status is the derived operational status of monitored equipment.
type Status string

const (
	StatusOperational Status = "operational"
	StatusWarning     Status = "warning"
	StatusCritical    Status = "critical"
	StatusOffline     Status = "offline"
)

// State tracks the monitoring lifecycle for one piece of equipment.
// Mode and sampling interval are derived once at start and not re-evaluated.
type State struct {
	EquipmentID      int           `json:"equipment_id"`
	Active           bool          `json:"active"`
	StartedAt        time.Time     `json:"started_at"`
	StoppedAt        time.Time     `json:"stopped_at,omitempty"`
	Mode             Mode          `json:"mode"`
	SamplingInterval time.Duration `json:"sampling_interval"`
}

// ModeFor derives the monitoring mode from criticality and current health.
func ModeFor(criticality equipment.Criticality, healthScore float64) Mode {
	if criticality == equipment.CriticalityCritical {
		return ModeContinuous
	}
	if healthScore < 70 {
		return ModeIntensive
	}
	return ModeNormal
}

// SamplingIntervalFor derives the sampling interval from criticality.
func SamplingIntervalFor(criticality equipment.Criticality) time.Duration {
	switch criticality {
	case equipment.CriticalityCritical:
		return 5 * time.Second
	case equipment.CriticalityHigh:
		return 15 * time.Second
	case equipment.CriticalityMedium:
		return 30 * time.Second
	default:
		return 60 * time.Second
	}
}
