package equipment

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound indicates a missing equipment record.
var ErrNotFound = errors.New("equipment: not found")

// Type classifies a piece of equipment.
type Type string

const (
	TypeMotor       Type = "motor"
	TypeTransformer Type = "transformer"
	TypeBreaker     Type = "breaker"
	TypeBattery     Type = "battery"
	TypeGeneric     Type = "generic"
)

// Criticality is the operational importance tier of equipment.
type Criticality string

const (
	CriticalityLow      Criticality = "low"
	CriticalityMedium   Criticality = "medium"
	CriticalityHigh     Criticality = "high"
	CriticalityCritical Criticality = "critical"
)

// Valid returns true when the criticality tier is supported.
func (c Criticality) Valid() bool {
	switch c {
	case CriticalityLow, CriticalityMedium, CriticalityHigh, CriticalityCritical:
		return true
	default:
		return false
	}
}

// Equipment is the monitored asset as owned by the persistence collaborator.
// The monitoring core reads it by id and writes back the health score.
type Equipment struct {
	ID                int
	Name              string
	Type              Type
	Criticality       Criticality
	HealthScore       float64
	RatedCapacity     float64
	Active            bool
	InstalledAt       time.Time
	LastMaintenanceAt time.Time
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// Validate checks equipment invariants.
func (e Equipment) Validate() error {
	if e.ID <= 0 {
		return errors.New("equipment: invalid id")
	}
	if e.Name == "" {
		return errors.New("equipment: empty name")
	}
	if e.Type == "" {
		return errors.New("equipment: empty type")
	}
	if !e.Criticality.Valid() {
		return errors.New("equipment: invalid criticality")
	}
	if e.HealthScore < 0 || e.HealthScore > 100 {
		return errors.New("equipment: health score out of range")
	}
	return nil
}

// Repository provides access to equipment records.
type Repository interface {
	GetByID(ctx context.Context, id int) (*Equipment, error)
	ListActive(ctx context.Context) ([]Equipment, error)
	UpdateHealthScore(ctx context.Context, id int, score float64) error
}
