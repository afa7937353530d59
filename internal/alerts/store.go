package alerts

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	defaultDedupWindow = 5 * time.Minute
	defaultRetention   = 24 * time.Hour
)

// Clock provides time.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }

// Store keeps active and recent alerts per equipment in memory.
//
// A newly detected condition with the same (type, sensor type) pair as an
// existing active alert created inside the dedup window is suppressed: no new
// alert is stored and the existing one is returned.
type Store struct {
	mu          sync.RWMutex
	byEquipment map[int][]*Alert
	dedupWindow time.Duration
	retention   time.Duration
	clock       Clock
}

// StoreOption configures the store.
type StoreOption func(*Store)

// WithDedupWindow overrides the duplicate-suppression window.
func WithDedupWindow(window time.Duration) StoreOption {
	return func(s *Store) {
		if window > 0 {
			s.dedupWindow = window
		}
	}
}

// WithRetention overrides how long resolved alerts are kept before cleanup.
func WithRetention(retention time.Duration) StoreOption {
	return func(s *Store) {
		if retention > 0 {
			s.retention = retention
		}
	}
}

// WithClock overrides the default clock.
func WithClock(clock Clock) StoreOption {
	return func(s *Store) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// NewStore constructs an empty alert store.
func NewStore(opts ...StoreOption) *Store {
	store := &Store{
		byEquipment: make(map[int][]*Alert),
		dedupWindow: defaultDedupWindow,
		retention:   defaultRetention,
		clock:       systemClock{},
	}
	for _, opt := range opts {
		opt(store)
	}
	return store
}

// Add stores a new alert unless an equivalent active alert exists inside the
// dedup window. The second return value reports whether the alert was stored.
func (s *Store) Add(alert Alert) (Alert, bool) {
	now := s.clock.Now().UTC()

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.byEquipment[alert.EquipmentID] {
		if !existing.Active {
			continue
		}
		if existing.Type != alert.Type || existing.SensorType != alert.SensorType {
			continue
		}
		if now.Sub(existing.CreatedAt) < s.dedupWindow {
			return *existing, false
		}
	}

	if alert.ID == "" {
		alert.ID = uuid.NewString()
	}
	if alert.CreatedAt.IsZero() {
		alert.CreatedAt = now
	}
	alert.Active = true
	stored := alert
	s.byEquipment[alert.EquipmentID] = append(s.byEquipment[alert.EquipmentID], &stored)
	return stored, true
}

// Acknowledge marks an alert acknowledged. Returns false when no alert with
// the given id exists.
func (s *Store) Acknowledge(alertID, by string) (Alert, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, list := range s.byEquipment {
		for _, alert := range list {
			if alert.ID != alertID {
				continue
			}
			if !alert.Acknowledged {
				alert.Acknowledged = true
				alert.AcknowledgedBy = by
				alert.AcknowledgedAt = s.clock.Now().UTC()
			}
			return *alert, true
		}
	}
	return Alert{}, false
}

// Resolve marks an alert resolved and inactive.
func (s *Store) Resolve(alertID, resolution string) (Alert, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, list := range s.byEquipment {
		for _, alert := range list {
			if alert.ID != alertID {
				continue
			}
			if !alert.Resolved {
				alert.Resolved = true
				alert.Resolution = resolution
				alert.ResolvedAt = s.clock.Now().UTC()
				alert.Active = false
			}
			return *alert, true
		}
	}
	return Alert{}, false
}

// ActiveForEquipment returns active alerts for one equipment, newest first.
func (s *Store) ActiveForEquipment(equipmentID int) []Alert {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return sortNewestFirst(s.collect(func(a *Alert) bool {
		return a.Active && a.EquipmentID == equipmentID
	}))
}

// ActiveAll returns active alerts across all equipment, newest first.
func (s *Store) ActiveAll() []Alert {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return sortNewestFirst(s.collect(func(a *Alert) bool { return a.Active }))
}

// HasActiveUnacknowledged reports whether the equipment has an active,
// unacknowledged alert of exactly the given severity. Status derivation
// checks Critical and High separately, so there is no ordering here.
func (s *Store) HasActiveUnacknowledged(equipmentID int, severity Severity) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, alert := range s.byEquipment[equipmentID] {
		if alert.Active && !alert.Acknowledged && alert.Severity.Rank() == severity.Rank() {
			return true
		}
	}
	return false
}

// CountActiveBySeverity returns active-alert counts per severity for one equipment.
func (s *Store) CountActiveBySeverity(equipmentID int) map[Severity]int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := make(map[Severity]int)
	for _, alert := range s.byEquipment[equipmentID] {
		if alert.Active {
			counts[alert.Severity]++
		}
	}
	return counts
}

// CleanupResolved removes resolved alerts older than the retention window and
// returns how many were dropped.
func (s *Store) CleanupResolved() int {
	now := s.clock.Now().UTC()

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for equipmentID, list := range s.byEquipment {
		kept := list[:0]
		for _, alert := range list {
			if alert.Resolved && now.Sub(alert.ResolvedAt) > s.retention {
				removed++
				continue
			}
			kept = append(kept, alert)
		}
		if len(kept) == 0 {
			delete(s.byEquipment, equipmentID)
			continue
		}
		s.byEquipment[equipmentID] = kept
	}
	return removed
}

func (s *Store) collect(match func(*Alert) bool) []Alert {
	var result []Alert
	for _, list := range s.byEquipment {
		for _, alert := range list {
			if match(alert) {
				result = append(result, *alert)
			}
		}
	}
	return result
}

func sortNewestFirst(list []Alert) []Alert {
	sort.SliceStable(list, func(i, j int) bool {
		return list[i].CreatedAt.After(list[j].CreatedAt)
	})
	return list
}
