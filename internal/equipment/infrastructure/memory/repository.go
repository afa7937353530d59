package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	equipment "maintenance-cloud/internal/equipment/domain"
)

// Repository is an in-memory equipment.Repository for tests and demos.
type Repository struct {
	mu    sync.RWMutex
	items map[int]equipment.Equipment
}

// NewRepository constructs an empty repository.
func NewRepository() *Repository {
	return &Repository{items: make(map[int]equipment.Equipment)}
}

// Put stores or replaces an equipment record.
func (r *Repository) Put(eq equipment.Equipment) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[eq.ID] = eq
}

// GetByID loads equipment by id.
func (r *Repository) GetByID(_ context.Context, id int) (*equipment.Equipment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	eq, ok := r.items[id]
	if !ok {
		return nil, equipment.ErrNotFound
	}
	copy := eq
	return &copy, nil
}

// ListActive returns all active equipment ordered by id.
func (r *Repository) ListActive(_ context.Context) ([]equipment.Equipment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	result := make([]equipment.Equipment, 0, len(r.items))
	for _, eq := range r.items {
		if eq.Active {
			result = append(result, eq)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

// UpdateHealthScore writes a new health score.
func (r *Repository) UpdateHealthScore(_ context.Context, id int, score float64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	eq, ok := r.items[id]
	if !ok {
		return equipment.ErrNotFound
	}
	eq.HealthScore = score
	eq.UpdatedAt = time.Now().UTC()
	r.items[id] = eq
	return nil
}
