package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	equipment "maintenance-cloud/internal/equipment/domain"
)

const defaultEquipmentTable = "equipment"

// DBTX abstracts *sql.DB and *sql.Tx.
type DBTX interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// EquipmentRepository is a Postgres implementation of equipment.Repository.
type EquipmentRepository struct {
	db    DBTX
	table string
}

// Option configures the repository.
type Option func(*EquipmentRepository)

// WithTable overrides the default table name.
func WithTable(table string) Option {
	return func(repo *EquipmentRepository) {
		if table != "" {
			repo.table = table
		}
	}
}

// NewEquipmentRepository constructs a repository.
func NewEquipmentRepository(db DBTX, opts ...Option) *EquipmentRepository {
	repo := &EquipmentRepository{db: db, table: defaultEquipmentTable}
	for _, opt := range opts {
		opt(repo)
	}
	return repo
}

// GetByID loads equipment by id. Returns equipment.ErrNotFound for unknown ids.
func (r *EquipmentRepository) GetByID(ctx context.Context, id int) (*equipment.Equipment, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("equipment repo: nil db")
	}
	if id <= 0 {
		return nil, errors.New("equipment repo: invalid id")
	}

	query := fmt.Sprintf(`
SELECT id, name, equipment_type, criticality, health_score, rated_capacity, active, installed_at, last_maintenance_at, created_at, updated_at
FROM %s
WHERE id = $1
LIMIT 1`, r.table)

	var (
		eq              equipment.Equipment
		lastMaintenance sql.NullTime
	)
	if err := r.db.QueryRowContext(ctx, query, id).Scan(
		&eq.ID,
		&eq.Name,
		&eq.Type,
		&eq.Criticality,
		&eq.HealthScore,
		&eq.RatedCapacity,
		&eq.Active,
		&eq.InstalledAt,
		&lastMaintenance,
		&eq.CreatedAt,
		&eq.UpdatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, equipment.ErrNotFound
		}
		return nil, err
	}
	if lastMaintenance.Valid {
		eq.LastMaintenanceAt = lastMaintenance.Time.UTC()
	}
	eq.InstalledAt = eq.InstalledAt.UTC()
	eq.CreatedAt = eq.CreatedAt.UTC()
	eq.UpdatedAt = eq.UpdatedAt.UTC()
	return &eq, nil
}

// ListActive returns all active equipment records.
func (r *EquipmentRepository) ListActive(ctx context.Context) ([]equipment.Equipment, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("equipment repo: nil db")
	}

	query := fmt.Sprintf(`
SELECT id, name, equipment_type, criticality, health_score, rated_capacity, active, installed_at, last_maintenance_at, created_at, updated_at
FROM %s
WHERE active = TRUE
ORDER BY id`, r.table)

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []equipment.Equipment
	for rows.Next() {
		var (
			eq              equipment.Equipment
			lastMaintenance sql.NullTime
		)
		if err := rows.Scan(
			&eq.ID,
			&eq.Name,
			&eq.Type,
			&eq.Criticality,
			&eq.HealthScore,
			&eq.RatedCapacity,
			&eq.Active,
			&eq.InstalledAt,
			&lastMaintenance,
			&eq.CreatedAt,
			&eq.UpdatedAt,
		); err != nil {
			return nil, err
		}
		if lastMaintenance.Valid {
			eq.LastMaintenanceAt = lastMaintenance.Time.UTC()
		}
		result = append(result, eq)
	}
	return result, rows.Err()
}

// UpdateHealthScore writes the recomputed health score back to storage.
func (r *EquipmentRepository) UpdateHealthScore(ctx context.Context, id int, score float64) error {
	if r == nil || r.db == nil {
		return errors.New("equipment repo: nil db")
	}
	if id <= 0 {
		return errors.New("equipment repo: invalid id")
	}
	if score < 0 || score > 100 {
		return errors.New("equipment repo: health score out of range")
	}

	query := fmt.Sprintf(`
UPDATE %s
SET health_score = $2, updated_at = $3
WHERE id = $1`, r.table)

	result, err := r.db.ExecContext(ctx, query, id, score, time.Now().UTC())
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return equipment.ErrNotFound
	}
	return nil
}
