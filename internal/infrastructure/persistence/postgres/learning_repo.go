package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/hacklabs/hacklabs-platform/internal/domain/learning"
	"github.com/hacklabs/hacklabs-platform/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// CATALOG REPOSITORY
// ══════════════════════════════════════════════════════════════════════════════

// CatalogRepository is the pgx implementation of learning.CatalogRepository.
// The catalog tables are written by the content pipeline; this side only reads.
type CatalogRepository struct {
	conn *Connection
}

// NewCatalogRepository creates a new CatalogRepository.
func NewCatalogRepository(conn *Connection) *CatalogRepository {
	return &CatalogRepository{conn: conn}
}

// GetUnit returns a unit by id.
func (r *CatalogRepository) GetUnit(ctx context.Context, unitID string) (*learning.Unit, error) {
	query := `
		SELECT id, type, title, description, difficulty, created_at
		FROM units WHERE id = $1`

	var u learning.Unit
	err := r.conn.QueryRow(ctx, query, unitID).Scan(
		&u.ID, &u.Type, &u.Title, &u.Description, &u.Difficulty, &u.CreatedAt)
	if err != nil {
		if IsNoRows(err) {
			return nil, shared.ErrUnitNotFound
		}
		return nil, fmt.Errorf("postgres: get unit: %w", err)
	}
	return &u, nil
}

// ListModules returns a unit's modules ordered by position.
func (r *CatalogRepository) ListModules(ctx context.Context, unitID string) ([]*learning.Module, error) {
	query := `
		SELECT id, unit_id, title, position
		FROM unit_modules WHERE unit_id = $1
		ORDER BY position`

	rows, err := r.conn.Query(ctx, query, unitID)
	if err != nil {
		return nil, fmt.Errorf("postgres: list modules: %w", err)
	}
	defer rows.Close()

	var out []*learning.Module
	for rows.Next() {
		var m learning.Module
		if err := rows.Scan(&m.ID, &m.UnitID, &m.Title, &m.Position); err != nil {
			return nil, fmt.Errorf("postgres: scan module: %w", err)
		}
		out = append(out, &m)
	}
	return out, rows.Err()
}

// CountModules returns the unit's module count.
func (r *CatalogRepository) CountModules(ctx context.Context, unitID string) (int, error) {
	var count int
	err := r.conn.QueryRow(ctx,
		"SELECT COUNT(*) FROM unit_modules WHERE unit_id = $1", unitID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("postgres: count modules: %w", err)
	}
	return count, nil
}

// ModuleBelongsToUnit reports whether a module is part of the unit.
func (r *CatalogRepository) ModuleBelongsToUnit(ctx context.Context, unitID, moduleID string) (bool, error) {
	var exists bool
	err := r.conn.QueryRow(ctx,
		"SELECT EXISTS (SELECT 1 FROM unit_modules WHERE unit_id = $1 AND id = $2)",
		unitID, moduleID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("postgres: module membership check: %w", err)
	}
	return exists, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// ENROLLMENT REPOSITORY
// ══════════════════════════════════════════════════════════════════════════════

// EnrollmentRepository is the pgx implementation of learning.EnrollmentRepository.
type EnrollmentRepository struct {
	conn *Connection
}

// NewEnrollmentRepository creates a new EnrollmentRepository.
func NewEnrollmentRepository(conn *Connection) *EnrollmentRepository {
	return &EnrollmentRepository{conn: conn}
}

// Upsert inserts the enrollment or leaves an existing row untouched. The
// unique constraint on (profile_id, unit_id) makes concurrent enrolls safe;
// ON CONFLICT DO NOTHING plus a follow-up read resolves the loser's row.
func (r *EnrollmentRepository) Upsert(ctx context.Context, e *learning.Enrollment) (bool, error) {
	query := `
		INSERT INTO enrollments (profile_id, unit_id, progress_percentage, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $4)
		ON CONFLICT (profile_id, unit_id) DO NOTHING
		RETURNING id`

	err := r.conn.QueryRow(ctx, query,
		e.ProfileID, e.UnitID, e.ProgressPercentage, e.CreatedAt).Scan(&e.ID)
	if err == nil {
		return true, nil
	}
	if !IsNoRows(err) {
		return false, fmt.Errorf("postgres: upsert enrollment: %w", err)
	}

	// Conflict path: load the existing row into the entity.
	existing, err := r.Get(ctx, e.ProfileID, e.UnitID)
	if err != nil {
		return false, err
	}
	*e = *existing
	return false, nil
}

const enrollmentColumns = "id, profile_id, unit_id, progress_percentage, created_at"

// Get returns the enrollment for a (profile, unit) pair.
func (r *EnrollmentRepository) Get(ctx context.Context, profileID, unitID string) (*learning.Enrollment, error) {
	query := fmt.Sprintf(
		"SELECT %s FROM enrollments WHERE profile_id = $1 AND unit_id = $2", enrollmentColumns)

	var e learning.Enrollment
	err := r.conn.QueryRow(ctx, query, profileID, unitID).Scan(
		&e.ID, &e.ProfileID, &e.UnitID, &e.ProgressPercentage, &e.CreatedAt)
	if err != nil {
		if IsNoRows(err) {
			return nil, shared.ErrEnrollmentNotFound
		}
		return nil, fmt.Errorf("postgres: get enrollment: %w", err)
	}
	return &e, nil
}

// ListByProfile returns all enrollments for a profile, newest first.
func (r *EnrollmentRepository) ListByProfile(ctx context.Context, profileID string) ([]*learning.Enrollment, error) {
	query := fmt.Sprintf(
		"SELECT %s FROM enrollments WHERE profile_id = $1 ORDER BY created_at DESC", enrollmentColumns)

	rows, err := r.conn.Query(ctx, query, profileID)
	if err != nil {
		return nil, fmt.Errorf("postgres: list enrollments: %w", err)
	}
	defer rows.Close()

	var out []*learning.Enrollment
	for rows.Next() {
		var e learning.Enrollment
		if err := rows.Scan(&e.ID, &e.ProfileID, &e.UnitID, &e.ProgressPercentage, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("postgres: scan enrollment: %w", err)
		}
		out = append(out, &e)
	}
	return out, rows.Err()
}

// UpdateProgress writes the recomputed percentage.
func (r *EnrollmentRepository) UpdateProgress(ctx context.Context, enrollmentID string, percentage int, at time.Time) error {
	tag, err := r.conn.Exec(ctx,
		"UPDATE enrollments SET progress_percentage = $1, updated_at = $2 WHERE id = $3",
		percentage, at, enrollmentID)
	if err != nil {
		return fmt.Errorf("postgres: update progress: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrEnrollmentNotFound
	}
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// MODULE PROGRESS REPOSITORY
// ══════════════════════════════════════════════════════════════════════════════

// ModuleProgressRepository is the pgx implementation of
// learning.ModuleProgressRepository.
type ModuleProgressRepository struct {
	conn *Connection
}

// NewModuleProgressRepository creates a new ModuleProgressRepository.
func NewModuleProgressRepository(conn *Connection) *ModuleProgressRepository {
	return &ModuleProgressRepository{conn: conn}
}

// Upsert inserts or overwrites the completion row.
func (r *ModuleProgressRepository) Upsert(ctx context.Context, mp *learning.ModuleProgress) error {
	query := `
		INSERT INTO module_progress (profile_id, unit_id, module_id, is_completed, completed_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (profile_id, unit_id, module_id)
		DO UPDATE SET is_completed = EXCLUDED.is_completed, completed_at = EXCLUDED.completed_at`

	_, err := r.conn.Exec(ctx, query,
		mp.ProfileID, mp.UnitID, mp.ModuleID, mp.IsCompleted, mp.CompletedAt)
	if err != nil {
		return fmt.Errorf("postgres: upsert module progress: %w", err)
	}
	return nil
}

// ListByUnit returns all progress rows for a (profile, unit) pair.
func (r *ModuleProgressRepository) ListByUnit(ctx context.Context, profileID, unitID string) ([]*learning.ModuleProgress, error) {
	query := `
		SELECT profile_id, unit_id, module_id, is_completed, completed_at
		FROM module_progress WHERE profile_id = $1 AND unit_id = $2`

	rows, err := r.conn.Query(ctx, query, profileID, unitID)
	if err != nil {
		return nil, fmt.Errorf("postgres: list module progress: %w", err)
	}
	defer rows.Close()

	var out []*learning.ModuleProgress
	for rows.Next() {
		var mp learning.ModuleProgress
		if err := rows.Scan(&mp.ProfileID, &mp.UnitID, &mp.ModuleID, &mp.IsCompleted, &mp.CompletedAt); err != nil {
			return nil, fmt.Errorf("postgres: scan module progress: %w", err)
		}
		out = append(out, &mp)
	}
	return out, rows.Err()
}
