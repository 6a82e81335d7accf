package learning

import (
	"context"
	"time"
)

// CatalogRepository reads the unit/module catalog. The catalog is owned by
// the content pipeline; this service only reads it.
type CatalogRepository interface {
	// GetUnit returns a unit by id.
	GetUnit(ctx context.Context, unitID string) (*Unit, error)

	// ListModules returns a unit's modules ordered by position.
	ListModules(ctx context.Context, unitID string) ([]*Module, error)

	// CountModules returns the number of modules in a unit.
	CountModules(ctx context.Context, unitID string) (int, error)

	// ModuleBelongsToUnit reports whether a module is part of a unit.
	ModuleBelongsToUnit(ctx context.Context, unitID, moduleID string) (bool, error)
}

// EnrollmentRepository persists enrollments. One row per (profile, unit),
// enforced by a unique constraint; Upsert makes repeat enrollment a no-op
// instead of an error.
type EnrollmentRepository interface {
	// Upsert inserts the enrollment or leaves an existing row untouched.
	// It fills in the stored row's ID and reports whether a row was created.
	Upsert(ctx context.Context, e *Enrollment) (created bool, err error)

	// Get returns the enrollment for a (profile, unit) pair.
	Get(ctx context.Context, profileID, unitID string) (*Enrollment, error)

	// ListByProfile returns all enrollments for a profile.
	ListByProfile(ctx context.Context, profileID string) ([]*Enrollment, error)

	// UpdateProgress writes the recomputed completion percentage.
	UpdateProgress(ctx context.Context, enrollmentID string, percentage int, at time.Time) error
}

// ModuleProgressRepository persists per-module completion rows. One row per
// (profile, unit, module); Upsert overwrites the completion flag.
type ModuleProgressRepository interface {
	// Upsert inserts or updates the progress row.
	Upsert(ctx context.Context, mp *ModuleProgress) error

	// ListByUnit returns all progress rows for a (profile, unit) pair.
	ListByUnit(ctx context.Context, profileID, unitID string) ([]*ModuleProgress, error)
}
