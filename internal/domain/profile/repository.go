package profile

import (
	"context"
	"time"
)

// Repository defines persistence operations for profiles.
//
// Implementations must return shared.ErrProfileNotFound (or an error
// matching shared.ErrNotFound) for missing rows; the sync treats that
// outcome as the creation signal, not as a failure.
type Repository interface {
	// Create inserts a new profile and fills in the store-generated ID
	// and timestamps on the passed entity.
	Create(ctx context.Context, p *Profile) error

	// GetByID returns a profile by its store-generated primary key.
	GetByID(ctx context.Context, id string) (*Profile, error)

	// GetByEmail returns a profile by email, the historic lookup key.
	GetByEmail(ctx context.Context, email string) (*Profile, error)

	// GetByExternalID returns a profile by the provider-issued stable id.
	GetByExternalID(ctx context.Context, externalID string) (*Profile, error)

	// Relink updates the external id and updated_at of an existing profile.
	// Nothing else on the row changes.
	Relink(ctx context.Context, profileID, externalID string, at time.Time) error
}

// DependentRepository defines persistence for the rows bootstrapped
// alongside a new profile. All writes here are best-effort from the
// caller's perspective; the implementations themselves return errors
// normally and the caller decides what to swallow.
type DependentRepository interface {
	// HasSkillScores reports whether a skill-score row exists for the profile.
	HasSkillScores(ctx context.Context, profileID string) (bool, error)

	// CreateSkillScores inserts the skill-score row for a profile.
	CreateSkillScores(ctx context.Context, s *SkillScores) error

	// GetSkillScores returns the skill-score row for a profile.
	GetSkillScores(ctx context.Context, profileID string) (*SkillScores, error)

	// HasSubscription reports whether a subscription row exists for the profile.
	HasSubscription(ctx context.Context, profileID string) (bool, error)

	// CreateSubscription inserts the subscription row for a profile.
	CreateSubscription(ctx context.Context, s *Subscription) error

	// GetSubscription returns the subscription row for a profile.
	GetSubscription(ctx context.Context, profileID string) (*Subscription, error)
}

// SweepRepository exposes the queries the reconciliation sweep needs to
// find profiles whose bootstrap left dependent rows behind.
type SweepRepository interface {
	// FindMissingSkillScores returns profiles without a skill-score row.
	FindMissingSkillScores(ctx context.Context, limit int) ([]*Profile, error)

	// FindMissingSubscription returns profiles without a subscription row.
	FindMissingSubscription(ctx context.Context, limit int) ([]*Profile, error)
}
