package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/hacklabs/hacklabs-platform/internal/domain/profile"
	"github.com/hacklabs/hacklabs-platform/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// PROFILE REPOSITORY
// ══════════════════════════════════════════════════════════════════════════════

// ProfileRepository is the pgx implementation of profile.Repository,
// profile.DependentRepository, and profile.SweepRepository.
type ProfileRepository struct {
	conn *Connection
}

// NewProfileRepository creates a new ProfileRepository.
func NewProfileRepository(conn *Connection) *ProfileRepository {
	return &ProfileRepository{conn: conn}
}

const profileColumns = `
	id, external_id, email, display_name, avatar_url,
	rank, xp, subscription_tier, created_at, updated_at`

func scanProfile(row interface{ Scan(...interface{}) error }) (*profile.Profile, error) {
	var p profile.Profile
	err := row.Scan(
		&p.ID, &p.ExternalID, &p.Email, &p.DisplayName, &p.AvatarURL,
		&p.Rank, &p.XP, &p.SubscriptionTier, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// Create inserts a new profile and fills in the generated id.
func (r *ProfileRepository) Create(ctx context.Context, p *profile.Profile) error {
	query := `
		INSERT INTO profiles (external_id, email, display_name, avatar_url,
			rank, xp, subscription_tier, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id`

	err := r.conn.QueryRow(ctx, query,
		p.ExternalID, p.Email, p.DisplayName, p.AvatarURL,
		p.Rank, p.XP, p.SubscriptionTier, p.CreatedAt, p.UpdatedAt,
	).Scan(&p.ID)
	if err != nil {
		if IsUniqueViolation(err) {
			return shared.ErrProfileAlreadyExists
		}
		return fmt.Errorf("postgres: create profile: %w", err)
	}
	return nil
}

// GetByID returns a profile by primary key.
func (r *ProfileRepository) GetByID(ctx context.Context, id string) (*profile.Profile, error) {
	return r.getBy(ctx, "id", id)
}

// GetByEmail returns a profile by email.
func (r *ProfileRepository) GetByEmail(ctx context.Context, email string) (*profile.Profile, error) {
	return r.getBy(ctx, "email", email)
}

// GetByExternalID returns a profile by the provider-issued id.
func (r *ProfileRepository) GetByExternalID(ctx context.Context, externalID string) (*profile.Profile, error) {
	return r.getBy(ctx, "external_id", externalID)
}

func (r *ProfileRepository) getBy(ctx context.Context, column, value string) (*profile.Profile, error) {
	query := fmt.Sprintf("SELECT %s FROM profiles WHERE %s = $1", profileColumns, column)

	p, err := scanProfile(r.conn.QueryRow(ctx, query, value))
	if err != nil {
		if IsNoRows(err) {
			return nil, shared.ErrProfileNotFound
		}
		return nil, fmt.Errorf("postgres: get profile by %s: %w", column, err)
	}
	return p, nil
}

// Relink rewrites the external id on an existing row.
func (r *ProfileRepository) Relink(ctx context.Context, profileID, externalID string, at time.Time) error {
	tag, err := r.conn.Exec(ctx,
		"UPDATE profiles SET external_id = $1, updated_at = $2 WHERE id = $3",
		externalID, at, profileID)
	if err != nil {
		if IsUniqueViolation(err) {
			return shared.ErrProfileAlreadyExists
		}
		return fmt.Errorf("postgres: relink profile: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrProfileNotFound
	}
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// DEPENDENT ROWS
// ══════════════════════════════════════════════════════════════════════════════

// HasSkillScores reports whether a skill-score row exists.
func (r *ProfileRepository) HasSkillScores(ctx context.Context, profileID string) (bool, error) {
	return r.exists(ctx, "SELECT EXISTS (SELECT 1 FROM skill_scores WHERE profile_id = $1)", profileID)
}

// CreateSkillScores inserts the bootstrap skill-score row.
func (r *ProfileRepository) CreateSkillScores(ctx context.Context, s *profile.SkillScores) error {
	query := `
		INSERT INTO skill_scores (profile_id, web, crypto, forensics, reversing, pwn, network, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := r.conn.Exec(ctx, query,
		s.ProfileID, s.Web, s.Crypto, s.Forensics, s.Reversing, s.Pwn, s.Network, s.UpdatedAt)
	if err != nil {
		if IsUniqueViolation(err) {
			return shared.ErrAlreadyExists
		}
		return fmt.Errorf("postgres: create skill scores: %w", err)
	}
	return nil
}

// GetSkillScores returns the skill-score row.
func (r *ProfileRepository) GetSkillScores(ctx context.Context, profileID string) (*profile.SkillScores, error) {
	query := `
		SELECT profile_id, web, crypto, forensics, reversing, pwn, network, updated_at
		FROM skill_scores WHERE profile_id = $1`

	var s profile.SkillScores
	err := r.conn.QueryRow(ctx, query, profileID).Scan(
		&s.ProfileID, &s.Web, &s.Crypto, &s.Forensics, &s.Reversing, &s.Pwn, &s.Network, &s.UpdatedAt)
	if err != nil {
		if IsNoRows(err) {
			return nil, shared.ErrSkillScoresNotFound
		}
		return nil, fmt.Errorf("postgres: get skill scores: %w", err)
	}
	return &s, nil
}

// HasSubscription reports whether a subscription row exists.
func (r *ProfileRepository) HasSubscription(ctx context.Context, profileID string) (bool, error) {
	return r.exists(ctx, "SELECT EXISTS (SELECT 1 FROM subscriptions WHERE profile_id = $1)", profileID)
}

// CreateSubscription inserts the bootstrap subscription row.
func (r *ProfileRepository) CreateSubscription(ctx context.Context, s *profile.Subscription) error {
	query := `
		INSERT INTO subscriptions (profile_id, plan, status, created_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id`

	err := r.conn.QueryRow(ctx, query, s.ProfileID, s.Plan, s.Status, s.CreatedAt).Scan(&s.ID)
	if err != nil {
		if IsUniqueViolation(err) {
			return shared.ErrAlreadyExists
		}
		return fmt.Errorf("postgres: create subscription: %w", err)
	}
	return nil
}

// GetSubscription returns the subscription row.
func (r *ProfileRepository) GetSubscription(ctx context.Context, profileID string) (*profile.Subscription, error) {
	query := `
		SELECT id, profile_id, plan, status, created_at
		FROM subscriptions WHERE profile_id = $1`

	var s profile.Subscription
	err := r.conn.QueryRow(ctx, query, profileID).Scan(&s.ID, &s.ProfileID, &s.Plan, &s.Status, &s.CreatedAt)
	if err != nil {
		if IsNoRows(err) {
			return nil, shared.ErrSubscriptionNotFound
		}
		return nil, fmt.Errorf("postgres: get subscription: %w", err)
	}
	return &s, nil
}

func (r *ProfileRepository) exists(ctx context.Context, query, profileID string) (bool, error) {
	var exists bool
	if err := r.conn.QueryRow(ctx, query, profileID).Scan(&exists); err != nil {
		return false, fmt.Errorf("postgres: existence check: %w", err)
	}
	return exists, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// SWEEP QUERIES
// ══════════════════════════════════════════════════════════════════════════════

// FindMissingSkillScores returns profiles without a skill-score row.
func (r *ProfileRepository) FindMissingSkillScores(ctx context.Context, limit int) ([]*profile.Profile, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM profiles p
		WHERE NOT EXISTS (SELECT 1 FROM skill_scores s WHERE s.profile_id = p.id)
		ORDER BY p.created_at
		LIMIT $1`, qualifyProfileColumns("p"))

	return r.queryProfiles(ctx, query, limit)
}

// FindMissingSubscription returns profiles without a subscription row.
func (r *ProfileRepository) FindMissingSubscription(ctx context.Context, limit int) ([]*profile.Profile, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM profiles p
		WHERE NOT EXISTS (SELECT 1 FROM subscriptions s WHERE s.profile_id = p.id)
		ORDER BY p.created_at
		LIMIT $1`, qualifyProfileColumns("p"))

	return r.queryProfiles(ctx, query, limit)
}

func qualifyProfileColumns(alias string) string {
	return fmt.Sprintf(`
		%[1]s.id, %[1]s.external_id, %[1]s.email, %[1]s.display_name, %[1]s.avatar_url,
		%[1]s.rank, %[1]s.xp, %[1]s.subscription_tier, %[1]s.created_at, %[1]s.updated_at`, alias)
}

func (r *ProfileRepository) queryProfiles(ctx context.Context, query string, args ...interface{}) ([]*profile.Profile, error) {
	rows, err := r.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: query profiles: %w", err)
	}
	defer rows.Close()

	var out []*profile.Profile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan profile: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
