// Package query contains read operations (CQRS - Queries).
package query

import (
	"context"
	"time"

	"github.com/hacklabs/hacklabs-platform/internal/domain/profile"
	"github.com/hacklabs/hacklabs-platform/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET PROFILE QUERY
// Returns the full profile view for the "me" endpoint: profile row, skill
// scores, and subscription. Served from cache when possible; the cache is
// invalidated by profile events.
// ══════════════════════════════════════════════════════════════════════════════

// GetProfileQuery contains the parameters for a profile read.
type GetProfileQuery struct {
	// ProfileID is the local profile id.
	ProfileID string

	// ExternalID is an alternative lookup by the provider's id.
	ExternalID string

	// SkipCache forces a store read.
	SkipCache bool
}

// Validate validates the query.
func (q GetProfileQuery) Validate() error {
	if q.ProfileID == "" && q.ExternalID == "" {
		return shared.WrapError("query", "GetProfile", shared.ErrValidation,
			"either profile_id or external_id must be provided", nil)
	}
	return nil
}

// ProfileDTO is the read model for a profile.
type ProfileDTO struct {
	ID               string    `json:"id"`
	ExternalID       string    `json:"external_id"`
	Email            string    `json:"email"`
	DisplayName      string    `json:"display_name"`
	AvatarURL        string    `json:"avatar_url,omitempty"`
	Rank             string    `json:"rank"`
	XP               int       `json:"xp"`
	SubscriptionTier string    `json:"subscription_tier"`
	CreatedAt        time.Time `json:"created_at"`
}

// SkillScoresDTO is the read model for skill scores.
type SkillScoresDTO struct {
	Web       int `json:"web"`
	Crypto    int `json:"crypto"`
	Forensics int `json:"forensics"`
	Reversing int `json:"reversing"`
	Pwn       int `json:"pwn"`
	Network   int `json:"network"`
}

// SubscriptionDTO is the read model for the subscription.
type SubscriptionDTO struct {
	Plan   string `json:"plan"`
	Status string `json:"status"`
}

// GetProfileResult is the assembled profile view.
type GetProfileResult struct {
	Profile ProfileDTO `json:"profile"`

	// SkillScores is nil when the bootstrap row is still missing; the
	// sweep will create it, readers must tolerate the gap.
	SkillScores *SkillScoresDTO `json:"skill_scores,omitempty"`

	// Subscription is nil under the same conditions as SkillScores.
	Subscription *SubscriptionDTO `json:"subscription,omitempty"`

	// FromCache indicates a cache hit.
	FromCache bool `json:"-"`
}

// ProfileCache caches assembled profile views.
type ProfileCache interface {
	// Get returns the cached view or a miss.
	Get(ctx context.Context, profileID string) (*GetProfileResult, bool)

	// Set stores the view.
	Set(ctx context.Context, profileID string, result *GetProfileResult) error

	// Invalidate drops the cached view.
	Invalidate(ctx context.Context, profileID string) error
}

// GetProfileHandler handles profile reads.
type GetProfileHandler struct {
	profiles   profile.Repository
	dependents profile.DependentRepository
	cache      ProfileCache
}

// NewGetProfileHandler creates a new GetProfileHandler. The cache may be
// nil; reads then always hit the store.
func NewGetProfileHandler(
	profiles profile.Repository,
	dependents profile.DependentRepository,
	cache ProfileCache,
) *GetProfileHandler {
	return &GetProfileHandler{
		profiles:   profiles,
		dependents: dependents,
		cache:      cache,
	}
}

// Handle executes the profile read.
func (h *GetProfileHandler) Handle(ctx context.Context, query GetProfileQuery) (*GetProfileResult, error) {
	if err := query.Validate(); err != nil {
		return nil, err
	}

	p, err := h.findProfile(ctx, query)
	if err != nil {
		return nil, err
	}

	if h.cache != nil && !query.SkipCache {
		if cached, ok := h.cache.Get(ctx, p.ID); ok {
			cached.FromCache = true
			return cached, nil
		}
	}

	result := &GetProfileResult{
		Profile: ProfileDTO{
			ID:               p.ID,
			ExternalID:       p.ExternalID,
			Email:            p.Email,
			DisplayName:      p.DisplayName,
			AvatarURL:        p.AvatarURL,
			Rank:             p.Rank,
			XP:               p.XP,
			SubscriptionTier: p.SubscriptionTier,
			CreatedAt:        p.CreatedAt,
		},
	}

	// Dependent rows are read best-effort: a missing row is a known gap,
	// any other error still fails the read.
	scores, err := h.dependents.GetSkillScores(ctx, p.ID)
	switch {
	case err == nil:
		result.SkillScores = &SkillScoresDTO{
			Web:       scores.Web,
			Crypto:    scores.Crypto,
			Forensics: scores.Forensics,
			Reversing: scores.Reversing,
			Pwn:       scores.Pwn,
			Network:   scores.Network,
		}
	case !shared.IsNotFound(err):
		return nil, shared.WrapError("query", "GetProfile", err, "skill scores read failed", err)
	}

	sub, err := h.dependents.GetSubscription(ctx, p.ID)
	switch {
	case err == nil:
		result.Subscription = &SubscriptionDTO{Plan: sub.Plan, Status: sub.Status}
	case !shared.IsNotFound(err):
		return nil, shared.WrapError("query", "GetProfile", err, "subscription read failed", err)
	}

	if h.cache != nil {
		_ = h.cache.Set(ctx, p.ID, result)
	}

	return result, nil
}

func (h *GetProfileHandler) findProfile(ctx context.Context, query GetProfileQuery) (*profile.Profile, error) {
	if query.ProfileID != "" {
		return h.profiles.GetByID(ctx, query.ProfileID)
	}
	return h.profiles.GetByExternalID(ctx, query.ExternalID)
}
