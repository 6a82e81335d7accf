// Package profile contains the domain model of the application-local user
// record. A profile is keyed by an opaque store-generated id, distinct from
// the identity provider's external id.
package profile

import (
	"time"

	"github.com/hacklabs/hacklabs-platform/internal/domain/identity"
)

// ══════════════════════════════════════════════════════════════════════════════
// DEFAULTS
// ══════════════════════════════════════════════════════════════════════════════

// Defaults applied to a first-time profile.
const (
	// DefaultRank is the entry rank for every new profile.
	DefaultRank = "Script Kiddie"

	// DefaultXP is the starting experience value.
	DefaultXP = 0

	// DefaultTier is the subscription tier a new profile starts on.
	DefaultTier = "Free"

	// DefaultPlan is the subscription plan created at bootstrap.
	DefaultPlan = "Free"

	// DefaultSubscriptionStatus is the status of the bootstrap subscription.
	DefaultSubscriptionStatus = "active"
)

// ══════════════════════════════════════════════════════════════════════════════
// PROFILE
// ══════════════════════════════════════════════════════════════════════════════

// Profile is the application-local user record.
type Profile struct {
	// ID is the opaque store-generated primary key.
	ID string

	// ExternalID is the identity provider's stable user id. It is
	// re-written on every sync so a provider migration re-links the row.
	ExternalID string

	// Email is the lookup key used by the historic reconciliation behavior.
	// At most one profile exists per email.
	Email string

	// DisplayName is derived from the external identity's name candidates.
	DisplayName string

	// AvatarURL is the profile image URL, may be empty.
	AvatarURL string

	// Rank is the gamification rank label.
	Rank string

	// XP is the accumulated experience.
	XP int

	// SubscriptionTier mirrors the active subscription's plan for cheap reads.
	SubscriptionTier string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// New builds a first-time profile from an external identity. The ID is left
// empty; the store generates it on insert.
func New(ext identity.ExternalIdentity, now time.Time) *Profile {
	return &Profile{
		ExternalID:       ext.ID,
		Email:            ext.Email,
		DisplayName:      ext.DeriveDisplayName(),
		AvatarURL:        ext.AvatarURL,
		Rank:             DefaultRank,
		XP:               DefaultXP,
		SubscriptionTier: DefaultTier,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
}

// Clone returns a copy of the profile. The sync returns the pre-update row
// to its caller, so the handler snapshots before mutating.
func (p *Profile) Clone() *Profile {
	cp := *p
	return &cp
}

// ══════════════════════════════════════════════════════════════════════════════
// SKILL SCORES
// ══════════════════════════════════════════════════════════════════════════════

// SkillScores holds the per-domain skill values for one profile.
// Exactly one row exists per profile, created at bootstrap time.
type SkillScores struct {
	ProfileID string

	Web       int
	Crypto    int
	Forensics int
	Reversing int
	Pwn       int
	Network   int

	UpdatedAt time.Time
}

// NewSkillScores returns the all-zero bootstrap row for a profile.
func NewSkillScores(profileID string, now time.Time) *SkillScores {
	return &SkillScores{
		ProfileID: profileID,
		UpdatedAt: now,
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// SUBSCRIPTION
// ══════════════════════════════════════════════════════════════════════════════

// Subscription is the billing record for one profile.
type Subscription struct {
	ID        string
	ProfileID string
	Plan      string
	Status    string
	CreatedAt time.Time
}

// NewSubscription returns the Free/active bootstrap subscription.
func NewSubscription(profileID string, now time.Time) *Subscription {
	return &Subscription{
		ProfileID: profileID,
		Plan:      DefaultPlan,
		Status:    DefaultSubscriptionStatus,
		CreatedAt: now,
	}
}
