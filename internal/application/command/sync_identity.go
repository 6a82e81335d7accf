// Package command contains write operations (CQRS - Commands).
// Commands are responsible for changing the state of the system.
package command

import (
	"context"
	"fmt"
	"time"

	"github.com/hacklabs/hacklabs-platform/internal/domain/activity"
	"github.com/hacklabs/hacklabs-platform/internal/domain/identity"
	"github.com/hacklabs/hacklabs-platform/internal/domain/profile"
	"github.com/hacklabs/hacklabs-platform/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// SYNC IDENTITY COMMAND
// Reconciles an authenticated external identity against the local profile
// store: find-or-create by the configured lookup key, re-link the external
// id, and bootstrap dependent rows for first-time users.
// ══════════════════════════════════════════════════════════════════════════════

// SyncIdentityCommand carries the identity asserted by the auth provider.
type SyncIdentityCommand struct {
	// Identity is the provider-asserted identity. ID and Email are required.
	Identity identity.ExternalIdentity

	// CorrelationID for tracing across services.
	CorrelationID string
}

// Validate validates the command.
func (c SyncIdentityCommand) Validate() error {
	if err := c.Identity.Validate(); err != nil {
		return fmt.Errorf("sync_identity: %w", err)
	}
	return nil
}

// SyncIdentityResult contains the outcome of the reconciliation.
type SyncIdentityResult struct {
	// Profile is the reconciled profile. For an existing user this is the
	// row as it was BEFORE the external id re-link; callers that need the
	// new external id already have it, they sent it in.
	Profile *profile.Profile

	// Created indicates a first-time profile was inserted.
	Created bool

	// Relinked indicates the stored external id differed and was rewritten.
	Relinked bool

	// BootstrapFailures lists dependent-row writes that failed during
	// first-time bootstrap. Bootstrap is best-effort: these failures do
	// not fail the sync, the reconciliation sweep repairs them later.
	BootstrapFailures []BootstrapFailure

	// SyncedAt is when the reconciliation ran.
	SyncedAt time.Time

	// Events contains domain events generated during the sync.
	Events []shared.Event
}

// BootstrapFailure records one failed dependent-row write.
type BootstrapFailure struct {
	// Step names the dependent row: "skill_scores", "subscription",
	// or "activity_log".
	Step string

	// Err is the underlying error.
	Err error
}

func (f BootstrapFailure) String() string {
	return fmt.Sprintf("%s: %v", f.Step, f.Err)
}

// ══════════════════════════════════════════════════════════════════════════════
// HANDLER
// ══════════════════════════════════════════════════════════════════════════════

// SyncIdentityHandler handles the SyncIdentityCommand.
type SyncIdentityHandler struct {
	profiles   profile.Repository
	dependents profile.DependentRepository
	activities activity.Repository
	publisher  shared.EventPublisher

	// lookupKey selects which column identifies an existing user.
	lookupKey identity.LookupKey

	now func() time.Time
}

// SyncIdentityHandlerConfig contains configuration for the handler.
type SyncIdentityHandlerConfig struct {
	// LookupKey selects the reconciliation key. Zero value means email.
	LookupKey identity.LookupKey
}

// NewSyncIdentityHandler creates a new SyncIdentityHandler.
func NewSyncIdentityHandler(
	profiles profile.Repository,
	dependents profile.DependentRepository,
	activities activity.Repository,
	publisher shared.EventPublisher,
	config SyncIdentityHandlerConfig,
) *SyncIdentityHandler {
	if config.LookupKey == "" {
		config.LookupKey = identity.LookupByEmail
	}

	return &SyncIdentityHandler{
		profiles:   profiles,
		dependents: dependents,
		activities: activities,
		publisher:  publisher,
		lookupKey:  config.LookupKey,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// Handle executes the sync identity command.
//
// Not-found on lookup is the creation signal, not a failure. Any other
// lookup error aborts the sync so a transient store outage cannot mint a
// duplicate profile for an existing user.
func (h *SyncIdentityHandler) Handle(ctx context.Context, cmd SyncIdentityCommand) (*SyncIdentityResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	now := h.now()

	existing, err := h.lookup(ctx, cmd.Identity)
	switch {
	case err == nil:
		return h.syncExisting(ctx, existing, cmd, now)
	case shared.IsNotFound(err):
		return h.createProfile(ctx, cmd, now)
	default:
		return nil, fmt.Errorf("sync_identity: lookup failed: %w", err)
	}
}

// lookup finds the existing profile by the configured key.
func (h *SyncIdentityHandler) lookup(ctx context.Context, ext identity.ExternalIdentity) (*profile.Profile, error) {
	if h.lookupKey == identity.LookupByExternalID {
		return h.profiles.GetByExternalID(ctx, ext.ID)
	}
	return h.profiles.GetByEmail(ctx, ext.Email)
}

// syncExisting re-links the external id on an existing profile and returns
// the pre-update row.
func (h *SyncIdentityHandler) syncExisting(
	ctx context.Context,
	existing *profile.Profile,
	cmd SyncIdentityCommand,
	now time.Time,
) (*SyncIdentityResult, error) {
	result := &SyncIdentityResult{
		Profile:  existing.Clone(),
		SyncedAt: now,
	}

	if existing.ExternalID != cmd.Identity.ID {
		if err := h.profiles.Relink(ctx, existing.ID, cmd.Identity.ID, now); err != nil {
			return nil, fmt.Errorf("sync_identity: relink failed: %w", err)
		}
		result.Relinked = true

		event := shared.NewProfileRelinkedEvent(existing.ID, existing.ExternalID, cmd.Identity.ID, existing.Email)
		if cmd.CorrelationID != "" {
			event.BaseEvent = event.BaseEvent.WithCorrelationID(cmd.CorrelationID)
		}
		result.Events = append(result.Events, event)
	}

	h.publish(result.Events)
	return result, nil
}

// createProfile inserts a first-time profile and bootstraps its dependent
// rows best-effort.
func (h *SyncIdentityHandler) createProfile(
	ctx context.Context,
	cmd SyncIdentityCommand,
	now time.Time,
) (*SyncIdentityResult, error) {
	p := profile.New(cmd.Identity, now)
	if err := h.profiles.Create(ctx, p); err != nil {
		// A concurrent sync for the same user may have won the insert
		// race; re-read and treat it as the existing-user path.
		if shared.IsAlreadyExists(err) {
			existing, lookupErr := h.lookup(ctx, cmd.Identity)
			if lookupErr != nil {
				return nil, fmt.Errorf("sync_identity: create raced but re-lookup failed: %w", lookupErr)
			}
			return h.syncExisting(ctx, existing, cmd, now)
		}
		return nil, fmt.Errorf("sync_identity: create failed: %w", err)
	}

	result := &SyncIdentityResult{
		Profile:  p,
		Created:  true,
		SyncedAt: now,
	}

	result.BootstrapFailures = h.bootstrapDependents(ctx, p, now)

	event := shared.NewProfileCreatedEvent(p.ID, p.ExternalID, p.Email)
	if cmd.CorrelationID != "" {
		event.BaseEvent = event.BaseEvent.WithCorrelationID(cmd.CorrelationID)
	}
	result.Events = append(result.Events, event)

	h.publish(result.Events)
	return result, nil
}

// bootstrapDependents writes the skill-score row, the Free subscription,
// and the profile_created log entry. Each write is independent; a failure
// is recorded and the rest still run.
func (h *SyncIdentityHandler) bootstrapDependents(
	ctx context.Context,
	p *profile.Profile,
	now time.Time,
) []BootstrapFailure {
	var failures []BootstrapFailure

	if err := h.bootstrapSkillScores(ctx, p.ID, now); err != nil {
		failures = append(failures, BootstrapFailure{Step: "skill_scores", Err: err})
	}

	if err := h.bootstrapSubscription(ctx, p.ID, now); err != nil {
		failures = append(failures, BootstrapFailure{Step: "subscription", Err: err})
	}

	if err := h.logProfileCreated(ctx, p, now); err != nil {
		failures = append(failures, BootstrapFailure{Step: "activity_log", Err: err})
	}

	return failures
}

func (h *SyncIdentityHandler) bootstrapSkillScores(ctx context.Context, profileID string, now time.Time) error {
	exists, err := h.dependents.HasSkillScores(ctx, profileID)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	return h.dependents.CreateSkillScores(ctx, profile.NewSkillScores(profileID, now))
}

func (h *SyncIdentityHandler) bootstrapSubscription(ctx context.Context, profileID string, now time.Time) error {
	exists, err := h.dependents.HasSubscription(ctx, profileID)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	return h.dependents.CreateSubscription(ctx, profile.NewSubscription(profileID, now))
}

func (h *SyncIdentityHandler) logProfileCreated(ctx context.Context, p *profile.Profile, now time.Time) error {
	entry, err := activity.NewEntry(p.ID, activity.TypeProfileCreated, map[string]any{
		"external_id": p.ExternalID,
		"email":       p.Email,
	}, now)
	if err != nil {
		return err
	}
	return h.activities.Append(ctx, entry)
}

// publish hands events to the bus. Delivery is best-effort; subscribers
// only maintain caches.
func (h *SyncIdentityHandler) publish(events []shared.Event) {
	if h.publisher == nil {
		return
	}
	for _, event := range events {
		_ = h.publisher.Publish(event)
	}
}
