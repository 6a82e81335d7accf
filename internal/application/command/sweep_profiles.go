package command

import (
	"context"
	"fmt"
	"time"

	"github.com/hacklabs/hacklabs-platform/internal/domain/activity"
	"github.com/hacklabs/hacklabs-platform/internal/domain/profile"
	"github.com/hacklabs/hacklabs-platform/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// SWEEP PROFILES COMMAND
// Repairs profiles whose best-effort bootstrap left dependent rows behind.
// Sign-in bootstrap is non-transactional, so a crashed or partially failed
// sync can leave a profile without skill scores or a subscription. The sweep
// re-runs the guarded inserts for those profiles.
// ══════════════════════════════════════════════════════════════════════════════

// SweepProfilesCommand triggers one reconciliation pass.
type SweepProfilesCommand struct {
	// BatchSize caps how many profiles each missing-row query returns.
	// Zero means the default.
	BatchSize int
}

// DefaultSweepBatchSize bounds one pass so the sweep never holds long
// scans on the profiles table.
const DefaultSweepBatchSize = 100

// SweepProfilesResult contains the outcome of one pass.
type SweepProfilesResult struct {
	// ScoresRepaired is the count of skill-score rows inserted.
	ScoresRepaired int

	// SubscriptionsRepaired is the count of subscription rows inserted.
	SubscriptionsRepaired int

	// Failed maps profile id to the error that blocked its repair.
	Failed map[string]error

	// Duration is the total pass duration.
	Duration time.Duration

	// StartedAt is when the pass started.
	StartedAt time.Time
}

// SweepProfilesHandler handles the SweepProfilesCommand.
type SweepProfilesHandler struct {
	sweep      profile.SweepRepository
	dependents profile.DependentRepository
	activities activity.Repository
	publisher  shared.EventPublisher

	now func() time.Time
}

// NewSweepProfilesHandler creates a new SweepProfilesHandler.
func NewSweepProfilesHandler(
	sweep profile.SweepRepository,
	dependents profile.DependentRepository,
	activities activity.Repository,
	publisher shared.EventPublisher,
) *SweepProfilesHandler {
	return &SweepProfilesHandler{
		sweep:      sweep,
		dependents: dependents,
		activities: activities,
		publisher:  publisher,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// Handle executes one sweep pass. A failure on one profile is recorded and
// the pass continues; the next pass retries whatever is still missing.
func (h *SweepProfilesHandler) Handle(ctx context.Context, cmd SweepProfilesCommand) (*SweepProfilesResult, error) {
	batch := cmd.BatchSize
	if batch <= 0 {
		batch = DefaultSweepBatchSize
	}

	startedAt := h.now()
	result := &SweepProfilesResult{
		Failed:    make(map[string]error),
		StartedAt: startedAt,
	}

	repaired := make(map[string][]string)

	missing, err := h.sweep.FindMissingSkillScores(ctx, batch)
	if err != nil {
		return nil, fmt.Errorf("sweep_profiles: missing-scores query failed: %w", err)
	}
	for _, p := range missing {
		if err := h.dependents.CreateSkillScores(ctx, profile.NewSkillScores(p.ID, h.now())); err != nil {
			if !shared.IsAlreadyExists(err) {
				result.Failed[p.ID] = err
			}
			continue
		}
		result.ScoresRepaired++
		repaired[p.ID] = append(repaired[p.ID], "skill_scores")
	}

	missing, err = h.sweep.FindMissingSubscription(ctx, batch)
	if err != nil {
		return nil, fmt.Errorf("sweep_profiles: missing-subscription query failed: %w", err)
	}
	for _, p := range missing {
		if err := h.dependents.CreateSubscription(ctx, profile.NewSubscription(p.ID, h.now())); err != nil {
			if !shared.IsAlreadyExists(err) {
				result.Failed[p.ID] = err
			}
			continue
		}
		result.SubscriptionsRepaired++
		repaired[p.ID] = append(repaired[p.ID], "subscription")
	}

	if h.publisher != nil {
		for profileID, rows := range repaired {
			_ = h.publisher.Publish(shared.NewProfileRepairedEvent(profileID, rows))
		}
	}

	result.Duration = h.now().Sub(startedAt)
	return result, nil
}
