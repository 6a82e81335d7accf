package command

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hacklabs/hacklabs-platform/internal/domain/profile"
	"github.com/hacklabs/hacklabs-platform/internal/domain/shared"
)

func TestSweepProfiles_RepairsMissingDependents(t *testing.T) {
	profiles := newFakeProfileRepo()
	dependents := newFakeDependentRepo()
	bus := &fakeBus{}

	// p1 lost both dependent rows, p2 only its subscription, p3 is intact.
	p1 := profiles.seed(&profile.Profile{Email: "p1@x.com"})
	p2 := profiles.seed(&profile.Profile{Email: "p2@x.com"})
	p3 := profiles.seed(&profile.Profile{Email: "p3@x.com"})

	ctx := context.Background()
	require.NoError(t, dependents.CreateSkillScores(ctx, profile.NewSkillScores(p2.ID, p2.CreatedAt)))
	require.NoError(t, dependents.CreateSkillScores(ctx, profile.NewSkillScores(p3.ID, p3.CreatedAt)))
	require.NoError(t, dependents.CreateSubscription(ctx, profile.NewSubscription(p3.ID, p3.CreatedAt)))

	handler := NewSweepProfilesHandler(
		&fakeSweepRepo{profiles: profiles, dependents: dependents},
		dependents,
		&fakeActivityRepo{},
		bus,
	)

	res, err := handler.Handle(ctx, SweepProfilesCommand{})
	require.NoError(t, err)

	assert.Equal(t, 1, res.ScoresRepaired)
	assert.Equal(t, 2, res.SubscriptionsRepaired)
	assert.Empty(t, res.Failed)

	for _, p := range []*profile.Profile{p1, p2, p3} {
		_, err := dependents.GetSkillScores(ctx, p.ID)
		assert.NoError(t, err)
		_, err = dependents.GetSubscription(ctx, p.ID)
		assert.NoError(t, err)
	}

	assert.Contains(t, bus.types(), shared.EventProfileRepaired)
}

func TestSweepProfiles_CleanStoreIsNoop(t *testing.T) {
	profiles := newFakeProfileRepo()
	dependents := newFakeDependentRepo()

	p := profiles.seed(&profile.Profile{Email: "p@x.com"})
	ctx := context.Background()
	require.NoError(t, dependents.CreateSkillScores(ctx, profile.NewSkillScores(p.ID, p.CreatedAt)))
	require.NoError(t, dependents.CreateSubscription(ctx, profile.NewSubscription(p.ID, p.CreatedAt)))

	bus := &fakeBus{}
	handler := NewSweepProfilesHandler(
		&fakeSweepRepo{profiles: profiles, dependents: dependents},
		dependents,
		&fakeActivityRepo{},
		bus,
	)

	res, err := handler.Handle(ctx, SweepProfilesCommand{})
	require.NoError(t, err)

	assert.Zero(t, res.ScoresRepaired)
	assert.Zero(t, res.SubscriptionsRepaired)
	assert.Empty(t, bus.types())
}
