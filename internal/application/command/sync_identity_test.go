package command

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hacklabs/hacklabs-platform/internal/domain/activity"
	"github.com/hacklabs/hacklabs-platform/internal/domain/identity"
	"github.com/hacklabs/hacklabs-platform/internal/domain/profile"
	"github.com/hacklabs/hacklabs-platform/internal/domain/shared"
)

type syncFixture struct {
	profiles   *fakeProfileRepo
	dependents *fakeDependentRepo
	activities *fakeActivityRepo
	bus        *fakeBus
	handler    *SyncIdentityHandler
}

func newSyncFixture(cfg SyncIdentityHandlerConfig) *syncFixture {
	f := &syncFixture{
		profiles:   newFakeProfileRepo(),
		dependents: newFakeDependentRepo(),
		activities: &fakeActivityRepo{},
		bus:        &fakeBus{},
	}
	f.handler = NewSyncIdentityHandler(f.profiles, f.dependents, f.activities, f.bus, cfg)
	return f
}

func testIdentity() identity.ExternalIdentity {
	return identity.ExternalIdentity{
		ID:        "user_2abc",
		Email:     "neo@hacklabs.io",
		FirstName: "Thomas",
		LastName:  "Anderson",
	}
}

func TestSyncIdentity_FirstTimeCreatesProfileAndDependents(t *testing.T) {
	f := newSyncFixture(SyncIdentityHandlerConfig{})

	res, err := f.handler.Handle(context.Background(), SyncIdentityCommand{Identity: testIdentity()})
	require.NoError(t, err)

	assert.True(t, res.Created)
	assert.Empty(t, res.BootstrapFailures)
	require.NotNil(t, res.Profile)
	assert.NotEmpty(t, res.Profile.ID)
	assert.Equal(t, "user_2abc", res.Profile.ExternalID)
	assert.Equal(t, "Thomas Anderson", res.Profile.DisplayName)
	assert.Equal(t, profile.DefaultRank, res.Profile.Rank)

	scores, err := f.dependents.GetSkillScores(context.Background(), res.Profile.ID)
	require.NoError(t, err)
	assert.Zero(t, scores.Web)
	assert.Zero(t, scores.Pwn)

	sub, err := f.dependents.GetSubscription(context.Background(), res.Profile.ID)
	require.NoError(t, err)
	assert.Equal(t, profile.DefaultPlan, sub.Plan)
	assert.Equal(t, profile.DefaultSubscriptionStatus, sub.Status)

	assert.Equal(t, []string{activity.TypeProfileCreated}, f.activities.typesFor(res.Profile.ID))
	assert.Contains(t, f.bus.types(), shared.EventProfileCreated)
}

func TestSyncIdentity_SameEmailTwiceYieldsOneProfile(t *testing.T) {
	f := newSyncFixture(SyncIdentityHandlerConfig{})
	ctx := context.Background()

	first, err := f.handler.Handle(ctx, SyncIdentityCommand{Identity: testIdentity()})
	require.NoError(t, err)
	require.True(t, first.Created)

	// Same email arriving under a different external id, as after a
	// provider migration.
	relinked := testIdentity()
	relinked.ID = "user_9xyz"

	second, err := f.handler.Handle(ctx, SyncIdentityCommand{Identity: relinked})
	require.NoError(t, err)

	assert.False(t, second.Created)
	assert.True(t, second.Relinked)
	assert.Equal(t, first.Profile.ID, second.Profile.ID)

	// Exactly one profile, one skill-score row, one subscription.
	assert.Len(t, f.profiles.byID, 1)
	assert.Len(t, f.dependents.scores, 1)
	assert.Len(t, f.dependents.subscriptions, 1)

	stored, err := f.profiles.GetByID(ctx, first.Profile.ID)
	require.NoError(t, err)
	assert.Equal(t, "user_9xyz", stored.ExternalID)
}

func TestSyncIdentity_ReturnsPreUpdateRow(t *testing.T) {
	f := newSyncFixture(SyncIdentityHandlerConfig{})
	ctx := context.Background()

	seeded := f.profiles.seed(&profile.Profile{
		ExternalID:  "user_old",
		Email:       "neo@hacklabs.io",
		DisplayName: "Neo",
	})

	res, err := f.handler.Handle(ctx, SyncIdentityCommand{Identity: testIdentity()})
	require.NoError(t, err)

	// The result carries the row as it stood before the re-link.
	assert.Equal(t, "user_old", res.Profile.ExternalID)
	assert.True(t, res.Relinked)

	stored, err := f.profiles.GetByID(ctx, seeded.ID)
	require.NoError(t, err)
	assert.Equal(t, "user_2abc", stored.ExternalID)
}

func TestSyncIdentity_MatchingExternalIDIsNoop(t *testing.T) {
	f := newSyncFixture(SyncIdentityHandlerConfig{})

	f.profiles.seed(&profile.Profile{
		ExternalID:  "user_2abc",
		Email:       "neo@hacklabs.io",
		DisplayName: "Neo",
	})

	res, err := f.handler.Handle(context.Background(), SyncIdentityCommand{Identity: testIdentity()})
	require.NoError(t, err)

	assert.False(t, res.Created)
	assert.False(t, res.Relinked)
	assert.Empty(t, f.bus.types())
}

func TestSyncIdentity_BootstrapFailureIsRecordedNotReturned(t *testing.T) {
	f := newSyncFixture(SyncIdentityHandlerConfig{})
	f.dependents.subscriptionErr = errors.New("subscriptions table is on fire")

	res, err := f.handler.Handle(context.Background(), SyncIdentityCommand{Identity: testIdentity()})
	require.NoError(t, err)

	assert.True(t, res.Created)
	require.Len(t, res.BootstrapFailures, 1)
	assert.Equal(t, "subscription", res.BootstrapFailures[0].Step)

	// The other dependents still got written.
	_, err = f.dependents.GetSkillScores(context.Background(), res.Profile.ID)
	assert.NoError(t, err)
	assert.Equal(t, []string{activity.TypeProfileCreated}, f.activities.typesFor(res.Profile.ID))
}

func TestSyncIdentity_AllBootstrapStepsFailIndependently(t *testing.T) {
	f := newSyncFixture(SyncIdentityHandlerConfig{})
	f.dependents.scoresErr = errors.New("down")
	f.dependents.subscriptionErr = errors.New("down")
	f.activities.appendErr = errors.New("down")

	res, err := f.handler.Handle(context.Background(), SyncIdentityCommand{Identity: testIdentity()})
	require.NoError(t, err)

	assert.True(t, res.Created)
	steps := make([]string, 0, len(res.BootstrapFailures))
	for _, bf := range res.BootstrapFailures {
		steps = append(steps, bf.Step)
	}
	assert.Equal(t, []string{"skill_scores", "subscription", "activity_log"}, steps)
}

func TestSyncIdentity_LookupErrorAbortsSync(t *testing.T) {
	f := newSyncFixture(SyncIdentityHandlerConfig{})
	f.profiles.lookupErr = errors.New("connection refused")

	_, err := f.handler.Handle(context.Background(), SyncIdentityCommand{Identity: testIdentity()})
	require.Error(t, err)

	// A transient lookup failure must not mint a duplicate profile.
	assert.Empty(t, f.profiles.byID)
}

func TestSyncIdentity_LookupByExternalID(t *testing.T) {
	f := newSyncFixture(SyncIdentityHandlerConfig{LookupKey: identity.LookupByExternalID})
	ctx := context.Background()

	f.profiles.seed(&profile.Profile{
		ExternalID: "user_2abc",
		Email:      "old-address@hacklabs.io",
	})

	// Same external id, changed email: found by id, no new profile.
	res, err := f.handler.Handle(ctx, SyncIdentityCommand{Identity: testIdentity()})
	require.NoError(t, err)

	assert.False(t, res.Created)
	assert.Len(t, f.profiles.byID, 1)
}

func TestSyncIdentity_ValidationRejectsIncompleteIdentity(t *testing.T) {
	f := newSyncFixture(SyncIdentityHandlerConfig{})

	_, err := f.handler.Handle(context.Background(), SyncIdentityCommand{
		Identity: identity.ExternalIdentity{Email: "no-id@x.com"},
	})
	assert.Error(t, err)

	_, err = f.handler.Handle(context.Background(), SyncIdentityCommand{
		Identity: identity.ExternalIdentity{ID: "user_1"},
	})
	assert.Error(t, err)
}

func TestSyncIdentity_CreateRaceFallsBackToExisting(t *testing.T) {
	f := newSyncFixture(SyncIdentityHandlerConfig{})
	ctx := context.Background()

	// A concurrent sync wins the insert: the first lookup misses, Create
	// hits the unique constraint, and the re-lookup finds the winner's row.
	winner := f.profiles.seed(&profile.Profile{
		ExternalID: "user_2abc",
		Email:      "neo@hacklabs.io",
	})
	f.profiles.lookupMisses = 1

	res, err := f.handler.Handle(ctx, SyncIdentityCommand{Identity: testIdentity()})
	require.NoError(t, err)

	assert.False(t, res.Created)
	assert.Equal(t, winner.ID, res.Profile.ID)
	assert.Len(t, f.profiles.byID, 1)
}
