package command

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hacklabs/hacklabs-platform/internal/domain/learning"
	"github.com/hacklabs/hacklabs-platform/internal/domain/shared"
)

type progressFixture struct {
	catalog     *fakeCatalog
	enrollments *fakeEnrollmentRepo
	progress    *fakeProgressRepo
	bus         *fakeBus
	handler     *SetModuleCompletionHandler
}

func newProgressFixture(t *testing.T, unitID string, moduleCount int) *progressFixture {
	t.Helper()

	f := &progressFixture{
		catalog:     newFakeCatalog(),
		enrollments: newFakeEnrollmentRepo(),
		progress:    newFakeProgressRepo(),
		bus:         &fakeBus{},
	}
	f.catalog.addUnit(unitID, learning.UnitTypeCourse, moduleCount)
	f.handler = NewSetModuleCompletionHandler(f.catalog, f.enrollments, f.progress, f.bus)

	enrollHandler := NewEnrollHandler(f.catalog, f.enrollments, &fakeActivityRepo{}, nil)
	_, err := enrollHandler.Handle(context.Background(), EnrollCommand{ProfileID: "p1", UnitID: unitID})
	require.NoError(t, err)

	return f
}

func (f *progressFixture) toggle(t *testing.T, moduleID string, completed bool) *SetModuleCompletionResult {
	t.Helper()
	res, err := f.handler.Handle(context.Background(), SetModuleCompletionCommand{
		ProfileID: "p1",
		UnitID:    "web-101",
		ModuleID:  moduleID,
		Completed: completed,
	})
	require.NoError(t, err)
	return res
}

func TestSetModuleCompletion_PercentageFollowsToggles(t *testing.T) {
	f := newProgressFixture(t, "web-101", 4)

	f.toggle(t, "web-101-m1", true)
	res := f.toggle(t, "web-101-m2", true)
	assert.Equal(t, 50, res.ProgressPercentage)

	res = f.toggle(t, "web-101-m3", true)
	assert.Equal(t, 75, res.ProgressPercentage)

	res = f.toggle(t, "web-101-m3", false)
	assert.Equal(t, 50, res.ProgressPercentage)

	// The stored enrollment tracks the recomputed value.
	e, err := f.enrollments.Get(context.Background(), "p1", "web-101")
	require.NoError(t, err)
	assert.Equal(t, 50, e.ProgressPercentage)
}

func TestSetModuleCompletion_FullCompletionEmitsUnitCompleted(t *testing.T) {
	f := newProgressFixture(t, "web-101", 2)

	f.toggle(t, "web-101-m1", true)
	res := f.toggle(t, "web-101-m2", true)

	assert.Equal(t, 100, res.ProgressPercentage)
	assert.True(t, res.UnitCompleted)
	assert.Contains(t, f.bus.types(), shared.EventUnitCompleted)

	// Re-toggling an already complete unit does not re-announce completion.
	res = f.toggle(t, "web-101-m2", true)
	assert.False(t, res.UnitCompleted)
}

func TestSetModuleCompletion_RepeatToggleIsIdempotent(t *testing.T) {
	f := newProgressFixture(t, "web-101", 4)

	f.toggle(t, "web-101-m1", true)
	res := f.toggle(t, "web-101-m1", true)

	assert.Equal(t, 25, res.ProgressPercentage)
	assert.Equal(t, 1, res.CompletedModules)
}

func TestSetModuleCompletion_RequiresEnrollment(t *testing.T) {
	f := newProgressFixture(t, "web-101", 4)

	_, err := f.handler.Handle(context.Background(), SetModuleCompletionCommand{
		ProfileID: "stranger",
		UnitID:    "web-101",
		ModuleID:  "web-101-m1",
		Completed: true,
	})
	require.Error(t, err)
	assert.True(t, shared.IsNotFound(err))
}

func TestSetModuleCompletion_RejectsForeignModule(t *testing.T) {
	f := newProgressFixture(t, "web-101", 4)

	_, err := f.handler.Handle(context.Background(), SetModuleCompletionCommand{
		ProfileID: "p1",
		UnitID:    "web-101",
		ModuleID:  "crypto-201-m1",
		Completed: true,
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, shared.ErrModuleNotInUnit)
}

func TestSetModuleCompletion_Validation(t *testing.T) {
	f := newProgressFixture(t, "web-101", 4)

	_, err := f.handler.Handle(context.Background(), SetModuleCompletionCommand{
		UnitID: "web-101", ModuleID: "web-101-m1",
	})
	assert.Error(t, err)

	_, err = f.handler.Handle(context.Background(), SetModuleCompletionCommand{
		ProfileID: "p1", ModuleID: "web-101-m1",
	})
	assert.Error(t, err)

	_, err = f.handler.Handle(context.Background(), SetModuleCompletionCommand{
		ProfileID: "p1", UnitID: "web-101",
	})
	assert.Error(t, err)
}
