package command

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hacklabs/hacklabs-platform/internal/domain/activity"
	"github.com/hacklabs/hacklabs-platform/internal/domain/learning"
	"github.com/hacklabs/hacklabs-platform/internal/domain/shared"
)

type enrollFixture struct {
	catalog     *fakeCatalog
	enrollments *fakeEnrollmentRepo
	activities  *fakeActivityRepo
	bus         *fakeBus
	handler     *EnrollHandler
}

func newEnrollFixture() *enrollFixture {
	f := &enrollFixture{
		catalog:     newFakeCatalog(),
		enrollments: newFakeEnrollmentRepo(),
		activities:  &fakeActivityRepo{},
		bus:         &fakeBus{},
	}
	f.handler = NewEnrollHandler(f.catalog, f.enrollments, f.activities, f.bus)
	return f
}

func TestEnroll_CreatesEnrollmentAndLogsActivity(t *testing.T) {
	f := newEnrollFixture()
	f.catalog.addUnit("web-101", learning.UnitTypeCourse, 4)

	res, err := f.handler.Handle(context.Background(), EnrollCommand{ProfileID: "p1", UnitID: "web-101"})
	require.NoError(t, err)

	assert.True(t, res.Created)
	assert.True(t, res.ActivityLogged)
	assert.NotEmpty(t, res.Enrollment.ID)
	assert.Equal(t, 0, res.Enrollment.ProgressPercentage)

	assert.Equal(t, []string{activity.TypeEnrollCourse}, f.activities.typesFor("p1"))
	assert.Contains(t, f.bus.types(), shared.EventEnrollmentCreated)
}

func TestEnroll_TrackLogsEnrollTrack(t *testing.T) {
	f := newEnrollFixture()
	f.catalog.addUnit("red-team", learning.UnitTypeTrack, 8)

	_, err := f.handler.Handle(context.Background(), EnrollCommand{ProfileID: "p1", UnitID: "red-team"})
	require.NoError(t, err)

	assert.Equal(t, []string{activity.TypeEnrollTrack}, f.activities.typesFor("p1"))
}

func TestEnroll_RepeatEnrollmentIsIdempotent(t *testing.T) {
	f := newEnrollFixture()
	f.catalog.addUnit("web-101", learning.UnitTypeCourse, 4)
	ctx := context.Background()

	first, err := f.handler.Handle(ctx, EnrollCommand{ProfileID: "p1", UnitID: "web-101"})
	require.NoError(t, err)
	require.True(t, first.Created)

	second, err := f.handler.Handle(ctx, EnrollCommand{ProfileID: "p1", UnitID: "web-101"})
	require.NoError(t, err)

	assert.False(t, second.Created)
	assert.Equal(t, first.Enrollment.ID, second.Enrollment.ID)
	assert.Len(t, f.enrollments.rows, 1)

	// No duplicate activity entry and no second event.
	assert.Len(t, f.activities.typesFor("p1"), 1)
	assert.Len(t, f.bus.types(), 1)
}

func TestEnroll_UnknownUnitFails(t *testing.T) {
	f := newEnrollFixture()

	_, err := f.handler.Handle(context.Background(), EnrollCommand{ProfileID: "p1", UnitID: "ghost"})
	require.Error(t, err)
	assert.True(t, shared.IsNotFound(err))
}

func TestEnroll_ActivityFailureDoesNotFailEnrollment(t *testing.T) {
	f := newEnrollFixture()
	f.catalog.addUnit("web-101", learning.UnitTypeCourse, 4)
	f.activities.appendErr = errors.New("log store down")

	res, err := f.handler.Handle(context.Background(), EnrollCommand{ProfileID: "p1", UnitID: "web-101"})
	require.NoError(t, err)

	assert.True(t, res.Created)
	assert.False(t, res.ActivityLogged)
	assert.Len(t, f.enrollments.rows, 1)
}

func TestEnroll_Validation(t *testing.T) {
	f := newEnrollFixture()

	_, err := f.handler.Handle(context.Background(), EnrollCommand{UnitID: "web-101"})
	assert.Error(t, err)

	_, err = f.handler.Handle(context.Background(), EnrollCommand{ProfileID: "p1"})
	assert.Error(t, err)
}
