package learning

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestProgressSet_Percentage(t *testing.T) {
	// A unit with 4 modules: toggling completions must move the
	// percentage to 50, then 75, then back to 50.
	set := NewProgressSet(nil)

	set.Apply("m1", true)
	set.Apply("m2", true)
	assert.Equal(t, 50, set.Percentage(4))

	set.Apply("m3", true)
	assert.Equal(t, 75, set.Percentage(4))

	set.Apply("m3", false)
	assert.Equal(t, 50, set.Percentage(4))
}

func TestProgressSet_PercentageRounding(t *testing.T) {
	set := NewProgressSet(nil)
	set.Apply("m1", true)

	// 1 of 3 is 33.33..., rounds to 33; 2 of 3 is 66.66..., rounds to 67.
	assert.Equal(t, 33, set.Percentage(3))

	set.Apply("m2", true)
	assert.Equal(t, 67, set.Percentage(3))

	set.Apply("m3", true)
	assert.Equal(t, 100, set.Percentage(3))
}

func TestProgressSet_EmptyUnit(t *testing.T) {
	set := NewProgressSet(nil)
	assert.Equal(t, 0, set.Percentage(0))
	assert.Equal(t, 0, set.Percentage(-1))
}

func TestProgressSet_MergeOverKnownRows(t *testing.T) {
	now := time.Now()
	rows := []*ModuleProgress{
		NewModuleProgress("p1", "u1", "m1", true, now),
		NewModuleProgress("p1", "u1", "m2", false, now),
	}

	set := NewProgressSet(rows)
	assert.Equal(t, 1, set.CompletedCount())

	// The freshly written state overrides the loaded row.
	set.Apply("m2", true)
	assert.Equal(t, 2, set.CompletedCount())
	assert.Equal(t, 100, set.Percentage(2))
}

func TestNewModuleProgress_CompletedAt(t *testing.T) {
	now := time.Now()

	done := NewModuleProgress("p1", "u1", "m1", true, now)
	if assert.NotNil(t, done.CompletedAt) {
		assert.Equal(t, now, *done.CompletedAt)
	}

	undone := NewModuleProgress("p1", "u1", "m1", false, now)
	assert.Nil(t, undone.CompletedAt)
}

func TestEnrollment_IsComplete(t *testing.T) {
	e := NewEnrollment("p1", "u1", time.Now())
	assert.False(t, e.IsComplete())

	e.ProgressPercentage = 100
	assert.True(t, e.IsComplete())
}

func TestUnit_ActivityType(t *testing.T) {
	course := &Unit{Type: UnitTypeCourse}
	assert.Equal(t, "enroll_course", course.ActivityType())

	track := &Unit{Type: UnitTypeTrack}
	assert.Equal(t, "enroll_track", track.ActivityType())
}
