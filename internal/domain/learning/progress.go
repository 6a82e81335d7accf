package learning

import (
	"math"
	"time"
)

// ══════════════════════════════════════════════════════════════════════════════
// ENROLLMENT
// ══════════════════════════════════════════════════════════════════════════════

// Enrollment links a profile to a unit with an aggregate completion
// percentage. The percentage is a derived, denormalized convenience value;
// module progress rows remain the source of truth and the percentage can be
// re-derived from them at any time.
//
// State machine for one (profile, unit) pair:
//
//	NotEnrolled → Enrolled(0%) → Enrolled(p%) → … → Enrolled(100%)
//
// There is no separate "completed" state and no transition back to
// NotEnrolled (unenroll is not supported).
type Enrollment struct {
	ID                 string
	ProfileID          string
	UnitID             string
	ProgressPercentage int
	CreatedAt          time.Time
}

// NewEnrollment returns a fresh zero-progress enrollment.
func NewEnrollment(profileID, unitID string, now time.Time) *Enrollment {
	return &Enrollment{
		ProfileID: profileID,
		UnitID:    unitID,
		CreatedAt: now,
	}
}

// IsComplete reports whether the unit is fully completed.
func (e *Enrollment) IsComplete() bool {
	return e.ProgressPercentage >= 100
}

// ══════════════════════════════════════════════════════════════════════════════
// MODULE PROGRESS
// ══════════════════════════════════════════════════════════════════════════════

// ModuleProgress records completion of one module within one unit for one
// profile. Unique per (profile, unit, module); upserted as the user toggles.
type ModuleProgress struct {
	ProfileID   string
	UnitID      string
	ModuleID    string
	IsCompleted bool
	// CompletedAt is set when IsCompleted is true, nil otherwise.
	CompletedAt *time.Time
}

// NewModuleProgress builds the row for a completion toggle.
func NewModuleProgress(profileID, unitID, moduleID string, completed bool, now time.Time) *ModuleProgress {
	mp := &ModuleProgress{
		ProfileID:   profileID,
		UnitID:      unitID,
		ModuleID:    moduleID,
		IsCompleted: completed,
	}
	if completed {
		at := now
		mp.CompletedAt = &at
	}
	return mp
}

// ══════════════════════════════════════════════════════════════════════════════
// PROGRESS SET
// ══════════════════════════════════════════════════════════════════════════════

// ProgressSet is the in-memory view of a user's module states within one
// unit. The percentage is computed from this set - the just-written state
// merged over previously known rows - rather than by re-querying the store,
// which would race the write that preceded it.
type ProgressSet map[string]bool

// NewProgressSet builds a set from previously known progress rows.
func NewProgressSet(rows []*ModuleProgress) ProgressSet {
	set := make(ProgressSet, len(rows))
	for _, row := range rows {
		set[row.ModuleID] = row.IsCompleted
	}
	return set
}

// Apply merges one module's new state into the set.
func (s ProgressSet) Apply(moduleID string, completed bool) {
	s[moduleID] = completed
}

// CompletedCount returns the number of modules marked completed.
func (s ProgressSet) CompletedCount() int {
	n := 0
	for _, done := range s {
		if done {
			n++
		}
	}
	return n
}

// Percentage computes round(100 * completed / totalModules). The total is
// the number of modules associated with the unit, independent of how many
// have progress rows. A unit with no modules yields 0.
func (s ProgressSet) Percentage(totalModules int) int {
	if totalModules <= 0 {
		return 0
	}
	return int(math.Round(100 * float64(s.CompletedCount()) / float64(totalModules)))
}
