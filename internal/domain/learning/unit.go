// Package learning contains the domain model for learning units (courses
// and tracks), their modules, enrollments, and per-module progress.
package learning

import (
	"time"

	"github.com/hacklabs/hacklabs-platform/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// UNITS & MODULES
// ══════════════════════════════════════════════════════════════════════════════

// UnitType distinguishes the two kinds of learning collections.
type UnitType string

const (
	// UnitTypeCourse is a standalone course.
	UnitTypeCourse UnitType = "course"

	// UnitTypeTrack is a curated track of labs.
	UnitTypeTrack UnitType = "track"
)

// IsValid reports whether the unit type is one of the known kinds.
func (t UnitType) IsValid() bool {
	return t == UnitTypeCourse || t == UnitTypeTrack
}

// ParseUnitType parses a string into a UnitType.
func ParseUnitType(s string) (UnitType, error) {
	switch UnitType(s) {
	case UnitTypeCourse:
		return UnitTypeCourse, nil
	case UnitTypeTrack:
		return UnitTypeTrack, nil
	default:
		return "", shared.ErrInvalidUnitType
	}
}

// Unit is a learning collection composed of modules.
type Unit struct {
	ID          string
	Type        UnitType
	Title       string
	Description string
	Difficulty  string
	CreatedAt   time.Time
}

// ActivityType returns the activity-log type recorded when a user
// enrolls in this unit.
func (u *Unit) ActivityType() string {
	if u.Type == UnitTypeTrack {
		return "enroll_track"
	}
	return "enroll_course"
}

// Module is an individual completable item within a unit.
type Module struct {
	ID       string
	UnitID   string
	Title    string
	Position int
}
