// Package activity contains the append-only activity log. Entries are
// written best-effort; a failed append never fails the operation that
// produced it.
package activity

import (
	"context"
	"time"

	"github.com/hacklabs/hacklabs-platform/internal/domain/shared"
)

// Activity types recorded by the platform.
const (
	TypeProfileCreated = "profile_created"
	TypeEnrollCourse   = "enroll_course"
	TypeEnrollTrack    = "enroll_track"
)

// IsValidType reports whether the given type is one the log accepts.
func IsValidType(t string) bool {
	switch t {
	case TypeProfileCreated, TypeEnrollCourse, TypeEnrollTrack:
		return true
	}
	return false
}

// Entry is one append-only activity log row.
type Entry struct {
	ID        string
	ProfileID string
	Type      string

	// Metadata is free-form context for the entry, stored as JSONB.
	// Nil means no metadata.
	Metadata map[string]any

	CreatedAt time.Time
}

// NewEntry builds a log entry, validating the type.
func NewEntry(profileID, activityType string, metadata map[string]any, now time.Time) (*Entry, error) {
	if !IsValidType(activityType) {
		return nil, shared.ErrInvalidActivityType
	}
	return &Entry{
		ProfileID: profileID,
		Type:      activityType,
		Metadata:  metadata,
		CreatedAt: now,
	}, nil
}

// Repository persists activity log entries.
type Repository interface {
	// Append inserts a new entry. Entries are never updated or deleted.
	Append(ctx context.Context, e *Entry) error

	// ListByProfile returns the most recent entries for a profile,
	// newest first.
	ListByProfile(ctx context.Context, profileID string, limit int) ([]*Entry, error)

	// HasType reports whether the profile already has an entry of the
	// given type. The sweep uses it to avoid duplicating bootstrap entries.
	HasType(ctx context.Context, profileID, activityType string) (bool, error)
}
