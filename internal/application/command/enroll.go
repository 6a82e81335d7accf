package command

import (
	"context"
	"fmt"
	"time"

	"github.com/hacklabs/hacklabs-platform/internal/domain/activity"
	"github.com/hacklabs/hacklabs-platform/internal/domain/learning"
	"github.com/hacklabs/hacklabs-platform/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// ENROLL COMMAND
// Enrolls a profile in a unit. Enrollment is an idempotent upsert keyed by
// (profile, unit): re-enrolling an already-enrolled user is a no-op, not a
// duplicate row and not an error.
// ══════════════════════════════════════════════════════════════════════════════

// EnrollCommand contains the data needed to enroll a profile in a unit.
type EnrollCommand struct {
	// ProfileID is the local profile id, not the provider's external id.
	ProfileID string

	// UnitID identifies the course or track to enroll in.
	UnitID string

	// CorrelationID for tracing.
	CorrelationID string
}

// Validate validates the command.
func (c EnrollCommand) Validate() error {
	if c.ProfileID == "" {
		return fmt.Errorf("enroll: %w: profile id is required", shared.ErrInvalidInput)
	}
	if c.UnitID == "" {
		return fmt.Errorf("enroll: %w: unit id is required", shared.ErrInvalidInput)
	}
	return nil
}

// EnrollResult contains the result of an enrollment.
type EnrollResult struct {
	// Enrollment is the stored row, existing or freshly created.
	Enrollment *learning.Enrollment

	// Created indicates a new row was inserted. False means the user was
	// already enrolled and nothing changed.
	Created bool

	// ActivityLogged indicates the enroll activity entry was written.
	// The entry is best-effort; false with a created enrollment is fine.
	ActivityLogged bool

	// Events contains domain events generated during enrollment.
	Events []shared.Event
}

// EnrollHandler handles the EnrollCommand.
type EnrollHandler struct {
	catalog     learning.CatalogRepository
	enrollments learning.EnrollmentRepository
	activities  activity.Repository
	publisher   shared.EventPublisher

	now func() time.Time
}

// NewEnrollHandler creates a new EnrollHandler.
func NewEnrollHandler(
	catalog learning.CatalogRepository,
	enrollments learning.EnrollmentRepository,
	activities activity.Repository,
	publisher shared.EventPublisher,
) *EnrollHandler {
	return &EnrollHandler{
		catalog:     catalog,
		enrollments: enrollments,
		activities:  activities,
		publisher:   publisher,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// Handle executes the enroll command.
func (h *EnrollHandler) Handle(ctx context.Context, cmd EnrollCommand) (*EnrollResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	unit, err := h.catalog.GetUnit(ctx, cmd.UnitID)
	if err != nil {
		return nil, fmt.Errorf("enroll: unit lookup failed: %w", err)
	}

	now := h.now()
	enrollment := learning.NewEnrollment(cmd.ProfileID, cmd.UnitID, now)

	created, err := h.enrollments.Upsert(ctx, enrollment)
	if err != nil {
		return nil, fmt.Errorf("enroll: upsert failed: %w", err)
	}

	result := &EnrollResult{
		Enrollment: enrollment,
		Created:    created,
	}

	if !created {
		return result, nil
	}

	result.ActivityLogged = h.logEnrollment(ctx, unit, cmd.ProfileID, now)

	event := shared.NewEnrollmentCreatedEvent(cmd.ProfileID, unit.ID, string(unit.Type))
	if cmd.CorrelationID != "" {
		event.BaseEvent = event.BaseEvent.WithCorrelationID(cmd.CorrelationID)
	}
	result.Events = append(result.Events, event)

	if h.publisher != nil {
		for _, e := range result.Events {
			_ = h.publisher.Publish(e)
		}
	}

	return result, nil
}

// logEnrollment appends the enroll_course / enroll_track entry. Failure is
// swallowed; the enrollment itself already committed.
func (h *EnrollHandler) logEnrollment(ctx context.Context, unit *learning.Unit, profileID string, now time.Time) bool {
	entry, err := activity.NewEntry(profileID, unit.ActivityType(), map[string]any{
		"unit_id":    unit.ID,
		"unit_title": unit.Title,
	}, now)
	if err != nil {
		return false
	}
	if err := h.activities.Append(ctx, entry); err != nil {
		return false
	}
	return true
}
