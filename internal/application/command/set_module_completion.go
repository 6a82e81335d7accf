package command

import (
	"context"
	"fmt"
	"time"

	"github.com/hacklabs/hacklabs-platform/internal/domain/learning"
	"github.com/hacklabs/hacklabs-platform/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// SET MODULE COMPLETION COMMAND
// Toggles one module's completion for an enrolled user and recomputes the
// enrollment's completion percentage from the merged in-memory state, so the
// percentage written always reflects the toggle that was just persisted.
// ══════════════════════════════════════════════════════════════════════════════

// SetModuleCompletionCommand contains the data for a completion toggle.
type SetModuleCompletionCommand struct {
	// ProfileID is the local profile id.
	ProfileID string

	// UnitID identifies the unit the module belongs to.
	UnitID string

	// ModuleID identifies the module being toggled.
	ModuleID string

	// Completed is the new state. Toggling off is as valid as toggling on.
	Completed bool

	// CorrelationID for tracing.
	CorrelationID string
}

// Validate validates the command.
func (c SetModuleCompletionCommand) Validate() error {
	if c.ProfileID == "" {
		return fmt.Errorf("set_module_completion: %w: profile id is required", shared.ErrInvalidInput)
	}
	if c.UnitID == "" {
		return fmt.Errorf("set_module_completion: %w: unit id is required", shared.ErrInvalidInput)
	}
	if c.ModuleID == "" {
		return fmt.Errorf("set_module_completion: %w: module id is required", shared.ErrInvalidInput)
	}
	return nil
}

// SetModuleCompletionResult contains the result of a completion toggle.
type SetModuleCompletionResult struct {
	// ProgressPercentage is the recomputed unit percentage after the toggle.
	ProgressPercentage int

	// CompletedModules is the count of completed modules after the toggle.
	CompletedModules int

	// TotalModules is the unit's module count.
	TotalModules int

	// UnitCompleted indicates this toggle brought the unit to 100%.
	UnitCompleted bool

	// Events contains domain events generated during the update.
	Events []shared.Event
}

// SetModuleCompletionHandler handles the SetModuleCompletionCommand.
type SetModuleCompletionHandler struct {
	catalog     learning.CatalogRepository
	enrollments learning.EnrollmentRepository
	progress    learning.ModuleProgressRepository
	publisher   shared.EventPublisher

	now func() time.Time
}

// NewSetModuleCompletionHandler creates a new SetModuleCompletionHandler.
func NewSetModuleCompletionHandler(
	catalog learning.CatalogRepository,
	enrollments learning.EnrollmentRepository,
	progress learning.ModuleProgressRepository,
	publisher shared.EventPublisher,
) *SetModuleCompletionHandler {
	return &SetModuleCompletionHandler{
		catalog:     catalog,
		enrollments: enrollments,
		progress:    progress,
		publisher:   publisher,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// Handle executes the completion toggle.
func (h *SetModuleCompletionHandler) Handle(ctx context.Context, cmd SetModuleCompletionCommand) (*SetModuleCompletionResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	// The toggle requires an enrollment; progress rows for units the user
	// never enrolled in would have no percentage to hang off.
	enrollment, err := h.enrollments.Get(ctx, cmd.ProfileID, cmd.UnitID)
	if err != nil {
		return nil, fmt.Errorf("set_module_completion: enrollment lookup failed: %w", err)
	}

	belongs, err := h.catalog.ModuleBelongsToUnit(ctx, cmd.UnitID, cmd.ModuleID)
	if err != nil {
		return nil, fmt.Errorf("set_module_completion: module lookup failed: %w", err)
	}
	if !belongs {
		return nil, fmt.Errorf("set_module_completion: %w", shared.ErrModuleNotInUnit)
	}

	now := h.now()

	// Load the known rows BEFORE writing the toggle, then merge the new
	// state in memory. Recomputing from a post-write re-query would race
	// concurrent toggles on the same unit.
	known, err := h.progress.ListByUnit(ctx, cmd.ProfileID, cmd.UnitID)
	if err != nil {
		return nil, fmt.Errorf("set_module_completion: progress load failed: %w", err)
	}

	row := learning.NewModuleProgress(cmd.ProfileID, cmd.UnitID, cmd.ModuleID, cmd.Completed, now)
	if err := h.progress.Upsert(ctx, row); err != nil {
		return nil, fmt.Errorf("set_module_completion: progress write failed: %w", err)
	}

	total, err := h.catalog.CountModules(ctx, cmd.UnitID)
	if err != nil {
		return nil, fmt.Errorf("set_module_completion: module count failed: %w", err)
	}

	set := learning.NewProgressSet(known)
	set.Apply(cmd.ModuleID, cmd.Completed)

	percentage := set.Percentage(total)
	if err := h.enrollments.UpdateProgress(ctx, enrollment.ID, percentage, now); err != nil {
		return nil, fmt.Errorf("set_module_completion: percentage write failed: %w", err)
	}

	result := &SetModuleCompletionResult{
		ProgressPercentage: percentage,
		CompletedModules:   set.CompletedCount(),
		TotalModules:       total,
		UnitCompleted:      percentage >= 100 && !enrollment.IsComplete(),
	}

	event := shared.NewModuleProgressUpdatedEvent(cmd.ProfileID, cmd.UnitID, cmd.ModuleID, cmd.Completed, percentage)
	if cmd.CorrelationID != "" {
		event.BaseEvent = event.BaseEvent.WithCorrelationID(cmd.CorrelationID)
	}
	result.Events = append(result.Events, event)

	if result.UnitCompleted {
		result.Events = append(result.Events, shared.NewUnitCompletedEvent(cmd.ProfileID, cmd.UnitID))
	}

	if h.publisher != nil {
		for _, e := range result.Events {
			_ = h.publisher.Publish(e)
		}
	}

	return result, nil
}
