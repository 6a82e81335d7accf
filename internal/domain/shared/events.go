package shared

import (
	"time"
)

// EventType represents the type of domain event.
type EventType string

// Domain event types. Each event represents something significant
// that happened in the domain.
const (
	// Profile events
	EventProfileCreated  EventType = "profile.created"
	EventProfileRelinked EventType = "profile.relinked"
	EventProfileRepaired EventType = "profile.repaired"

	// Learning events
	EventEnrollmentCreated     EventType = "learning.enrollment_created"
	EventModuleProgressUpdated EventType = "learning.module_progress_updated"
	EventUnitCompleted         EventType = "learning.unit_completed"
)

// Event is the base interface for all domain events.
type Event interface {
	// EventType returns the type of the event.
	EventType() EventType

	// OccurredAt returns when the event occurred.
	OccurredAt() time.Time

	// AggregateID returns the ID of the aggregate that produced this event.
	AggregateID() string

	// Payload returns the event data as a map for serialization.
	Payload() map[string]interface{}
}

// BaseEvent provides common event functionality.
type BaseEvent struct {
	Type          EventType `json:"type"`
	Timestamp     time.Time `json:"timestamp"`
	AggregateId   string    `json:"aggregate_id"`
	CorrelationID string    `json:"correlation_id,omitempty"`
}

// EventType implements Event interface.
func (e BaseEvent) EventType() EventType {
	return e.Type
}

// OccurredAt implements Event interface.
func (e BaseEvent) OccurredAt() time.Time {
	return e.Timestamp
}

// AggregateID implements Event interface.
func (e BaseEvent) AggregateID() string {
	return e.AggregateId
}

// NewBaseEvent creates a new base event.
func NewBaseEvent(eventType EventType, aggregateID string) BaseEvent {
	return BaseEvent{
		Type:        eventType,
		Timestamp:   time.Now().UTC(),
		AggregateId: aggregateID,
	}
}

// WithCorrelationID sets the correlation ID for tracing.
func (e BaseEvent) WithCorrelationID(id string) BaseEvent {
	e.CorrelationID = id
	return e
}

// ProfileCreatedEvent is emitted when a first-time sync creates a profile.
type ProfileCreatedEvent struct {
	BaseEvent
	ProfileID  string `json:"profile_id"`
	ExternalID string `json:"external_id"`
	Email      string `json:"email"`
}

// Payload implements Event interface.
func (e ProfileCreatedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"profile_id":  e.ProfileID,
		"external_id": e.ExternalID,
		"email":       e.Email,
	}
}

// NewProfileCreatedEvent creates a new ProfileCreatedEvent.
func NewProfileCreatedEvent(profileID, externalID, email string) ProfileCreatedEvent {
	return ProfileCreatedEvent{
		BaseEvent:  NewBaseEvent(EventProfileCreated, profileID),
		ProfileID:  profileID,
		ExternalID: externalID,
		Email:      email,
	}
}

// ProfileRelinkedEvent is emitted when a sync re-links an existing profile
// to a new provider-issued external ID.
type ProfileRelinkedEvent struct {
	BaseEvent
	ProfileID     string `json:"profile_id"`
	OldExternalID string `json:"old_external_id"`
	NewExternalID string `json:"new_external_id"`
	Email         string `json:"email"`
}

// Payload implements Event interface.
func (e ProfileRelinkedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"profile_id":      e.ProfileID,
		"old_external_id": e.OldExternalID,
		"new_external_id": e.NewExternalID,
		"email":           e.Email,
	}
}

// NewProfileRelinkedEvent creates a new ProfileRelinkedEvent.
func NewProfileRelinkedEvent(profileID, oldExternalID, newExternalID, email string) ProfileRelinkedEvent {
	return ProfileRelinkedEvent{
		BaseEvent:     NewBaseEvent(EventProfileRelinked, profileID),
		ProfileID:     profileID,
		OldExternalID: oldExternalID,
		NewExternalID: newExternalID,
		Email:         email,
	}
}

// ProfileRepairedEvent is emitted when the sweep restores a missing
// dependent row (skill scores or subscription) for a profile.
type ProfileRepairedEvent struct {
	BaseEvent
	ProfileID string   `json:"profile_id"`
	Repaired  []string `json:"repaired"` // e.g. ["skill_scores", "subscription"]
}

// Payload implements Event interface.
func (e ProfileRepairedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"profile_id": e.ProfileID,
		"repaired":   e.Repaired,
	}
}

// NewProfileRepairedEvent creates a new ProfileRepairedEvent.
func NewProfileRepairedEvent(profileID string, repaired []string) ProfileRepairedEvent {
	return ProfileRepairedEvent{
		BaseEvent: NewBaseEvent(EventProfileRepaired, profileID),
		ProfileID: profileID,
		Repaired:  repaired,
	}
}

// EnrollmentCreatedEvent is emitted when a user enrolls in a unit.
type EnrollmentCreatedEvent struct {
	BaseEvent
	ProfileID string `json:"profile_id"`
	UnitID    string `json:"unit_id"`
	UnitType  string `json:"unit_type"`
}

// Payload implements Event interface.
func (e EnrollmentCreatedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"profile_id": e.ProfileID,
		"unit_id":    e.UnitID,
		"unit_type":  e.UnitType,
	}
}

// NewEnrollmentCreatedEvent creates a new EnrollmentCreatedEvent.
func NewEnrollmentCreatedEvent(profileID, unitID, unitType string) EnrollmentCreatedEvent {
	return EnrollmentCreatedEvent{
		BaseEvent: NewBaseEvent(EventEnrollmentCreated, profileID),
		ProfileID: profileID,
		UnitID:    unitID,
		UnitType:  unitType,
	}
}

// ModuleProgressUpdatedEvent is emitted when a module completion toggles.
type ModuleProgressUpdatedEvent struct {
	BaseEvent
	ProfileID  string `json:"profile_id"`
	UnitID     string `json:"unit_id"`
	ModuleID   string `json:"module_id"`
	Completed  bool   `json:"completed"`
	Percentage int    `json:"percentage"`
}

// Payload implements Event interface.
func (e ModuleProgressUpdatedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"profile_id": e.ProfileID,
		"unit_id":    e.UnitID,
		"module_id":  e.ModuleID,
		"completed":  e.Completed,
		"percentage": e.Percentage,
	}
}

// NewModuleProgressUpdatedEvent creates a new ModuleProgressUpdatedEvent.
func NewModuleProgressUpdatedEvent(profileID, unitID, moduleID string, completed bool, percentage int) ModuleProgressUpdatedEvent {
	return ModuleProgressUpdatedEvent{
		BaseEvent:  NewBaseEvent(EventModuleProgressUpdated, profileID),
		ProfileID:  profileID,
		UnitID:     unitID,
		ModuleID:   moduleID,
		Completed:  completed,
		Percentage: percentage,
	}
}

// UnitCompletedEvent is emitted when a unit's progress reaches 100%.
type UnitCompletedEvent struct {
	BaseEvent
	ProfileID string `json:"profile_id"`
	UnitID    string `json:"unit_id"`
}

// Payload implements Event interface.
func (e UnitCompletedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"profile_id": e.ProfileID,
		"unit_id":    e.UnitID,
	}
}

// NewUnitCompletedEvent creates a new UnitCompletedEvent.
func NewUnitCompletedEvent(profileID, unitID string) UnitCompletedEvent {
	return UnitCompletedEvent{
		BaseEvent: NewBaseEvent(EventUnitCompleted, profileID),
		ProfileID: profileID,
		UnitID:    unitID,
	}
}

// EventHandler is a function that handles an event.
type EventHandler func(event Event) error

// EventPublisher defines the interface for publishing events.
type EventPublisher interface {
	// Publish sends an event to subscribers.
	Publish(event Event) error
}

// EventSubscriber defines the interface for subscribing to events.
type EventSubscriber interface {
	// Subscribe registers a handler for an event type.
	Subscribe(eventType EventType, handler EventHandler) error

	// SubscribeAll registers a handler for all events.
	SubscribeAll(handler EventHandler) error
}

// EventBus combines publishing and subscribing.
type EventBus interface {
	EventPublisher
	EventSubscriber
}
