// Package shared contains common domain types, errors, and events
// that are used across all domain packages. This package has zero external dependencies.
package shared

import (
	"errors"
	"fmt"
)

// Base domain errors that can be used for error checking with errors.Is().
var (
	// Entity errors
	ErrNotFound      = errors.New("entity not found")
	ErrAlreadyExists = errors.New("entity already exists")
	ErrInvalidEntity = errors.New("invalid entity")

	// Validation errors
	ErrValidation      = errors.New("validation error")
	ErrInvalidID       = errors.New("invalid ID")
	ErrInvalidInput    = errors.New("invalid input")
	ErrEmptyValue      = errors.New("value cannot be empty")
	ErrValueOutOfRange = errors.New("value out of range")
	ErrInvalidFormat   = errors.New("invalid format")

	// State errors
	ErrInvalidState    = errors.New("invalid state")
	ErrStateTransition = errors.New("invalid state transition")

	// Authorization errors
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")

	// External service errors
	ErrExternalService    = errors.New("external service error")
	ErrServiceUnavailable = errors.New("service unavailable")
	ErrTimeout            = errors.New("operation timeout")
	ErrRateLimited        = errors.New("rate limited")
)

// DomainError represents a domain-specific error with context.
type DomainError struct {
	Domain  string // e.g., "profile", "learning", "activity"
	Op      string // Operation that failed, e.g., "Create", "Update"
	Kind    error  // Base error type for errors.Is() checking
	Message string // Human-readable message
	Err     error  // Underlying error (optional)
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s.%s: %s: %v", e.Domain, e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("%s.%s: %s", e.Domain, e.Op, e.Message)
}

// Unwrap returns the underlying error for errors.Unwrap().
func (e *DomainError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return e.Kind
}

// Is implements errors.Is() matching.
func (e *DomainError) Is(target error) bool {
	if e.Kind != nil && errors.Is(e.Kind, target) {
		return true
	}
	if e.Err != nil && errors.Is(e.Err, target) {
		return true
	}
	return false
}

// NewDomainError creates a new domain error.
func NewDomainError(domain, op string, kind error, message string) *DomainError {
	return &DomainError{
		Domain:  domain,
		Op:      op,
		Kind:    kind,
		Message: message,
	}
}

// WrapError wraps an existing error with domain context.
func WrapError(domain, op string, kind error, message string, err error) *DomainError {
	return &DomainError{
		Domain:  domain,
		Op:      op,
		Kind:    kind,
		Message: message,
		Err:     err,
	}
}

// Profile domain errors
var (
	ErrProfileNotFound      = NewDomainError("profile", "Find", ErrNotFound, "profile not found")
	ErrProfileAlreadyExists = NewDomainError("profile", "Create", ErrAlreadyExists, "profile already exists")
	ErrInvalidExternalID    = NewDomainError("profile", "Validate", ErrInvalidID, "invalid external identity ID")
	ErrInvalidEmail         = NewDomainError("profile", "Validate", ErrInvalidFormat, "invalid email address")
	ErrSkillScoresNotFound  = NewDomainError("profile", "FindSkillScores", ErrNotFound, "skill scores not found")
	ErrSubscriptionNotFound = NewDomainError("profile", "FindSubscription", ErrNotFound, "subscription not found")
)

// Learning domain errors
var (
	ErrUnitNotFound          = NewDomainError("learning", "FindUnit", ErrNotFound, "learning unit not found")
	ErrUnitHasNoModules      = NewDomainError("learning", "Progress", ErrInvalidState, "unit has no modules")
	ErrInvalidUnitType       = NewDomainError("learning", "Validate", ErrInvalidInput, "invalid unit type")
	ErrEnrollmentNotFound    = NewDomainError("learning", "FindEnrollment", ErrNotFound, "enrollment not found")
	ErrAlreadyEnrolled       = NewDomainError("learning", "Enroll", ErrAlreadyExists, "already enrolled in unit")
	ErrModuleNotInUnit       = NewDomainError("learning", "Progress", ErrInvalidInput, "module does not belong to unit")
	ErrInvalidPercentage     = NewDomainError("learning", "Validate", ErrValueOutOfRange, "percentage must be between 0 and 100")
	ErrModuleProgressMissing = NewDomainError("learning", "FindProgress", ErrNotFound, "module progress not found")
)

// Activity domain errors
var (
	ErrActivityNotFound    = NewDomainError("activity", "Find", ErrNotFound, "activity log entry not found")
	ErrInvalidActivityType = NewDomainError("activity", "Validate", ErrInvalidInput, "invalid activity type")
)

// Identity provider errors
var (
	ErrClerkUnavailable     = NewDomainError("clerk", "Request", ErrServiceUnavailable, "Clerk API is unavailable")
	ErrClerkRateLimited     = NewDomainError("clerk", "Request", ErrRateLimited, "Clerk API rate limit exceeded")
	ErrClerkTimeout         = NewDomainError("clerk", "Request", ErrTimeout, "Clerk API request timeout")
	ErrClerkInvalidResponse = NewDomainError("clerk", "Parse", ErrInvalidFormat, "invalid response from Clerk API")
	ErrClerkUserNotFound    = NewDomainError("clerk", "GetUser", ErrNotFound, "Clerk user not found")
	ErrSessionInvalid       = NewDomainError("clerk", "VerifySession", ErrUnauthorized, "session token is invalid")
)

// IsNotFound checks if the error is a "not found" error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsAlreadyExists checks if the error is an "already exists" error.
func IsAlreadyExists(err error) bool {
	return errors.Is(err, ErrAlreadyExists)
}

// IsValidation checks if the error is a validation error.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrInvalidID) ||
		errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrEmptyValue) ||
		errors.Is(err, ErrValueOutOfRange) ||
		errors.Is(err, ErrInvalidFormat)
}

// IsExternalService checks if the error is from an external service.
func IsExternalService(err error) bool {
	return errors.Is(err, ErrExternalService) ||
		errors.Is(err, ErrServiceUnavailable) ||
		errors.Is(err, ErrTimeout) ||
		errors.Is(err, ErrRateLimited)
}
