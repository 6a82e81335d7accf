// Package identity contains the domain representation of an externally
// authenticated user. The identity provider (Clerk) owns the lifecycle of
// these values; this package only models what the sync consumes.
package identity

import (
	"strings"

	"github.com/hacklabs/hacklabs-platform/internal/domain/shared"
)

// FallbackDisplayName is used when no name candidate yields a non-empty value.
const FallbackDisplayName = "User"

// ExternalIdentity is the provider-issued view of a signed-in user.
// It is supplied fresh on every sign-in event and is immutable here.
type ExternalIdentity struct {
	// ID is the stable, provider-issued identifier (e.g. "user_2abc...").
	ID string

	// Email is the primary email address of the user.
	Email string

	// FullName is the provider-assembled full name, if any.
	FullName string

	// FirstName and LastName are the individual name parts, if any.
	FirstName string
	LastName  string

	// AvatarURL is the profile image URL, if any.
	AvatarURL string
}

// Validate checks the minimum shape required to run a sync.
func (id ExternalIdentity) Validate() error {
	if strings.TrimSpace(id.ID) == "" {
		return shared.ErrInvalidExternalID
	}
	if strings.TrimSpace(id.Email) == "" {
		return shared.ErrInvalidEmail
	}
	return nil
}

// EmailLocalPart returns the part of the email before the '@', or "" when
// the email has no usable local part.
func (id ExternalIdentity) EmailLocalPart() string {
	at := strings.Index(id.Email, "@")
	if at <= 0 {
		return ""
	}
	return id.Email[:at]
}

// DeriveDisplayName resolves the display name from the identity's fields.
// Candidates are tried in order; the first non-empty one wins:
//
//  1. the full name
//  2. first name + " " + last name
//  3. first name alone
//  4. the local part of the email
//  5. the literal "User"
func (id ExternalIdentity) DeriveDisplayName() string {
	if name := strings.TrimSpace(id.FullName); name != "" {
		return name
	}

	first := strings.TrimSpace(id.FirstName)
	last := strings.TrimSpace(id.LastName)
	if first != "" && last != "" {
		return first + " " + last
	}
	if first != "" {
		return first
	}

	if local := strings.TrimSpace(id.EmailLocalPart()); local != "" {
		return local
	}

	return FallbackDisplayName
}

// LookupKey selects which field is used to reconcile an identity against
// stored profiles. The historic behavior joins on email; joining on the
// stable external ID is available behind configuration.
type LookupKey string

const (
	// LookupByEmail reconciles by email address. Two provider accounts
	// sharing an email resolve to the same profile.
	LookupByEmail LookupKey = "email"

	// LookupByExternalID reconciles by the provider-issued stable ID.
	LookupByExternalID LookupKey = "external_id"
)

// ParseLookupKey parses a configuration string into a LookupKey,
// defaulting to LookupByEmail for unrecognized values.
func ParseLookupKey(s string) LookupKey {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case string(LookupByExternalID):
		return LookupByExternalID
	default:
		return LookupByEmail
	}
}
