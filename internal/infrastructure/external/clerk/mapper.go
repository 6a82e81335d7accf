package clerk

import (
	"strings"

	"github.com/hacklabs/hacklabs-platform/internal/domain/identity"
)

// Mapper converts Clerk wire types into domain identities.
type Mapper struct{}

// NewMapper creates a new Mapper.
func NewMapper() *Mapper {
	return &Mapper{}
}

// IdentityFromUser maps a Clerk user to an external identity. The primary
// email wins; a verified address is the fallback, then whatever is first.
func (m *Mapper) IdentityFromUser(u *UserDTO) identity.ExternalIdentity {
	first := strings.TrimSpace(u.FirstName)
	last := strings.TrimSpace(u.LastName)

	ext := identity.ExternalIdentity{
		ID:        u.ID,
		Email:     m.primaryEmail(u),
		FirstName: first,
		LastName:  last,
		AvatarURL: u.ImageURL,
	}

	// Clerk has no single full-name field; the joined parts fill that slot
	// so the name precedence behaves as if the provider sent one.
	if first != "" && last != "" {
		ext.FullName = first + " " + last
	}

	return ext
}

func (m *Mapper) primaryEmail(u *UserDTO) string {
	if u.PrimaryEmailID != "" {
		for _, addr := range u.EmailAddresses {
			if addr.ID == u.PrimaryEmailID {
				return addr.EmailAddress
			}
		}
	}
	for _, addr := range u.EmailAddresses {
		if addr.Verification.Status == "verified" {
			return addr.EmailAddress
		}
	}
	if len(u.EmailAddresses) > 0 {
		return u.EmailAddresses[0].EmailAddress
	}
	return ""
}
