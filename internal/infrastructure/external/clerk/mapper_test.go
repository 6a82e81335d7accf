package clerk

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMapper_IdentityFromUser(t *testing.T) {
	m := NewMapper()

	user := &UserDTO{
		ID:             "user_2abc",
		FirstName:      "Ada",
		LastName:       "Lovelace",
		ImageURL:       "https://img.clerk.com/ada",
		PrimaryEmailID: "idn_2",
		EmailAddresses: []EmailAddressDTO{
			{ID: "idn_1", EmailAddress: "old@x.com"},
			{ID: "idn_2", EmailAddress: "ada@x.com"},
		},
	}

	ext := m.IdentityFromUser(user)
	assert.Equal(t, "user_2abc", ext.ID)
	assert.Equal(t, "ada@x.com", ext.Email)
	assert.Equal(t, "Ada Lovelace", ext.FullName)
	assert.Equal(t, "Ada", ext.FirstName)
	assert.Equal(t, "Lovelace", ext.LastName)
	assert.Equal(t, "https://img.clerk.com/ada", ext.AvatarURL)
}

func TestMapper_PrimaryEmailFallbacks(t *testing.T) {
	m := NewMapper()

	// Missing primary id: the verified address wins.
	user := &UserDTO{
		ID: "user_1",
		EmailAddresses: []EmailAddressDTO{
			{ID: "idn_1", EmailAddress: "unverified@x.com"},
			{ID: "idn_2", EmailAddress: "verified@x.com", Verification: VerificationDTO{Status: "verified"}},
		},
	}
	assert.Equal(t, "verified@x.com", m.IdentityFromUser(user).Email)

	// Nothing verified: first address wins.
	user.EmailAddresses[1].Verification.Status = ""
	assert.Equal(t, "unverified@x.com", m.IdentityFromUser(user).Email)

	// No addresses at all.
	user.EmailAddresses = nil
	assert.Empty(t, m.IdentityFromUser(user).Email)
}

func TestMapper_PartialNames(t *testing.T) {
	m := NewMapper()

	onlyFirst := m.IdentityFromUser(&UserDTO{ID: "u", FirstName: "Ada"})
	assert.Empty(t, onlyFirst.FullName)
	assert.Equal(t, "Ada", onlyFirst.FirstName)

	whitespace := m.IdentityFromUser(&UserDTO{ID: "u", FirstName: "  ", LastName: " "})
	assert.Empty(t, whitespace.FullName)
	assert.Empty(t, whitespace.FirstName)
}

func TestClient_ParseWebhookEvent(t *testing.T) {
	c := NewClient(DefaultClientConfig("sk_test"))

	body := []byte(`{
		"type": "user.created",
		"data": {
			"id": "user_9",
			"first_name": "Neo",
			"email_addresses": [{"id": "idn_1", "email_address": "neo@x.com"}],
			"primary_email_address_id": "idn_1"
		}
	}`)

	eventType, ext, err := c.ParseWebhookEvent(body)
	require.NoError(t, err)
	assert.Equal(t, WebhookUserCreated, eventType)
	assert.Equal(t, "user_9", ext.ID)
	assert.Equal(t, "neo@x.com", ext.Email)

	// Non-user events pass through without an identity.
	eventType, ext, err = c.ParseWebhookEvent([]byte(`{"type": "session.created", "data": {}}`))
	require.NoError(t, err)
	assert.Equal(t, "session.created", eventType)
	assert.Empty(t, ext.ID)

	_, _, err = c.ParseWebhookEvent([]byte(`not json`))
	assert.Error(t, err)
}
