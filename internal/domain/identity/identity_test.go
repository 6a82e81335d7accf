package identity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDeriveDisplayName_Precedence(t *testing.T) {
	tests := []struct {
		name     string
		identity ExternalIdentity
		want     string
	}{
		{
			name: "full name wins",
			identity: ExternalIdentity{
				FullName:  "Grace Hopper",
				FirstName: "Grace",
				LastName:  "Hopper",
				Email:     "grace@navy.mil",
			},
			want: "Grace Hopper",
		},
		{
			name: "first and last name combined",
			identity: ExternalIdentity{
				FullName:  "",
				FirstName: "Ann",
				LastName:  "Lee",
				Email:     "a@x.com",
			},
			want: "Ann Lee",
		},
		{
			name: "first name only",
			identity: ExternalIdentity{
				FirstName: "Ann",
				Email:     "a@x.com",
			},
			want: "Ann",
		},
		{
			name: "last name alone is not used",
			identity: ExternalIdentity{
				LastName: "Lee",
				Email:    "a@x.com",
			},
			want: "a",
		},
		{
			name: "email local part",
			identity: ExternalIdentity{
				Email: "bob@x.com",
			},
			want: "bob",
		},
		{
			name:     "everything empty falls back to User",
			identity: ExternalIdentity{},
			want:     "User",
		},
		{
			name: "email without local part falls back to User",
			identity: ExternalIdentity{
				Email: "@x.com",
			},
			want: "User",
		},
		{
			name: "whitespace-only full name is skipped",
			identity: ExternalIdentity{
				FullName: "   ",
				Email:    "carol@x.com",
			},
			want: "carol",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.identity.DeriveDisplayName())
		})
	}
}

func TestExternalIdentity_Validate(t *testing.T) {
	valid := ExternalIdentity{ID: "user_123", Email: "a@x.com"}
	assert.NoError(t, valid.Validate())

	missingID := ExternalIdentity{Email: "a@x.com"}
	assert.Error(t, missingID.Validate())

	missingEmail := ExternalIdentity{ID: "user_123"}
	assert.Error(t, missingEmail.Validate())
}

func TestParseLookupKey(t *testing.T) {
	assert.Equal(t, LookupByEmail, ParseLookupKey(""))
	assert.Equal(t, LookupByEmail, ParseLookupKey("email"))
	assert.Equal(t, LookupByEmail, ParseLookupKey("garbage"))
	assert.Equal(t, LookupByExternalID, ParseLookupKey("external_id"))
	assert.Equal(t, LookupByExternalID, ParseLookupKey(" External_ID "))
}
