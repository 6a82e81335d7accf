package clerk

import (
	"crypto/rsa"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/hacklabs/hacklabs-platform/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// SESSION VERIFICATION
// ══════════════════════════════════════════════════════════════════════════════

// SessionClaims are the claims carried by a Clerk session JWT.
type SessionClaims struct {
	jwt.RegisteredClaims

	// AuthorizedParty is the origin that minted the token.
	AuthorizedParty string `json:"azp,omitempty"`

	// SessionID is Clerk's session identifier.
	SessionID string `json:"sid,omitempty"`
}

// Verifier validates Clerk session JWTs offline against the instance's
// RS256 public key. No network call per request; key rotation means
// restarting with the new PEM.
type Verifier struct {
	publicKey         *rsa.PublicKey
	authorizedParties map[string]bool
	leeway            time.Duration
}

// NewVerifier creates a Verifier from a PEM-encoded public key. Authorized
// parties are optional; when set, tokens minted for other origins are
// rejected.
func NewVerifier(publicKeyPEM string, authorizedParties []string) (*Verifier, error) {
	key, err := jwt.ParseRSAPublicKeyFromPEM([]byte(publicKeyPEM))
	if err != nil {
		return nil, fmt.Errorf("clerk: parse public key: %w", err)
	}

	parties := make(map[string]bool, len(authorizedParties))
	for _, p := range authorizedParties {
		parties[p] = true
	}

	return &Verifier{
		publicKey:         key,
		authorizedParties: parties,
		leeway:            5 * time.Second,
	}, nil
}

// Verify parses and validates a session token, returning the Clerk user id
// from the subject claim.
func (v *Verifier) Verify(token string) (string, error) {
	claims := &SessionClaims{}

	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodRSA); !ok {
			return nil, fmt.Errorf("unexpected signing method %s", t.Method.Alg())
		}
		return v.publicKey, nil
	}, jwt.WithLeeway(v.leeway), jwt.WithExpirationRequired())
	if err != nil {
		return "", shared.WrapError("clerk", "VerifySession", shared.ErrUnauthorized, "session token is invalid", err)
	}
	if !parsed.Valid {
		return "", shared.ErrSessionInvalid
	}

	if len(v.authorizedParties) > 0 && !v.authorizedParties[claims.AuthorizedParty] {
		return "", shared.WrapError("clerk", "VerifySession", shared.ErrUnauthorized,
			"token minted for unauthorized party", nil)
	}

	if claims.Subject == "" {
		return "", shared.ErrSessionInvalid
	}
	return claims.Subject, nil
}
