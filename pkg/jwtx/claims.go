package jwtx

import (
	"crypto/rand"
	"encoding/base64"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultAccessTokenTTL is the lifetime of an access token when the service
// does not override it. There are no refresh tokens, so it is long-ish.
const DefaultAccessTokenTTL = 12 * time.Hour

// Claims are the access-token claims. The role is informational only;
// authorization always re-reads the user from the store.
type Claims struct {
	jwt.RegisteredClaims

	// Role at issue time ("admin" or "user").
	Role string `json:"role,omitempty"`
}

// NewAccessClaims builds minimally-correct claims.
func NewAccessClaims(subject, role, issuer string, ttl time.Duration, now time.Time) Claims {
	return Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        NewJTI(),
		},
		Role: role,
	}
}

// NewJTI returns a URL-safe random identifier for the "jti" claim.
func NewJTI() string {
	var b [20]byte
	_, _ = rand.Read(b[:])
	return base64.RawURLEncoding.EncodeToString(b[:])
}

// Validate applies the rules every multiman token must satisfy: a subject,
// the expected issuer (skipped when issuer is empty) and an exp that has not
// passed. nbf is honoured when present. leeway absorbs clock skew.
func (c *Claims) Validate(issuer string, now time.Time, leeway time.Duration) error {
	switch {
	case c.Subject == "" || c.ExpiresAt == nil:
		return ErrInvalidClaim
	case issuer != "" && c.Issuer != issuer:
		return ErrIssuer
	case now.After(c.ExpiresAt.Add(leeway)):
		return ErrExpired
	case c.NotBefore != nil && now.Before(c.NotBefore.Add(-leeway)):
		return ErrNotYetValid
	}
	return nil
}
