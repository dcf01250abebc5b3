package service

import (
	"fmt"
	"time"

	"github.com/aussiebroadwan/multiman/internal/platform/domain"
	"github.com/aussiebroadwan/multiman/pkg/jwtx"
)

// IssuedToken is a signed access token and its lifetime.
type IssuedToken struct {
	AccessToken string
	ExpiresIn   time.Duration
}

// TokenService issues and verifies stateless access tokens. There is no
// revocation: a token stays valid until it expires, but the guard reloads
// the user on every request so role and entitlement changes apply at once.
type TokenService struct {
	Signer   jwtx.Signer
	Verifier jwtx.Verifier
	Issuer   string
	TTL      time.Duration
	Now      func() time.Time
}

func (s *TokenService) ttl() time.Duration {
	if s.TTL > 0 {
		return s.TTL
	}
	return jwtx.DefaultAccessTokenTTL
}

// Issue signs a token for userID carrying role.
func (s *TokenService) Issue(userID string, role domain.Role) (IssuedToken, error) {
	ttl := s.ttl()
	claims := jwtx.NewAccessClaims(userID, role.String(), s.Issuer, ttl, nowOr(s.Now))
	tok, err := s.Signer.Sign(claims)
	if err != nil {
		return IssuedToken{}, fmt.Errorf("service: sign token: %w", err)
	}
	return IssuedToken{AccessToken: tok, ExpiresIn: ttl}, nil
}

// Verify checks signature, issuer and expiry. It does not check that the
// subject still exists; Guard.Resolve does.
func (s *TokenService) Verify(token string) (jwtx.Claims, error) {
	return s.Verifier.Verify(token)
}

var _ jwtx.Verifier = (*TokenService)(nil)
