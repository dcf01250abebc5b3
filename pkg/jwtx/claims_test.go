package jwtx_test

import (
	"testing"
	"time"

	"github.com/aussiebroadwan/multiman/pkg/jwtx"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

func TestNewAccessClaims(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	c := jwtx.NewAccessClaims("user-1", "admin", "multiman", time.Hour, now)

	require.Equal(t, "user-1", c.Subject)
	require.Equal(t, "admin", c.Role)
	require.Equal(t, "multiman", c.Issuer)
	require.Equal(t, now, c.IssuedAt.Time)
	require.Equal(t, now.Add(time.Hour), c.ExpiresAt.Time)
	require.NotEmpty(t, c.ID)
}

func TestClaimsValidate(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	at := func(d time.Duration) *jwt.NumericDate { return jwt.NewNumericDate(now.Add(d)) }
	base := func() jwtx.Claims {
		return jwtx.Claims{RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-1",
			Issuer:    "multiman",
			ExpiresAt: at(time.Minute),
		}}
	}

	tests := []struct {
		name   string
		mutate func(*jwtx.Claims)
		issuer string
		leeway time.Duration
		want   error
	}{
		{name: "valid", mutate: func(*jwtx.Claims) {}, issuer: "multiman"},
		{name: "any issuer accepted when unset", mutate: func(c *jwtx.Claims) { c.Issuer = "elsewhere" }},
		{name: "issuer mismatch", mutate: func(c *jwtx.Claims) { c.Issuer = "elsewhere" }, issuer: "multiman", want: jwtx.ErrIssuer},
		{name: "missing subject", mutate: func(c *jwtx.Claims) { c.Subject = "" }, want: jwtx.ErrInvalidClaim},
		{name: "missing exp", mutate: func(c *jwtx.Claims) { c.ExpiresAt = nil }, want: jwtx.ErrInvalidClaim},
		{name: "expired", mutate: func(c *jwtx.Claims) { c.ExpiresAt = at(-time.Minute) }, want: jwtx.ErrExpired},
		{name: "expired within leeway", mutate: func(c *jwtx.Claims) { c.ExpiresAt = at(-10 * time.Second) }, leeway: 30 * time.Second},
		{name: "not yet valid", mutate: func(c *jwtx.Claims) { c.NotBefore = at(time.Minute) }, want: jwtx.ErrNotYetValid},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := base()
			tt.mutate(&c)
			err := c.Validate(tt.issuer, now, tt.leeway)
			if tt.want == nil {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, tt.want)
		})
	}
}
