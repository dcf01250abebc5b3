package cryptox

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRandomSecret(t *testing.T) {
	for n, wantLen := range map[int]int{GeneratedPasswordBytes: 22, PepperBytes: 43, 1: 2} {
		s, err := RandomSecret(n)
		require.NoError(t, err)
		require.Len(t, s, wantLen)

		raw, err := base64.RawURLEncoding.DecodeString(s)
		require.NoError(t, err)
		require.Len(t, raw, n)
	}

	a, _ := RandomSecret(PepperBytes)
	b, _ := RandomSecret(PepperBytes)
	require.NotEqual(t, a, b)

	_, err := RandomSecret(0)
	require.Error(t, err)
}
