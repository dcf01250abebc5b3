package cryptox

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
)

// Byte lengths for RandomSecret.
const (
	// GeneratedPasswordBytes encodes to a 22 character password.
	GeneratedPasswordBytes = 16
	// PepperBytes encodes to a 43 character pepper.
	PepperBytes = 32
)

// RandomSecret returns n bytes from crypto/rand as unpadded base64url.
func RandomSecret(n int) (string, error) {
	if n <= 0 {
		return "", fmt.Errorf("cryptox: secret length must be positive, got %d", n)
	}
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("cryptox: read random: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
