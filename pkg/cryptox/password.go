package cryptox

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"sync"

	"golang.org/x/crypto/argon2"
)

var (
	// ErrMismatch is returned when a password does not match its hash.
	ErrMismatch = errors.New("cryptox: password does not match")
	// ErrInvalidHash is returned when an encoded hash cannot be parsed.
	ErrInvalidHash = errors.New("cryptox: invalid hash format")
)

// Params are the Argon2id cost parameters.
type Params struct {
	Memory      uint32 // KiB
	Iterations  uint32
	Parallelism uint8
	KeyLength   uint32
	SaltLength  int
}

// DefaultParams follow the OWASP minimum for Argon2id (19 MiB, t=2, p=1).
var DefaultParams = Params{
	Memory:      19 * 1024,
	Iterations:  2,
	Parallelism: 1,
	KeyLength:   32,
	SaltLength:  16,
}

// PasswordHasher hashes and verifies passwords as PHC-format Argon2id strings.
// The pepper is mixed into every hash and never stored alongside it.
type PasswordHasher struct {
	params Params
	pepper []byte

	// dummy is a real hash verified against when the account does not exist,
	// so the miss path costs the same as a wrong password.
	dummyOnce sync.Once
	dummy     string
	dummyErr  error
}

// NewPasswordHasher returns a hasher using DefaultParams.
func NewPasswordHasher(pepper []byte) *PasswordHasher {
	return NewPasswordHasherWithParams(pepper, DefaultParams)
}

// NewPasswordHasherWithParams returns a hasher with explicit cost parameters.
// Tests use cheap parameters; production should stick to DefaultParams.
func NewPasswordHasherWithParams(pepper []byte, p Params) *PasswordHasher {
	return &PasswordHasher{params: p, pepper: append([]byte(nil), pepper...)}
}

func (h *PasswordHasher) derive(password string, salt []byte, p Params) []byte {
	input := make([]byte, 0, len(password)+len(h.pepper))
	input = append(input, password...)
	input = append(input, h.pepper...)
	return argon2.IDKey(input, salt, p.Iterations, p.Memory, p.Parallelism, p.KeyLength)
}

// Hash generates a PHC-format Argon2id hash string including salt and parameters.
func (h *PasswordHasher) Hash(password string) (string, error) {
	salt := make([]byte, h.params.SaltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("cryptox: generate salt: %w", err)
	}
	key := h.derive(password, salt, h.params)

	return fmt.Sprintf(
		"$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version,
		h.params.Memory,
		h.params.Iterations,
		h.params.Parallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	), nil
}

// Verify compares a plaintext password against a PHC-format Argon2id hash.
// Parameters are read from the hash, so older hashes keep verifying after a
// cost change.
func (h *PasswordHasher) Verify(password, encoded string) error {
	p, salt, want, err := decodeHash(encoded)
	if err != nil {
		return err
	}
	got := h.derive(password, salt, p)
	if subtle.ConstantTimeCompare(got, want) != 1 {
		return ErrMismatch
	}
	return nil
}

// VerifyDummy burns one verification against a throwaway hash and always
// fails. Login calls it for unknown emails.
func (h *PasswordHasher) VerifyDummy(password string) error {
	h.dummyOnce.Do(func() {
		h.dummy, h.dummyErr = h.Hash("multiman-dummy-password")
	})
	if h.dummyErr != nil {
		return h.dummyErr
	}
	_ = h.Verify(password, h.dummy)
	return ErrMismatch
}

func decodeHash(encoded string) (Params, []byte, []byte, error) {
	// ["", "argon2id", "v=19", "m=X,t=Y,p=Z", "salt", "hash"]
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[0] != "" {
		return Params{}, nil, nil, fmt.Errorf("%w: expected 6 parts", ErrInvalidHash)
	}
	if parts[1] != "argon2id" {
		return Params{}, nil, nil, fmt.Errorf("%w: not argon2id", ErrInvalidHash)
	}
	if parts[2] != fmt.Sprintf("v=%d", argon2.Version) {
		return Params{}, nil, nil, fmt.Errorf("%w: wrong version", ErrInvalidHash)
	}

	var p Params
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &p.Memory, &p.Iterations, &p.Parallelism); err != nil {
		return Params{}, nil, nil, fmt.Errorf("%w: parameters: %v", ErrInvalidHash, err)
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return Params{}, nil, nil, fmt.Errorf("%w: salt: %v", ErrInvalidHash, err)
	}
	key, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil || len(key) == 0 {
		return Params{}, nil, nil, fmt.Errorf("%w: key", ErrInvalidHash)
	}
	p.SaltLength = len(salt)
	p.KeyLength = uint32(len(key)) // #nosec G115 -- decoded from a bounded string
	return p, salt, key, nil
}
