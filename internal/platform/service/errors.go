package service

import (
	"errors"
	"time"

	"github.com/aussiebroadwan/multiman/internal/platform/store"
)

var (
	ErrInvalidCredentials = errors.New("invalid_credentials")
	ErrInvalidToken       = errors.New("invalid_token")
	ErrForbidden          = errors.New("forbidden")
	ErrNotFound           = errors.New("not_found")
	ErrDuplicateEmail     = errors.New("duplicate_email")
	ErrSignupClosed       = errors.New("signup_closed")
	ErrInvalidInput       = errors.New("invalid_input")
)

// mapNotFound translates the store sentinel at the service boundary.
func mapNotFound(err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return ErrNotFound
	}
	return err
}

func nowOr(now func() time.Time) time.Time {
	if now != nil {
		return now().UTC()
	}
	return time.Now().UTC()
}
