package domain

import (
	"slices"
	"strings"
	"time"
)

type User struct {
	ID           string
	Email        string // lower-cased, unique
	Name         string
	PasswordHash string // argon2 encoded, never leaves the service layer
	Role         Role
	Systems      []string // entitlement set, sorted
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// HasSystem reports whether system is in the user's entitlement set.
func (u *User) HasSystem(system string) bool {
	return slices.Contains(u.Systems, system)
}

// NormalizeEmail is the canonical form used for storage and lookup.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// UserUpdate is a partial update. Nil fields are left untouched and
// Systems, when set, replaces the whole set.
type UserUpdate struct {
	Name    *string
	Role    *Role
	Systems *[]string
}

// IsEmpty reports whether the update carries no field changes.
func (u UserUpdate) IsEmpty() bool {
	return u.Name == nil && u.Role == nil && u.Systems == nil
}
