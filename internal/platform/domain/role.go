package domain

import (
	"errors"
	"strings"
)

// Role is the closed set of authorization roles.
type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
)

var ErrInvalidRole = errors.New("domain: role must be admin or user")

// ParseRole accepts exactly "admin" or "user" (case-insensitive, trimmed).
func ParseRole(s string) (Role, error) {
	switch Role(strings.ToLower(strings.TrimSpace(s))) {
	case RoleAdmin:
		return RoleAdmin, nil
	case RoleUser:
		return RoleUser, nil
	default:
		return "", ErrInvalidRole
	}
}

func (r Role) String() string { return string(r) }

func (r Role) IsAdmin() bool { return r == RoleAdmin }
