package domain

import "time"

// ActivityLog is one append-only audit entry.
type ActivityLog struct {
	ID        string
	UserID    string
	Action    string
	Metadata  *Document
	CreatedAt time.Time
}

const (
	DefaultActivityLimit = 100
	MaxActivityLimit     = 1000
)
