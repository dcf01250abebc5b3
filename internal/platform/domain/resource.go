package domain

import "time"

// Resource is a schema-less document scoped to (System, Type).
type Resource struct {
	ID        string
	System    string
	Type      string
	Data      *Document
	OwnerID   string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ResourceQuery selects resources inside one (System, Type) collection.
// Filter narrows the collection and can never widen it.
type ResourceQuery struct {
	System string
	Type   string
	Filter Cond
	Sort   []SortKey
	Skip   int
	Limit  int
}

const (
	DefaultQueryLimit = 50
	MaxQueryLimit     = 500
)

// ClampPage applies the pagination defaults: a nil or zero limit becomes
// DefaultQueryLimit, other limits are clamped to [1, MaxQueryLimit] and
// negative skips become zero.
func ClampPage(skip int, limit *int) (int, int) {
	l := DefaultQueryLimit
	if limit != nil && *limit != 0 {
		l = min(max(*limit, 1), MaxQueryLimit)
	}
	return max(skip, 0), l
}

// AnalyticsPoint counts resources of one Type created in one Month (1-12).
type AnalyticsPoint struct {
	Month int
	Type  string
	Count int
}

type Analytics struct {
	System string
	Since  time.Time
	Series []AnalyticsPoint
	Total  int
}

// StartOfYear returns Jan 1 00:00 UTC of t's year.
func StartOfYear(t time.Time) time.Time {
	return time.Date(t.UTC().Year(), time.January, 1, 0, 0, 0, 0, time.UTC)
}
