// Package idx mints the ids of users, resources and activity entries.
//
// Ids are ULID strings. Sorting them sorts by creation time, and ids minted
// in the same millisecond still increase, so the store orders by id when no
// other sort is requested.
package idx

import (
	"crypto/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

var (
	mu      sync.Mutex
	entropy = ulid.Monotonic(rand.Reader, 0)
)

// New returns an id stamped with the current time.
func New() string {
	return NewAt(time.Now())
}

// NewAt returns an id stamped with t.
func NewAt(t time.Time) string {
	mu.Lock()
	defer mu.Unlock()
	return ulid.MustNew(ulid.Timestamp(t), entropy).String()
}

// Valid reports whether s is a canonical ULID. Handlers use it to turn junk
// path ids into not found without a store round trip.
func Valid(s string) bool {
	_, err := ulid.ParseStrict(s)
	return err == nil
}

// Time returns the creation time embedded in id.
func Time(id string) (time.Time, bool) {
	u, err := ulid.ParseStrict(id)
	if err != nil {
		return time.Time{}, false
	}
	return ulid.Time(u.Time()).UTC(), true
}
