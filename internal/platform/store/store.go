package store

import (
	"context"
	"errors"
	"time"

	"github.com/aussiebroadwan/multiman/internal/platform/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")
)

// Store is the root data access interface. Drivers implement it and expose
// one sub-repository per aggregate. Tx-scoped stores refuse to open nested
// transactions.
type Store interface {
	Users() Users
	Resources() Resources
	Activity() Activity

	ApplyMigrations() error

	// Tx starts a read/write transaction and returns a Tx-scoped Store.
	// The caller MUST call Commit() or Rollback() on the returned Tx.
	Tx(ctx context.Context) (Tx, error)

	// WithTx runs fn in a transaction, committing when fn returns nil and
	// rolling back otherwise.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	Close() error

	// Ping verifies the database connection is still alive.
	Ping(ctx context.Context) error
}

// Tx is a transactional store. It embeds the same repos but adds Commit/Rollback.
type Tx interface {
	Store
	Commit() error
	Rollback() error
}

type Users interface {
	// CreateUser inserts the user row and its system set. Multi-statement,
	// so call it inside WithTx. A taken email yields ErrAlreadyExists.
	CreateUser(ctx context.Context, u domain.User) error

	GetUserByID(ctx context.Context, id string) (domain.User, error)

	// GetUserByEmail matches case-insensitively.
	GetUserByEmail(ctx context.Context, email string) (domain.User, error)

	// ListUsers returns every user ordered by id (creation order).
	ListUsers(ctx context.Context) ([]domain.User, error)

	// UpdateUser applies the non-nil fields of upd and bumps updated_at.
	// Systems replaces the whole set.
	UpdateUser(ctx context.Context, id string, upd domain.UserUpdate, now time.Time) error

	// DeleteUser cascades to user_systems (per schema). Resources and
	// activity written by the user are kept.
	DeleteUser(ctx context.Context, id string) error

	// AddSystems unions systems into the user's set and bumps updated_at.
	AddSystems(ctx context.Context, id string, systems []string, now time.Time) error

	// CountAdmins is used by the sign-up bootstrap policy.
	CountAdmins(ctx context.Context) (int, error)
}

type Resources interface {
	CreateResource(ctx context.Context, r domain.Resource) error

	// GetResource only finds resources inside the (system, typ) collection.
	GetResource(ctx context.Context, system, typ, id string) (domain.Resource, error)

	// QueryResources applies q.Filter inside the mandatory (System, Type)
	// scope, then sorting and pagination.
	QueryResources(ctx context.Context, q domain.ResourceQuery) ([]domain.Resource, error)

	// ReplaceResourceData swaps the whole data document and bumps updated_at.
	ReplaceResourceData(ctx context.Context, system, typ, id string, data *domain.Document, now time.Time) error

	DeleteResource(ctx context.Context, system, typ, id string) error

	// CountByMonthAndType groups resources of system created at or after
	// since by calendar month and type, ordered by month then type.
	CountByMonthAndType(ctx context.Context, system string, since time.Time) ([]domain.AnalyticsPoint, error)

	CountResources(ctx context.Context, system string) (int, error)
}

type Activity interface {
	AppendActivity(ctx context.Context, a domain.ActivityLog) error

	// ListRecentActivity returns up to limit entries, newest first.
	ListRecentActivity(ctx context.Context, limit int) ([]domain.ActivityLog, error)
}
