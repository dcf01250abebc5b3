package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/aussiebroadwan/multiman/internal/platform/domain"
	"github.com/aussiebroadwan/multiman/internal/platform/store"
	"github.com/aussiebroadwan/multiman/internal/platform/store/drivers/sqlite/gen"
)

// TimeLayout is the stored timestamp form. Fixed width keeps lexical order
// equal to time order.
const TimeLayout = "2006-01-02T15:04:05.000000Z"

const busyTimeoutMillis = 5000

type Store struct {
	db  *sql.DB
	x   *sqlx.DB
	q   *gen.Queries
	dsn string
}

// DSN turns a database file path into a modernc DSN that applies the
// connection pragmas to every pooled connection. Values already starting
// with "file:" are returned untouched.
func DSN(path string) string {
	if strings.HasPrefix(path, "file:") {
		return path
	}
	v := url.Values{}
	v.Add("_pragma", fmt.Sprintf("busy_timeout(%d)", busyTimeoutMillis))
	v.Add("_pragma", "journal_mode(WAL)")
	v.Add("_pragma", "foreign_keys(1)")
	v.Add("_pragma", "synchronous(NORMAL)")
	v.Set("_txlock", "immediate")
	return "file:" + path + "?" + v.Encode()
}

// NewStore opens the database at path (or a full "file:" DSN).
func NewStore(path string) (*Store, error) {
	dsn := DSN(path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}

	if err := db.PingContext(context.Background()); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: open %s: %w", path, err)
	}

	return &Store{
		db:  db,
		x:   sqlx.NewDb(db, "sqlite"),
		q:   gen.New(db),
		dsn: dsn,
	}, nil
}

func (s *Store) Close() error { return s.db.Close() }

// Ping verifies the database connection is still alive.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Tx starts a read/write transaction and returns a Tx-scoped Store.
func (s *Store) Tx(ctx context.Context) (store.Tx, error) {
	tx, err := s.x.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return newTx(tx), nil
}

// WithTx executes fn within a transaction, automatically handling commit/rollback.
func (s *Store) WithTx(ctx context.Context, fn func(tx store.Tx) error) error {
	tx, err := s.Tx(ctx)
	if err != nil {
		return err
	}

	defer func() {
		_ = tx.Rollback() // no-op after commit
	}()

	if err := fn(tx); err != nil {
		return err
	}

	return tx.Commit()
}

func (s *Store) Users() store.Users         { return &usersRepo{q: s.q} }
func (s *Store) Resources() store.Resources { return &resourcesRepo{q: s.q, x: s.x} }
func (s *Store) Activity() store.Activity   { return &activityRepo{q: s.q} }

func mapNotFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return store.ErrNotFound
	}
	return err
}

// mapConstraint turns unique/primary key violations into ErrAlreadyExists.
func mapConstraint(err error) error {
	var se *sqlite.Error
	if errors.As(err, &se) {
		switch se.Code() {
		case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
			return fmt.Errorf("%w: %s", store.ErrAlreadyExists, se.Error())
		}
	}
	return err
}

// requireRow reports ErrNotFound when an update or delete touched nothing.
func requireRow(n int64, err error) error {
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(TimeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("sqlite: bad timestamp %q: %w", s, err)
	}
	return t, nil
}

func encodeDocument(d *domain.Document) (string, error) {
	if d == nil {
		return "{}", nil
	}
	b, err := d.MarshalJSON()
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func mapUser(row gen.User, systems []string) (domain.User, error) {
	created, err := parseTime(row.CreatedAt)
	if err != nil {
		return domain.User{}, err
	}
	updated, err := parseTime(row.UpdatedAt)
	if err != nil {
		return domain.User{}, err
	}
	if systems == nil {
		systems = []string{}
	}
	return domain.User{
		ID:           row.ID,
		Email:        row.Email,
		Name:         row.Name,
		PasswordHash: row.PasswordHash,
		Role:         domain.Role(row.Role),
		Systems:      systems,
		CreatedAt:    created,
		UpdatedAt:    updated,
	}, nil
}

func mapResource(row gen.Resource) (domain.Resource, error) {
	data, err := domain.ParseDocument([]byte(row.Data))
	if err != nil {
		return domain.Resource{}, fmt.Errorf("sqlite: resource %s: %w", row.ID, err)
	}
	created, err := parseTime(row.CreatedAt)
	if err != nil {
		return domain.Resource{}, err
	}
	updated, err := parseTime(row.UpdatedAt)
	if err != nil {
		return domain.Resource{}, err
	}
	return domain.Resource{
		ID:        row.ID,
		System:    row.System,
		Type:      row.Type,
		Data:      data,
		OwnerID:   row.OwnerID,
		CreatedAt: created,
		UpdatedAt: updated,
	}, nil
}

func mapActivity(row gen.Activity) (domain.ActivityLog, error) {
	meta, err := domain.ParseDocument([]byte(row.Metadata))
	if err != nil {
		return domain.ActivityLog{}, fmt.Errorf("sqlite: activity %s: %w", row.ID, err)
	}
	created, err := parseTime(row.CreatedAt)
	if err != nil {
		return domain.ActivityLog{}, err
	}
	return domain.ActivityLog{
		ID:        row.ID,
		UserID:    row.UserID,
		Action:    row.Action,
		Metadata:  meta,
		CreatedAt: created,
	}, nil
}
