package sqlite

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"

	"github.com/aussiebroadwan/multiman/internal/platform/store"
	"github.com/aussiebroadwan/multiman/internal/platform/store/drivers/sqlite/gen"
)

type txStore struct {
	tx *sqlx.Tx
	q  *gen.Queries
}

func newTx(tx *sqlx.Tx) *txStore {
	return &txStore{
		tx: tx,
		q:  gen.New(tx.Tx),
	}
}

func (t *txStore) Commit() error   { return t.tx.Commit() }
func (t *txStore) Rollback() error { return t.tx.Rollback() }

func (t *txStore) Close() error { return nil } // the outer Store owns the pool

func (t *txStore) Ping(ctx context.Context) error { return nil }

func (t *txStore) Tx(ctx context.Context) (store.Tx, error) {
	// Nested tx not supported; could emulate with SAVEPOINT if needed
	return nil, sql.ErrTxDone
}

func (t *txStore) WithTx(ctx context.Context, fn func(tx store.Tx) error) error {
	return sql.ErrTxDone
}

func (t *txStore) Users() store.Users         { return &usersRepo{q: t.q} }
func (t *txStore) Resources() store.Resources { return &resourcesRepo{q: t.q, x: t.tx} }
func (t *txStore) Activity() store.Activity   { return &activityRepo{q: t.q} }

func (t *txStore) ApplyMigrations() error { return nil } // migrations run before any tx is opened
