package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"

	svcerrors "github.com/payplaces/directory/pkg/errors"
)

// querier is satisfied by both *sqlx.DB and *sqlx.Tx.
type querier interface {
	sqlx.ExtContext
	GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
}

type txKey struct{}

// TxFromContext extracts the active transaction from ctx, if any.
func TxFromContext(ctx context.Context) *sqlx.Tx {
	tx, _ := ctx.Value(txKey{}).(*sqlx.Tx)
	return tx
}

// ContextWithTx returns a context carrying tx.
func ContextWithTx(ctx context.Context, tx *sqlx.Tx) context.Context {
	return context.WithValue(ctx, txKey{}, tx)
}

// Base is embedded by every entity store and resolves the right
// querier (transaction or pool) for the context in hand.
type Base struct {
	db *sqlx.DB
}

func NewBase(db *sqlx.DB) Base {
	return Base{db: db}
}

// Ping reports whether the underlying connection pool can reach the
// database, used by the HTTP health check.
func (b Base) Ping() error {
	return b.db.Ping()
}

func (b Base) q(ctx context.Context) querier {
	if tx := TxFromContext(ctx); tx != nil {
		return tx
	}
	return b.db
}

// WithTx runs fn inside a new top-level transaction, committing on
// success and rolling back on any error (including panics).
func (b Base) WithTx(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	tx, beginErr := b.db.BeginTxx(ctx, nil)
	if beginErr != nil {
		return svcerrors.Database("begin transaction", beginErr)
	}

	txCtx := ContextWithTx(ctx, tx)

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback()
			return
		}
		if commitErr := tx.Commit(); commitErr != nil {
			err = svcerrors.Database("commit transaction", commitErr)
		}
	}()

	err = fn(txCtx)
	return err
}

// WithSavepoint runs fn inside a named SAVEPOINT nested within the
// transaction already active on ctx. A failure inside fn rolls back
// only that savepoint, leaving the enclosing transaction usable for
// the next point processed in the same sync phase. If ctx carries no
// transaction, one is opened first so WithSavepoint can still be used
// standalone (e.g. in tests).
func (b Base) WithSavepoint(ctx context.Context, name string, fn func(ctx context.Context) error) error {
	tx := TxFromContext(ctx)
	if tx == nil {
		return b.WithTx(ctx, func(ctx context.Context) error {
			return b.WithSavepoint(ctx, name, fn)
		})
	}

	if _, err := tx.ExecContext(ctx, fmt.Sprintf("SAVEPOINT %s", name)); err != nil {
		return svcerrors.Database("savepoint", err)
	}

	if err := fn(ctx); err != nil {
		if _, rbErr := tx.ExecContext(ctx, fmt.Sprintf("ROLLBACK TO SAVEPOINT %s", name)); rbErr != nil {
			return svcerrors.Database("rollback savepoint", rbErr)
		}
		return err
	}

	if _, err := tx.ExecContext(ctx, fmt.Sprintf("RELEASE SAVEPOINT %s", name)); err != nil {
		return svcerrors.Database("release savepoint", err)
	}
	return nil
}

// isNoRows reports whether err is sql.ErrNoRows, the signal every
// entity store maps to errors.NotFound.
func isNoRows(err error) bool { return err == sql.ErrNoRows }

// sqlxIn expands a `?`-placeholder query for a slice argument via
// sqlx.In; callers then Rebind it to the driver's placeholder style.
func sqlxIn(query string, args ...interface{}) (string, []interface{}, error) {
	return sqlx.In(query, args...)
}
