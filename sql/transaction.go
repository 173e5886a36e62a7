package sqlsite

import (
	"context"
	"database/sql"
	"errors"

	"spmapper"
	"spmapper/sql/adapter"
)

type txContextKey struct{}

// TransactionFromContext extracts an *sql.Tx from context when present.
func TransactionFromContext(ctx context.Context) (*sql.Tx, bool) {
	v := ctx.Value(txContextKey{})
	if v == nil {
		return nil, false
	}
	tx, ok := v.(*sql.Tx)
	return tx, ok
}

// TransactionHandler runs functions inside a database transaction carried
// by the context.
type TransactionHandler struct {
	db      *sql.DB
	adapter adapter.Adapter
}

func NewTransactionHandler(db *sql.DB, adpt adapter.Adapter) *TransactionHandler {
	return &TransactionHandler{db: db, adapter: adpt}
}

// WithTx runs fn in a read-write transaction. An error from fn is returned
// as is after rollback; begin and commit failures are wrapped.
func (t *TransactionHandler) WithTx(ctx context.Context, fn func(context.Context) error) error {
	return t.run(ctx, t.adapter.DefaultTxOptions(), "", fn)
}

// WithReadTx runs fn in a read-only transaction.
func (t *TransactionHandler) WithReadTx(ctx context.Context, fn func(context.Context) error) error {
	opts := t.adapter.DefaultTxOptions()
	if opts == nil {
		opts = &sql.TxOptions{}
	}
	ro := *opts
	ro.ReadOnly = true
	return t.run(ctx, &ro, "_read", fn)
}

func (t *TransactionHandler) run(ctx context.Context, opts *sql.TxOptions, suffix string, fn func(context.Context) error) error {
	// Reuse existing transaction if present
	if existing, ok := TransactionFromContext(ctx); ok && existing != nil {
		return fn(ctx)
	}

	tx, err := t.db.BeginTx(ctx, opts)
	if err != nil {
		if t.adapter.IsConnectionError(err) {
			return spmapper.WrapConnectionError(err, "begin"+suffix, t.adapter.Name(), "")
		}
		return spmapper.WrapTransactionError(err, "begin"+suffix)
	}
	ctxWithTx := context.WithValue(ctx, txContextKey{}, tx)
	if err := fn(ctxWithTx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			return errors.Join(err, spmapper.WrapTransactionError(rbErr, "rollback"+suffix))
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return spmapper.WrapTransactionError(err, "commit"+suffix)
	}
	return nil
}
