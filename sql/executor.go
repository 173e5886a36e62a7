package sqlsite

import (
	"context"
	"database/sql"

	"spmapper/sql/adapter"
)

// QueryExecutor runs statements on the transaction in context, or on the
// pool when there is none. Statements use ? placeholders and are rebound
// for the adapter's dialect.
type QueryExecutor struct {
	db      *sql.DB
	adapter adapter.Adapter
}

func NewQueryExecutor(db *sql.DB, adpt adapter.Adapter) *QueryExecutor {
	return &QueryExecutor{db: db, adapter: adpt}
}

type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (qe *QueryExecutor) conn(ctx context.Context) querier {
	if tx, ok := TransactionFromContext(ctx); ok && tx != nil {
		return tx
	}
	return qe.db
}

func (qe *QueryExecutor) Query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return qe.conn(ctx).QueryContext(ctx, qe.adapter.Rebind(query), args...)
}

func (qe *QueryExecutor) QueryRow(ctx context.Context, query string, args ...any) *sql.Row {
	return qe.conn(ctx).QueryRowContext(ctx, qe.adapter.Rebind(query), args...)
}

func (qe *QueryExecutor) Exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return qe.conn(ctx).ExecContext(ctx, qe.adapter.Rebind(query), args...)
}
