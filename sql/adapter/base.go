package adapter

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"strings"

	"spmapper"
)

// BaseSQLAdapter provides common functionality for all SQL adapters.
type BaseSQLAdapter struct {
	db         *sql.DB
	driverName string
	name       string
	numbered   bool // $1, $2 placeholders instead of ?
}

// NewBaseSQLAdapter creates a new base SQL adapter.
func NewBaseSQLAdapter(driverName, name string, numbered bool) *BaseSQLAdapter {
	return &BaseSQLAdapter{
		driverName: driverName,
		name:       name,
		numbered:   numbered,
	}
}

// Name returns the adapter name.
func (a *BaseSQLAdapter) Name() string {
	return a.name
}

// Connect opens, configures and pings a database connection.
func (a *BaseSQLAdapter) Connect(ctx context.Context, config *Config, connectionString string) (*sql.DB, error) {
	db, err := sql.Open(a.driverName, connectionString)
	if err != nil {
		return nil, spmapper.WrapConnectionError(err, "connect", a.driverName, config.Host)
	}

	configureConnectionPool(db, config)

	pingCtx := ctx
	if config.ConnectTimeout > 0 {
		var cancel context.CancelFunc
		pingCtx, cancel = context.WithTimeout(ctx, config.ConnectTimeout)
		defer cancel()
	}
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, spmapper.WrapConnectionError(err, "ping", a.driverName, config.Host)
	}

	a.db = db
	return db, nil
}

func configureConnectionPool(db *sql.DB, config *Config) {
	if config.MaxOpenConns > 0 {
		db.SetMaxOpenConns(config.MaxOpenConns)
	}
	if config.MaxIdleConns > 0 {
		db.SetMaxIdleConns(config.MaxIdleConns)
	}
	if config.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(config.ConnMaxLifetime)
	}
	if config.ConnMaxIdleTime > 0 {
		db.SetConnMaxIdleTime(config.ConnMaxIdleTime)
	}
}

// Close closes the database connection.
func (a *BaseSQLAdapter) Close() error {
	if a.db != nil {
		return a.db.Close()
	}
	return nil
}

// DB returns the underlying database connection.
func (a *BaseSQLAdapter) DB() *sql.DB {
	return a.db
}

// Rebind rewrites ? placeholders into the dialect's form.
func (a *BaseSQLAdapter) Rebind(query string) string {
	if !a.numbered {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// QuoteIdentifier quotes an identifier with ANSI double quotes.
func (a *BaseSQLAdapter) QuoteIdentifier(identifier string) string {
	return `"` + strings.ReplaceAll(identifier, `"`, `""`) + `"`
}

// DefaultTxOptions returns default transaction options.
func (a *BaseSQLAdapter) DefaultTxOptions() *sql.TxOptions {
	return &sql.TxOptions{
		Isolation: sql.LevelReadCommitted,
		ReadOnly:  false,
	}
}

// IsConnectionError reports errors that indicate a broken connection.
func (a *BaseSQLAdapter) IsConnectionError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, sql.ErrConnDone) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	return containsAny(err.Error(),
		"connection refused",
		"connection reset",
		"connection closed",
		"network is unreachable",
		"driver: bad connection",
		"database is closed",
	)
}

// IsUniqueConstraintViolation falls back to message matching.
func (a *BaseSQLAdapter) IsUniqueConstraintViolation(err error) bool {
	if err == nil {
		return false
	}
	return containsAny(err.Error(),
		"unique constraint",
		"duplicate key",
		"duplicate entry",
	)
}

func containsAny(s string, patterns ...string) bool {
	s = strings.ToLower(s)
	for _, p := range patterns {
		if strings.Contains(s, p) {
			return true
		}
	}
	return false
}

// sharedSchema returns the site tables using dialect column types and
// identifier quoting.
func sharedSchema(quote func(string) string, key, text, payload string) []string {
	return []string{
		`CREATE TABLE IF NOT EXISTS ` + quote("sp_lists") + ` (
		id ` + key + ` PRIMARY KEY,
		title ` + text + ` NOT NULL,
		title_key ` + text + ` NOT NULL UNIQUE,
		next_item_id INTEGER NOT NULL DEFAULT 1
	)`,
		`CREATE TABLE IF NOT EXISTS ` + quote("sp_fields") + ` (
		list_id ` + key + ` NOT NULL,
		position INTEGER NOT NULL,
		internal_name ` + text + ` NOT NULL,
		title ` + text + ` NOT NULL,
		type_name ` + text + ` NOT NULL,
		read_only INTEGER NOT NULL DEFAULT 0,
		PRIMARY KEY (list_id, internal_name)
	)`,
		`CREATE TABLE IF NOT EXISTS ` + quote("sp_items") + ` (
		list_id ` + key + ` NOT NULL,
		item_id INTEGER NOT NULL,
		field_values ` + payload + ` NOT NULL,
		PRIMARY KEY (list_id, item_id)
	)`,
	}
}
