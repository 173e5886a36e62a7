package adapter

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/mattn/go-sqlite3"

	"spmapper"
)

// SQLiteAdapter implements the Adapter interface for SQLite.
type SQLiteAdapter struct {
	*BaseSQLAdapter
}

var _ Adapter = (*SQLiteAdapter)(nil)

// NewSQLiteAdapter creates a new SQLite adapter.
func NewSQLiteAdapter() *SQLiteAdapter {
	return &SQLiteAdapter{
		BaseSQLAdapter: NewBaseSQLAdapter("sqlite3", "sqlite", false),
	}
}

// Connect establishes a connection to SQLite. Without an explicit limit the
// pool is capped at one connection, which also keeps an in-memory database
// alive and shared.
func (a *SQLiteAdapter) Connect(ctx context.Context, config *Config) (*sql.DB, error) {
	cfg := *config
	if cfg.MaxOpenConns <= 0 {
		cfg.MaxOpenConns = 1
	}
	if isMemoryPath(cfg.DBName) {
		cfg.ConnMaxLifetime = 0
		cfg.ConnMaxIdleTime = 0
	}

	db, err := a.BaseSQLAdapter.Connect(ctx, &cfg, a.ConnectionString(&cfg))
	if err != nil {
		return nil, err
	}

	// Foreign keys are disabled by default in SQLite.
	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
		_ = db.Close()
		return nil, spmapper.WrapConnectionError(err, "pragma", "sqlite3", cfg.DBName)
	}
	return db, nil
}

// ConnectionString constructs a SQLite connection string.
func (a *SQLiteAdapter) ConnectionString(config *Config) string {
	dbPath := config.DBName
	if dbPath == "" {
		dbPath = ":memory:"
	} else if !isMemoryPath(dbPath) && !strings.HasPrefix(dbPath, "file:") {
		dbPath = filepath.Clean(dbPath)
	}

	var params []string
	for _, key := range sortedKeys(config.Options) {
		params = append(params, fmt.Sprintf("%s=%s", key, config.Options[key]))
	}
	if len(params) > 0 {
		return fmt.Sprintf("%s?%s", dbPath, strings.Join(params, "&"))
	}
	return dbPath
}

func isMemoryPath(path string) bool {
	return path == "" || strings.HasPrefix(path, ":memory:") || strings.Contains(path, "mode=memory")
}

// SchemaSQL returns the SQLite site tables.
func (a *SQLiteAdapter) SchemaSQL() []string {
	return sharedSchema(a.QuoteIdentifier, "TEXT", "TEXT", "TEXT")
}

// DefaultTxOptions returns default transaction options for SQLite.
func (a *SQLiteAdapter) DefaultTxOptions() *sql.TxOptions {
	return &sql.TxOptions{
		Isolation: sql.LevelSerializable,
		ReadOnly:  false,
	}
}

// IsUniqueConstraintViolation checks the extended SQLite result code.
func (a *SQLiteAdapter) IsUniqueConstraintViolation(err error) bool {
	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		return liteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			liteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return a.BaseSQLAdapter.IsUniqueConstraintViolation(err)
}

// IsConnectionError checks if an error is a connection-related error.
func (a *SQLiteAdapter) IsConnectionError(err error) bool {
	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		return liteErr.Code == sqlite3.ErrCantOpen || liteErr.Code == sqlite3.ErrBusy
	}
	return a.BaseSQLAdapter.IsConnectionError(err)
}
