package adapter

import (
	"context"
	"database/sql"
)

// Adapter represents a SQL database dialect (PostgreSQL, MySQL, SQLite)
// backing a list site.
type Adapter interface {
	// Name returns the adapter's unique identifier.
	Name() string

	// Connect establishes a connection to the database.
	Connect(ctx context.Context, config *Config) (*sql.DB, error)

	// ConnectionString builds the connection string from config.
	ConnectionString(config *Config) string

	// Dialect
	Rebind(query string) string
	QuoteIdentifier(identifier string) string
	SchemaSQL() []string
	DefaultTxOptions() *sql.TxOptions

	// Error classification
	IsUniqueConstraintViolation(err error) bool
	IsConnectionError(err error) bool

	// Close releases any resources held by the adapter.
	Close() error
}
