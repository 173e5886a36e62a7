package adapter

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/lib/pq"
)

// PostgreSQLAdapter implements the Adapter interface for PostgreSQL.
type PostgreSQLAdapter struct {
	*BaseSQLAdapter
}

var _ Adapter = (*PostgreSQLAdapter)(nil)

// NewPostgreSQLAdapter creates a new PostgreSQL adapter.
func NewPostgreSQLAdapter() *PostgreSQLAdapter {
	return &PostgreSQLAdapter{
		BaseSQLAdapter: NewBaseSQLAdapter("postgres", "postgresql", true),
	}
}

// Connect establishes a connection to PostgreSQL.
func (a *PostgreSQLAdapter) Connect(ctx context.Context, config *Config) (*sql.DB, error) {
	return a.BaseSQLAdapter.Connect(ctx, config, a.ConnectionString(config))
}

// ConnectionString constructs a PostgreSQL key/value connection string.
func (a *PostgreSQLAdapter) ConnectionString(config *Config) string {
	var parts []string

	if config.Host != "" {
		parts = append(parts, fmt.Sprintf("host=%s", config.Host))
	}
	if config.Port > 0 {
		parts = append(parts, fmt.Sprintf("port=%d", config.Port))
	}
	if config.DBName != "" {
		parts = append(parts, fmt.Sprintf("dbname=%s", config.DBName))
	}
	if config.User != "" {
		parts = append(parts, fmt.Sprintf("user=%s", config.User))
	}
	if config.Password != "" {
		parts = append(parts, fmt.Sprintf("password=%s", pqQuote(config.Password)))
	}

	sslMode := config.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	parts = append(parts, fmt.Sprintf("sslmode=%s", sslMode))

	for _, key := range sortedKeys(config.Options) {
		parts = append(parts, fmt.Sprintf("%s=%s", key, config.Options[key]))
	}

	return strings.Join(parts, " ")
}

// pqQuote quotes a connection string value when it holds spaces or quotes.
func pqQuote(v string) string {
	if !strings.ContainsAny(v, ` '\`) {
		return v
	}
	v = strings.ReplaceAll(v, `\`, `\\`)
	return `'` + strings.ReplaceAll(v, `'`, `\'`) + `'`
}

// SchemaSQL returns the PostgreSQL site tables.
func (a *PostgreSQLAdapter) SchemaSQL() []string {
	return sharedSchema(a.QuoteIdentifier, "VARCHAR(36)", "TEXT", "TEXT")
}

// QuoteIdentifier quotes a PostgreSQL identifier.
func (a *PostgreSQLAdapter) QuoteIdentifier(identifier string) string {
	return pq.QuoteIdentifier(identifier)
}

// IsUniqueConstraintViolation checks for SQLSTATE 23505.
func (a *PostgreSQLAdapter) IsUniqueConstraintViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return a.BaseSQLAdapter.IsUniqueConstraintViolation(err)
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
