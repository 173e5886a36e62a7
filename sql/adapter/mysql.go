package adapter

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
)

// MySQLAdapter implements the Adapter interface for MySQL.
type MySQLAdapter struct {
	*BaseSQLAdapter
}

var _ Adapter = (*MySQLAdapter)(nil)

// NewMySQLAdapter creates a new MySQL adapter.
func NewMySQLAdapter() *MySQLAdapter {
	return &MySQLAdapter{
		BaseSQLAdapter: NewBaseSQLAdapter("mysql", "mysql", false),
	}
}

// Connect establishes a connection to MySQL.
func (a *MySQLAdapter) Connect(ctx context.Context, config *Config) (*sql.DB, error) {
	return a.BaseSQLAdapter.Connect(ctx, config, a.ConnectionString(config))
}

// ConnectionString constructs a MySQL DSN with the driver's own formatter.
func (a *MySQLAdapter) ConnectionString(config *Config) string {
	cfg := mysql.NewConfig()
	cfg.User = config.User
	cfg.Passwd = config.Password
	cfg.DBName = config.DBName
	cfg.ParseTime = true
	cfg.Loc = time.UTC

	if config.Host != "" || config.Port > 0 {
		host := config.Host
		if host == "" {
			host = "localhost"
		}
		port := config.Port
		if port == 0 {
			port = 3306
		}
		cfg.Net = "tcp"
		cfg.Addr = fmt.Sprintf("%s:%d", host, port)
	}
	if config.ConnectTimeout > 0 {
		cfg.Timeout = config.ConnectTimeout
	}

	cfg.Params = map[string]string{}
	hasCharset := false
	for key, value := range config.Options {
		if strings.EqualFold(key, "charset") {
			hasCharset = true
		}
		cfg.Params[key] = value
	}
	if !hasCharset {
		cfg.Params["charset"] = "utf8mb4"
	}

	return cfg.FormatDSN()
}

// SchemaSQL returns the MySQL site tables.
func (a *MySQLAdapter) SchemaSQL() []string {
	stmts := sharedSchema(a.QuoteIdentifier, "VARCHAR(36)", "VARCHAR(255)", "LONGTEXT")
	for i, s := range stmts {
		stmts[i] = s + " ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci"
	}
	return stmts
}

// DefaultTxOptions returns MySQL-specific transaction options.
func (a *MySQLAdapter) DefaultTxOptions() *sql.TxOptions {
	return &sql.TxOptions{
		Isolation: sql.LevelRepeatableRead,
		ReadOnly:  false,
	}
}

// QuoteIdentifier quotes a MySQL identifier.
func (a *MySQLAdapter) QuoteIdentifier(identifier string) string {
	return "`" + strings.ReplaceAll(identifier, "`", "``") + "`"
}

// IsUniqueConstraintViolation checks for error 1062 (duplicate entry).
func (a *MySQLAdapter) IsUniqueConstraintViolation(err error) bool {
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return myErr.Number == 1062
	}
	return a.BaseSQLAdapter.IsUniqueConstraintViolation(err)
}

// IsConnectionError also recognises the driver's invalid connection error.
func (a *MySQLAdapter) IsConnectionError(err error) bool {
	return errors.Is(err, mysql.ErrInvalidConn) || a.BaseSQLAdapter.IsConnectionError(err)
}
