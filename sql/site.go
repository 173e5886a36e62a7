// Package sqlsite provides a list host backed by a SQL database. It
// implements spmapper.Client on top of PostgreSQL, MySQL or SQLite through
// the adapter package.
package sqlsite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"spmapper"
	"spmapper/sql/adapter"
)

// Site is a SQL-backed list host. Lists, their fields and their items live
// in the sp_lists, sp_fields and sp_items tables; item field bags are
// stored as JSON.
type Site struct {
	adapter adapter.Adapter
	config  *adapter.Config
	db      *sql.DB
	logger  *slog.Logger
	now     func() time.Time

	transactionHandler *TransactionHandler
	queryExecutor      *QueryExecutor
	sql                statements

	mu    sync.Mutex
	stats Stats
}

var _ spmapper.Client = (*Site)(nil)

// Stats tracks site round trips.
type Stats struct {
	FieldLoads   int64
	Queries      int64
	ItemLoads    int64
	Executes     int64
	Mutations    int64
	LastAccessed time.Time
}

// RoundTrips returns the number of client calls served.
func (s Stats) RoundTrips() int64 {
	return s.FieldLoads + s.Queries + s.ItemLoads + s.Executes
}

// Option configures a Site.
type Option func(*Site)

// WithLogger sets the site logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Site) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithClock sets the time source used for Created and Modified.
func WithClock(now func() time.Time) Option {
	return func(s *Site) {
		if now != nil {
			s.now = now
		}
	}
}

// NewSite creates an unconnected site for the given adapter.
func NewSite(adpt adapter.Adapter, config *adapter.Config, opts ...Option) *Site {
	s := &Site{
		adapter: adpt,
		config:  config,
		logger:  slog.Default(),
		now:     time.Now,
		sql:     newStatements(adpt.QuoteIdentifier),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("component", "sql-site", "driver", adpt.Name())
	return s
}

// Connect establishes the database connection.
func (s *Site) Connect(ctx context.Context) error {
	db, err := s.adapter.Connect(ctx, s.config)
	if err != nil {
		return err
	}
	s.db = db
	s.transactionHandler = NewTransactionHandler(db, s.adapter)
	s.queryExecutor = NewQueryExecutor(db, s.adapter)
	s.logger.DebugContext(ctx, "connected", "host", s.config.Host, "database", s.config.DBName)
	return nil
}

// Open connects a site through adpt and creates its tables when missing.
func Open(ctx context.Context, adpt adapter.Adapter, config *adapter.Config, opts ...Option) (*Site, error) {
	site := NewSite(adpt, config, opts...)
	if err := site.Connect(ctx); err != nil {
		return nil, err
	}
	if err := site.EnsureSchema(ctx); err != nil {
		_ = site.Close()
		return nil, err
	}
	return site, nil
}

// OpenWithName opens a site using the adapter registered as adapterName.
func OpenWithName(ctx context.Context, adapterName string, config *adapter.Config, opts ...Option) (*Site, error) {
	adpt, err := adapter.Get(adapterName)
	if err != nil {
		return nil, spmapper.WrapDriverError(err, adapterName, "get adapter")
	}
	if config.Driver == "" {
		config.Driver = adapterName
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return Open(ctx, adpt, config, opts...)
}

// DB returns the underlying database connection.
func (s *Site) DB() *sql.DB {
	return s.db
}

// Adapter returns the underlying adapter.
func (s *Site) Adapter() adapter.Adapter {
	return s.adapter
}

// Close closes the database connection.
func (s *Site) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// DBStats returns database connection statistics.
func (s *Site) DBStats() sql.DBStats {
	if s.db != nil {
		return s.db.Stats()
	}
	return sql.DBStats{}
}

// Stats returns a snapshot of the round trip statistics.
func (s *Site) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}

func (s *Site) record(fn func(*Stats)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(&s.stats)
	s.stats.LastAccessed = s.now()
}

// EnsureSchema creates the site tables when missing.
func (s *Site) EnsureSchema(ctx context.Context) error {
	for _, stmt := range s.adapter.SchemaSQL() {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return s.queryError(err, "ensure_schema", "", stmt, nil)
		}
	}
	return nil
}

// CreateList adds a list with the built-in fields plus fields and returns
// its id. A field named like a built-in one replaces it.
func (s *Site) CreateList(ctx context.Context, title string, fields ...spmapper.Field) (uuid.UUID, error) {
	key := spmapper.TitleKey(title)
	if key == "" {
		return uuid.Nil, &spmapper.ConfigError{Field: "title", Message: "list title must not be blank"}
	}
	defs, err := spmapper.ListFields(fields...)
	if err != nil {
		return uuid.Nil, err
	}

	id := uuid.New()
	err = s.transactionHandler.WithTx(ctx, func(ctx context.Context) error {
		args := []any{id.String(), strings.TrimSpace(title), key}
		if _, err := s.queryExecutor.Exec(ctx, s.sql.insertList, args...); err != nil {
			if s.adapter.IsUniqueConstraintViolation(err) {
				return fmt.Errorf("%w: %s", spmapper.ErrListExists, title)
			}
			return s.queryError(err, "create_list", listsTable, s.sql.insertList, args)
		}
		for i, f := range defs {
			args := []any{id.String(), i, f.InternalName, f.Title, f.TypeName, boolInt(f.ReadOnly)}
			if _, err := s.queryExecutor.Exec(ctx, s.sql.insertField, args...); err != nil {
				return s.queryError(err, "create_list", fieldsTable, s.sql.insertField, args)
			}
		}
		return nil
	})
	if err != nil {
		return uuid.Nil, err
	}

	s.logger.DebugContext(ctx, "list created", "list", title, "id", id, "fields", len(defs))
	return id, nil
}

// Seed stores an item without counting a round trip and returns its id.
// Values are stored as given.
func (s *Site) Seed(ctx context.Context, ref spmapper.ListRef, values spmapper.FieldValues) (int, error) {
	var id int
	err := s.transactionHandler.WithTx(ctx, func(ctx context.Context) error {
		l, err := s.lookup(ctx, ref)
		if err != nil {
			return err
		}
		id, err = s.insertItem(ctx, l, values)
		return err
	})
	return id, err
}

type listRow struct {
	id    uuid.UUID
	title string
}

func (s *Site) lookup(ctx context.Context, ref spmapper.ListRef) (listRow, error) {
	query, arg := s.sql.selectListByID, any(ref.ID.String())
	if ref.IsTitle() {
		query, arg = s.sql.selectListByTitle, spmapper.TitleKey(ref.Title)
	}

	var (
		l  listRow
		id string
	)
	err := s.queryExecutor.QueryRow(ctx, query, arg).Scan(&id, &l.title)
	if errors.Is(err, sql.ErrNoRows) {
		return l, spmapper.NewListNotFoundError(ref.String())
	}
	if err != nil {
		return l, s.queryError(err, "lookup_list", listsTable, query, []any{arg})
	}
	if l.id, err = uuid.Parse(id); err != nil {
		return l, s.queryError(err, "lookup_list", listsTable, query, []any{arg})
	}
	return l, nil
}

func (s *Site) fields(ctx context.Context, l listRow) ([]spmapper.Field, error) {
	rows, err := s.queryExecutor.Query(ctx, s.sql.selectFields, l.id.String())
	if err != nil {
		return nil, s.queryError(err, "load_fields", fieldsTable, s.sql.selectFields, []any{l.id.String()})
	}
	defer rows.Close()

	var fields []spmapper.Field
	for rows.Next() {
		var (
			f        spmapper.Field
			readOnly int
		)
		if err := rows.Scan(&f.InternalName, &f.Title, &f.TypeName, &readOnly); err != nil {
			return nil, s.queryError(err, "scan_fields", fieldsTable, s.sql.selectFields, nil)
		}
		f.ReadOnly = readOnly != 0
		fields = append(fields, f)
	}
	if err := rows.Err(); err != nil {
		return nil, s.queryError(err, "load_fields", fieldsTable, s.sql.selectFields, nil)
	}
	return fields, nil
}

func (s *Site) fieldSet(ctx context.Context, l listRow) (spmapper.FieldSet, []string, error) {
	fields, err := s.fields(ctx, l)
	if err != nil {
		return nil, nil, err
	}
	set := spmapper.NewFieldSet()
	names := make([]string, len(fields))
	for i, f := range fields {
		set[f.InternalName] = struct{}{}
		names[i] = f.InternalName
	}
	return set, names, nil
}

// queryError wraps a failed statement, classifying broken connections as
// connection errors.
func (s *Site) queryError(err error, operation, table, query string, args []any) error {
	if s.adapter.IsConnectionError(err) {
		return spmapper.WrapConnectionError(err, operation, s.adapter.Name(), s.config.Host)
	}
	return spmapper.WrapQueryError(err, operation, table, query, args)
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
