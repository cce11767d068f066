// Package sqlite provides the single-node counter store on an embedded
// SQLite database (modernc.org/sqlite, no cgo).
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/sqlscan"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"bizdesk/internal/core/numerator"
	"bizdesk/internal/infrastructure/storage/counter_sql"
	"bizdesk/pkg/logger"
)

var pragmas = []string{
	"PRAGMA journal_mode = WAL",
	"PRAGMA synchronous = NORMAL",
	"PRAGMA busy_timeout = 5000",
}

// Option configures Store.
type Option func(*Store)

// WithAfterRead registers a hook invoked between the read and the write of
// every Update. Tests use it to force interleavings.
func WithAfterRead(fn func(key string)) Option {
	return func(s *Store) {
		s.afterRead = fn
	}
}

// Store keeps counters in the sys_counters table of a SQLite file.
type Store struct {
	db        *sql.DB
	queries   counter_sql.Queries
	afterRead func(key string)
}

var _ numerator.Store = (*Store)(nil)

// Open opens (creating if needed) the database at path and ensures the schema.
// Use ":memory:" for a throwaway database.
func Open(ctx context.Context, path string, opts ...Option) (*Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("creating db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// A single connection serializes writers of this process; other
	// processes are handled by the version check.
	db.SetMaxOpenConns(1)
	db.SetConnMaxIdleTime(0)

	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			db.Close()
			return nil, fmt.Errorf("applying pragma %q: %w", p, err)
		}
	}

	s := New(db, opts...)
	if err := s.EnsureSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}

	logger.Info(ctx, "sqlite counter store opened", "component", "sqlite", "path", path)
	return s, nil
}

// New wraps an open database. The caller owns the schema.
func New(db *sql.DB, opts ...Option) *Store {
	s := &Store{
		db:      db,
		queries: counter_sql.NewQueries(squirrel.Question),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// EnsureSchema creates the counters table.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, counter_sql.SQLiteSchema); err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}
	return nil
}

// Ping checks the database connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Get implements numerator.Store.
func (s *Store) Get(ctx context.Context, key string) (numerator.Counter, error) {
	row, err := s.read(ctx, s.db, key)
	if err != nil {
		return numerator.Counter{}, err
	}
	if row == nil {
		return numerator.Counter{}, numerator.ErrNotFound
	}
	return row.Counter(), nil
}

// CreateIfAbsent implements numerator.Store.
func (s *Store) CreateIfAbsent(ctx context.Context, c numerator.Counter) (bool, error) {
	query, args, err := s.queries.InsertIfAbsent(c)
	if err != nil {
		return false, fmt.Errorf("build insert: %w", err)
	}

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		if isBusy(err) {
			return false, numerator.Conflict(c.Key)
		}
		return false, numerator.Unavailable("create counter", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, numerator.Unavailable("create counter", err)
	}
	return n == 1, nil
}

// Update implements numerator.Store with a single version-checked write.
func (s *Store) Update(ctx context.Context, key string, fn numerator.UpdateFunc) (numerator.Counter, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return numerator.Counter{}, s.classify(key, "begin", err)
	}
	defer func() { _ = tx.Rollback() }()

	row, err := s.read(ctx, tx, key)
	if err != nil {
		return numerator.Counter{}, err
	}
	if s.afterRead != nil {
		s.afterRead(key)
	}

	var current *numerator.Counter
	if row != nil {
		c := row.Counter()
		current = &c
	}

	next, err := fn(current)
	if err != nil {
		return numerator.Counter{}, err
	}
	next.Key = key

	var (
		query string
		args  []any
	)
	if current == nil {
		next.Version = 1
		query, args, err = s.queries.InsertIfAbsent(next)
	} else {
		next.Version = current.Version + 1
		query, args, err = s.queries.UpdateIfVersion(key, next, current.Version)
	}
	if err != nil {
		return numerator.Counter{}, fmt.Errorf("build write: %w", err)
	}

	res, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return numerator.Counter{}, s.classify(key, "write counter", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return numerator.Counter{}, numerator.Unavailable("write counter", err)
	}
	if n == 0 {
		return numerator.Counter{}, numerator.Conflict(key)
	}

	if err := tx.Commit(); err != nil {
		return numerator.Counter{}, s.classify(key, "commit", err)
	}
	return next, nil
}

func (s *Store) read(ctx context.Context, q sqlscan.Querier, key string) (*counter_sql.Row, error) {
	query, args, err := s.queries.Select(key)
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}

	var row counter_sql.Row
	if err := sqlscan.Get(ctx, q, &row, query, args...); err != nil {
		if sqlscan.NotFound(err) {
			return nil, nil
		}
		if isBusy(err) {
			return nil, numerator.Conflict(key)
		}
		return nil, numerator.Unavailable("read counter", err)
	}
	return &row, nil
}

func (s *Store) classify(key, op string, err error) error {
	if isBusy(err) {
		return numerator.Conflict(key)
	}
	return numerator.Unavailable(op, err)
}

// isBusy reports lock contention with another connection or process,
// including a stale WAL snapshot on write.
func isBusy(err error) bool {
	var se *sqlite.Error
	if !errors.As(err, &se) {
		return false
	}
	switch se.Code() & 0xff {
	case sqlite3.SQLITE_BUSY, sqlite3.SQLITE_LOCKED:
		return true
	}
	return false
}
