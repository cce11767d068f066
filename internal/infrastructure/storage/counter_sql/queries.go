// Package counter_sql builds the SQL shared by the relational counter stores.
// PostgreSQL and SQLite differ only in placeholder format and schema types.
package counter_sql

import (
	"time"

	"github.com/Masterminds/squirrel"

	"bizdesk/internal/core/numerator"
)

// Table stores one row per sequence key.
const Table = "sys_counters"

// Columns in select order.
var Columns = []string{"key", "current_value", "last_updated", "version"}

// PostgresSchema creates the counters table in PostgreSQL.
const PostgresSchema = `
CREATE TABLE IF NOT EXISTS sys_counters (
	key           TEXT PRIMARY KEY,
	current_value BIGINT NOT NULL DEFAULT 0 CHECK (current_value >= 0),
	last_updated  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	version       BIGINT NOT NULL DEFAULT 1
)`

// SQLiteSchema creates the counters table in SQLite.
const SQLiteSchema = `
CREATE TABLE IF NOT EXISTS sys_counters (
	key           TEXT PRIMARY KEY,
	current_value INTEGER NOT NULL DEFAULT 0 CHECK (current_value >= 0),
	last_updated  DATETIME NOT NULL,
	version       INTEGER NOT NULL DEFAULT 1
)`

// Row is the persisted shape of a counter.
type Row struct {
	Key          string    `db:"key"`
	CurrentValue int64     `db:"current_value"`
	LastUpdated  time.Time `db:"last_updated"`
	Version      int64     `db:"version"`
}

// Counter converts the row to the domain type.
func (r Row) Counter() numerator.Counter {
	return numerator.Counter{
		Key:          r.Key,
		CurrentValue: r.CurrentValue,
		LastUpdated:  r.LastUpdated.UTC(),
		Version:      r.Version,
	}
}

// Queries builds counter statements for one placeholder dialect.
type Queries struct {
	builder squirrel.StatementBuilderType
}

// NewQueries creates a builder, e.g. NewQueries(squirrel.Dollar) for PostgreSQL.
func NewQueries(placeholder squirrel.PlaceholderFormat) Queries {
	return Queries{builder: squirrel.StatementBuilder.PlaceholderFormat(placeholder)}
}

// Select reads one counter.
func (q Queries) Select(key string) (string, []any, error) {
	return q.builder.
		Select(Columns...).
		From(Table).
		Where(squirrel.Eq{"key": key}).
		ToSql()
}

// InsertIfAbsent creates a counter with version 1 unless the key exists.
func (q Queries) InsertIfAbsent(c numerator.Counter) (string, []any, error) {
	return q.builder.
		Insert(Table).
		Columns(Columns...).
		Values(c.Key, c.CurrentValue, c.LastUpdated.UTC(), 1).
		Suffix("ON CONFLICT (key) DO NOTHING").
		ToSql()
}

// UpdateIfVersion writes the new value only if the row still has expectedVersion.
func (q Queries) UpdateIfVersion(key string, next numerator.Counter, expectedVersion int64) (string, []any, error) {
	return q.builder.
		Update(Table).
		Set("current_value", next.CurrentValue).
		Set("last_updated", next.LastUpdated.UTC()).
		Set("version", expectedVersion+1).
		Where(squirrel.Eq{"key": key}).
		Where(squirrel.Eq{"version": expectedVersion}).
		ToSql()
}
