package counter_sql

import (
	"testing"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bizdesk/internal/core/numerator"
)

func TestQueries_Postgres(t *testing.T) {
	q := NewQueries(squirrel.Dollar)
	now := time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		build    func() (string, []any, error)
		wantSQL  string
		wantArgs []any
	}{
		{
			name:     "Select",
			build:    func() (string, []any, error) { return q.Select("sales") },
			wantSQL:  "SELECT key, current_value, last_updated, version FROM sys_counters WHERE key = $1",
			wantArgs: []any{"sales"},
		},
		{
			name: "InsertIfAbsent",
			build: func() (string, []any, error) {
				return q.InsertIfAbsent(numerator.Counter{Key: "sales", CurrentValue: 0, LastUpdated: now})
			},
			wantSQL:  "INSERT INTO sys_counters (key,current_value,last_updated,version) VALUES ($1,$2,$3,$4) ON CONFLICT (key) DO NOTHING",
			wantArgs: []any{"sales", int64(0), now, 1},
		},
		{
			name: "UpdateIfVersion",
			build: func() (string, []any, error) {
				return q.UpdateIfVersion("sales", numerator.Counter{CurrentValue: 11, LastUpdated: now}, 4)
			},
			wantSQL:  "UPDATE sys_counters SET current_value = $1, last_updated = $2, version = $3 WHERE key = $4 AND version = $5",
			wantArgs: []any{int64(11), now, int64(5), "sales", int64(4)},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sql, args, err := tt.build()
			require.NoError(t, err)
			assert.Equal(t, tt.wantSQL, sql)
			assert.Equal(t, tt.wantArgs, args)
		})
	}
}

func TestQueries_QuestionPlaceholders(t *testing.T) {
	sql, _, err := NewQueries(squirrel.Question).Select("sales")
	require.NoError(t, err)
	assert.Equal(t, "SELECT key, current_value, last_updated, version FROM sys_counters WHERE key = ?", sql)
}

func TestRow_CounterNormalizesUTC(t *testing.T) {
	local := time.Date(2026, 10, 18, 6, 0, 0, 0, time.FixedZone("BRT", -3*60*60))
	c := Row{Key: "k", CurrentValue: 3, LastUpdated: local, Version: 2}.Counter()

	assert.Equal(t, time.UTC, c.LastUpdated.Location())
	assert.True(t, c.LastUpdated.Equal(local))
	assert.Equal(t, int64(2), c.Version)
}
