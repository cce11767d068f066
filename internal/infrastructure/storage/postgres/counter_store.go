package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"bizdesk/internal/core/numerator"
	"bizdesk/internal/infrastructure/storage/counter_sql"
)

// CounterStore keeps sequence counters in the sys_counters table.
// Conflicting writers are detected by the version column.
type CounterStore struct {
	txm     *TxManager
	queries counter_sql.Queries
}

var _ numerator.Store = (*CounterStore)(nil)

// NewCounterStore creates a counter store on top of txm.
func NewCounterStore(txm *TxManager) *CounterStore {
	return &CounterStore{
		txm:     txm,
		queries: counter_sql.NewQueries(squirrel.Dollar),
	}
}

// Get implements numerator.Store.
func (s *CounterStore) Get(ctx context.Context, key string) (numerator.Counter, error) {
	row, err := s.read(ctx, key)
	if err != nil {
		return numerator.Counter{}, err
	}
	if row == nil {
		return numerator.Counter{}, numerator.ErrNotFound
	}
	return row.Counter(), nil
}

// CreateIfAbsent implements numerator.Store.
func (s *CounterStore) CreateIfAbsent(ctx context.Context, c numerator.Counter) (bool, error) {
	query, args, err := s.queries.InsertIfAbsent(c)
	if err != nil {
		return false, fmt.Errorf("build insert: %w", err)
	}

	tag, err := s.txm.GetQuerier(ctx).Exec(ctx, query, args...)
	if err != nil {
		return false, numerator.Unavailable("create counter", err)
	}
	return tag.RowsAffected() == 1, nil
}

// Update implements numerator.Store with a single version-checked write.
func (s *CounterStore) Update(ctx context.Context, key string, fn numerator.UpdateFunc) (numerator.Counter, error) {
	var (
		result numerator.Counter
		fnErr  error
	)

	err := s.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		row, err := s.read(ctx, key)
		if err != nil {
			return err
		}

		var current *numerator.Counter
		if row != nil {
			c := row.Counter()
			current = &c
		}

		next, err := fn(current)
		if err != nil {
			fnErr = err
			return err
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
			return fmt.Errorf("build write: %w", err)
		}
		if err := s.write(ctx, key, query, args); err != nil {
			return err
		}

		result = next
		return nil
	})
	if err == nil {
		return result, nil
	}

	switch {
	case fnErr != nil:
		return numerator.Counter{}, err
	case errors.Is(err, numerator.ErrConflict), errors.Is(err, numerator.ErrUnavailable):
		return numerator.Counter{}, err
	case IsSerializationFailure(err):
		return numerator.Counter{}, numerator.Conflict(key)
	default:
		return numerator.Counter{}, numerator.Unavailable("update counter", err)
	}
}

// write runs a conditional write; zero affected rows means another writer won.
func (s *CounterStore) write(ctx context.Context, key, query string, args []any) error {
	tag, err := s.txm.GetQuerier(ctx).Exec(ctx, query, args...)
	if err != nil {
		if IsSerializationFailure(err) {
			return numerator.Conflict(key)
		}
		return numerator.Unavailable("write counter", err)
	}
	if tag.RowsAffected() == 0 {
		return numerator.Conflict(key)
	}
	return nil
}

func (s *CounterStore) read(ctx context.Context, key string) (*counter_sql.Row, error) {
	query, args, err := s.queries.Select(key)
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}

	var row counter_sql.Row
	if err := pgxscan.Get(ctx, s.txm.GetQuerier(ctx), &row, query, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, nil
		}
		return nil, numerator.Unavailable("read counter", err)
	}
	return &row, nil
}
