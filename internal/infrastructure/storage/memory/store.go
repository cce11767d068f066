// Package memory provides an in-process counter store.
// Writes are version-checked the same way the database stores do it, so the
// allocator observes real optimistic conflicts under concurrency.
package memory

import (
	"context"
	"sync"

	"github.com/zhangyunhao116/skipmap"

	"bizdesk/internal/core/numerator"
)

type cell struct {
	mu      sync.Mutex
	counter numerator.Counter
	exists  bool
}

func (c *cell) snapshot() (numerator.Counter, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.counter, c.exists
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

// Store keeps counters in a concurrent skip list keyed by sequence key.
type Store struct {
	cells     *skipmap.FuncMap[string, *cell]
	afterRead func(key string)
}

// Ensure compile-time interface compliance.
var _ numerator.Store = (*Store)(nil)

// New creates an empty store.
func New(opts ...Option) *Store {
	s := &Store{
		cells: skipmap.NewFunc[string, *cell](func(a, b string) bool {
			return a < b
		}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) cell(key string) *cell {
	c, _ := s.cells.LoadOrStore(key, &cell{})
	return c
}

// Get implements numerator.Store.
func (s *Store) Get(ctx context.Context, key string) (numerator.Counter, error) {
	if err := ctx.Err(); err != nil {
		return numerator.Counter{}, err
	}
	c, ok := s.cells.Load(key)
	if !ok {
		return numerator.Counter{}, numerator.ErrNotFound
	}
	counter, exists := c.snapshot()
	if !exists {
		return numerator.Counter{}, numerator.ErrNotFound
	}
	return counter, nil
}

// CreateIfAbsent implements numerator.Store.
func (s *Store) CreateIfAbsent(ctx context.Context, counter numerator.Counter) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	c := s.cell(counter.Key)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.exists {
		return false, nil
	}
	counter.Version = 1
	c.counter = counter
	c.exists = true
	return true, nil
}

// Update implements numerator.Store.
func (s *Store) Update(ctx context.Context, key string, fn numerator.UpdateFunc) (numerator.Counter, error) {
	if err := ctx.Err(); err != nil {
		return numerator.Counter{}, err
	}
	c := s.cell(key)

	current, exists := c.snapshot()
	if s.afterRead != nil {
		s.afterRead(key)
	}

	var next numerator.Counter
	var err error
	if exists {
		next, err = fn(&current)
	} else {
		next, err = fn(nil)
	}
	if err != nil {
		return numerator.Counter{}, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.exists != exists || c.counter.Version != current.Version {
		return numerator.Counter{}, numerator.Conflict(key)
	}

	next.Key = key
	next.Version = current.Version + 1
	c.counter = next
	c.exists = true
	return next, nil
}

// Keys returns all initialized sequence keys in order.
func (s *Store) Keys() []string {
	keys := make([]string, 0, s.cells.Len())
	s.cells.Range(func(key string, c *cell) bool {
		if _, exists := c.snapshot(); exists {
			keys = append(keys, key)
		}
		return true
	})
	return keys
}

// Ping implements the readiness check; the store is always reachable.
func (s *Store) Ping(ctx context.Context) error {
	return ctx.Err()
}
