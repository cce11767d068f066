// Package redis keeps sequence counters in Redis hashes.
// Updates use WATCH/MULTI/EXEC so a concurrent writer aborts the transaction.
package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"bizdesk/internal/core/numerator"
	"bizdesk/pkg/logger"
)

// DefaultKeyPrefix namespaces counter hashes.
const DefaultKeyPrefix = "bizdesk:counter:"

const (
	fieldValue       = "current_value"
	fieldLastUpdated = "last_updated"
	fieldVersion     = "version"
)

// Config holds the connection settings.
type Config struct {
	Addr      string `yaml:"addr"`
	Password  string `yaml:"password"`
	DB        int    `yaml:"db"`
	KeyPrefix string `yaml:"key_prefix"`
}

// Option configures Store.
type Option func(*Store)

// WithKeyPrefix overrides DefaultKeyPrefix.
func WithKeyPrefix(prefix string) Option {
	return func(s *Store) {
		if prefix != "" {
			s.prefix = prefix
		}
	}
}

// WithAfterRead registers a hook invoked between the read and the write of
// every Update. Tests use it to force interleavings.
func WithAfterRead(fn func(key string)) Option {
	return func(s *Store) {
		s.afterRead = fn
	}
}

// hashReader is satisfied by both *redis.Client and *redis.Tx.
type hashReader interface {
	HGetAll(ctx context.Context, key string) *redis.MapStringStringCmd
}

// Store implements numerator.Store on Redis.
type Store struct {
	client    *redis.Client
	prefix    string
	afterRead func(key string)
}

var _ numerator.Store = (*Store)(nil)

// Connect creates a client and verifies it with PING.
func Connect(ctx context.Context, cfg Config, opts ...Option) (*Store, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", cfg.Addr, err)
	}

	logger.Info(ctx, "redis counter store connected", "component", "redis", "addr", cfg.Addr, "db", cfg.DB)
	return New(client, append([]Option{WithKeyPrefix(cfg.KeyPrefix)}, opts...)...), nil
}

// New wraps an existing client.
func New(client *redis.Client, opts ...Option) *Store {
	s := &Store{client: client, prefix: DefaultKeyPrefix}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Ping checks the connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close closes the client.
func (s *Store) Close() error {
	return s.client.Close()
}

func (s *Store) redisKey(key string) string {
	return s.prefix + key
}

// Get implements numerator.Store.
func (s *Store) Get(ctx context.Context, key string) (numerator.Counter, error) {
	c, err := s.read(ctx, s.client, key)
	if err != nil {
		return numerator.Counter{}, err
	}
	if c == nil {
		return numerator.Counter{}, numerator.ErrNotFound
	}
	return *c, nil
}

// CreateIfAbsent implements numerator.Store.
func (s *Store) CreateIfAbsent(ctx context.Context, c numerator.Counter) (bool, error) {
	created := false
	err := s.client.Watch(ctx, func(tx *redis.Tx) error {
		n, err := tx.Exists(ctx, s.redisKey(c.Key)).Result()
		if err != nil {
			return numerator.Unavailable("exists", err)
		}
		if n > 0 {
			return nil
		}

		c.Version = 1
		if _, err := tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, s.redisKey(c.Key), fields(c))
			return nil
		}); err != nil {
			return err
		}
		created = true
		return nil
	}, s.redisKey(c.Key))
	if err != nil {
		return false, s.classify(c.Key, "create counter", err)
	}
	return created, nil
}

// Update implements numerator.Store with a single optimistic transaction.
func (s *Store) Update(ctx context.Context, key string, fn numerator.UpdateFunc) (numerator.Counter, error) {
	var (
		next  numerator.Counter
		fnErr error
	)
	err := s.client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := s.read(ctx, tx, key)
		if err != nil {
			return err
		}
		if s.afterRead != nil {
			s.afterRead(key)
		}

		next, fnErr = fn(current)
		if fnErr != nil {
			return fnErr
		}
		next.Key = key
		next.Version = 1
		if current != nil {
			next.Version = current.Version + 1
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, s.redisKey(key), fields(next))
			return nil
		})
		return err
	}, s.redisKey(key))
	if fnErr != nil {
		return numerator.Counter{}, fnErr
	}
	if err != nil {
		return numerator.Counter{}, s.classify(key, "update counter", err)
	}
	return next, nil
}

func (s *Store) read(ctx context.Context, cmd hashReader, key string) (*numerator.Counter, error) {
	values, err := cmd.HGetAll(ctx, s.redisKey(key)).Result()
	if err != nil {
		return nil, numerator.Unavailable("read counter", err)
	}
	if len(values) == 0 {
		return nil, nil
	}

	c, err := parse(key, values)
	if err != nil {
		return nil, numerator.Unavailable("read counter", err)
	}
	return &c, nil
}

// classify maps an aborted EXEC to a conflict and anything else to an
// unavailable store, keeping errors that are already classified.
func (s *Store) classify(key, op string, err error) error {
	switch {
	case errors.Is(err, redis.TxFailedErr):
		return numerator.Conflict(key)
	case errors.Is(err, numerator.ErrConflict), errors.Is(err, numerator.ErrUnavailable):
		return err
	default:
		return numerator.Unavailable(op, err)
	}
}

func fields(c numerator.Counter) map[string]any {
	return map[string]any{
		fieldValue:       c.CurrentValue,
		fieldLastUpdated: c.LastUpdated.UTC().Format(time.RFC3339Nano),
		fieldVersion:     c.Version,
	}
}

func parse(key string, values map[string]string) (numerator.Counter, error) {
	c := numerator.Counter{Key: key}

	var err error
	if c.CurrentValue, err = strconv.ParseInt(values[fieldValue], 10, 64); err != nil {
		return c, fmt.Errorf("counter %q: bad %s: %w", key, fieldValue, err)
	}
	if c.Version, err = strconv.ParseInt(values[fieldVersion], 10, 64); err != nil {
		return c, fmt.Errorf("counter %q: bad %s: %w", key, fieldVersion, err)
	}
	if raw := values[fieldLastUpdated]; raw != "" {
		if c.LastUpdated, err = time.Parse(time.RFC3339Nano, raw); err != nil {
			return c, fmt.Errorf("counter %q: bad %s: %w", key, fieldLastUpdated, err)
		}
	}
	return c, nil
}
