// Package zookeeper keeps sequence counters in ZooKeeper znodes.
// Every write is conditional on the znode version read in the same attempt.
package zookeeper

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/go-zookeeper/zk"

	"bizdesk/internal/core/numerator"
	"bizdesk/pkg/logger"
)

// DefaultRoot is the parent znode of all counters.
const DefaultRoot = "/bizdesk/counters"

// Config holds the ensemble settings.
type Config struct {
	Servers        []string      `yaml:"servers"`
	Root           string        `yaml:"root"`
	SessionTimeout time.Duration `yaml:"session_timeout"`
}

// Conn is the subset of *zk.Conn used by Store.
type Conn interface {
	Get(path string) ([]byte, *zk.Stat, error)
	Set(path string, data []byte, version int32) (*zk.Stat, error)
	Create(path string, data []byte, flags int32, acl []zk.ACL) (string, error)
	Exists(path string) (bool, *zk.Stat, error)
	State() zk.State
	Close()
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

// zkLogger routes client session chatter to debug level.
type zkLogger struct {
	*logger.Logger
}

func (l zkLogger) Printf(format string, args ...any) {
	l.Debugf(format, args...)
}

// Store implements numerator.Store on ZooKeeper.
type Store struct {
	conn      Conn
	root      string
	afterRead func(key string)
}

var _ numerator.Store = (*Store)(nil)

// node is the znode payload. The version lives in the znode stat.
type node struct {
	CurrentValue int64     `json:"current_value"`
	LastUpdated  time.Time `json:"last_updated"`
}

// Connect dials the ensemble, waits for a session and creates the root path.
func Connect(ctx context.Context, cfg Config, opts ...Option) (*Store, error) {
	timeout := cfg.SessionTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	conn, _, err := zk.Connect(cfg.Servers, timeout,
		zk.WithLogger(zkLogger{logger.FromContext(ctx).WithComponent("zookeeper")}))
	if err != nil {
		return nil, fmt.Errorf("zk connect: %w", err)
	}
	if err := waitConnected(ctx, conn, 2*timeout); err != nil {
		conn.Close()
		return nil, err
	}

	s, err := New(conn, cfg.Root, opts...)
	if err != nil {
		conn.Close()
		return nil, err
	}

	logger.Info(ctx, "zookeeper counter store connected",
		"component", "zookeeper",
		"servers", strings.Join(cfg.Servers, ","),
		"root", s.root)
	return s, nil
}

// New wraps an established connection and ensures root exists.
func New(conn Conn, root string, opts ...Option) (*Store, error) {
	if root == "" {
		root = DefaultRoot
	}
	s := &Store{conn: conn, root: path.Clean(root)}
	for _, opt := range opts {
		opt(s)
	}
	if err := s.ensurePath(s.root); err != nil {
		return nil, numerator.Unavailable("ensure root", err)
	}
	return s, nil
}

// Ping reports whether the session is alive.
func (s *Store) Ping(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	switch st := s.conn.State(); st {
	case zk.StateConnected, zk.StateHasSession:
		return nil
	default:
		return fmt.Errorf("zk: session state %v", st)
	}
}

// Close closes the session.
func (s *Store) Close() error {
	s.conn.Close()
	return nil
}

func (s *Store) nodePath(key string) string {
	return s.root + "/" + key
}

// Get implements numerator.Store.
func (s *Store) Get(ctx context.Context, key string) (numerator.Counter, error) {
	if err := ctx.Err(); err != nil {
		return numerator.Counter{}, err
	}
	c, _, err := s.read(key)
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
	if err := ctx.Err(); err != nil {
		return false, err
	}
	data, err := encode(c)
	if err != nil {
		return false, err
	}

	_, err = s.conn.Create(s.nodePath(c.Key), data, 0, zk.WorldACL(zk.PermAll))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, zk.ErrNodeExists):
		return false, nil
	default:
		return false, numerator.Unavailable("create counter", err)
	}
}

// Update implements numerator.Store with one versioned write.
func (s *Store) Update(ctx context.Context, key string, fn numerator.UpdateFunc) (numerator.Counter, error) {
	if err := ctx.Err(); err != nil {
		return numerator.Counter{}, err
	}

	current, stat, err := s.read(key)
	if err != nil {
		return numerator.Counter{}, err
	}
	if s.afterRead != nil {
		s.afterRead(key)
	}

	next, err := fn(current)
	if err != nil {
		return numerator.Counter{}, err
	}
	next.Key = key

	data, err := encode(next)
	if err != nil {
		return numerator.Counter{}, err
	}

	if current == nil {
		_, err = s.conn.Create(s.nodePath(key), data, 0, zk.WorldACL(zk.PermAll))
		if err != nil {
			if errors.Is(err, zk.ErrNodeExists) {
				return numerator.Counter{}, numerator.Conflict(key)
			}
			return numerator.Counter{}, numerator.Unavailable("create counter", err)
		}
		next.Version = 1
		return next, nil
	}

	newStat, err := s.conn.Set(s.nodePath(key), data, stat.Version)
	if err != nil {
		if errors.Is(err, zk.ErrBadVersion) || errors.Is(err, zk.ErrNoNode) {
			return numerator.Counter{}, numerator.Conflict(key)
		}
		return numerator.Counter{}, numerator.Unavailable("update counter", err)
	}
	next.Version = int64(newStat.Version) + 1
	return next, nil
}

func (s *Store) read(key string) (*numerator.Counter, *zk.Stat, error) {
	data, stat, err := s.conn.Get(s.nodePath(key))
	if err != nil {
		if errors.Is(err, zk.ErrNoNode) {
			return nil, nil, nil
		}
		return nil, nil, numerator.Unavailable("read counter", err)
	}

	var n node
	if err := json.Unmarshal(data, &n); err != nil {
		return nil, nil, numerator.Unavailable("read counter", fmt.Errorf("decode %s: %w", key, err))
	}
	return &numerator.Counter{
		Key:          key,
		CurrentValue: n.CurrentValue,
		LastUpdated:  n.LastUpdated.UTC(),
		Version:      int64(stat.Version) + 1,
	}, stat, nil
}

func encode(c numerator.Counter) ([]byte, error) {
	data, err := json.Marshal(node{CurrentValue: c.CurrentValue, LastUpdated: c.LastUpdated.UTC()})
	if err != nil {
		return nil, fmt.Errorf("encode counter %q: %w", c.Key, err)
	}
	return data, nil
}

func (s *Store) ensurePath(p string) error {
	cur := ""
	for _, part := range strings.Split(p, "/") {
		if part == "" {
			continue
		}
		cur += "/" + part
		exists, _, err := s.conn.Exists(cur)
		if err != nil {
			return err
		}
		if exists {
			continue
		}
		if _, err := s.conn.Create(cur, nil, 0, zk.WorldACL(zk.PermAll)); err != nil && !errors.Is(err, zk.ErrNodeExists) {
			return err
		}
	}
	return nil
}

func waitConnected(ctx context.Context, conn Conn, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		if st := conn.State(); st == zk.StateHasSession {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("zk: no session after %s, state=%v", timeout, conn.State())
		case <-ticker.C:
		}
	}
}
