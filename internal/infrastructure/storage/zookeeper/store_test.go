package zookeeper

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/go-zookeeper/zk"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bizdesk/internal/core/numerator"
)

type fakeNode struct {
	data    []byte
	version int32
}

// fakeConn is an in-memory znode tree with ZooKeeper's version semantics.
type fakeConn struct {
	mu    sync.Mutex
	nodes map[string]*fakeNode
	state zk.State
	err   error
}

func newFakeConn() *fakeConn {
	return &fakeConn{nodes: make(map[string]*fakeNode), state: zk.StateHasSession}
}

func (f *fakeConn) Get(path string) ([]byte, *zk.Stat, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, nil, f.err
	}
	n, ok := f.nodes[path]
	if !ok {
		return nil, nil, zk.ErrNoNode
	}
	return append([]byte(nil), n.data...), &zk.Stat{Version: n.version}, nil
}

func (f *fakeConn) Set(path string, data []byte, version int32) (*zk.Stat, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	n, ok := f.nodes[path]
	if !ok {
		return nil, zk.ErrNoNode
	}
	if version != -1 && version != n.version {
		return nil, zk.ErrBadVersion
	}
	n.data = append([]byte(nil), data...)
	n.version++
	return &zk.Stat{Version: n.version}, nil
}

func (f *fakeConn) Create(path string, data []byte, _ int32, _ []zk.ACL) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	if _, ok := f.nodes[path]; ok {
		return "", zk.ErrNodeExists
	}
	f.nodes[path] = &fakeNode{data: append([]byte(nil), data...)}
	return path, nil
}

func (f *fakeConn) Exists(path string) (bool, *zk.Stat, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return false, nil, f.err
	}
	n, ok := f.nodes[path]
	if !ok {
		return false, nil, nil
	}
	return true, &zk.Stat{Version: n.version}, nil
}

func (f *fakeConn) State() zk.State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

func (f *fakeConn) Close() {}

func increment(current *numerator.Counter) (numerator.Counter, error) {
	next := numerator.Counter{CurrentValue: 1, LastUpdated: time.Now()}
	if current != nil {
		next.CurrentValue = current.CurrentValue + 1
	}
	return next, nil
}

func newTestStore(t *testing.T, conn *fakeConn, opts ...Option) *Store {
	t.Helper()
	s, err := New(conn, "", opts...)
	require.NoError(t, err)
	return s
}

func TestNew_CreatesRootPath(t *testing.T) {
	conn := newFakeConn()
	newTestStore(t, conn)

	for _, p := range []string{"/bizdesk", "/bizdesk/counters"} {
		exists, _, err := conn.Exists(p)
		require.NoError(t, err)
		assert.True(t, exists, p)
	}
}

func TestStore_GetMissing(t *testing.T) {
	s := newTestStore(t, newFakeConn())

	_, err := s.Get(context.Background(), "sales")
	assert.ErrorIs(t, err, numerator.ErrNotFound)
}

func TestStore_CreateIfAbsentNeverOverwrites(t *testing.T) {
	s := newTestStore(t, newFakeConn())
	ctx := context.Background()
	now := time.Date(2026, 10, 18, 9, 30, 0, 0, time.UTC)

	created, err := s.CreateIfAbsent(ctx, numerator.Counter{Key: "sales", CurrentValue: 41, LastUpdated: now})
	require.NoError(t, err)
	assert.True(t, created)

	created, err = s.CreateIfAbsent(ctx, numerator.Counter{Key: "sales", LastUpdated: now})
	require.NoError(t, err)
	assert.False(t, created)

	c, err := s.Get(ctx, "sales")
	require.NoError(t, err)
	assert.Equal(t, int64(41), c.CurrentValue)
	assert.Equal(t, int64(1), c.Version)
	assert.True(t, now.Equal(c.LastUpdated))
}

func TestStore_UpdateCreatesAndIncrements(t *testing.T) {
	s := newTestStore(t, newFakeConn())
	ctx := context.Background()

	c, err := s.Update(ctx, "service_order", increment)
	require.NoError(t, err)
	assert.Equal(t, int64(1), c.CurrentValue)
	assert.Equal(t, int64(1), c.Version)

	c, err = s.Update(ctx, "service_order", increment)
	require.NoError(t, err)
	assert.Equal(t, int64(2), c.CurrentValue)
	assert.Equal(t, int64(2), c.Version)

	stored, err := s.Get(ctx, "service_order")
	require.NoError(t, err)
	assert.Equal(t, c.CurrentValue, stored.CurrentValue)
	assert.Equal(t, c.Version, stored.Version)
}

func TestStore_UpdateDetectsInterleavedWrite(t *testing.T) {
	conn := newFakeConn()
	interfered := false
	var s *Store
	s = newTestStore(t, conn, WithAfterRead(func(key string) {
		if interfered {
			return
		}
		interfered = true
		_, err := s.Update(context.Background(), key, increment)
		require.NoError(t, err)
	}))
	ctx := context.Background()

	_, err := s.CreateIfAbsent(ctx, numerator.Counter{Key: "sales", CurrentValue: 10, LastUpdated: time.Now()})
	require.NoError(t, err)

	_, err = s.Update(ctx, "sales", increment)
	assert.ErrorIs(t, err, numerator.ErrConflict)

	c, err := s.Get(ctx, "sales")
	require.NoError(t, err)
	assert.Equal(t, int64(11), c.CurrentValue)
}

func TestStore_UpdateDetectsConcurrentCreate(t *testing.T) {
	conn := newFakeConn()
	interfered := false
	var s *Store
	s = newTestStore(t, conn, WithAfterRead(func(key string) {
		if interfered {
			return
		}
		interfered = true
		_, err := s.CreateIfAbsent(context.Background(), numerator.Counter{Key: key, CurrentValue: 7})
		require.NoError(t, err)
	}))

	_, err := s.Update(context.Background(), "sales", increment)
	assert.ErrorIs(t, err, numerator.ErrConflict)
}

func TestStore_ConnectionErrorIsUnavailable(t *testing.T) {
	conn := newFakeConn()
	s := newTestStore(t, conn)
	conn.err = zk.ErrConnectionClosed

	_, err := s.Update(context.Background(), "sales", increment)
	assert.ErrorIs(t, err, numerator.ErrUnavailable)
	assert.True(t, errors.Is(err, zk.ErrConnectionClosed))
}

func TestStore_CanceledContext(t *testing.T) {
	s := newTestStore(t, newFakeConn())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.Update(ctx, "sales", increment)
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, numerator.IsRetryable(err))
}

func TestStore_Ping(t *testing.T) {
	conn := newFakeConn()
	s := newTestStore(t, conn)

	assert.NoError(t, s.Ping(context.Background()))

	conn.state = zk.StateDisconnected
	assert.Error(t, s.Ping(context.Background()))
}
