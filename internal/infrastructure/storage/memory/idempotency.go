package memory

import (
	"context"
	"sync"
	"time"

	"github.com/zhangyunhao116/skipmap"

	"bizdesk/internal/core/apperror"
	"bizdesk/internal/core/idempotency"
)

type idemEntry struct {
	mu          sync.Mutex
	operator    string
	operation   string
	requestHash string
	status      idempotency.Status
	replay      idempotency.Replay
	updatedAt   time.Time
	expiresAt   time.Time
	removed     bool
}

// IdempotencyStore keeps idempotency keys in process memory.
// It backs the HTTP layer when counters live outside PostgreSQL.
type IdempotencyStore struct {
	entries  *skipmap.FuncMap[string, *idemEntry]
	ttl      time.Duration
	staleAge time.Duration
	now      func() time.Time
}

var _ idempotency.Store = (*IdempotencyStore)(nil)

// NewIdempotencyStore creates an empty store; records live for ttl.
func NewIdempotencyStore(ttl time.Duration) *IdempotencyStore {
	return &IdempotencyStore{
		entries: skipmap.NewFunc[string, *idemEntry](func(a, b string) bool {
			return a < b
		}),
		ttl:      ttl,
		staleAge: time.Minute,
		now:      time.Now,
	}
}

// AcquireKey implements idempotency.Store.
func (s *IdempotencyStore) AcquireKey(ctx context.Context, key, operator, operation, requestHash string) (*idempotency.Replay, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	now := s.now()

	fresh := &idemEntry{
		operator:    operator,
		operation:   operation,
		requestHash: requestHash,
		status:      idempotency.StatusPending,
		updatedAt:   now,
		expiresAt:   now.Add(s.ttl),
	}
	for {
		e, loaded := s.entries.LoadOrStore(key, fresh)
		if !loaded {
			return nil, nil
		}
		replay, ok, err := s.acquireExisting(e, key, operator, operation, requestHash, now)
		if ok {
			return replay, err
		}
	}
}

// acquireExisting reports ok=false when cleanup dropped e from the map
// before the lock was taken.
func (s *IdempotencyStore) acquireExisting(e *idemEntry, key, operator, operation, requestHash string, now time.Time) (*idempotency.Replay, bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.removed {
		return nil, false, nil
	}

	if now.After(e.expiresAt) {
		e.operator, e.operation, e.requestHash = operator, operation, requestHash
		e.status = idempotency.StatusPending
		e.replay = idempotency.Replay{}
		e.updatedAt = now
		e.expiresAt = now.Add(s.ttl)
		return nil, true, nil
	}

	if e.operator != operator || e.operation != operation || e.requestHash != requestHash {
		return nil, true, apperror.NewIdempotencyMismatch(key).
			WithDetail("stored_operation", e.operation).
			WithDetail("request_operation", operation)
	}

	switch e.status {
	case idempotency.StatusSuccess, idempotency.StatusFailed:
		replay := e.replay
		return idempotency.NormalizeReplay(&replay), true, nil
	default:
		if now.Sub(e.updatedAt) <= s.staleAge {
			return nil, true, apperror.NewIdempotencyConflict(key)
		}
		e.updatedAt = now
		return nil, true, nil
	}
}

// CompleteKey implements idempotency.Store.
func (s *IdempotencyStore) CompleteKey(ctx context.Context, key string, statusCode int, contentType string, response any) error {
	s.finish(key, idempotency.StatusSuccess, statusCode, contentType, response)
	return nil
}

// FailKey implements idempotency.Store.
func (s *IdempotencyStore) FailKey(ctx context.Context, key string, statusCode int, contentType string, response any) error {
	s.finish(key, idempotency.StatusFailed, statusCode, contentType, response)
	return nil
}

func (s *IdempotencyStore) finish(key string, status idempotency.Status, statusCode int, contentType string, response any) {
	e, ok := s.entries.Load(key)
	if !ok {
		return
	}
	body := idempotency.EncodeResponse(response)

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.removed {
		return
	}
	e.status = status
	e.replay = idempotency.Replay{StatusCode: statusCode, ContentType: contentType, Body: body}
	e.updatedAt = s.now()
}

// CleanupExpired removes expired records and returns how many were dropped.
// Expiry is checked and the record deleted under the same entry lock, so a
// key renewed by AcquireKey is never dropped.
func (s *IdempotencyStore) CleanupExpired(ctx context.Context) (int64, error) {
	now := s.now()
	var dropped int64
	s.entries.Range(func(key string, e *idemEntry) bool {
		e.mu.Lock()
		if !e.removed && now.After(e.expiresAt) {
			e.removed = true
			s.entries.Delete(key)
			dropped++
		}
		e.mu.Unlock()
		return ctx.Err() == nil
	})
	return dropped, nil
}
