package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"bizdesk/internal/core/apperror"
	"bizdesk/internal/core/idempotency"
)

// StaleKeyAge is how long a pending key may stay untouched before another
// request is allowed to reclaim it.
const StaleKeyAge = time.Minute

// IdempotencyRecord stores the result of an idempotent operation.
type IdempotencyRecord struct {
	Key         string             `db:"idempotency_key"`
	Operator    string             `db:"operator"`
	Operation   string             `db:"operation"`
	Status      idempotency.Status `db:"status"`
	RequestHash string             `db:"request_hash"` // SHA256 of request body
	Response    []byte             `db:"response"`
	StatusCode  int                `db:"response_status"`
	ContentType string             `db:"response_content_type"`
	CreatedAt   time.Time          `db:"created_at"`
	UpdatedAt   time.Time          `db:"updated_at"`
	ExpiresAt   time.Time          `db:"expires_at"`
	Inserted    bool               `db:"inserted"`
}

// IdempotencyStore manages idempotency keys in sys_idempotency.
type IdempotencyStore struct {
	txManager *TxManager
	ttl       time.Duration
	now       func() time.Time
}

var _ idempotency.Store = (*IdempotencyStore)(nil)

// NewIdempotencyStore creates a new idempotency store.
func NewIdempotencyStore(txManager *TxManager, ttl time.Duration) *IdempotencyStore {
	return &IdempotencyStore{
		txManager: txManager,
		ttl:       ttl,
		now:       time.Now,
	}
}

// AcquireKey implements idempotency.Store.
// The insert reports through xmax whether this call created the row.
func (s *IdempotencyStore) AcquireKey(ctx context.Context, key, operator, operation, requestHash string) (*idempotency.Replay, error) {
	now := s.now().UTC()
	expiresAt := now.Add(s.ttl)

	var record IdempotencyRecord
	err := pgxscan.Get(ctx, s.txManager.GetQuerier(ctx), &record, `
		INSERT INTO sys_idempotency (idempotency_key, operator, operation, status, request_hash, created_at, updated_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $6, $7)
		ON CONFLICT (idempotency_key) DO UPDATE SET
			expires_at = GREATEST(sys_idempotency.expires_at, EXCLUDED.expires_at)
		RETURNING idempotency_key, operator, operation, status, request_hash,
			response, response_status, response_content_type,
			created_at, updated_at, expires_at, (xmax = 0) AS inserted
	`, key, operator, operation, idempotency.StatusPending, requestHash, now, expiresAt)
	if err != nil {
		return nil, fmt.Errorf("acquire idempotency key: %w", err)
	}

	if record.Inserted {
		return nil, nil
	}

	if record.Operator != operator || record.Operation != operation || record.RequestHash != requestHash {
		return nil, apperror.NewIdempotencyMismatch(key).
			WithDetail("stored_operation", record.Operation).
			WithDetail("request_operation", operation)
	}

	switch record.Status {
	case idempotency.StatusSuccess, idempotency.StatusFailed:
		return idempotency.NormalizeReplay(&idempotency.Replay{
			StatusCode:  record.StatusCode,
			ContentType: record.ContentType,
			Body:        record.Response,
		}), nil

	default:
		if now.Sub(record.UpdatedAt) <= StaleKeyAge {
			return nil, apperror.NewIdempotencyConflict(key)
		}
		// The previous holder most likely crashed; take the key over.
		query, args, err := squirrel.Update("sys_idempotency").
			Set("updated_at", now).
			Where(squirrel.Eq{
				"idempotency_key": key,
				"status":          idempotency.StatusPending,
				"updated_at":      record.UpdatedAt,
			}).
			PlaceholderFormat(squirrel.Dollar).
			ToSql()
		if err != nil {
			return nil, fmt.Errorf("build reclaim: %w", err)
		}
		tag, err := s.txManager.GetQuerier(ctx).Exec(ctx, query, args...)
		if err != nil {
			return nil, fmt.Errorf("reclaim stale key: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return nil, apperror.NewIdempotencyConflict(key)
		}
		return nil, nil
	}
}

// CompleteKey implements idempotency.Store.
func (s *IdempotencyStore) CompleteKey(ctx context.Context, key string, statusCode int, contentType string, response any) error {
	return s.finish(ctx, key, idempotency.StatusSuccess, statusCode, contentType, response)
}

// FailKey implements idempotency.Store.
func (s *IdempotencyStore) FailKey(ctx context.Context, key string, statusCode int, contentType string, response any) error {
	return s.finish(ctx, key, idempotency.StatusFailed, statusCode, contentType, response)
}

func (s *IdempotencyStore) finish(ctx context.Context, key string, status idempotency.Status, statusCode int, contentType string, response any) error {
	query, args, err := squirrel.Update("sys_idempotency").
		SetMap(map[string]any{
			"status":                status,
			"response":              idempotency.EncodeResponse(response),
			"response_status":       statusCode,
			"response_content_type": contentType,
			"updated_at":            s.now().UTC(),
		}).
		Where(squirrel.Eq{"idempotency_key": key}).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return fmt.Errorf("build finish: %w", err)
	}

	if _, err := s.txManager.GetQuerier(ctx).Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("store idempotency result: %w", err)
	}
	return nil
}

// CleanupExpired removes expired idempotency records.
func (s *IdempotencyStore) CleanupExpired(ctx context.Context) (int64, error) {
	tag, err := s.txManager.GetQuerier(ctx).Exec(ctx,
		`DELETE FROM sys_idempotency WHERE expires_at < $1`, s.now().UTC())
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
