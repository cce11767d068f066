// Package idempotency defines the contract for replaying retried write requests.
// A client that resends POST /sequences/{key}/next or POST /sales with the same
// key gets the first response back instead of burning another number.
package idempotency

import (
	"context"
	"encoding/json"
	"net/http"
)

// Status represents the state of an idempotent operation.
type Status string

const (
	StatusPending Status = "pending"
	StatusSuccess Status = "success"
	StatusFailed  Status = "failed"
)

// Replay is the cached HTTP response for a completed key.
type Replay struct {
	StatusCode  int
	ContentType string
	Body        []byte
}

// Store manages idempotency keys.
type Store interface {
	// AcquireKey returns (nil, nil) when the caller owns the key,
	// a Replay when the operation already finished, or an error when the key
	// is held by another request or was used for a different request.
	AcquireKey(ctx context.Context, key, operator, operation, requestHash string) (*Replay, error)

	// CompleteKey stores a successful response.
	CompleteKey(ctx context.Context, key string, statusCode int, contentType string, response any) error

	// FailKey stores an error response.
	FailKey(ctx context.Context, key string, statusCode int, contentType string, response any) error
}

// EncodeResponse marshals a response body for storage.
// A body that cannot be marshalled is replaced by a minimal error object.
func EncodeResponse(response any) []byte {
	if response == nil {
		return nil
	}
	b, err := json.Marshal(response)
	if err != nil {
		b, _ = json.Marshal(map[string]string{"error": err.Error()})
	}
	return b
}

// NormalizeReplay fills defaults for records stored without status or content type.
func NormalizeReplay(r *Replay) *Replay {
	if r.StatusCode == 0 {
		r.StatusCode = http.StatusOK
	}
	if r.ContentType == "" {
		r.ContentType = "application/json"
	}
	return r
}
