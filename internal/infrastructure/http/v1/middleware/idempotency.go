package middleware

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	appctx "bizdesk/internal/core/context"
	"bizdesk/internal/core/apperror"
	"bizdesk/internal/core/idempotency"
)

const HeaderIdempotencyKey = "Idempotency-Key"
const maxIdempotencyBodyBytes = 1 << 20 // 1 MiB

const (
	ginKeyIdempotencyKey   = "idempotency_key"
	ginKeyIdempotencyStore = "idempotency_store"
)

// Idempotency middleware replays the stored response for a repeated
// Idempotency-Key, so a client retry does not allocate a second number.
// Requests without the header pass through untouched.
func Idempotency(store idempotency.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method != http.MethodPost &&
			c.Request.Method != http.MethodPut &&
			c.Request.Method != http.MethodPatch {
			c.Next()
			return
		}

		key := c.GetHeader(HeaderIdempotencyKey)
		if key == "" || store == nil {
			c.Next()
			return
		}

		limited := io.LimitReader(c.Request.Body, maxIdempotencyBodyBytes+1)
		body, err := io.ReadAll(limited)
		if err != nil {
			_ = c.Error(apperror.NewValidation("cannot read request body"))
			c.Abort()
			return
		}
		if len(body) > maxIdempotencyBodyBytes {
			appErr := apperror.NewValidation("request body too large for idempotency")
			appErr.HTTPStatus = http.StatusRequestEntityTooLarge
			_ = c.Error(appErr.WithDetail("max_bytes", maxIdempotencyBodyBytes))
			c.Abort()
			return
		}
		c.Request.Body = io.NopCloser(bytes.NewReader(body))
		hash := sha256.Sum256(body)
		requestHash := hex.EncodeToString(hash[:])

		// Operation includes the concrete path: the same key must not be
		// replayed for a different sequence.
		operation := c.Request.Method + " " + c.Request.URL.Path
		operator := appctx.GetOperator(c.Request.Context())

		replay, err := store.AcquireKey(c.Request.Context(), key, operator, operation, requestHash)
		if err != nil {
			if appErr, ok := apperror.AsAppError(err); ok {
				_ = c.Error(appErr)
				c.Abort()
				return
			}
			_ = c.Error(apperror.NewInternal(err).WithDetail("component", "idempotency"))
			c.Abort()
			return
		}

		if replay != nil {
			c.Header("Idempotent-Replayed", "true")
			c.Data(replay.StatusCode, replay.ContentType, replay.Body)
			c.Abort()
			return
		}

		c.Set(ginKeyIdempotencyKey, key)
		c.Set(ginKeyIdempotencyStore, store)

		c.Next()
	}
}

// CompleteIdempotency stores a successful response for the current key, if any.
func CompleteIdempotency(c *gin.Context, statusCode int, response any) error {
	key, store, ok := idempotencyFromGin(c)
	if !ok {
		return nil
	}
	return store.CompleteKey(c.Request.Context(), key, statusCode, "application/json", response)
}

func idempotencyFromGin(c *gin.Context) (string, idempotency.Store, bool) {
	key := c.GetString(ginKeyIdempotencyKey)
	if key == "" {
		return "", nil, false
	}
	v, ok := c.Get(ginKeyIdempotencyStore)
	if !ok {
		return "", nil, false
	}
	store, ok := v.(idempotency.Store)
	if !ok || store == nil {
		return "", nil, false
	}
	return key, store, true
}
