package handlers

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"bizdesk/internal/core/apperror"
	corenumerator "bizdesk/internal/core/numerator"
	"bizdesk/internal/infrastructure/numerator"
	"bizdesk/internal/infrastructure/storage/memory"
)

func newSequenceRouter(store corenumerator.Store, opts ...numerator.Option) *gin.Engine {
	opts = append([]numerator.Option{numerator.WithRetryPolicy(corenumerator.RetryPolicy{MaxAttempts: 3})}, opts...)
	svc := numerator.New(store, opts...)
	h := NewSequenceHandler(NewBaseHandler(), svc)

	r := newTestRouter()
	g := r.Group("/sequences")
	g.GET("/:key", h.Get)
	g.PUT("/:key", h.Advance)
	g.POST("/:key/init", h.Init)
	g.POST("/:key/next", h.Next)
	return r
}

func TestSequenceHandler_NextIssuesConsecutiveNumbers(t *testing.T) {
	r := newSequenceRouter(memory.New())

	w := do(r, http.MethodPost, "/sequences/service_order/next", "")
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "0001", decodeBody(t, w)["number"])

	w = do(r, http.MethodPost, "/sequences/service_order/next", "")
	assert.Equal(t, "0002", decodeBody(t, w)["number"])
}

func TestSequenceHandler_InitThenShow(t *testing.T) {
	r := newSequenceRouter(memory.New(),
		numerator.WithConfig("deviceSales", corenumerator.Config{InitialValue: 1, PadWidth: 4}))

	w := do(r, http.MethodPost, "/sequences/deviceSales/init", "")
	assert.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, float64(1), body["currentValue"])
	assert.Equal(t, "0001", body["lastNumber"])

	w = do(r, http.MethodPost, "/sequences/deviceSales/next", "")
	assert.Equal(t, "0002", decodeBody(t, w)["number"])

	w = do(r, http.MethodGet, "/sequences/deviceSales", "")
	assert.Equal(t, float64(2), decodeBody(t, w)["currentValue"])
}

func TestSequenceHandler_GetUnknownKey(t *testing.T) {
	r := newSequenceRouter(memory.New())

	w := do(r, http.MethodGet, "/sequences/productSales", "")

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, apperror.CodeNotFound, decodeBody(t, w)["code"])
}

func TestSequenceHandler_InvalidKey(t *testing.T) {
	r := newSequenceRouter(memory.New())

	w := do(r, http.MethodPost, "/sequences/9lives/next", "")

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSequenceHandler_Advance(t *testing.T) {
	r := newSequenceRouter(memory.New())

	w := do(r, http.MethodPut, "/sequences/productSales", `{"value": 500}`)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "0500", decodeBody(t, w)["lastNumber"])

	w = do(r, http.MethodPut, "/sequences/productSales", `{"value": 10}`)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, apperror.CodeSequenceRegression, decodeBody(t, w)["code"])

	w = do(r, http.MethodPut, "/sequences/productSales", `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSequenceHandler_ExhaustedIs503(t *testing.T) {
	store := &corenumerator.MockStore{
		UpdateFunc: func(ctx context.Context, key string, fn corenumerator.UpdateFunc) (corenumerator.Counter, error) {
			return corenumerator.Counter{}, corenumerator.Conflict(key)
		},
	}
	r := newSequenceRouter(store)

	w := do(r, http.MethodPost, "/sequences/service_order/next", "")

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, apperror.CodeSequenceExhausted, body["code"])
	assert.Equal(t, float64(3), body["details"].(map[string]any)["attempts"])
}

func TestSequenceHandler_InitFailureIs503(t *testing.T) {
	store := &corenumerator.MockStore{
		CreateIfAbsentFunc: func(ctx context.Context, c corenumerator.Counter) (bool, error) {
			return false, corenumerator.Unavailable("create", errors.New("connection reset"))
		},
	}
	r := newSequenceRouter(store)

	w := do(r, http.MethodPost, "/sequences/service_order/init", "")

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, apperror.CodeSequenceInit, decodeBody(t, w)["code"])
}
