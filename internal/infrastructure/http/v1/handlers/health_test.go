package handlers

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHealthHandler_Ready(t *testing.T) {
	healthy := PingFunc(func(ctx context.Context) error { return nil })
	down := PingFunc(func(ctx context.Context) error { return errors.New("connection refused") })

	h := NewHealthHandler(map[string]Pinger{"counter_store": healthy}, AppInfo{Name: "bizdesk"})
	r := newTestRouter()
	r.GET("/ready", h.Ready)
	w := do(r, http.MethodGet, "/ready", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", decodeBody(t, w)["status"])

	h = NewHealthHandler(map[string]Pinger{"counter_store": healthy, "database": down}, AppInfo{})
	r = newTestRouter()
	r.GET("/ready", h.Ready)
	w = do(r, http.MethodGet, "/ready", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	checks := decodeBody(t, w)["checks"].(map[string]any)
	assert.Equal(t, "healthy", checks["counter_store"])
	assert.Contains(t, checks["database"], "connection refused")
}
