package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	appctx "bizdesk/internal/core/context"
)

func newObserved() (*Logger, *observer.ObservedLogs) {
	core, logs := observer.New(zap.DebugLevel)
	return &Logger{zap.New(core).Sugar()}, logs
}

func TestFromContext_AddsTraceFields(t *testing.T) {
	log, logs := newObserved()

	ctx := appctx.WithTrace(context.Background(), &appctx.TraceContext{TraceID: "t-1", RequestID: "r-1"})
	ctx = appctx.WithOperator(ctx, "front-desk")
	ctx = WithLogger(ctx, log)

	Info(ctx, "number issued", "key", "sales")

	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	assert.Equal(t, "t-1", fields["trace_id"])
	assert.Equal(t, "r-1", fields["request_id"])
	assert.Equal(t, "front-desk", fields["operator"])
	assert.Equal(t, "sales", fields["key"])
}

func TestWithComponent(t *testing.T) {
	log, logs := newObserved()

	log.WithComponent("numerator").Warnw("conflict", "attempt", 1)

	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "numerator", logs.All()[0].ContextMap()["component"])
}

func TestNew_InvalidLevelFallsBackToInfo(t *testing.T) {
	log, err := New(Config{Level: "chatty", OutputPaths: []string{"stderr"}})
	require.NoError(t, err)

	assert.False(t, log.Desugar().Core().Enabled(zap.DebugLevel))
	assert.True(t, log.Desugar().Core().Enabled(zap.InfoLevel))
}
