package context

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTrace_RoundTrip(t *testing.T) {
	trace := &TraceContext{TraceID: "t-1", SpanID: "s-1", RequestID: "r-1"}
	ctx := WithTrace(context.Background(), trace)

	assert.Same(t, trace, GetTrace(ctx))
	assert.Equal(t, "r-1", GetRequestID(ctx))
}

func TestTrace_Missing(t *testing.T) {
	ctx := context.Background()

	assert.Nil(t, GetTrace(ctx))
	assert.Empty(t, GetRequestID(ctx))
}

func TestOperator(t *testing.T) {
	assert.Empty(t, GetOperator(context.Background()))
	assert.Equal(t, "maria", GetOperator(WithOperator(context.Background(), "maria")))
}
