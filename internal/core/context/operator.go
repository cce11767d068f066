// Package context provides request-scoped values extraction.
package context

import (
	"context"
)

type operatorContextKey struct{}

// WithOperator records the dashboard operator acting on the request.
// It is used for audit trails only; it carries no authorization.
func WithOperator(ctx context.Context, operator string) context.Context {
	return context.WithValue(ctx, operatorContextKey{}, operator)
}

// GetOperator returns the operator from context or empty string.
func GetOperator(ctx context.Context) string {
	if v, ok := ctx.Value(operatorContextKey{}).(string); ok {
		return v
	}
	return ""
}
