// Package audit provides the audit-trail contract used by document services.
package audit

import (
	"context"

	appctx "bizdesk/internal/core/context"
	"bizdesk/internal/core/id"
)

// Action represents the type of audited operation.
type Action string

const (
	ActionCreate       Action = "create"
	ActionUpdate       Action = "update"
	ActionStatusChange Action = "status_change"
)

// Recorder persists change entries for documents.
type Recorder interface {
	LogChange(ctx context.Context, entityType string, entityID id.ID, action Action, changes map[string]any) error
}

// NopRecorder discards entries (tests, stores without an audit table).
type NopRecorder struct{}

// LogChange implements Recorder.
func (NopRecorder) LogChange(context.Context, string, id.ID, Action, map[string]any) error {
	return nil
}

// EnrichCreatedBy sets CreatedBy and UpdatedBy from the operator in context.
// Use in BeforeCreate hooks. A missing operator is a no-op.
func EnrichCreatedBy[T interface {
	SetCreatedBy(string)
	SetUpdatedBy(string)
}](ctx context.Context, entity T) error {
	operator := appctx.GetOperator(ctx)
	if operator == "" {
		return nil
	}
	entity.SetCreatedBy(operator)
	entity.SetUpdatedBy(operator)
	return nil
}

// EnrichUpdatedBy sets only UpdatedBy from the operator in context.
// Use in BeforeUpdate hooks.
func EnrichUpdatedBy[T interface{ SetUpdatedBy(string) }](ctx context.Context, entity T) error {
	if operator := appctx.GetOperator(ctx); operator != "" {
		entity.SetUpdatedBy(operator)
	}
	return nil
}
