package postgres

import (
	"context"
	"fmt"

	"bizdesk/internal/infrastructure/storage/counter_sql"
	"bizdesk/pkg/logger"
)

// schema lists the DDL applied by EnsureSchema, in order.
var schema = []string{
	counter_sql.PostgresSchema,
	`CREATE TABLE IF NOT EXISTS doc_sales (
		id            UUID PRIMARY KEY,
		number        TEXT NOT NULL,
		kind          TEXT NOT NULL,
		date          TIMESTAMPTZ NOT NULL,
		customer_id   UUID NOT NULL,
		seller_id     UUID,
		discount_kind TEXT NOT NULL DEFAULT 'none',
		discount_value NUMERIC(15,2) NOT NULL DEFAULT 0,
		subtotal      NUMERIC(15,2) NOT NULL DEFAULT 0,
		discount      NUMERIC(15,2) NOT NULL DEFAULT 0,
		total         NUMERIC(15,2) NOT NULL DEFAULT 0,
		comment       TEXT NOT NULL DEFAULT '',
		deletion_mark BOOLEAN NOT NULL DEFAULT FALSE,
		version       INT NOT NULL DEFAULT 1,
		created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		created_by    TEXT NOT NULL DEFAULT '',
		updated_by    TEXT NOT NULL DEFAULT '',
		UNIQUE (kind, number)
	)`,
	`CREATE TABLE IF NOT EXISTS doc_sale_lines (
		line_id     UUID PRIMARY KEY,
		document_id UUID NOT NULL REFERENCES doc_sales(id) ON DELETE CASCADE,
		line_no     INT NOT NULL,
		item_id     UUID NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		serial      TEXT NOT NULL DEFAULT '',
		quantity    NUMERIC(15,4) NOT NULL,
		unit_price  NUMERIC(15,2) NOT NULL,
		amount      NUMERIC(15,2) NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS doc_service_orders (
		id            UUID PRIMARY KEY,
		number        TEXT NOT NULL UNIQUE,
		date          TIMESTAMPTZ NOT NULL,
		customer_id   UUID NOT NULL,
		technician_id UUID,
		status        TEXT NOT NULL,
		warranty_days INT NOT NULL DEFAULT 0,
		delivered_at  TIMESTAMPTZ,
		comment       TEXT NOT NULL DEFAULT '',
		deletion_mark BOOLEAN NOT NULL DEFAULT FALSE,
		version       INT NOT NULL DEFAULT 1,
		created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		created_by    TEXT NOT NULL DEFAULT '',
		updated_by    TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE TABLE IF NOT EXISTS doc_service_order_equipment (
		line_id        UUID PRIMARY KEY,
		document_id    UUID NOT NULL REFERENCES doc_service_orders(id) ON DELETE CASCADE,
		line_no        INT NOT NULL,
		type           TEXT NOT NULL,
		brand          TEXT NOT NULL DEFAULT '',
		model          TEXT NOT NULL DEFAULT '',
		serial         TEXT NOT NULL DEFAULT '',
		reported_defect TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE TABLE IF NOT EXISTS doc_service_order_checklist (
		line_id     UUID PRIMARY KEY,
		document_id UUID NOT NULL REFERENCES doc_service_orders(id) ON DELETE CASCADE,
		line_no     INT NOT NULL,
		label       TEXT NOT NULL,
		checked     BOOLEAN NOT NULL DEFAULT FALSE
	)`,
	`CREATE TABLE IF NOT EXISTS sys_audit (
		id                 UUID PRIMARY KEY,
		entity_type        TEXT NOT NULL,
		entity_id          UUID NOT NULL,
		action             TEXT NOT NULL,
		operator           TEXT NOT NULL DEFAULT '',
		changes            JSONB,
		changes_compressed BYTEA,
		compression_algo   TEXT NOT NULL DEFAULT 'none',
		created_at         TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_sys_audit_entity ON sys_audit (entity_type, entity_id, created_at DESC)`,
	`CREATE TABLE IF NOT EXISTS sys_idempotency (
		idempotency_key       TEXT PRIMARY KEY,
		operator              TEXT NOT NULL DEFAULT '',
		operation             TEXT NOT NULL,
		status                TEXT NOT NULL,
		request_hash          TEXT NOT NULL,
		response              BYTEA,
		response_status       INT NOT NULL DEFAULT 0,
		response_content_type TEXT NOT NULL DEFAULT '',
		created_at            TIMESTAMPTZ NOT NULL,
		updated_at            TIMESTAMPTZ NOT NULL,
		expires_at            TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_sys_idempotency_expires ON sys_idempotency (expires_at)`,
}

// EnsureSchema creates the tables used by the counter store, the document
// repositories, the audit log and idempotency keys. It is safe to run on every start.
func EnsureSchema(ctx context.Context, txm *TxManager) error {
	err := txm.RunInTransaction(ctx, func(ctx context.Context) error {
		q := txm.GetQuerier(ctx)
		for i, ddl := range schema {
			if _, err := q.Exec(ctx, ddl); err != nil {
				return fmt.Errorf("apply schema statement %d: %w", i, err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	logger.Info(ctx, "database schema ensured", "component", "postgres", "statements", len(schema))
	return nil
}
