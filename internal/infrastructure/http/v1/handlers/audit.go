package handlers

import (
	"context"

	"github.com/gin-gonic/gin"

	"bizdesk/internal/core/apperror"
	"bizdesk/internal/core/id"
	"bizdesk/internal/domain/documents/sale"
	"bizdesk/internal/domain/documents/service_order"
	"bizdesk/internal/infrastructure/http/v1/dto"
	"bizdesk/internal/infrastructure/storage/postgres"
)

const maxHistoryLimit = 200

// AuditHistory reads the document change log.
type AuditHistory interface {
	GetEntityHistory(ctx context.Context, entityType string, entityID id.ID, limit int) ([]postgres.AuditEntry, error)
}

// AuditHandler serves document history.
type AuditHandler struct {
	*BaseHandler
	history AuditHistory
}

// NewAuditHandler creates a new audit handler.
func NewAuditHandler(base *BaseHandler, history AuditHistory) *AuditHandler {
	return &AuditHandler{BaseHandler: base, history: history}
}

// auditedEntities maps URL segments to audit entity types.
var auditedEntities = map[string]string{
	"sales":          sale.EntityName,
	"service-orders": service_order.EntityName,
}

// History handles GET /history/:entity/:id
func (h *AuditHandler) History(c *gin.Context) {
	entityType, ok := auditedEntities[c.Param("entity")]
	if !ok {
		h.Error(c, apperror.NewValidation("unknown entity").
			WithDetail("field", "entity").
			WithDetail("value", c.Param("entity")))
		return
	}
	docID, ok := h.ParamID(c)
	if !ok {
		return
	}

	limit := h.ParseIntQuery(c, "limit", 50)
	if limit < 1 || limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}

	entries, err := h.history.GetEntityHistory(c.Request.Context(), entityType, docID, limit)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, gin.H{"items": dto.FromAuditEntries(entries)})
}
