package handlers

import (
	"context"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"bizdesk/internal/core/apperror"
	"bizdesk/internal/core/id"
	"bizdesk/internal/domain"
	"bizdesk/internal/domain/documents/service_order"
	"bizdesk/internal/infrastructure/http/v1/dto"
)

// ServiceOrderService defines the service order operations used by ServiceOrderHandler.
type ServiceOrderService interface {
	Create(ctx context.Context, doc *service_order.ServiceOrder) error
	GetByID(ctx context.Context, docID id.ID) (*service_order.ServiceOrder, error)
	GetByNumber(ctx context.Context, number string) (*service_order.ServiceOrder, error)
	List(ctx context.Context, filter service_order.ListFilter) (domain.ListResult[*service_order.ServiceOrder], error)
	ChangeStatus(ctx context.Context, docID id.ID, status service_order.Status, expectedVersion int) (*service_order.ServiceOrder, error)
	ToggleChecklistItem(ctx context.Context, docID id.ID, lineNo int) (*service_order.ServiceOrder, error)
}

// ServiceOrderHandler handles service order endpoints.
type ServiceOrderHandler struct {
	*BaseHandler
	service ServiceOrderService
	now     func() time.Time
}

// NewServiceOrderHandler creates a new service order handler.
func NewServiceOrderHandler(base *BaseHandler, service ServiceOrderService) *ServiceOrderHandler {
	return &ServiceOrderHandler{BaseHandler: base, service: service, now: time.Now}
}

func (h *ServiceOrderHandler) toDTO(doc *service_order.ServiceOrder) dto.ServiceOrderResponse {
	return dto.FromServiceOrder(doc, h.now())
}

// Create handles POST /service-orders
func (h *ServiceOrderHandler) Create(c *gin.Context) {
	var req dto.CreateServiceOrderRequest
	if !h.BindJSON(c, &req) {
		return
	}

	doc, err := req.ToEntity()
	if err != nil {
		h.Error(c, err)
		return
	}

	if err := h.service.Create(c.Request.Context(), doc); err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, h.toDTO(doc))
}

// Get handles GET /service-orders/:id
func (h *ServiceOrderHandler) Get(c *gin.Context) {
	docID, ok := h.ParamID(c)
	if !ok {
		return
	}

	doc, err := h.service.GetByID(c.Request.Context(), docID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, h.toDTO(doc))
}

// GetByNumber handles GET /service-orders/by-number/:number
func (h *ServiceOrderHandler) GetByNumber(c *gin.Context) {
	number, ok := h.ParamNumber(c)
	if !ok {
		return
	}

	doc, err := h.service.GetByNumber(c.Request.Context(), number)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, h.toDTO(doc))
}

// List handles GET /service-orders
func (h *ServiceOrderHandler) List(c *gin.Context) {
	var query dto.ServiceOrderListQuery
	if !h.BindQuery(c, &query) {
		return
	}
	filter, err := query.ToFilter()
	if err != nil {
		h.Error(c, err)
		return
	}

	res, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.NewListResponse(res, h.toDTO))
}

// ChangeStatus handles PATCH /service-orders/:id/status
func (h *ServiceOrderHandler) ChangeStatus(c *gin.Context) {
	docID, ok := h.ParamID(c)
	if !ok {
		return
	}
	var req dto.ChangeStatusRequest
	if !h.BindJSON(c, &req) {
		return
	}

	doc, err := h.service.ChangeStatus(c.Request.Context(), docID, service_order.Status(req.Status), req.Version)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, h.toDTO(doc))
}

// ToggleChecklistItem handles PATCH /service-orders/:id/checklist/:item
func (h *ServiceOrderHandler) ToggleChecklistItem(c *gin.Context) {
	docID, ok := h.ParamID(c)
	if !ok {
		return
	}
	lineNo, err := strconv.Atoi(c.Param("item"))
	if err != nil || lineNo < 1 {
		h.Error(c, apperror.NewValidation("checklist item must be a positive line number").
			WithDetail("field", "item"))
		return
	}

	doc, err := h.service.ToggleChecklistItem(c.Request.Context(), docID, lineNo)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, h.toDTO(doc))
}
