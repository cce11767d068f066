package handlers

import (
	"context"

	"github.com/gin-gonic/gin"

	"bizdesk/internal/core/apperror"
	"bizdesk/internal/core/id"
	"bizdesk/internal/domain"
	"bizdesk/internal/domain/documents/sale"
	"bizdesk/internal/infrastructure/http/v1/dto"
)

// SaleService defines the sale operations used by SaleHandler.
type SaleService interface {
	Create(ctx context.Context, doc *sale.Sale) error
	GetByID(ctx context.Context, docID id.ID) (*sale.Sale, error)
	GetByNumber(ctx context.Context, kind sale.Kind, number string) (*sale.Sale, error)
	List(ctx context.Context, filter sale.ListFilter) (domain.ListResult[*sale.Sale], error)
}

// SaleHandler handles sale endpoints.
type SaleHandler struct {
	*BaseHandler
	service SaleService
}

// NewSaleHandler creates a new sale handler.
func NewSaleHandler(base *BaseHandler, service SaleService) *SaleHandler {
	return &SaleHandler{BaseHandler: base, service: service}
}

// Create handles POST /sales
func (h *SaleHandler) Create(c *gin.Context) {
	var req dto.CreateSaleRequest
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
	h.Created(c, dto.FromSale(doc))
}

// Get handles GET /sales/:id
func (h *SaleHandler) Get(c *gin.Context) {
	docID, ok := h.ParamID(c)
	if !ok {
		return
	}

	doc, err := h.service.GetByID(c.Request.Context(), docID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.FromSale(doc))
}

// GetByNumber handles GET /sales/by-number/:kind/:number
func (h *SaleHandler) GetByNumber(c *gin.Context) {
	kind := sale.Kind(c.Param("kind"))
	if !kind.IsValid() {
		h.Error(c, apperror.NewValidation("sale kind must be device or product").
			WithDetail("field", "kind"))
		return
	}

	number, ok := h.ParamNumber(c)
	if !ok {
		return
	}

	doc, err := h.service.GetByNumber(c.Request.Context(), kind, number)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.FromSale(doc))
}

// List handles GET /sales
func (h *SaleHandler) List(c *gin.Context) {
	var query dto.SaleListQuery
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
	h.OK(c, dto.NewListResponse(res, dto.FromSale))
}
