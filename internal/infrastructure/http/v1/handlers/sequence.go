package handlers

import (
	"context"

	"github.com/gin-gonic/gin"

	"bizdesk/internal/core/apperror"
	"bizdesk/internal/core/numerator"
	"bizdesk/internal/infrastructure/http/v1/dto"
)

// SequenceService is the allocator as seen by the HTTP layer.
type SequenceService interface {
	numerator.Generator
	Config(key string) numerator.Config
}

// SequenceHandler exposes the number allocator.
type SequenceHandler struct {
	*BaseHandler
	service SequenceService
}

// NewSequenceHandler creates a new sequence handler.
func NewSequenceHandler(base *BaseHandler, service SequenceService) *SequenceHandler {
	return &SequenceHandler{BaseHandler: base, service: service}
}

func (h *SequenceHandler) key(c *gin.Context) (string, bool) {
	key := c.Param("key")
	if err := numerator.ValidateKey(key); err != nil {
		h.Error(c, apperror.NewValidation("invalid sequence key").
			WithDetail("field", "key").
			WithDetail("value", key))
		return "", false
	}
	return key, true
}

func (h *SequenceHandler) show(ctx context.Context, c *gin.Context, key string) {
	counter, err := h.service.Current(ctx, key)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.FromCounter(key, counter, h.service.Config(key)))
}

// Init handles POST /sequences/:key/init
func (h *SequenceHandler) Init(c *gin.Context) {
	key, ok := h.key(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	if err := h.service.Initialize(ctx, key); err != nil {
		h.Error(c, err)
		return
	}
	h.show(ctx, c, key)
}

// Next handles POST /sequences/:key/next
func (h *SequenceHandler) Next(c *gin.Context) {
	key, ok := h.key(c)
	if !ok {
		return
	}

	number, err := h.service.NextNumber(c.Request.Context(), key)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, dto.NextNumberResponse{Key: key, Number: number})
}

// Get handles GET /sequences/:key
func (h *SequenceHandler) Get(c *gin.Context) {
	key, ok := h.key(c)
	if !ok {
		return
	}
	h.show(c.Request.Context(), c, key)
}

// Advance handles PUT /sequences/:key
func (h *SequenceHandler) Advance(c *gin.Context) {
	key, ok := h.key(c)
	if !ok {
		return
	}
	var req dto.AdvanceSequenceRequest
	if !h.BindJSON(c, &req) {
		return
	}
	ctx := c.Request.Context()

	if err := h.service.Advance(ctx, key, *req.Value); err != nil {
		h.Error(c, err)
		return
	}
	h.show(ctx, c, key)
}
