package v1

import (
	"github.com/gin-gonic/gin"
)

// SequenceRouteHandler defines the interface for the allocator handler.
type SequenceRouteHandler interface {
	Init(c *gin.Context)
	Next(c *gin.Context)
	Get(c *gin.Context)
	Advance(c *gin.Context)
}

// DocumentRouteHandler defines the interface for document handlers.
// Documents are append-only here: there is no update or delete route.
type DocumentRouteHandler interface {
	List(c *gin.Context)
	Create(c *gin.Context)
	Get(c *gin.Context)
}

// RegisterSequenceRoutes registers the allocator routes.
func RegisterSequenceRoutes(group *gin.RouterGroup, handler SequenceRouteHandler) {
	group.GET("/:key", handler.Get)
	group.PUT("/:key", handler.Advance)
	group.POST("/:key/init", handler.Init)
	group.POST("/:key/next", handler.Next)
}

// RegisterDocumentRoutes registers the standard routes for a document.
//
// Usage:
//
//	handler := handlers.NewSaleHandler(base, saleService)
//	RegisterDocumentRoutes(v1.Group("/sales"), handler)
func RegisterDocumentRoutes(group *gin.RouterGroup, handler DocumentRouteHandler) {
	group.GET("", handler.List)
	group.POST("", handler.Create)
	group.GET("/:id", handler.Get)
}
