// Package v1 provides HTTP API version 1.
package v1

import (
	"github.com/gin-gonic/gin"

	"bizdesk/internal/core/idempotency"
	"bizdesk/internal/infrastructure/http/v1/handlers"
	"bizdesk/internal/infrastructure/http/v1/middleware"
	"bizdesk/pkg/logger"
)

// RouterConfig holds router configuration.
type RouterConfig struct {
	// Logger for request logging
	Logger *logger.Logger

	// Numerator issues document numbers
	Numerator handlers.SequenceService

	// Sales and ServiceOrders are optional; document routes are
	// registered only when a document database is configured.
	Sales         handlers.SaleService
	ServiceOrders handlers.ServiceOrderService

	// AuditHistory serves the document change log (optional)
	AuditHistory handlers.AuditHistory

	// Idempotency replays retried POST/PUT/PATCH requests (optional)
	Idempotency idempotency.Store

	// HealthChecks are pinged by /health/ready
	HealthChecks map[string]handlers.Pinger

	// Info is reported by /health/info
	Info handlers.AppInfo

	// Debug switches gin to debug mode
	Debug bool
}

// NewRouter creates and configures the Gin router.
func NewRouter(cfg RouterConfig) *gin.Engine {
	if cfg.Debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.Default()
	}

	router := gin.New()

	// Global middleware (order matters!)
	router.Use(middleware.Recovery())
	router.Use(middleware.Trace())
	router.Use(middleware.Operator())
	router.Use(middleware.Logger(cfg.Logger))
	router.Use(middleware.ErrorHandler())

	healthHandler := handlers.NewHealthHandler(cfg.HealthChecks, cfg.Info)
	health := router.Group("/health")
	{
		health.GET("/live", healthHandler.Live)
		health.GET("/ready", healthHandler.Ready)
		health.GET("/info", healthHandler.Info)
	}

	v1 := router.Group("/api/v1")
	if cfg.Idempotency != nil {
		v1.Use(middleware.Idempotency(cfg.Idempotency))
	}

	base := handlers.NewBaseHandler()
	registerSequenceRoutes(v1, base, cfg)
	registerDocumentRoutes(v1, base, cfg)
	registerAuditRoutes(v1, base, cfg)

	return router
}

func registerSequenceRoutes(rg *gin.RouterGroup, base *handlers.BaseHandler, cfg RouterConfig) {
	if cfg.Numerator == nil {
		return
	}
	handler := handlers.NewSequenceHandler(base, cfg.Numerator)
	RegisterSequenceRoutes(rg.Group("/sequences"), handler)
}

func registerDocumentRoutes(rg *gin.RouterGroup, base *handlers.BaseHandler, cfg RouterConfig) {
	// --- SALES ---
	if cfg.Sales != nil {
		handler := handlers.NewSaleHandler(base, cfg.Sales)
		group := rg.Group("/sales")
		RegisterDocumentRoutes(group, handler)
		group.GET("/by-number/:kind/:number", handler.GetByNumber)
	}

	// --- SERVICE ORDERS ---
	if cfg.ServiceOrders != nil {
		handler := handlers.NewServiceOrderHandler(base, cfg.ServiceOrders)
		group := rg.Group("/service-orders")
		RegisterDocumentRoutes(group, handler)
		group.GET("/by-number/:number", handler.GetByNumber)
		group.PATCH("/:id/status", handler.ChangeStatus)
		group.PATCH("/:id/checklist/:item", handler.ToggleChecklistItem)
	}
}

func registerAuditRoutes(rg *gin.RouterGroup, base *handlers.BaseHandler, cfg RouterConfig) {
	if cfg.AuditHistory == nil {
		return
	}
	handler := handlers.NewAuditHandler(base, cfg.AuditHistory)
	rg.GET("/history/:entity/:id", handler.History)
}
