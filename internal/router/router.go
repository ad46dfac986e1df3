package router

import (
	"time"

	"github.com/DebkantaDey/inventory-management-system/internal/config"
	"github.com/DebkantaDey/inventory-management-system/internal/handler"
	"github.com/DebkantaDey/inventory-management-system/internal/infra"
	"github.com/DebkantaDey/inventory-management-system/internal/middleware"
	"github.com/DebkantaDey/inventory-management-system/internal/repository"
	"github.com/DebkantaDey/inventory-management-system/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
)

// Services is the core wired once by the composition root and shared by the
// HTTP layer and the background workers.
type Services struct {
	Ledger         service.LedgerService
	Orders         service.OrderService
	PurchaseOrders service.PurchaseOrderService
	Inventory      service.InventoryService
	Suppliers      service.SupplierService
	LowStock       service.LowStockService
}

// NewServices builds every service over store. publisher may be nil, in which
// case post-commit events are dropped.
func NewServices(store repository.Store, publisher service.EventPublisher, queryBatchSize int) Services {
	ledger := service.NewLedgerService(store, queryBatchSize)
	return Services{
		Ledger:         ledger,
		Orders:         service.NewOrderService(store, ledger, publisher),
		PurchaseOrders: service.NewPurchaseOrderService(store, ledger, publisher),
		Inventory:      service.NewInventoryService(store, ledger, publisher),
		Suppliers:      service.NewSupplierService(store),
		LowStock:       service.NewLowStockService(store),
	}
}

// Deps carries what the router needs beyond the services. Redis and Mailer
// are optional.
type Deps struct {
	Store  repository.Store
	Redis  *redis.Client
	Mailer *infra.Mailer
}

// New returns a configured Gin engine.
// Dependency graph: Handler ← Service ← Store ← DB
func New(cfg *config.Config, svc Services, deps Deps) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	// Global middleware chain (order matters)
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	r.Use(middleware.Recovery())
	r.Use(middleware.Metrics())
	r.Use(middleware.CORS(cfg.CORSAllowOrigin))
	r.Use(middleware.ErrorHandler())

	// ── Handlers ─────────────────────────────────────────────────────────────
	productsH := handler.NewProductHandler(svc.Inventory)
	suppliersH := handler.NewSupplierHandler(svc.Suppliers)
	ordersH := handler.NewOrderHandler(svc.Orders)
	posH := handler.NewPurchaseOrderHandler(svc.PurchaseOrders)
	inventoryH := handler.NewInventoryHandler(svc.Inventory, svc.Ledger, svc.LowStock)

	var breakerState func() infra.CBState
	if deps.Mailer != nil && deps.Mailer.Enabled() {
		breakerState = deps.Mailer.BreakerState
	}

	// ── Public routes ────────────────────────────────────────────────────────
	r.GET("/health", handler.Health(deps.Store, deps.Redis, breakerState))
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// ── Tenant routes ────────────────────────────────────────────────────────
	limit := cfg.RateLimit
	if limit <= 0 {
		limit = 600
	}
	v1 := r.Group("/v1")
	v1.Use(middleware.JWTAuth(cfg.JWTSecret))
	v1.Use(middleware.NewRateLimiter(limit, time.Minute).Handler())

	products := v1.Group("/products")
	{
		products.POST("", productsH.Create)
		products.GET("", productsH.List)
		products.GET("/:id", productsH.Get)
	}
	v1.PUT("/variants/:sku/threshold", productsH.SetThreshold)

	suppliers := v1.Group("/suppliers")
	{
		suppliers.POST("", suppliersH.Create)
		suppliers.GET("", suppliersH.List)
	}

	orders := v1.Group("/orders")
	{
		orders.POST("", ordersH.Place)
		orders.GET("", ordersH.List)
		orders.GET("/:id", ordersH.Get)
		orders.POST("/:id/cancel", ordersH.Cancel)
		orders.POST("/:id/fulfill", ordersH.Fulfill)
	}

	pos := v1.Group("/purchase-orders")
	{
		pos.POST("", posH.Create)
		pos.GET("/:id", posH.Get)
		pos.POST("/:id/items", posH.AddItem)
		pos.POST("/:id/send", posH.Send)
		pos.POST("/:id/confirm", posH.Confirm)
		pos.POST("/:id/receipts", posH.Receive)
		pos.GET("/:id/price-variance", posH.PriceVariance)
	}

	inventory := v1.Group("/inventory")
	{
		inventory.POST("/adjustments", inventoryH.Adjust)
		inventory.GET("/movements", inventoryH.Movements)
		inventory.GET("/low-stock", inventoryH.LowStock)
		inventory.GET("/reconciliation", inventoryH.Reconciliation)
	}

	return r
}
