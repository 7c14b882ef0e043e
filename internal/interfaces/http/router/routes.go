package router

import (
	"fmt"
	"time"

	"github.com/coopmarket/backend/internal/infrastructure/auth"
	"github.com/coopmarket/backend/internal/infrastructure/logger"
	"github.com/coopmarket/backend/internal/interfaces/http/handler"
	"github.com/coopmarket/backend/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// Handlers are the API handlers mounted by NewEngine
type Handlers struct {
	Orders  *handler.OrderHandler
	Catalog *handler.CatalogHandler
	Outbox  *handler.OutboxHandler
	Health  *handler.HealthHandler
}

// Options configure the middleware chain
type Options struct {
	ServiceName    string
	Logger         *zap.Logger
	Verifier       middleware.TokenVerifier
	CORS           middleware.CORSConfig
	Security       middleware.SecurityConfig
	TrustedProxies []string
	RequestTimeout time.Duration
	MaxBodyBytes   int64
	// Tracing adds otelgin server spans
	Tracing bool
	// Meter records HTTP metrics when set
	Meter     metric.Meter
	Profiling bool
	// OrderLimiter throttles order placement per buyer when set
	OrderLimiter *middleware.RateLimiter
}

// NewEngine builds the gin engine with the middleware chain and every route
func NewEngine(opts Options, h Handlers) (*gin.Engine, error) {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	engine := gin.New()
	if err := engine.SetTrustedProxies(opts.TrustedProxies); err != nil {
		return nil, fmt.Errorf("trusted proxies: %w", err)
	}
	middleware.SetupValidator()

	engine.Use(logger.Recovery(opts.Logger), middleware.RequestID())
	if opts.Tracing {
		engine.Use(middleware.Tracing(opts.ServiceName))
	}
	engine.Use(logger.GinMiddleware(opts.Logger), middleware.SpanAttributes())
	if opts.Meter != nil {
		metricsMW, err := middleware.HTTPMetrics(opts.Meter)
		if err != nil {
			return nil, fmt.Errorf("http metrics: %w", err)
		}
		engine.Use(metricsMW)
	}
	if opts.Profiling {
		engine.Use(middleware.Profiling())
	}
	engine.Use(middleware.CORSWithConfig(opts.CORS), middleware.SecureWithConfig(opts.Security))
	if opts.MaxBodyBytes > 0 {
		engine.Use(middleware.BodyLimit(opts.MaxBodyBytes))
	}
	engine.Use(middleware.Timeout(opts.RequestTimeout))

	engine.GET("/health", h.Health.Health)

	r := NewRouter(engine)
	for _, g := range domainGroups(opts, h) {
		r.Register(g)
	}
	r.Setup()
	return engine, nil
}

func domainGroups(opts Options, h Handlers) []*DomainGroup {
	authn := middleware.Auth(opts.Verifier, opts.Logger)
	admin := middleware.RequireRole(auth.RoleAdmin)

	createOrder := []gin.HandlerFunc{h.Orders.CreateOrder}
	if opts.OrderLimiter != nil {
		createOrder = append([]gin.HandlerFunc{opts.OrderLimiter.Middleware()}, createOrder...)
	}

	system := NewDomainGroup("system", "").
		GET("/health", h.Health.Health)

	orders := NewDomainGroup("orders", "/orders").Use(authn).
		POST("", createOrder...).
		GET("", h.Orders.ListOrders).
		GET("/by-number/:number", h.Orders.GetOrderByNumber).
		GET("/:id", h.Orders.GetOrder).
		POST("/:id/advance", admin, h.Orders.AdvanceStatus).
		POST("/:id/cancel", admin, h.Orders.CancelOrder)

	addresses := NewDomainGroup("addresses", "/addresses").Use(authn).
		GET("", h.Orders.ListAddresses)

	inventory := NewDomainGroup("inventory", "/inventory").
		GET("/availability", h.Catalog.GetAvailability)

	delivery := NewDomainGroup("delivery", "/delivery").
		GET("/quote", h.Catalog.GetDeliveryQuote).
		GET("/modes", h.Catalog.ListDeliveryModes)

	outbox := NewDomainGroup("outbox", "/admin/outbox").Use(authn, admin).
		GET("/stats", h.Outbox.GetStats).
		GET("/dead", h.Outbox.GetDeadLetterEntries).
		POST("/dead/retry-all", h.Outbox.RetryAllDeadEntries).
		GET("/:id", h.Outbox.GetEntry).
		POST("/:id/retry", h.Outbox.RetryDeadEntry)

	return []*DomainGroup{system, orders, addresses, inventory, delivery, outbox}
}
