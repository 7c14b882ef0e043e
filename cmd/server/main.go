package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	deliveryapp "github.com/coopmarket/backend/internal/application/delivery"
	eventapp "github.com/coopmarket/backend/internal/application/event"
	inventoryapp "github.com/coopmarket/backend/internal/application/inventory"
	tradeapp "github.com/coopmarket/backend/internal/application/trade"
	"github.com/coopmarket/backend/internal/domain/pricing"
	"github.com/coopmarket/backend/internal/domain/shared"
	"github.com/coopmarket/backend/internal/infrastructure/auth"
	"github.com/coopmarket/backend/internal/infrastructure/cache"
	"github.com/coopmarket/backend/internal/infrastructure/config"
	"github.com/coopmarket/backend/internal/infrastructure/event"
	"github.com/coopmarket/backend/internal/infrastructure/logger"
	"github.com/coopmarket/backend/internal/infrastructure/notification"
	"github.com/coopmarket/backend/internal/infrastructure/persistence"
	"github.com/coopmarket/backend/internal/infrastructure/telemetry"
	"github.com/coopmarket/backend/internal/interfaces/http/handler"
	"github.com/coopmarket/backend/internal/interfaces/http/middleware"
	"github.com/coopmarket/backend/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

//	@title			Coopmarket API
//	@version		1.0
//	@description	Orders, stock availability and delivery quotes of the cooperative marketplace
//	@BasePath		/api/v1

//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization

// version is set at build time with -ldflags "-X main.version=..."
var version = "dev"

const (
	maxBodyBytes    = 1 << 20
	ordersPerMinute = 30
	orderBurst      = 5
	hstsMaxAge      = 365 * 24 * 60 * 60
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	log, err := logger.New(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	if err := run(cfg, log); err != nil {
		log.Fatal("Server stopped with error", zap.Error(err))
	}
	log.Info("Server exited gracefully")
}

func run(cfg *config.Config, log *zap.Logger) error {
	ctx := context.Background()

	tel, err := telemetry.Setup(ctx, cfg.Telemetry, version, log)
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := tel.Shutdown(shutdownCtx); err != nil {
			log.Error("Telemetry shutdown failed", zap.Error(err))
		}
	}()
	log = tel.BridgeLogger(log)

	log.Info("Starting coopmarket backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("version", version),
		zap.String("port", cfg.Server.Port),
	)
	if cfg.App.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level))
	db, err := persistence.NewDatabaseWithLogger(&cfg.Database, gormLog)
	if err != nil {
		return err
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	if err := tel.InstrumentDB(db.DB, cfg.Database.Name); err != nil {
		return err
	}
	log.Info("Database connected successfully")

	// Repositories
	orderRepo := persistence.NewGormOrderRepository(db.DB)
	addressRepo := persistence.NewGormAddressRepository(db.DB)
	stockRepo := persistence.NewGormStockRepository(db.DB)
	modeRepo := persistence.NewGormDeliveryModeRepository(db.DB)
	zoneRepo := persistence.NewGormDeliveryZoneRepository(db.DB)
	outboxRepo := event.NewGormOutboxRepository(db.DB)

	serializer := event.NewEventSerializer()
	event.RegisterOrderEvents(serializer)
	txScope := persistence.NewGormTransactionScope(db.DB, serializer)

	// Application services
	orderMetrics, err := telemetry.NewOrderMetrics(tel.Meter("coopmarket/orders"))
	if err != nil {
		return err
	}
	orderService := tradeapp.NewOrderService(
		orderRepo, addressRepo, stockRepo, txScope,
		pricing.NewEngine(cfg.Order.VATRate),
		tradeapp.OrderServiceConfig{
			OperationTimeout:    cfg.Order.OperationTimeout,
			OrderNumberAttempts: cfg.Order.OrderNumberAttempts,
		},
		log.Named("orders"),
	)
	orderService.SetMetrics(orderMetrics)
	statusService := tradeapp.NewOrderStatusService(orderRepo, txScope, cfg.Order.OperationTimeout, log.Named("orders"))
	statusService.SetMetrics(orderMetrics)
	availabilityService := inventoryapp.NewAvailabilityService(stockRepo, log.Named("inventory"))
	deliveryService := deliveryapp.NewDeliveryService(modeRepo, zoneRepo)
	outboxService := eventapp.NewOutboxService(outboxRepo, log.Named("outbox"))

	// Event relay
	idempotencyStore, err := cache.NewIdempotencyStore(ctx, cfg.Redis, !cfg.App.IsProduction(), log)
	if err != nil {
		return err
	}
	bus := event.NewInMemoryEventBus(log.Named("bus"))
	closers := subscribeHandlers(cfg, bus, serializer, idempotencyStore, log)
	defer func() {
		for _, c := range closers {
			if err := c(); err != nil {
				log.Warn("Closing event writer failed", zap.Error(err))
			}
		}
	}()

	var processor *event.OutboxProcessor
	if cfg.Event.RelayEnabled {
		processor = event.NewOutboxProcessor(outboxRepo, bus, serializer, event.OutboxProcessorConfig{
			BatchSize:        cfg.Event.BatchSize,
			PollInterval:     cfg.Event.PollInterval,
			MaxRetries:       cfg.Event.MaxRetries,
			CleanupEnabled:   cfg.Event.CleanupEnabled,
			CleanupRetention: cfg.Event.CleanupRetention,
			StaleAfter:       cfg.Event.StaleAfter,
		}, log.Named("outbox"))
		if err := processor.Start(ctx); err != nil {
			return err
		}
	}

	// HTTP
	cors := middleware.DefaultCORSConfig()
	cors.AllowOrigins = cfg.Server.CORSAllowOrigins
	engine, err := router.NewEngine(router.Options{
		ServiceName:    cfg.Telemetry.ServiceName,
		Logger:         log,
		Verifier:       auth.NewTokenVerifier(cfg.JWT),
		CORS:           cors,
		Security:       middleware.SecurityConfig{HSTSEnabled: cfg.App.IsProduction(), HSTSMaxAge: hstsMaxAge},
		TrustedProxies: cfg.Server.TrustedProxies,
		RequestTimeout: cfg.Server.RequestTimeout,
		MaxBodyBytes:   maxBodyBytes,
		Tracing:        tel.Enabled(),
		Meter:          tel.Meter("coopmarket/http"),
		Profiling:      cfg.Telemetry.ProfilingEnabled,
		OrderLimiter:   middleware.NewRateLimiter(ordersPerMinute, orderBurst),
	}, router.Handlers{
		Orders:  handler.NewOrderHandler(orderService, statusService),
		Catalog: handler.NewCatalogHandler(availabilityService, deliveryService),
		Outbox:  handler.NewOutboxHandler(outboxService),
		Health: handler.NewHealthHandler(version, map[string]handler.HealthCheck{
			"database": func(context.Context) error { return db.Ping() },
		}),
	})
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      engine,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-quit:
		log.Info("Shutting down server...", zap.String("signal", sig.String()))
	case err := <-serveErr:
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	var errs []error
	if err := srv.Shutdown(shutdownCtx); err != nil {
		errs = append(errs, err)
	}
	if processor != nil {
		if err := processor.Stop(shutdownCtx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// subscribeHandlers puts the buyer notifications and, with Kafka enabled,
// the event stream publisher on the bus. Both see each event once.
func subscribeHandlers(
	cfg *config.Config,
	bus *event.InMemoryEventBus,
	serializer *event.EventSerializer,
	store shared.IdempotencyStore,
	log *zap.Logger,
) []func() error {
	idempotency := shared.IdempotencyConfig{TTL: cfg.Event.IdempotencyTTL, Enabled: true}
	metrics := &event.IdempotencyMetrics{}
	wrap := func(name string, h shared.EventHandler) shared.EventHandler {
		return event.NewIdempotentHandler(h, store, log.Named("events"),
			event.WithHandlerName(name),
			event.WithIdempotencyConfig(idempotency),
			event.WithIdempotencyMetrics(metrics),
		)
	}

	var notifier tradeapp.BuyerNotifier = notification.NewLogNotifier(log.Named("notifications"))
	var closers []func() error
	if cfg.Kafka.Enabled {
		eventWriter := event.NewKafkaWriter(event.KafkaConfig{
			Brokers:      cfg.Kafka.Brokers,
			Topic:        cfg.Kafka.Topic,
			WriteTimeout: cfg.Kafka.WriteTimeout,
		})
		notifyWriter := event.NewKafkaWriter(event.KafkaConfig{
			Brokers:      cfg.Kafka.Brokers,
			Topic:        cfg.Kafka.NotificationTopic,
			WriteTimeout: cfg.Kafka.WriteTimeout,
		})
		closers = append(closers, eventWriter.Close, notifyWriter.Close)

		publisher := event.NewKafkaPublisher(eventWriter, cfg.Kafka.Topic, serializer, log.Named("kafka"))
		bus.Subscribe(wrap("kafka-publisher", publisher))
		notifier = notification.NewKafkaNotifier(notifyWriter, log.Named("notifications"))
		log.Info("Kafka publishing enabled",
			zap.Strings("brokers", cfg.Kafka.Brokers),
			zap.String("topic", cfg.Kafka.Topic),
		)
	}

	bus.Subscribe(wrap("order-notifications", tradeapp.NewOrderNotificationHandler(notifier, log.Named("notifications"))))
	return closers
}
