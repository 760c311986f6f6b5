package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"orderpay/internal/app"
	"orderpay/internal/config"
	"orderpay/internal/crypto"
	"orderpay/internal/gateway"
	"orderpay/internal/handler"
	"orderpay/internal/logger"
	internalRedis "orderpay/internal/redis"
	"orderpay/internal/repository/postgres"
	"orderpay/internal/service"
)

func main() {
	// Load configuration.
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(logger.Config{
		Level:       cfg.Log.Level,
		Format:      cfg.Log.Format,
		Development: cfg.Log.Development,
	})
	defer log.Sync()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Initialize New Relic FIRST (before database so we can instrument DB).
	var nrApp *newrelic.Application
	if cfg.NewRelic.Enabled && cfg.NewRelic.LicenseKey != "" {
		nrApp, err = newrelic.NewApplication(
			newrelic.ConfigAppName(cfg.NewRelic.AppName),
			newrelic.ConfigLicense(cfg.NewRelic.LicenseKey),
			newrelic.ConfigDistributedTracerEnabled(true),
			newrelic.ConfigAppLogForwardingEnabled(true),
		)
		if err != nil {
			log.Warn("Failed to initialize New Relic", zap.Error(err))
		} else {
			log.Info("New Relic enabled", zap.String("app", cfg.NewRelic.AppName))
		}
	}

	encryptor, err := crypto.NewAESEncryptionService(cfg.Payment.EncryptionKey)
	if err != nil {
		log.Fatal("Invalid PAYMENT_ENCRYPTION_KEY", zap.Error(err))
	}

	db, err := app.NewDatabase(ctx, cfg.Database, nrApp, log)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()
	log.Info("Connected to PostgreSQL")

	redisClient, err := app.NewRedisClient(ctx, cfg.Redis, nrApp)
	if err != nil {
		log.Fatal("Failed to connect to redis", zap.Error(err))
	}
	defer redisClient.Close()
	log.Info("Connected to Redis")

	server := wireServer(db, redisClient, encryptor, nrApp, cfg, log)

	go func() {
		log.Info("Starting server", zap.String("port", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Server error", zap.Error(err))
		}
	}()

	// Graceful shutdown.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}

	if nrApp != nil {
		nrApp.Shutdown(5 * time.Second)
	}

	log.Info("Server exited")
}

// wireServer wires all dependencies and returns the HTTP server.
func wireServer(
	db *sql.DB,
	redisClient *redis.Client,
	encryptor crypto.EncryptionService,
	nrApp *newrelic.Application,
	cfg *config.Config,
	log *zap.Logger,
) *http.Server {
	// Initialize Redis stores.
	lockStore := internalRedis.NewLockStore(redisClient)
	cacheStore := internalRedis.NewCacheStore(redisClient)

	// Initialize repositories.
	orderRepo := postgres.NewOrderRepository(db)
	paymentRepo := postgres.NewPaymentRepository(db)
	gatewayConfigRepo := postgres.NewGatewayConfigRepository(db, encryptor)
	transactor := postgres.NewTransactor(db)

	// Gateways read their configuration once, on first use.
	registry := gateway.NewDefaultRegistry(gatewayConfigRepo, log)

	// Initialize services.
	orderService := service.NewOrderService(transactor, orderRepo, paymentRepo, log)
	paymentService := service.NewPaymentService(transactor, paymentRepo, registry, service.NewNotificationService(log), log, cfg.Payment.GatewayTimeout)

	// Initialize handlers.
	orderHandler := handler.NewOrderHandler(orderService)
	paymentHandler := handler.NewPaymentHandler(orderService, paymentService, lockStore, cfg.Payment.LockTTL, log)
	gatewayHandler := handler.NewGatewayHandler(registry, cacheStore, log)

	router := app.NewRouter(app.RouterDeps{
		OrderHandler:   orderHandler,
		PaymentHandler: paymentHandler,
		GatewayHandler: gatewayHandler,
		RedisClient:    redisClient,
		NewRelicApp:    nrApp,
		Logger:         log,
		AllowedOrigins: cfg.Server.AllowedOrigins,
	})

	return &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
}
