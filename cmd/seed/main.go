// Command seed stores sandbox configurations for every payment gateway.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"orderpay/internal/app"
	"orderpay/internal/config"
	"orderpay/internal/crypto"
	"orderpay/internal/gateway"
	"orderpay/internal/logger"
	internalRedis "orderpay/internal/redis"
	"orderpay/internal/repository/postgres"
)

func main() {
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

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	encryptor, err := crypto.NewAESEncryptionService(cfg.Payment.EncryptionKey)
	if err != nil {
		log.Fatal("Invalid PAYMENT_ENCRYPTION_KEY", zap.Error(err))
	}

	db, err := app.NewDatabase(ctx, cfg.Database, nil, log)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	repo := postgres.NewGatewayConfigRepository(db, encryptor)
	// Factories are lazy, so the default registry only supplies the names.
	names := gateway.NewDefaultRegistry(repo, log).Available()

	if err := app.SeedGatewayConfigs(ctx, repo, app.SandboxGatewayConfigs, names, log); err != nil {
		log.Fatal("Seeding gateway configs failed", zap.Error(err))
	}

	// Drop the cached gateway listing so the API reports the new configs.
	redisClient, err := app.NewRedisClient(ctx, cfg.Redis, nil)
	if err != nil {
		log.Warn("Redis unavailable, gateway listing cache not cleared", zap.Error(err))
		return
	}
	defer redisClient.Close()

	if err := internalRedis.NewCacheStore(redisClient).InvalidateGatewayListing(ctx); err != nil {
		log.Warn("Failed to clear gateway listing cache", zap.Error(err))
	}

	log.Info("Payment gateway configurations seeded")
}
