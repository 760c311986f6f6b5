package app

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"orderpay/internal/domain"
	"orderpay/internal/gateway"
	"orderpay/internal/repository"
)

// SandboxGatewayConfigs are the test credentials seeded for local development.
var SandboxGatewayConfigs = map[string]any{
	gateway.CardGatewayName: gateway.CardConfig{
		MerchantID:  "MERCHANT_123456",
		APIKey:      "test_api_key_credit_card",
		Environment: "sandbox",
	},
	gateway.PayPalGatewayName: gateway.PayPalConfig{
		ClientID:     "test_paypal_client_id",
		ClientSecret: "test_paypal_client_secret",
		Mode:         "sandbox",
	},
	gateway.StripeGatewayName: gateway.StripeConfig{
		PublishableKey: "pk_test_123456789",
		SecretKey:      "sk_test_987654321",
		WebhookSecret:  "whsec_test_123",
	},
}

// SeedGatewayConfigs stores an active configuration for every gateway in
// configs, replacing existing ones, in registry order.
func SeedGatewayConfigs(ctx context.Context, repo repository.GatewayConfigRepository, configs map[string]any, order []string, logger *zap.Logger) error {
	now := time.Now().UTC()

	for _, name := range order {
		settings, ok := configs[name]
		if !ok {
			continue
		}

		raw, err := json.Marshal(settings)
		if err != nil {
			return fmt.Errorf("encoding %s config: %w", name, err)
		}

		if err := repo.Save(ctx, &domain.GatewayConfig{
			Name:      name,
			Settings:  raw,
			Active:    true,
			CreatedAt: now,
			UpdatedAt: now,
		}); err != nil {
			return fmt.Errorf("saving %s config: %w", name, err)
		}

		logger.Info("Gateway config seeded", zap.String("gateway", name))
	}

	return nil
}
