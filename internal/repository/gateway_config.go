package repository

import (
	"context"

	"orderpay/internal/domain"
)

// GatewayConfigRepository stores gateway configurations with their settings
// encrypted at rest.
type GatewayConfigRepository interface {
	// GetActiveByName retrieves the active configuration of a gateway.
	// Returns nil if the gateway has no active configuration.
	GetActiveByName(ctx context.Context, name string) (*domain.GatewayConfig, error)

	// Save creates or replaces the configuration of a gateway.
	Save(ctx context.Context, cfg *domain.GatewayConfig) error
}
