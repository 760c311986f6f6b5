// Package gateway implements the payment gateways and the registry that
// resolves a gateway name to a live, configured instance.
package gateway

import (
	"context"

	"github.com/shopspring/decimal"

	"orderpay/internal/domain"
)

// Gateway charges and refunds payments against an external processor.
//
// Implementations never persist anything and never return Go errors: every
// outcome, including internal faults, is reported as a Result.
type Gateway interface {
	// Name is the stable lowercase identifier used as the registry key.
	Name() string

	// IsConfigured reports whether an active, complete configuration was loaded.
	IsConfigured() bool

	// ProcessPayment charges payment.Amount.
	ProcessPayment(ctx context.Context, payment *domain.Payment) *Result

	// Refund returns money to the payer. A nil amount refunds payment.Amount.
	Refund(ctx context.Context, payment *domain.Payment, amount *decimal.Decimal) *Result
}

// ConfigSource looks up the active configuration of a gateway.
// It returns nil, nil when the gateway has no active configuration.
type ConfigSource interface {
	GetActiveByName(ctx context.Context, name string) (*domain.GatewayConfig, error)
}

// refundAmount resolves the amount of a refund request.
func refundAmount(payment *domain.Payment, amount *decimal.Decimal) decimal.Decimal {
	if amount == nil {
		return payment.Amount
	}
	return domain.Money(*amount)
}
