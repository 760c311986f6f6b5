package gateway

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"orderpay/internal/domain"
)

// PayPalGatewayName is the registry key of the PayPal gateway.
const PayPalGatewayName = "paypal"

// PayPalConfig is the configuration of the PayPal account. Mode is sandbox or live.
type PayPalConfig struct {
	ClientID     string `json:"client_id" validate:"required"`
	ClientSecret string `json:"client_secret" validate:"required"`
	Mode         string `json:"mode" validate:"required"`
}

// PayPalGateway simulates PayPal orders: about 90% complete, the rest need
// account verification.
type PayPalGateway struct {
	support *Support
	config  *PayPalConfig
}

// NewPayPalGateway builds the gateway and loads its configuration once.
func NewPayPalGateway(ctx context.Context, configs ConfigSource, logger *zap.Logger, opts ...Option) *PayPalGateway {
	g := &PayPalGateway{
		support: NewSupport(PayPalGatewayName, "PayPal", logger, opts...),
	}

	var cfg PayPalConfig
	if g.support.LoadConfig(ctx, configs, &cfg) {
		g.config = &cfg
	}

	return g
}

// NewPayPalFactory returns a registry factory for PayPalGateway.
func NewPayPalFactory(configs ConfigSource, logger *zap.Logger, opts ...Option) Factory {
	return func(ctx context.Context) (Gateway, error) {
		return NewPayPalGateway(ctx, configs, logger, opts...), nil
	}
}

func (g *PayPalGateway) Name() string { return PayPalGatewayName }

func (g *PayPalGateway) IsConfigured() bool { return g.config != nil }

// ProcessPayment creates and captures a PayPal order.
func (g *PayPalGateway) ProcessPayment(ctx context.Context, payment *domain.Payment) *Result {
	log := g.support.Logger().With(zap.String("payment_id", payment.ID))
	log.Info("Processing PayPal payment", zap.String("amount", payment.Amount.StringFixed(domain.MoneyPlaces)))

	return g.support.Guard(ctx, "payment", log, func() (*Result, error) {
		if g.config == nil {
			return nil, errNotConfigured
		}
		if g.support.Roll(10) > 1 {
			transactionID := g.support.TransactionID()
			orderID := fmt.Sprintf("PP%09d", 99999999+g.support.Roll(900000000))
			log.Info("PayPal payment successful",
				zap.String("transaction_id", transactionID),
				zap.String("paypal_order_id", orderID),
			)

			return Success("PayPal payment completed successfully", transactionID, map[string]any{
				"order_id":    orderID,
				"status":      "COMPLETED",
				"payer_email": "customer@example.com",
				"payer_id":    fmt.Sprintf("PAYER%05d", 9999+g.support.Roll(90000)),
				"mode":        g.config.Mode,
			}), nil
		}

		log.Warn("PayPal payment failed", zap.String("reason", "PayPal account verification required"))

		return Failure("PayPal account verification required", CodeVerificationRequired, map[string]any{
			"status": "PAYER_ACTION_REQUIRED",
		}), nil
	})
}

// Refund initiates a PayPal refund. PayPal settles refunds asynchronously, so
// the reported status is PENDING.
func (g *PayPalGateway) Refund(ctx context.Context, payment *domain.Payment, amount *decimal.Decimal) *Result {
	refund := refundAmount(payment, amount)
	log := g.support.Logger().With(zap.String("payment_id", payment.ID))
	log.Info("Processing PayPal refund", zap.String("refund_amount", refund.StringFixed(domain.MoneyPlaces)))

	return g.support.Guard(ctx, "refund", log, func() (*Result, error) {
		return Success("PayPal refund initiated successfully", g.support.TransactionID(), map[string]any{
			"refund_id":     fmt.Sprintf("REFUND%06d", 99999+g.support.Roll(900000)),
			"refund_amount": refund.StringFixed(domain.MoneyPlaces),
			"status":        "PENDING",
		}), nil
	})
}
