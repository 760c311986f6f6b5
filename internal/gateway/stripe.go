package gateway

import (
	"context"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"orderpay/internal/domain"
)

// StripeGatewayName is the registry key of the Stripe gateway.
const StripeGatewayName = "stripe"

// StripeConfig is the configuration of the Stripe account.
type StripeConfig struct {
	PublishableKey string `json:"publishable_key" validate:"required"`
	SecretKey      string `json:"secret_key" validate:"required"`
	WebhookSecret  string `json:"webhook_secret"`
}

// StripeGateway simulates Stripe charges with three outcome classes:
// succeeded (~80%), card declined (~10%) and authentication required (~10%).
type StripeGateway struct {
	support *Support
	config  *StripeConfig
}

// NewStripeGateway builds the gateway and loads its configuration once.
func NewStripeGateway(ctx context.Context, configs ConfigSource, logger *zap.Logger, opts ...Option) *StripeGateway {
	g := &StripeGateway{
		support: NewSupport(StripeGatewayName, "Stripe", logger, opts...),
	}

	var cfg StripeConfig
	if g.support.LoadConfig(ctx, configs, &cfg) {
		g.config = &cfg
	}

	return g
}

// NewStripeFactory returns a registry factory for StripeGateway.
func NewStripeFactory(configs ConfigSource, logger *zap.Logger, opts ...Option) Factory {
	return func(ctx context.Context) (Gateway, error) {
		return NewStripeGateway(ctx, configs, logger, opts...), nil
	}
}

func (g *StripeGateway) Name() string { return StripeGatewayName }

func (g *StripeGateway) IsConfigured() bool { return g.config != nil }

// ProcessPayment creates and confirms a charge.
func (g *StripeGateway) ProcessPayment(ctx context.Context, payment *domain.Payment) *Result {
	log := g.support.Logger().With(zap.String("payment_id", payment.ID))
	log.Info("Processing Stripe payment", zap.String("amount", payment.Amount.StringFixed(domain.MoneyPlaces)))

	return g.support.Guard(ctx, "payment", log, func() (*Result, error) {
		if g.config == nil {
			return nil, errNotConfigured
		}
		switch scenario := g.support.Roll(10); {
		case scenario <= 8:
			transactionID := g.support.TransactionID()
			chargeID := "ch_" + g.support.RandomHex(12)
			log.Info("Stripe payment successful",
				zap.String("transaction_id", transactionID),
				zap.String("stripe_charge_id", chargeID),
			)

			return Success("Stripe payment processed successfully", transactionID, map[string]any{
				"charge_id":           chargeID,
				"status":              "succeeded",
				"balance_transaction": "txn_" + g.support.RandomHex(12),
				"receipt_url":         "https://stripe.com/receipt/example",
			}), nil

		case scenario == 9:
			log.Warn("Stripe payment failed", zap.String("reason", "Your card was declined"))

			return Failure("Your card was declined", CodeCardDeclined, map[string]any{
				"decline_code": "generic_decline",
			}), nil

		default:
			log.Warn("Stripe payment failed", zap.String("reason", "Payment requires authentication"))

			return Failure("Payment requires authentication", CodeAuthenticationRequired, map[string]any{
				"payment_intent_id": "pi_" + g.support.RandomHex(12),
				"status":            "requires_action",
			}), nil
		}
	})
}

// Refund refunds the original charge.
func (g *StripeGateway) Refund(ctx context.Context, payment *domain.Payment, amount *decimal.Decimal) *Result {
	refund := refundAmount(payment, amount)
	log := g.support.Logger().With(zap.String("payment_id", payment.ID))
	log.Info("Processing Stripe refund", zap.String("refund_amount", refund.StringFixed(domain.MoneyPlaces)))

	return g.support.Guard(ctx, "refund", log, func() (*Result, error) {
		return Success("Stripe refund processed successfully", g.support.TransactionID(), map[string]any{
			"refund_id": "re_" + g.support.RandomHex(12),
			"amount":    refund.StringFixed(domain.MoneyPlaces),
			"status":    "succeeded",
			"charge_id": transactionRef(payment),
		}), nil
	})
}
