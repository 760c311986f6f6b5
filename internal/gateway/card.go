package gateway

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"orderpay/internal/domain"
)

// CardGatewayName is the registry key of the credit card gateway.
const CardGatewayName = "credit_card"

// CardConfig is the configuration of the credit card processor.
type CardConfig struct {
	MerchantID  string `json:"merchant_id" validate:"required"`
	APIKey      string `json:"api_key" validate:"required"`
	Environment string `json:"environment"`
}

// CardGateway simulates a card processor: about 80% of charges are approved,
// the rest are declined for insufficient funds.
type CardGateway struct {
	support *Support
	config  *CardConfig
}

// NewCardGateway builds the gateway and loads its configuration once.
func NewCardGateway(ctx context.Context, configs ConfigSource, logger *zap.Logger, opts ...Option) *CardGateway {
	g := &CardGateway{
		support: NewSupport(CardGatewayName, "Credit card", logger, opts...),
	}

	var cfg CardConfig
	if g.support.LoadConfig(ctx, configs, &cfg) {
		g.config = &cfg
	}

	return g
}

// NewCardFactory returns a registry factory for CardGateway.
func NewCardFactory(configs ConfigSource, logger *zap.Logger, opts ...Option) Factory {
	return func(ctx context.Context) (Gateway, error) {
		return NewCardGateway(ctx, configs, logger, opts...), nil
	}
}

func (g *CardGateway) Name() string { return CardGatewayName }

func (g *CardGateway) IsConfigured() bool { return g.config != nil }

// ProcessPayment authorizes the payment amount.
func (g *CardGateway) ProcessPayment(ctx context.Context, payment *domain.Payment) *Result {
	log := g.support.Logger().With(zap.String("payment_id", payment.ID))
	log.Info("Processing credit card payment", zap.String("amount", payment.Amount.StringFixed(domain.MoneyPlaces)))

	return g.support.Guard(ctx, "payment", log, func() (*Result, error) {
		if g.config == nil {
			return nil, errNotConfigured
		}
		if g.support.Roll(10) > 2 {
			transactionID := g.support.TransactionID()
			log.Info("Credit card payment successful", zap.String("transaction_id", transactionID))

			return Success("Payment processed successfully", transactionID, map[string]any{
				"authorization_code": fmt.Sprintf("AUTH%06d", 99999+g.support.Roll(900000)),
				"processor_response": "APPROVED",
				"avs_result":         "Y",
				"cvv_result":         "M",
				"merchant_id":        g.config.MerchantID,
			}), nil
		}

		log.Warn("Credit card payment failed", zap.String("reason", "Insufficient funds"))

		return Failure("Insufficient funds", CodeInsufficientFunds, map[string]any{
			"processor_response": "DECLINED",
		}), nil
	})
}

// Refund returns the requested amount to the card.
func (g *CardGateway) Refund(ctx context.Context, payment *domain.Payment, amount *decimal.Decimal) *Result {
	refund := refundAmount(payment, amount)
	log := g.support.Logger().With(zap.String("payment_id", payment.ID))
	log.Info("Processing credit card refund", zap.String("refund_amount", refund.StringFixed(domain.MoneyPlaces)))

	return g.support.Guard(ctx, "refund", log, func() (*Result, error) {
		return Success("Refund processed successfully", g.support.TransactionID(), map[string]any{
			"refund_amount":        refund.StringFixed(domain.MoneyPlaces),
			"original_transaction": transactionRef(payment),
		}), nil
	})
}

func transactionRef(payment *domain.Payment) any {
	if payment.TransactionID == nil {
		return nil
	}
	return *payment.TransactionID
}
