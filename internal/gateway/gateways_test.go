package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"orderpay/internal/domain"
)

type staticConfigs map[string]*domain.GatewayConfig

func (s staticConfigs) GetActiveByName(ctx context.Context, name string) (*domain.GatewayConfig, error) {
	return s[name], nil
}

type failingConfigs struct{}

func (failingConfigs) GetActiveByName(ctx context.Context, name string) (*domain.GatewayConfig, error) {
	return nil, errors.New("connection refused")
}

func config(name string, settings map[string]any) *domain.GatewayConfig {
	raw, _ := json.Marshal(settings)
	return &domain.GatewayConfig{Name: name, Settings: raw, Active: true}
}

var sandbox = staticConfigs{
	CardGatewayName: config(CardGatewayName, map[string]any{
		"merchant_id": "test_merchant_123",
		"api_key":     "test_api_key",
		"environment": "sandbox",
	}),
	PayPalGatewayName: config(PayPalGatewayName, map[string]any{
		"client_id":     "test_client_id",
		"client_secret": "test_client_secret",
		"mode":          "sandbox",
	}),
	StripeGatewayName: config(StripeGatewayName, map[string]any{
		"publishable_key": "pk_test_123",
		"secret_key":      "sk_test_123",
	}),
}

func fixedRoll(v int) Option {
	return WithRoll(func(n int) int {
		if v > n {
			return n
		}
		return v
	})
}

func testPayment() *domain.Payment {
	return domain.NewPendingPayment("payment-1", "order-1", "", decimal.RequireFromString("100.00"), time.Now())
}

func resolve(t *testing.T, configs ConfigSource, name string, opts ...Option) Gateway {
	t.Helper()
	gw, err := NewDefaultRegistry(configs, zap.NewNop(), opts...).Resolve(context.Background(), name)
	require.NoError(t, err)
	return gw
}

// ──────────────────────────────────────────────
// 1. CONFIGURATION
// ──────────────────────────────────────────────

func TestGateways_ConfiguredFromActiveSettings(t *testing.T) {
	t.Parallel()

	r := NewDefaultRegistry(sandbox, zap.NewNop())

	assert.Equal(t, []string{CardGatewayName, PayPalGatewayName, StripeGatewayName},
		r.ConfiguredGateways(context.Background()))
}

func TestGateways_NotConfigured(t *testing.T) {
	t.Parallel()

	inactive := config(CardGatewayName, map[string]any{"merchant_id": "m", "api_key": "k"})
	inactive.Active = false

	tests := []struct {
		name    string
		configs ConfigSource
	}{
		{name: "no row", configs: staticConfigs{}},
		{name: "inactive", configs: staticConfigs{CardGatewayName: inactive}},
		{name: "missing api key", configs: staticConfigs{
			CardGatewayName: config(CardGatewayName, map[string]any{"merchant_id": "m"}),
		}},
		{name: "invalid json", configs: staticConfigs{
			CardGatewayName: {Name: CardGatewayName, Settings: json.RawMessage(`{`), Active: true},
		}},
		{name: "lookup error", configs: failingConfigs{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			gw := NewCardGateway(context.Background(), tt.configs, zap.NewNop())
			assert.False(t, gw.IsConfigured())

			_, err := NewDefaultRegistry(tt.configs, zap.NewNop()).Resolve(context.Background(), CardGatewayName)
			assert.ErrorIs(t, err, ErrGatewayNotConfigured)
		})
	}
}

func TestGateways_UnconfiguredChargeIsGatewayError(t *testing.T) {
	t.Parallel()

	gw := NewStripeGateway(context.Background(), staticConfigs{}, zap.NewNop())
	result := gw.ProcessPayment(context.Background(), testPayment())

	assert.False(t, result.Succeeded())
	assert.Equal(t, CodeGatewayError, result.ErrorCode())
	assert.Empty(t, result.TransactionID())
}

// ──────────────────────────────────────────────
// 2. CHARGE OUTCOMES
// ──────────────────────────────────────────────

func TestGateways_ChargeOutcomes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		gateway string
		roll    int
		success bool
		code    string
	}{
		{gateway: CardGatewayName, roll: 3, success: true},
		{gateway: CardGatewayName, roll: 2, code: CodeInsufficientFunds},
		{gateway: PayPalGatewayName, roll: 2, success: true},
		{gateway: PayPalGatewayName, roll: 1, code: CodeVerificationRequired},
		{gateway: StripeGatewayName, roll: 8, success: true},
		{gateway: StripeGatewayName, roll: 9, code: CodeCardDeclined},
		{gateway: StripeGatewayName, roll: 10, code: CodeAuthenticationRequired},
	}

	for _, tt := range tests {
		t.Run(tt.gateway, func(t *testing.T) {
			t.Parallel()

			gw := resolve(t, sandbox, tt.gateway, fixedRoll(tt.roll))
			result := gw.ProcessPayment(context.Background(), testPayment())

			require.NotNil(t, result)
			assert.Equal(t, tt.success, result.Succeeded())
			if tt.success {
				assert.True(t, strings.HasPrefix(result.TransactionID(), tt.gateway+"_"),
					"transaction id %q", result.TransactionID())
				assert.Empty(t, result.ErrorCode())
			} else {
				assert.Equal(t, tt.code, result.ErrorCode())
				assert.Empty(t, result.TransactionID())
			}
			assert.NotNil(t, result.GatewayResponse())
		})
	}
}

func TestGateways_TransactionIDsAreUnique(t *testing.T) {
	t.Parallel()

	gw := resolve(t, sandbox, CardGatewayName, fixedRoll(10))

	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := gw.ProcessPayment(context.Background(), testPayment()).TransactionID()
		require.False(t, seen[id], "duplicate transaction id %s", id)
		seen[id] = true
	}
}

func TestGateways_PanickingProcessorIsContained(t *testing.T) {
	t.Parallel()

	roll := WithRoll(func(n int) int { panic("processor offline") })
	gw := resolve(t, sandbox, PayPalGatewayName, roll)

	result := gw.ProcessPayment(context.Background(), testPayment())

	assert.False(t, result.Succeeded())
	assert.Equal(t, CodeGatewayError, result.ErrorCode())
	assert.Contains(t, result.Message(), "processor offline")
}

func TestGateways_CancelledContext(t *testing.T) {
	t.Parallel()

	gw := resolve(t, sandbox, StripeGatewayName, fixedRoll(1))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result := gw.ProcessPayment(ctx, testPayment())

	assert.False(t, result.Succeeded())
	assert.Equal(t, CodeGatewayError, result.ErrorCode())
}

// ──────────────────────────────────────────────
// 3. REFUNDS
// ──────────────────────────────────────────────

func TestGateways_RefundAmounts(t *testing.T) {
	t.Parallel()

	payment := testPayment()
	partial := decimal.RequireFromString("1.00")

	for _, name := range []string{CardGatewayName, PayPalGatewayName, StripeGatewayName} {
		gw := resolve(t, sandbox, name)

		full := gw.Refund(context.Background(), payment, nil)
		require.True(t, full.Succeeded(), name)
		assert.True(t, strings.HasPrefix(full.TransactionID(), name+"_"))

		part := gw.Refund(context.Background(), payment, &partial)
		require.True(t, part.Succeeded(), name)
	}

	card := resolve(t, sandbox, CardGatewayName)
	assert.Equal(t, "100.00", card.Refund(context.Background(), payment, nil).GatewayResponse()["refund_amount"])
	assert.Equal(t, "1.00", card.Refund(context.Background(), payment, &partial).GatewayResponse()["refund_amount"])

	paypal := resolve(t, sandbox, PayPalGatewayName)
	assert.Equal(t, "PENDING", paypal.Refund(context.Background(), payment, nil).GatewayResponse()["status"])
}

// ──────────────────────────────────────────────
// 4. RESULTS
// ──────────────────────────────────────────────

func TestResult_Map(t *testing.T) {
	t.Parallel()

	ok := Success("Approved", "tx_1", map[string]any{"k": "v"}).Map()
	assert.Equal(t, true, ok["success"])
	assert.Equal(t, "tx_1", ok["transaction_id"])
	assert.Nil(t, ok["error_code"])

	failed := Failure("Declined", CodeCardDeclined, nil).Map()
	assert.Equal(t, false, failed["success"])
	assert.Nil(t, failed["transaction_id"])
	assert.Equal(t, CodeCardDeclined, failed["error_code"])
	assert.Equal(t, map[string]any{}, failed["gateway_response"])
}

func TestResult_ResponseIsCopied(t *testing.T) {
	t.Parallel()

	response := map[string]any{"status": "approved"}
	result := Success("Approved", "tx_1", response)
	response["status"] = "tampered"

	got := result.GatewayResponse()
	got["status"] = "tampered again"

	assert.Equal(t, "approved", result.GatewayResponse()["status"])
}

func TestRefundNotImplemented(t *testing.T) {
	t.Parallel()

	result := RefundNotImplemented(PayPalGatewayName)

	assert.False(t, result.Succeeded())
	assert.Equal(t, CodeNotImplemented, result.ErrorCode())
	assert.Equal(t, "Refund not implemented for paypal", result.Message())
	assert.Empty(t, result.TransactionID())
	assert.Equal(t, CodeNotImplemented, result.Map()["error_code"])
}
