package tests

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"orderpay/internal/app"
	"orderpay/internal/domain"
	"orderpay/internal/gateway"
	"orderpay/internal/handler"
	"orderpay/internal/redis"
	"orderpay/internal/service"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type apiFixture struct {
	store  *MockStore
	locks  *MockLockStore
	cache  *MockCacheStore
	router *gin.Engine
}

func newAPI(gateways ...*MockGateway) *apiFixture {
	store := NewMockStore()
	locks := NewMockLockStore()
	cache := NewMockCacheStore()
	registry := NewRegistryWith(gateways...)
	log := zap.NewNop()

	orders := service.NewOrderService(store, store.OrderRepo, store.PaymentRepo, log)
	payments := service.NewPaymentService(store, store.PaymentRepo, registry, service.NewNotificationService(log), log, time.Second)

	router := app.NewRouter(app.RouterDeps{
		OrderHandler:   handler.NewOrderHandler(orders),
		PaymentHandler: handler.NewPaymentHandler(orders, payments, locks, time.Minute, log),
		GatewayHandler: handler.NewGatewayHandler(registry, cache, log),
		Logger:         log,
	})

	return &apiFixture{store: store, locks: locks, cache: cache, router: router}
}

func (f *apiFixture) do(t *testing.T, method, path string, body any) (int, map[string]any) {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)

	var resp map[string]any
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	}
	return w.Code, resp
}

func data(t *testing.T, resp map[string]any) map[string]any {
	t.Helper()
	d, ok := resp["data"].(map[string]any)
	require.True(t, ok, "response has no data object: %v", resp)
	return d
}

// ──────────────────────────────────────────────
// 1. ORDERS
// ──────────────────────────────────────────────

func TestAPI_OrderLifecycle(t *testing.T) {
	t.Parallel()

	api := newAPI()

	code, resp := api.do(t, http.MethodPost, "/v1/orders", map[string]any{
		"user_id": "user-1",
		"items": []map[string]any{
			{"product_name": "Widget", "quantity": 2, "price": "10.50"},
			{"product_name": "Gadget", "quantity": 1, "price": 25},
		},
	})
	require.Equal(t, http.StatusCreated, code, resp)
	order := data(t, resp)
	assert.Equal(t, "46.00", order["total_amount"])
	assert.Equal(t, "pending", order["status"])
	assert.EqualValues(t, 2, order["items_count"])
	id := order["id"].(string)

	code, resp = api.do(t, http.MethodPost, "/v1/orders/"+id+"/confirm", nil)
	require.Equal(t, http.StatusOK, code, resp)
	assert.Equal(t, "confirmed", data(t, resp)["status"])

	code, resp = api.do(t, http.MethodPut, "/v1/orders/"+id, map[string]any{"status": "pending"})
	assert.Equal(t, http.StatusConflict, code, resp)

	code, _ = api.do(t, http.MethodDelete, "/v1/orders/"+id, nil)
	assert.Equal(t, http.StatusOK, code)

	code, _ = api.do(t, http.MethodGet, "/v1/orders/"+id, nil)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestAPI_OrderValidation(t *testing.T) {
	t.Parallel()

	api := newAPI()

	bodies := []map[string]any{
		{"items": []map[string]any{{"product_name": "Widget", "quantity": 1, "price": "1.00"}}},
		{"user_id": "user-1", "items": []map[string]any{}},
		{"user_id": "user-1", "items": []map[string]any{{"product_name": "Widget", "quantity": 0, "price": "1.00"}}},
		{"user_id": "user-1", "items": []map[string]any{{"product_name": "Widget", "quantity": 1, "price": "0.00"}}},
		{"user_id": "user-1", "items": []map[string]any{{"product_name": "Widget", "quantity": 1, "price": "1000000.00"}}},
	}

	for _, body := range bodies {
		code, resp := api.do(t, http.MethodPost, "/v1/orders", body)
		assert.Equal(t, http.StatusBadRequest, code, "%v -> %v", body, resp)
	}
	assert.Zero(t, api.store.OrderRepo.CountOrders())

	code, _ := api.do(t, http.MethodGet, "/v1/orders?per_page=101", nil)
	assert.Equal(t, http.StatusBadRequest, code)
}

// ──────────────────────────────────────────────
// 2. PAYMENTS
// ──────────────────────────────────────────────

func TestAPI_ProcessPayment(t *testing.T) {
	t.Parallel()

	api := newAPI(NewMockGateway("mock"))
	order := NewConfirmedOrder(api.store.OrderRepo, "order-1", "user-1", Item("Widget", 1, "10.00"))

	code, resp := api.do(t, http.MethodPost, "/v1/orders/"+order.ID+"/payments", map[string]any{
		"payment_method": "mock",
	})
	require.Equal(t, http.StatusCreated, code, resp)

	payment := data(t, resp)
	assert.Equal(t, "successful", payment["status"])
	assert.Equal(t, "10.00", payment["amount"])
	assert.Equal(t, "mock", payment["payment_method"])
	assert.NotEmpty(t, payment["transaction_id"])
	assert.False(t, api.locks.IsHeld(order.ID), "the order lock is released")

	code, resp = api.do(t, http.MethodGet, "/v1/orders/"+order.ID+"/payments/stats", nil)
	require.Equal(t, http.StatusOK, code)
	stats := data(t, resp)
	assert.EqualValues(t, 1, stats["successful_payments"])
	assert.Equal(t, "10.00", stats["total_paid"])
}

func TestAPI_ProcessPaymentOutcomes(t *testing.T) {
	t.Parallel()

	declining := NewMockGateway("declining")
	declining.ProcessFunc = func(ctx context.Context, p *domain.Payment) *gateway.Result {
		return gateway.Failure("Your card was declined", gateway.CodeCardDeclined, nil)
	}
	broken := NewMockGateway("broken")
	broken.ProcessFunc = func(ctx context.Context, p *domain.Payment) *gateway.Result { panic("boom") }
	unconfigured := NewMockGateway("unconfigured")
	unconfigured.Unconfigured = true

	api := newAPI(declining, broken, unconfigured)
	order := NewConfirmedOrder(api.store.OrderRepo, "order-1", "user-1", Item("Widget", 1, "10.00"))
	pending := domain.NewOrder("order-2", "user-1", time.Now())
	pending.SetItems([]domain.OrderItem{Item("Widget", 1, "10.00")})
	api.store.OrderRepo.AddOrder(pending)

	tests := []struct {
		name      string
		orderID   string
		method    string
		status    int
		code      string
		hasRecord bool
	}{
		{name: "declined", orderID: order.ID, method: "declining", status: http.StatusUnprocessableEntity, code: gateway.CodeCardDeclined, hasRecord: true},
		{name: "gateway fault", orderID: order.ID, method: "broken", status: http.StatusUnprocessableEntity, code: service.CodeProcessingError, hasRecord: true},
		{name: "unknown gateway", orderID: order.ID, method: "bitcoin", status: http.StatusUnprocessableEntity, code: service.CodeProcessingError},
		{name: "not configured", orderID: order.ID, method: "unconfigured", status: http.StatusUnprocessableEntity, code: service.CodeProcessingError},
		{name: "pending order", orderID: pending.ID, method: "declining", status: http.StatusConflict},
		{name: "missing order", orderID: "missing", method: "declining", status: http.StatusNotFound},
	}

	for _, tt := range tests {
		before := api.store.PaymentRepo.CountPayments()

		code, resp := api.do(t, http.MethodPost, "/v1/orders/"+tt.orderID+"/payments", map[string]any{
			"payment_method": tt.method,
		})

		assert.Equal(t, tt.status, code, "%s: %v", tt.name, resp)
		if tt.code != "" {
			assert.Equal(t, tt.code, resp["error_code"], tt.name)
		}
		if tt.hasRecord {
			assert.NotEmpty(t, resp["payment_id"], tt.name)
			assert.Equal(t, before+1, api.store.PaymentRepo.CountPayments(), tt.name)
		} else {
			assert.Nil(t, resp["payment_id"], tt.name)
			assert.Equal(t, before, api.store.PaymentRepo.CountPayments(), tt.name)
		}
	}
}

func TestAPI_ConcurrentPaymentIsRejectedWhileLocked(t *testing.T) {
	t.Parallel()

	gw := NewMockGateway("mock")
	api := newAPI(gw)
	order := NewConfirmedOrder(api.store.OrderRepo, "order-1", "user-1", Item("Widget", 1, "10.00"))
	api.locks.Hold(order.ID)

	code, resp := api.do(t, http.MethodPost, "/v1/orders/"+order.ID+"/payments", map[string]any{
		"payment_method": "mock",
	})

	assert.Equal(t, http.StatusConflict, code, resp)
	assert.Zero(t, atomic.LoadInt32(&gw.ProcessCallCount))
	assert.Zero(t, api.store.PaymentRepo.CountPayments())
}

func TestAPI_LockStoreOutageDoesNotBlockPayments(t *testing.T) {
	t.Parallel()

	api := newAPI(NewMockGateway("mock"))
	api.locks.AcquireError = errors.New("redis: connection refused")
	order := NewConfirmedOrder(api.store.OrderRepo, "order-1", "user-1", Item("Widget", 1, "10.00"))

	code, resp := api.do(t, http.MethodPost, "/v1/orders/"+order.ID+"/payments", map[string]any{
		"payment_method": "mock",
	})

	assert.Equal(t, http.StatusCreated, code, resp)
}

func TestAPI_PaymentRequestValidation(t *testing.T) {
	t.Parallel()

	api := newAPI(
		NewMockGateway(gateway.CardGatewayName),
		NewMockGateway(gateway.StripeGatewayName),
		NewMockGateway(gateway.PayPalGatewayName),
	)
	order := NewConfirmedOrder(api.store.OrderRepo, "order-1", "user-1", Item("Widget", 1, "10.00"))
	path := "/v1/orders/" + order.ID + "/payments"

	card := func(number, expiry, cvv string) map[string]any {
		return map[string]any{
			"payment_method": gateway.CardGatewayName,
			"card_number":    number,
			"card_expiry":    expiry,
			"card_cvv":       cvv,
		}
	}

	invalid := []map[string]any{
		{},
		{"payment_method": gateway.PayPalGatewayName, "amount": "0"},
		{"payment_method": gateway.PayPalGatewayName, "amount": "1000000.00"},
		{"payment_method": gateway.PayPalGatewayName, "card_number": "4111111111111111"},
		{"payment_method": gateway.StripeGatewayName},
		{"payment_method": gateway.StripeGatewayName, "payment_method_id": "pm_1", "card_cvv": "123"},
		card("4111", "12/45", "123"),
		card("4111111111111111", "13/45", "123"),
		card("4111111111111111", "01/20", "123"),
		card("4111111111111111", "12/45", "12"),
	}
	for _, body := range invalid {
		code, resp := api.do(t, http.MethodPost, path, body)
		assert.Equal(t, http.StatusBadRequest, code, "%v -> %v", body, resp)
	}
	assert.Zero(t, api.store.PaymentRepo.CountPayments())

	valid := []map[string]any{
		card("4111111111111111", "12/45", "123"),
		{"payment_method": gateway.StripeGatewayName, "payment_method_id": "pm_card_visa"},
		{"payment_method": gateway.PayPalGatewayName, "amount": "5.00"},
	}
	for _, body := range valid {
		code, resp := api.do(t, http.MethodPost, path, body)
		assert.Equal(t, http.StatusCreated, code, "%v -> %v", body, resp)
	}
}

// ──────────────────────────────────────────────
// 3. REFUNDS
// ──────────────────────────────────────────────

func TestAPI_Refund(t *testing.T) {
	t.Parallel()

	gw := NewMockGateway("mock")
	api := newAPI(gw)
	order := NewConfirmedOrder(api.store.OrderRepo, "order-1", "user-1", Item("Widget", 1, "40.00"))

	_, resp := api.do(t, http.MethodPost, "/v1/orders/"+order.ID+"/payments", map[string]any{"payment_method": "mock"})
	paymentID := data(t, resp)["id"].(string)
	path := "/v1/payments/" + paymentID + "/refund"

	code, resp := api.do(t, http.MethodPost, path, nil)
	require.Equal(t, http.StatusOK, code, resp)
	assert.Equal(t, true, data(t, resp)["success"])
	assert.Nil(t, gw.LastRefundAmount())

	code, _ = api.do(t, http.MethodPost, path, map[string]any{"amount": "15.00"})
	require.Equal(t, http.StatusOK, code)
	assert.True(t, gw.LastRefundAmount().Equal(decimal.RequireFromString("15")))

	code, resp = api.do(t, http.MethodPost, path, map[string]any{"amount": "40.01"})
	assert.Equal(t, http.StatusUnprocessableEntity, code, resp)

	gw.RefundFunc = nil
	code, resp = api.do(t, http.MethodPost, path, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, code)
	assert.Equal(t, gateway.CodeNotImplemented, data(t, resp)["error_code"])

	code, _ = api.do(t, http.MethodPost, "/v1/payments/missing/refund", nil)
	assert.Equal(t, http.StatusNotFound, code)
}

// ──────────────────────────────────────────────
// 4. GATEWAY DISCOVERY
// ──────────────────────────────────────────────

func TestAPI_ListGatewaysIsCached(t *testing.T) {
	t.Parallel()

	unconfigured := NewMockGateway("paypal")
	unconfigured.Unconfigured = true
	api := newAPI(NewMockGateway("credit_card"), unconfigured)

	code, resp := api.do(t, http.MethodGet, "/v1/gateways", nil)
	require.Equal(t, http.StatusOK, code)
	listing := data(t, resp)
	assert.Equal(t, []any{"credit_card", "paypal"}, listing["available"])
	assert.Equal(t, []any{"credit_card"}, listing["configured"])
	assert.Equal(t, int32(1), atomic.LoadInt32(&api.cache.SetCallCount))

	require.NoError(t, api.cache.SetGatewayListing(context.Background(), &redis.GatewayListing{
		Available:  []string{"cached"},
		Configured: []string{},
	}))

	_, resp = api.do(t, http.MethodGet, "/v1/gateways", nil)
	assert.Equal(t, []any{"cached"}, data(t, resp)["available"])
}
