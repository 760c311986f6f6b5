package handler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"orderpay/internal/domain"
	"orderpay/internal/redis"
	"orderpay/internal/repository"
	"orderpay/internal/service"
)

var maxPaymentAmount = decimal.RequireFromString("999999.99")

// PaymentHandler handles HTTP requests for payments.
type PaymentHandler struct {
	orderService   *service.OrderService
	paymentService *service.PaymentService
	locks          redis.LockStoreInterface
	lockTTL        time.Duration
	logger         *zap.Logger
}

// NewPaymentHandler creates a new PaymentHandler. A nil lock store disables
// the per-order payment lock.
func NewPaymentHandler(
	orderService *service.OrderService,
	paymentService *service.PaymentService,
	locks redis.LockStoreInterface,
	lockTTL time.Duration,
	logger *zap.Logger,
) *PaymentHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	RegisterValidators()
	return &PaymentHandler{
		orderService:   orderService,
		paymentService: paymentService,
		locks:          locks,
		lockTTL:        lockTTL,
		logger:         logger,
	}
}

// ProcessPaymentRequest is the HTTP request body for charging an order.
// Card fields are required for credit_card and rejected for other gateways;
// payment_method_id is required for stripe.
type ProcessPaymentRequest struct {
	PaymentMethod   string           `json:"payment_method" binding:"required"`
	Amount          *decimal.Decimal `json:"amount"`
	CardNumber      string           `json:"card_number" binding:"required_if=PaymentMethod credit_card,excluded_unless=PaymentMethod credit_card,omitempty,number,min=13,max=19"`
	CardExpiry      string           `json:"card_expiry" binding:"required_if=PaymentMethod credit_card,excluded_unless=PaymentMethod credit_card,omitempty,card_expiry"`
	CardCVV         string           `json:"card_cvv" binding:"required_if=PaymentMethod credit_card,excluded_unless=PaymentMethod credit_card,omitempty,number,len=3"`
	PaymentMethodID string           `json:"payment_method_id" binding:"required_if=PaymentMethod stripe"`
}

// RefundRequest is the HTTP request body for refunding a payment.
type RefundRequest struct {
	Amount *decimal.Decimal `json:"amount"`
}

// PaymentResponse is the HTTP response for payment operations.
type PaymentResponse struct {
	ID              string         `json:"id"`
	OrderID         string         `json:"order_id"`
	PaymentMethod   string         `json:"payment_method"`
	Status          string         `json:"status"`
	Amount          string         `json:"amount"`
	TransactionID   *string        `json:"transaction_id"`
	ErrorCode       string         `json:"error_code,omitempty"`
	ErrorMessage    string         `json:"error_message,omitempty"`
	GatewayResponse map[string]any `json:"gateway_response"`
	ProcessedAt     *string        `json:"processed_at,omitempty"`
	FailedAt        *string        `json:"failed_at,omitempty"`
	CreatedAt       string         `json:"created_at"`
	UpdatedAt       string         `json:"updated_at"`
}

// PaymentStatsResponse is the HTTP response for order payment statistics.
type PaymentStatsResponse struct {
	TotalPayments      int    `json:"total_payments"`
	SuccessfulPayments int    `json:"successful_payments"`
	FailedPayments     int    `json:"failed_payments"`
	PendingPayments    int    `json:"pending_payments"`
	TotalPaid          string `json:"total_paid"`
	TotalPending       string `json:"total_pending"`
}

// ProcessPayment handles POST /v1/orders/:id/payments
func (h *PaymentHandler) ProcessPayment(c *gin.Context) {
	var req ProcessPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, fmt.Errorf("%w: %v", errInvalidRequest, err))
		return
	}
	if err := validatePaymentAmount(req.Amount); err != nil {
		respondError(c, err)
		return
	}

	ctx := c.Request.Context()
	orderID := c.Param("id")

	release, err := h.lockOrder(ctx, orderID)
	if err != nil {
		respondError(c, err)
		return
	}
	defer release()

	order, err := h.orderService.GetOrder(ctx, orderID)
	if err != nil {
		respondError(c, err)
		return
	}

	payment, err := h.paymentService.ProcessPayment(ctx, order, req.PaymentMethod, service.PaymentDetails{
		Amount: req.Amount,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusCreated, DataResponse{
		Message: "Payment processed successfully",
		Data:    toPaymentResponse(payment),
	})
}

// lockOrder takes the payment lock of an order. Lock store failures are
// logged and the request proceeds unlocked.
func (h *PaymentHandler) lockOrder(ctx context.Context, orderID string) (func(), error) {
	noop := func() {}
	if h.locks == nil || orderID == "" {
		return noop, nil
	}

	token, err := h.locks.AcquireOrderPaymentLock(ctx, orderID, h.lockTTL)
	if err != nil {
		h.logger.Warn("Order payment lock unavailable", zap.String("order_id", orderID), zap.Error(err))
		return noop, nil
	}
	if token == "" {
		return nil, errPaymentInProgress
	}

	return func() {
		if err := h.locks.ReleaseOrderPaymentLock(context.WithoutCancel(ctx), orderID, token); err != nil {
			h.logger.Warn("Failed to release order payment lock", zap.String("order_id", orderID), zap.Error(err))
		}
	}, nil
}

// ListOrderPayments handles GET /v1/orders/:id/payments
func (h *PaymentHandler) ListOrderPayments(c *gin.Context) {
	ctx := c.Request.Context()

	order, err := h.orderService.GetOrder(ctx, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	limit, offset, err := pagination(c)
	if err != nil {
		respondError(c, err)
		return
	}

	filter := repository.PaymentFilter{
		OrderID: order.ID,
		Status:  domain.PaymentStatus(c.Query("status")),
		Limit:   limit,
		Offset:  offset,
	}
	h.listPayments(c, filter)
}

// ListPayments handles GET /v1/payments
func (h *PaymentHandler) ListPayments(c *gin.Context) {
	limit, offset, err := pagination(c)
	if err != nil {
		respondError(c, err)
		return
	}

	filter := repository.PaymentFilter{
		UserID: c.Query("user_id"),
		Status: domain.PaymentStatus(c.Query("status")),
		Limit:  limit,
		Offset: offset,
	}
	h.listPayments(c, filter)
}

func (h *PaymentHandler) listPayments(c *gin.Context, filter repository.PaymentFilter) {
	switch filter.Status {
	case "", domain.PaymentStatusPending, domain.PaymentStatusSuccessful, domain.PaymentStatusFailed:
	default:
		respondError(c, fmt.Errorf("%w: unknown status %q", errInvalidRequest, filter.Status))
		return
	}

	payments, err := h.paymentService.ListPayments(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}

	resp := make([]PaymentResponse, 0, len(payments))
	for _, payment := range payments {
		resp = append(resp, toPaymentResponse(payment))
	}

	respondJSON(c, http.StatusOK, DataResponse{Data: resp})
}

// GetPayment handles GET /v1/payments/:id
func (h *PaymentHandler) GetPayment(c *gin.Context) {
	payment, err := h.paymentService.GetPayment(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, DataResponse{Data: toPaymentResponse(payment)})
}

// PaymentStats handles GET /v1/orders/:id/payments/stats
func (h *PaymentHandler) PaymentStats(c *gin.Context) {
	ctx := c.Request.Context()

	order, err := h.orderService.GetOrder(ctx, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	stats, err := h.paymentService.OrderPaymentStats(ctx, order)
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, DataResponse{Data: PaymentStatsResponse{
		TotalPayments:      stats.Total,
		SuccessfulPayments: stats.Successful,
		FailedPayments:     stats.Failed,
		PendingPayments:    stats.Pending,
		TotalPaid:          stats.TotalPaid.StringFixed(domain.MoneyPlaces),
		TotalPending:       stats.TotalPending.StringFixed(domain.MoneyPlaces),
	}})
}

// RefundPayment handles POST /v1/payments/:id/refund
func (h *PaymentHandler) RefundPayment(c *gin.Context) {
	var req RefundRequest
	// An empty body refunds the full amount.
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		respondError(c, fmt.Errorf("%w: %v", errInvalidRequest, err))
		return
	}

	ctx := c.Request.Context()

	payment, err := h.paymentService.GetPayment(ctx, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	result, err := h.paymentService.RefundPayment(ctx, payment, req.Amount)
	if err != nil {
		respondError(c, err)
		return
	}

	if !result.Succeeded() {
		c.JSON(http.StatusUnprocessableEntity, DataResponse{
			Message: "Refund processing failed",
			Data:    result.Map(),
		})
		return
	}

	respondJSON(c, http.StatusOK, DataResponse{
		Message: "Refund processed successfully",
		Data:    result.Map(),
	})
}

// validatePaymentAmount checks an explicit amount against the accepted range.
func validatePaymentAmount(amount *decimal.Decimal) error {
	if amount == nil {
		return nil
	}
	if amount.LessThan(decimal.New(1, -domain.MoneyPlaces)) || amount.GreaterThan(maxPaymentAmount) {
		return fmt.Errorf("%w: amount must be between 0.01 and %s", errInvalidRequest, maxPaymentAmount.StringFixed(domain.MoneyPlaces))
	}
	return nil
}

func toPaymentResponse(payment *domain.Payment) PaymentResponse {
	response := payment.GatewayResponse
	if response == nil {
		response = map[string]any{}
	}

	return PaymentResponse{
		ID:              payment.ID,
		OrderID:         payment.OrderID,
		PaymentMethod:   payment.Gateway,
		Status:          string(payment.Status),
		Amount:          payment.Amount.StringFixed(domain.MoneyPlaces),
		TransactionID:   payment.TransactionID,
		ErrorCode:       payment.ErrorCode,
		ErrorMessage:    payment.ErrorMessage,
		GatewayResponse: response,
		ProcessedAt:     formatTimePtr(payment.ProcessedAt),
		FailedAt:        formatTimePtr(payment.FailedAt),
		CreatedAt:       formatTime(payment.CreatedAt),
		UpdatedAt:       formatTime(payment.UpdatedAt),
	}
}
