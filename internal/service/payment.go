package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"orderpay/internal/domain"
	"orderpay/internal/gateway"
	"orderpay/internal/repository"
)

// GatewayResolver resolves a gateway name to a configured gateway.
type GatewayResolver interface {
	Resolve(ctx context.Context, name string) (gateway.Gateway, error)
}

// PaymentService charges orders through payment gateways and records every
// attempt as a Payment.
type PaymentService struct {
	tx          repository.Transactor
	paymentRepo repository.PaymentRepository
	gateways    GatewayResolver
	notifier    Notifier
	logger      *zap.Logger
	timeout     time.Duration
}

// NewPaymentService creates a new PaymentService. A nil notifier disables
// notifications. A non-positive timeout leaves gateway calls bounded only by
// the caller's context.
func NewPaymentService(
	tx repository.Transactor,
	paymentRepo repository.PaymentRepository,
	gateways GatewayResolver,
	notifier Notifier,
	logger *zap.Logger,
	timeout time.Duration,
) *PaymentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PaymentService{
		tx:          tx,
		paymentRepo: paymentRepo,
		gateways:    gateways,
		notifier:    notifier,
		logger:      logger.Named("payments"),
		timeout:     timeout,
	}
}

// PaymentDetails contains the optional parameters of a charge.
type PaymentDetails struct {
	// Amount defaults to the order total.
	Amount *decimal.Decimal
}

// ProcessPayment charges order through the named gateway.
//
// The order must be confirmed; its row is locked and re-checked inside the
// transaction. A declined charge returns the committed failed
// payment together with a *DeclinedError. An unexpected fault returns a
// *ProcessingError, with the failed payment when its row could be kept.
func (s *PaymentService) ProcessPayment(ctx context.Context, order *domain.Order, gatewayName string, details PaymentDetails) (*domain.Payment, error) {
	if order == nil {
		return nil, fmt.Errorf("%w: no order", domain.ErrInvalidOrderState)
	}
	if !order.CanAcceptPayment() {
		return nil, fmt.Errorf("%w: order %s is %s, payments require a confirmed order",
			domain.ErrInvalidOrderState, order.ID, order.Status)
	}

	amount := order.Total
	if details.Amount != nil {
		amount = *details.Amount
	}
	amount = domain.Money(amount)
	if !amount.IsPositive() {
		return nil, ErrInvalidPaymentAmount
	}

	log := s.logger.With(
		zap.String("order_id", order.ID),
		zap.String("gateway", gatewayName),
		zap.String("amount", amount.StringFixed(domain.MoneyPlaces)),
	)

	var payment *domain.Payment
	var outcome, orderErr error

	// The attempt is recorded even when the caller goes away mid-charge; only
	// the gateway call observes ctx.
	txCtx := context.WithoutCancel(ctx)

	err := s.tx.RunInTransaction(txCtx, func(txCtx context.Context, store repository.Store) error {
		locked, err := store.Orders().GetByIDForUpdate(txCtx, order.ID)
		if err != nil {
			orderErr = err
			return err
		}
		if !locked.CanAcceptPayment() {
			orderErr = fmt.Errorf("%w: order %s is %s, payments require a confirmed order",
				domain.ErrInvalidOrderState, locked.ID, locked.Status)
			return orderErr
		}

		payment = domain.NewPendingPayment(uuid.New().String(), order.ID, gatewayName, amount, now())
		if err := store.Payments().Create(txCtx, payment); err != nil {
			return &ProcessingError{Cause: fmt.Errorf("creating payment: %w", err)}
		}

		gw, err := s.gateways.Resolve(txCtx, gatewayName)
		if err != nil {
			return &ProcessingError{Cause: err}
		}

		result, err := s.charge(ctx, gw, payment)
		if err == nil && result.Succeeded() {
			err = payment.MarkSuccessful(result.TransactionID(), result.GatewayResponse(), now())
		}

		switch {
		case err != nil:
			if markErr := payment.MarkFailed(CodeProcessingError, err.Error(), map[string]any{"error": err.Error()}, now()); markErr != nil {
				return &ProcessingError{PaymentID: payment.ID, Cause: markErr}
			}
			outcome = &ProcessingError{PaymentID: payment.ID, Cause: err}
		case !result.Succeeded():
			if markErr := payment.MarkFailed(result.ErrorCode(), result.Message(), result.GatewayResponse(), now()); markErr != nil {
				return &ProcessingError{PaymentID: payment.ID, Cause: markErr}
			}
			outcome = &DeclinedError{PaymentID: payment.ID, Code: result.ErrorCode(), Message: result.Message()}
		}

		if err := store.Payments().Update(txCtx, payment); err != nil {
			return &ProcessingError{Cause: fmt.Errorf("updating payment %s: %w", payment.ID, err)}
		}

		return nil
	})
	if orderErr != nil {
		log.Warn("Order cannot take a payment", zap.Error(orderErr))
		return nil, orderErr
	}
	if err != nil {
		var processingErr *ProcessingError
		if !errors.As(err, &processingErr) {
			processingErr = &ProcessingError{Cause: err}
		}
		// The transaction rolled back, so no payment row survived.
		processingErr.PaymentID = ""
		log.Error("Payment processing failed, transaction rolled back", zap.Error(processingErr.Cause))
		return nil, processingErr
	}

	log = log.With(zap.String("payment_id", payment.ID))

	var declined *DeclinedError
	switch {
	case outcome == nil:
		log.Info("Payment processed successfully", zap.String("transaction_id", *payment.TransactionID))
	case errors.As(outcome, &declined):
		log.Warn("Payment declined",
			zap.String("error_code", declined.Code),
			zap.String("error_message", declined.Message),
		)
	default:
		log.Error("Payment processing failed", zap.Error(outcome))
	}

	if s.notifier != nil {
		if err := s.notifier.Notify(txCtx, paymentNotification(order, payment)); err != nil {
			log.Warn("Failed to send payment notification", zap.Error(err))
		}
	}

	return payment, outcome
}

// charge calls the gateway under the configured timeout. A panic, a missing
// result or a timeout is reported as an error.
func (s *PaymentService) charge(ctx context.Context, gw gateway.Gateway, payment *domain.Payment) (*gateway.Result, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	type outcome struct {
		result *gateway.Result
		err    error
	}

	// The gateway works on a copy so a late return cannot race with the
	// state changes below.
	snapshot := *payment
	done := make(chan outcome, 1)

	go func() {
		defer func() {
			if p := recover(); p != nil {
				done <- outcome{err: fmt.Errorf("gateway %s panicked: %v", gw.Name(), p)}
			}
		}()
		done <- outcome{result: gw.ProcessPayment(ctx, &snapshot)}
	}()

	select {
	case o := <-done:
		if o.err != nil {
			return nil, o.err
		}
		if o.result == nil {
			return nil, fmt.Errorf("gateway %s returned no result", gw.Name())
		}
		return o.result, nil
	case <-ctx.Done():
		return nil, fmt.Errorf("gateway %s did not respond: %w", gw.Name(), ctx.Err())
	}
}

// RefundPayment refunds a successful payment through the gateway that charged
// it. A nil amount refunds the full payment. The payment itself is not changed;
// the gateway's Result is returned as is.
func (s *PaymentService) RefundPayment(ctx context.Context, payment *domain.Payment, amount *decimal.Decimal) (*gateway.Result, error) {
	if payment == nil {
		return nil, fmt.Errorf("%w: no payment", domain.ErrInvalidPaymentState)
	}
	if !payment.IsRefundable() {
		return nil, fmt.Errorf("%w: payment %s is %s, only successful payments can be refunded",
			domain.ErrInvalidPaymentState, payment.ID, payment.Status)
	}

	if amount != nil {
		refund := domain.Money(*amount)
		if !refund.IsPositive() || refund.GreaterThan(payment.Amount) {
			return nil, fmt.Errorf("%w: %s is outside (0, %s]", ErrInvalidRefundAmount,
				refund.StringFixed(domain.MoneyPlaces), payment.Amount.StringFixed(domain.MoneyPlaces))
		}
		amount = &refund
	}

	gw, err := s.gateways.Resolve(ctx, payment.Gateway)
	if err != nil {
		return nil, err
	}

	result := gw.Refund(ctx, payment, amount)
	if result == nil {
		result = gateway.Failure("Refund returned no result", gateway.CodeGatewayError, nil)
	}

	log := s.logger.With(
		zap.String("payment_id", payment.ID),
		zap.String("gateway", payment.Gateway),
	)
	if result.Succeeded() {
		log.Info("Refund processed", zap.String("transaction_id", result.TransactionID()))
	} else {
		log.Warn("Refund failed",
			zap.String("error_code", result.ErrorCode()),
			zap.String("error_message", result.Message()),
		)
	}

	return result, nil
}

// PaymentStats aggregates the payments of one order.
type PaymentStats struct {
	Total        int             `json:"total_payments"`
	Successful   int             `json:"successful_payments"`
	Failed       int             `json:"failed_payments"`
	Pending      int             `json:"pending_payments"`
	TotalPaid    decimal.Decimal `json:"total_paid"`
	TotalPending decimal.Decimal `json:"total_pending"`
}

// OrderPaymentStats counts the payments of an order by status and sums the
// paid and pending amounts.
func (s *PaymentService) OrderPaymentStats(ctx context.Context, order *domain.Order) (*PaymentStats, error) {
	if order == nil || order.ID == "" {
		return nil, ErrInvalidOrderID
	}

	payments, err := s.paymentRepo.ListByOrderID(ctx, order.ID)
	if err != nil {
		return nil, err
	}

	stats := &PaymentStats{
		Total:        len(payments),
		TotalPaid:    decimal.Zero,
		TotalPending: decimal.Zero,
	}
	for _, p := range payments {
		switch p.Status {
		case domain.PaymentStatusSuccessful:
			stats.Successful++
			stats.TotalPaid = stats.TotalPaid.Add(p.Amount)
		case domain.PaymentStatusFailed:
			stats.Failed++
		case domain.PaymentStatusPending:
			stats.Pending++
			stats.TotalPending = stats.TotalPending.Add(p.Amount)
		}
	}
	stats.TotalPaid = domain.Money(stats.TotalPaid)
	stats.TotalPending = domain.Money(stats.TotalPending)

	return stats, nil
}

// GetPayment retrieves a payment by ID.
func (s *PaymentService) GetPayment(ctx context.Context, paymentID string) (*domain.Payment, error) {
	if paymentID == "" {
		return nil, ErrInvalidPaymentID
	}

	return s.paymentRepo.GetByID(ctx, paymentID)
}

// ListOrderPayments retrieves every payment of an order, oldest first.
func (s *PaymentService) ListOrderPayments(ctx context.Context, orderID string) ([]*domain.Payment, error) {
	if orderID == "" {
		return nil, ErrInvalidOrderID
	}

	return s.paymentRepo.ListByOrderID(ctx, orderID)
}

// ListPayments retrieves payments matching the filter.
func (s *PaymentService) ListPayments(ctx context.Context, filter repository.PaymentFilter) ([]*domain.Payment, error) {
	return s.paymentRepo.List(ctx, filter)
}

func now() time.Time {
	return time.Now().UTC()
}
