package service

import (
	"errors"
	"fmt"
)

var (
	// ErrPaymentDeclined is matched by DeclinedError.
	ErrPaymentDeclined = errors.New("payment declined")

	// ErrPaymentProcessingFailed is matched by ProcessingError.
	ErrPaymentProcessingFailed = errors.New("payment processing failed")

	// ErrInvalidPaymentAmount is returned when a payment amount is not positive.
	ErrInvalidPaymentAmount = errors.New("invalid payment amount")

	// ErrInvalidRefundAmount is returned when a refund amount is not positive or
	// exceeds the amount of the payment.
	ErrInvalidRefundAmount = errors.New("invalid refund amount")

	// ErrInvalidOrderID is returned when order ID is empty.
	ErrInvalidOrderID = errors.New("invalid order id")

	// ErrInvalidPaymentID is returned when payment ID is empty.
	ErrInvalidPaymentID = errors.New("invalid payment id")

	// ErrInvalidUserID is returned when user ID is empty.
	ErrInvalidUserID = errors.New("invalid user id")

	// ErrEmptyOrder is returned when an order would have no items.
	ErrEmptyOrder = errors.New("order must have at least one item")

	// ErrInvalidOrderItem is returned for items with no product name, a
	// quantity below one or a price below 0.01.
	ErrInvalidOrderItem = errors.New("invalid order item")
)

// CodeProcessingError is stored on payments that failed because of an
// unexpected fault rather than a gateway decline.
const CodeProcessingError = "PROCESSING_ERROR"

// DeclinedError reports a payment the gateway refused. The failed payment has
// been committed when this error is returned.
type DeclinedError struct {
	PaymentID string
	Code      string
	Message   string
}

func (e *DeclinedError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("payment declined: %s", e.Message)
	}
	return fmt.Sprintf("payment declined (%s): %s", e.Code, e.Message)
}

func (e *DeclinedError) Is(target error) bool { return target == ErrPaymentDeclined }

// ProcessingError reports an unexpected fault while processing a payment.
// PaymentID is empty when no payment row survived.
type ProcessingError struct {
	PaymentID string
	Cause     error
}

func (e *ProcessingError) Error() string {
	return fmt.Sprintf("payment processing failed: %v", e.Cause)
}

func (e *ProcessingError) Is(target error) bool { return target == ErrPaymentProcessingFailed }

func (e *ProcessingError) Unwrap() error { return e.Cause }
