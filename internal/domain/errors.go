package domain

import "errors"

var (
	// ErrInvalidOrderState is returned when an order cannot perform the requested
	// transition or action in its current state.
	ErrInvalidOrderState = errors.New("invalid order state")

	// ErrInvalidPaymentState is returned when a payment is not in a state that
	// allows the requested operation.
	ErrInvalidPaymentState = errors.New("invalid payment state")
)
