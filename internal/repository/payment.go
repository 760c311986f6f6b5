package repository

import (
	"context"

	"orderpay/internal/domain"
)

// PaymentFilter narrows payment listings. Zero values mean "any".
type PaymentFilter struct {
	OrderID string
	UserID  string
	Status  domain.PaymentStatus
	Limit   int
	Offset  int
}

// PaymentRepository defines the persistence operations for payments.
type PaymentRepository interface {
	// Create persists a new payment.
	Create(ctx context.Context, payment *domain.Payment) error

	// GetByID retrieves a payment by ID.
	GetByID(ctx context.Context, id string) (*domain.Payment, error)

	// Update persists the status and outcome fields of a payment.
	Update(ctx context.Context, payment *domain.Payment) error

	// ListByOrderID retrieves every payment of an order, oldest first.
	ListByOrderID(ctx context.Context, orderID string) ([]*domain.Payment, error)

	// CountByOrderID counts the payments of an order.
	CountByOrderID(ctx context.Context, orderID string) (int, error)

	// List retrieves payments matching the filter, newest first.
	List(ctx context.Context, filter PaymentFilter) ([]*domain.Payment, error)
}
