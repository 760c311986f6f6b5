package repository

import (
	"context"

	"orderpay/internal/domain"
)

// OrderFilter narrows order listings. Zero values mean "any".
type OrderFilter struct {
	UserID string
	Status domain.OrderStatus
	Limit  int
	Offset int
}

// OrderRepository defines the persistence operations for orders.
// Soft-deleted orders are invisible to every read.
type OrderRepository interface {
	// Create persists a new order without its items.
	Create(ctx context.Context, order *domain.Order) error

	// GetByID retrieves an order with its items.
	GetByID(ctx context.Context, id string) (*domain.Order, error)

	// GetByIDForUpdate retrieves an order with its items and locks its row
	// until the surrounding transaction ends.
	GetByIDForUpdate(ctx context.Context, id string) (*domain.Order, error)

	// List retrieves orders matching the filter, newest first, with items.
	List(ctx context.Context, filter OrderFilter) ([]*domain.Order, error)

	// Update persists the status and total of an order.
	Update(ctx context.Context, order *domain.Order) error

	// ReplaceItems deletes the items of an order and inserts the given ones.
	ReplaceItems(ctx context.Context, orderID string, items []domain.OrderItem) error

	// SoftDelete marks an order as deleted.
	SoftDelete(ctx context.Context, id string) error
}
