package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus represents the current status of an order.
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusConfirmed OrderStatus = "confirmed"
	OrderStatusCancelled OrderStatus = "cancelled"
)

// Valid reports whether s is a known order status.
func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPending, OrderStatusConfirmed, OrderStatusCancelled:
		return true
	}
	return false
}

// OrderItem is a single line of an order.
type OrderItem struct {
	ID          string
	OrderID     string
	ProductName string
	Quantity    int
	Price       decimal.Decimal
}

// Subtotal returns quantity × price.
func (i OrderItem) Subtotal() decimal.Decimal {
	return Money(i.Price.Mul(decimal.NewFromInt(int64(i.Quantity))))
}

// Order represents a customer order that payments are charged against.
type Order struct {
	ID        string
	UserID    string
	Status    OrderStatus
	Total     decimal.Decimal
	Items     []OrderItem
	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt *time.Time
}

// NewOrder returns an empty pending order with a zero total.
func NewOrder(id, userID string, now time.Time) *Order {
	return &Order{
		ID:        id,
		UserID:    userID,
		Status:    OrderStatusPending,
		Total:     decimal.Zero,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// CalculateTotal sums the subtotals of the current items.
func (o *Order) CalculateTotal() decimal.Decimal {
	total := decimal.Zero
	for _, item := range o.Items {
		total = total.Add(item.Subtotal())
	}
	return Money(total)
}

// SetItems replaces the order items and recomputes the total.
func (o *Order) SetItems(items []OrderItem) {
	o.Items = make([]OrderItem, len(items))
	for i, item := range items {
		item.OrderID = o.ID
		item.Price = Money(item.Price)
		o.Items[i] = item
	}
	o.Total = o.CalculateTotal()
}

// CanAcceptPayment reports whether payments may be charged against the order.
func (o *Order) CanAcceptPayment() bool {
	return o.Status == OrderStatusConfirmed
}

// Confirm moves a pending order to confirmed.
func (o *Order) Confirm() error {
	return o.TransitionTo(OrderStatusConfirmed)
}

// Cancel moves a pending or confirmed order to cancelled.
func (o *Order) Cancel() error {
	return o.TransitionTo(OrderStatusCancelled)
}

// TransitionTo applies a status change if the order state machine allows it.
// Setting the current status again is a no-op only for pending orders.
func (o *Order) TransitionTo(status OrderStatus) error {
	if !status.Valid() {
		return fmt.Errorf("%w: unknown status %q", ErrInvalidOrderState, status)
	}
	if !o.canTransitionTo(status) {
		return fmt.Errorf("%w: cannot move order from %s to %s", ErrInvalidOrderState, o.Status, status)
	}
	o.Status = status
	return nil
}

func (o *Order) canTransitionTo(status OrderStatus) bool {
	switch o.Status {
	case OrderStatusPending:
		return true
	case OrderStatusConfirmed:
		return status == OrderStatusCancelled
	default:
		return false
	}
}

// IsDeleted reports whether the order has been soft-deleted.
func (o *Order) IsDeleted() bool {
	return o.DeletedAt != nil
}
