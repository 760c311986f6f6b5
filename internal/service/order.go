package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"orderpay/internal/domain"
	"orderpay/internal/repository"
)

var minItemPrice = decimal.New(1, -domain.MoneyPlaces)

// OrderService handles order operations.
type OrderService struct {
	tx          repository.Transactor
	orderRepo   repository.OrderRepository
	paymentRepo repository.PaymentRepository
	logger      *zap.Logger
}

// NewOrderService creates a new OrderService.
func NewOrderService(
	tx repository.Transactor,
	orderRepo repository.OrderRepository,
	paymentRepo repository.PaymentRepository,
	logger *zap.Logger,
) *OrderService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OrderService{
		tx:          tx,
		orderRepo:   orderRepo,
		paymentRepo: paymentRepo,
		logger:      logger.Named("orders"),
	}
}

// ItemInput describes one order line.
type ItemInput struct {
	ProductName string
	Quantity    int
	Price       decimal.Decimal
}

// CreateOrderRequest contains the parameters for creating an order.
type CreateOrderRequest struct {
	UserID string
	Items  []ItemInput
}

// CreateOrder creates a pending order with its items in one transaction.
func (s *OrderService) CreateOrder(ctx context.Context, req CreateOrderRequest) (*domain.Order, error) {
	if strings.TrimSpace(req.UserID) == "" {
		return nil, ErrInvalidUserID
	}

	items, err := buildItems(req.Items)
	if err != nil {
		return nil, err
	}

	order := domain.NewOrder(uuid.New().String(), req.UserID, now())

	err = s.tx.RunInTransaction(ctx, func(ctx context.Context, store repository.Store) error {
		if err := store.Orders().Create(ctx, order); err != nil {
			return err
		}

		order.SetItems(items)
		if err := store.Orders().ReplaceItems(ctx, order.ID, order.Items); err != nil {
			return err
		}

		return store.Orders().Update(ctx, order)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Order created",
		zap.String("order_id", order.ID),
		zap.String("user_id", order.UserID),
		zap.String("total", order.Total.StringFixed(domain.MoneyPlaces)),
	)

	return order, nil
}

// UpdateOrderRequest contains the changes to apply to an order. Nil fields are
// left unchanged; Items replaces every existing item.
type UpdateOrderRequest struct {
	Status *domain.OrderStatus
	Items  []ItemInput
}

// UpdateOrder applies a status change and/or replaces the items of an order.
func (s *OrderService) UpdateOrder(ctx context.Context, orderID string, req UpdateOrderRequest) (*domain.Order, error) {
	if orderID == "" {
		return nil, ErrInvalidOrderID
	}

	var items []domain.OrderItem
	if req.Items != nil {
		var err error
		if items, err = buildItems(req.Items); err != nil {
			return nil, err
		}
	}

	var order *domain.Order
	err := s.tx.RunInTransaction(ctx, func(ctx context.Context, store repository.Store) error {
		var err error
		order, err = store.Orders().GetByIDForUpdate(ctx, orderID)
		if err != nil {
			return err
		}

		if req.Status != nil && *req.Status != order.Status {
			if err := order.TransitionTo(*req.Status); err != nil {
				return err
			}
		}

		if items != nil {
			order.SetItems(items)
			if err := store.Orders().ReplaceItems(ctx, order.ID, order.Items); err != nil {
				return err
			}
		}

		order.UpdatedAt = now()
		return store.Orders().Update(ctx, order)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Order updated",
		zap.String("order_id", order.ID),
		zap.String("status", string(order.Status)),
		zap.String("total", order.Total.StringFixed(domain.MoneyPlaces)),
	)

	return order, nil
}

// ConfirmOrder moves a pending order to confirmed.
func (s *OrderService) ConfirmOrder(ctx context.Context, orderID string) (*domain.Order, error) {
	status := domain.OrderStatusConfirmed
	return s.UpdateOrder(ctx, orderID, UpdateOrderRequest{Status: &status})
}

// CancelOrder moves a pending or confirmed order to cancelled.
func (s *OrderService) CancelOrder(ctx context.Context, orderID string) (*domain.Order, error) {
	status := domain.OrderStatusCancelled
	return s.UpdateOrder(ctx, orderID, UpdateOrderRequest{Status: &status})
}

// GetOrder retrieves an order by ID.
func (s *OrderService) GetOrder(ctx context.Context, orderID string) (*domain.Order, error) {
	if orderID == "" {
		return nil, ErrInvalidOrderID
	}

	return s.orderRepo.GetByID(ctx, orderID)
}

// ListOrders retrieves orders matching the filter.
func (s *OrderService) ListOrders(ctx context.Context, filter repository.OrderFilter) ([]*domain.Order, error) {
	return s.orderRepo.List(ctx, filter)
}

// DeleteOrder soft-deletes an order that has no payments. The order row stays
// locked while payments are counted, so a concurrent charge cannot slip in.
func (s *OrderService) DeleteOrder(ctx context.Context, orderID string) error {
	if orderID == "" {
		return ErrInvalidOrderID
	}

	err := s.tx.RunInTransaction(ctx, func(ctx context.Context, store repository.Store) error {
		if _, err := store.Orders().GetByIDForUpdate(ctx, orderID); err != nil {
			return err
		}

		count, err := store.Payments().CountByOrderID(ctx, orderID)
		if err != nil {
			return err
		}
		if count > 0 {
			return fmt.Errorf("%w: order %s has %d payment(s) and cannot be deleted",
				domain.ErrInvalidOrderState, orderID, count)
		}

		return store.Orders().SoftDelete(ctx, orderID)
	})
	if err != nil {
		return err
	}

	s.logger.Info("Order deleted", zap.String("order_id", orderID))
	return nil
}

func buildItems(inputs []ItemInput) ([]domain.OrderItem, error) {
	if len(inputs) == 0 {
		return nil, ErrEmptyOrder
	}

	items := make([]domain.OrderItem, len(inputs))
	for i, in := range inputs {
		name := strings.TrimSpace(in.ProductName)
		switch {
		case name == "":
			return nil, fmt.Errorf("%w: item %d has no product name", ErrInvalidOrderItem, i)
		case in.Quantity < 1:
			return nil, fmt.Errorf("%w: item %d quantity must be at least 1", ErrInvalidOrderItem, i)
		case in.Price.LessThan(minItemPrice):
			return nil, fmt.Errorf("%w: item %d price must be at least %s", ErrInvalidOrderItem, i, minItemPrice.StringFixed(domain.MoneyPlaces))
		}

		items[i] = domain.OrderItem{
			ID:          uuid.Must(uuid.NewV7()).String(),
			ProductName: name,
			Quantity:    in.Quantity,
			Price:       in.Price,
		}
	}

	return items, nil
}
