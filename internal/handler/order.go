package handler

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"orderpay/internal/domain"
	"orderpay/internal/repository"
	"orderpay/internal/service"
)

var maxItemPrice = decimal.RequireFromString("999999.99")

// OrderHandler handles HTTP requests for orders.
type OrderHandler struct {
	orderService *service.OrderService
}

// NewOrderHandler creates a new OrderHandler.
func NewOrderHandler(orderService *service.OrderService) *OrderHandler {
	return &OrderHandler{orderService: orderService}
}

// OrderItemRequest is one item of an order request body.
type OrderItemRequest struct {
	ProductName string          `json:"product_name" binding:"required,max=255"`
	Quantity    int             `json:"quantity" binding:"required,min=1,max=1000"`
	Price       decimal.Decimal `json:"price"`
}

// CreateOrderRequest is the HTTP request body for creating an order.
type CreateOrderRequest struct {
	UserID string             `json:"user_id" binding:"required"`
	Items  []OrderItemRequest `json:"items" binding:"required,min=1,dive"`
}

// UpdateOrderRequest is the HTTP request body for updating an order.
type UpdateOrderRequest struct {
	Status *string            `json:"status" binding:"omitempty,oneof=pending confirmed cancelled"`
	Items  []OrderItemRequest `json:"items" binding:"omitempty,min=1,dive"`
}

// OrderItemResponse is one item of an order response.
type OrderItemResponse struct {
	ID          string `json:"id"`
	ProductName string `json:"product_name"`
	Quantity    int    `json:"quantity"`
	Price       string `json:"price"`
	Subtotal    string `json:"subtotal"`
}

// OrderResponse is the HTTP response for order operations.
type OrderResponse struct {
	ID          string              `json:"id"`
	UserID      string              `json:"user_id"`
	Status      string              `json:"status"`
	TotalAmount string              `json:"total_amount"`
	ItemsCount  int                 `json:"items_count"`
	Items       []OrderItemResponse `json:"items"`
	CreatedAt   string              `json:"created_at"`
	UpdatedAt   string              `json:"updated_at"`
}

// CreateOrder handles POST /v1/orders
func (h *OrderHandler) CreateOrder(c *gin.Context) {
	var req CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, fmt.Errorf("%w: %v", errInvalidRequest, err))
		return
	}

	items, err := toItemInputs(req.Items)
	if err != nil {
		respondError(c, err)
		return
	}

	order, err := h.orderService.CreateOrder(c.Request.Context(), service.CreateOrderRequest{
		UserID: req.UserID,
		Items:  items,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusCreated, DataResponse{
		Message: "Order created successfully",
		Data:    toOrderResponse(order),
	})
}

// ListOrders handles GET /v1/orders
func (h *OrderHandler) ListOrders(c *gin.Context) {
	limit, offset, err := pagination(c)
	if err != nil {
		respondError(c, err)
		return
	}

	filter := repository.OrderFilter{
		UserID: c.Query("user_id"),
		Status: domain.OrderStatus(c.Query("status")),
		Limit:  limit,
		Offset: offset,
	}
	if filter.Status != "" && !filter.Status.Valid() {
		respondError(c, fmt.Errorf("%w: unknown status %q", errInvalidRequest, filter.Status))
		return
	}

	orders, err := h.orderService.ListOrders(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}

	resp := make([]OrderResponse, 0, len(orders))
	for _, order := range orders {
		resp = append(resp, toOrderResponse(order))
	}

	respondJSON(c, http.StatusOK, DataResponse{Data: resp})
}

// GetOrder handles GET /v1/orders/:id
func (h *OrderHandler) GetOrder(c *gin.Context) {
	order, err := h.orderService.GetOrder(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, DataResponse{Data: toOrderResponse(order)})
}

// UpdateOrder handles PUT /v1/orders/:id
func (h *OrderHandler) UpdateOrder(c *gin.Context) {
	var req UpdateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, fmt.Errorf("%w: %v", errInvalidRequest, err))
		return
	}

	var update service.UpdateOrderRequest
	if req.Status != nil {
		status := domain.OrderStatus(*req.Status)
		update.Status = &status
	}
	if req.Items != nil {
		items, err := toItemInputs(req.Items)
		if err != nil {
			respondError(c, err)
			return
		}
		update.Items = items
	}

	order, err := h.orderService.UpdateOrder(c.Request.Context(), c.Param("id"), update)
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, DataResponse{
		Message: "Order updated successfully",
		Data:    toOrderResponse(order),
	})
}

// ConfirmOrder handles POST /v1/orders/:id/confirm
func (h *OrderHandler) ConfirmOrder(c *gin.Context) {
	order, err := h.orderService.ConfirmOrder(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, DataResponse{
		Message: "Order confirmed successfully",
		Data:    toOrderResponse(order),
	})
}

// CancelOrder handles POST /v1/orders/:id/cancel
func (h *OrderHandler) CancelOrder(c *gin.Context) {
	order, err := h.orderService.CancelOrder(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, DataResponse{
		Message: "Order cancelled successfully",
		Data:    toOrderResponse(order),
	})
}

// DeleteOrder handles DELETE /v1/orders/:id
func (h *OrderHandler) DeleteOrder(c *gin.Context) {
	if err := h.orderService.DeleteOrder(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, DataResponse{Message: "Order deleted successfully", Data: nil})
}

func toItemInputs(reqs []OrderItemRequest) ([]service.ItemInput, error) {
	items := make([]service.ItemInput, len(reqs))
	for i, r := range reqs {
		if r.Price.GreaterThan(maxItemPrice) {
			return nil, fmt.Errorf("%w: item %d price must not exceed %s", errInvalidRequest, i, maxItemPrice.StringFixed(domain.MoneyPlaces))
		}
		items[i] = service.ItemInput{
			ProductName: r.ProductName,
			Quantity:    r.Quantity,
			Price:       r.Price,
		}
	}
	return items, nil
}

func toOrderResponse(order *domain.Order) OrderResponse {
	items := make([]OrderItemResponse, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, OrderItemResponse{
			ID:          item.ID,
			ProductName: item.ProductName,
			Quantity:    item.Quantity,
			Price:       item.Price.StringFixed(domain.MoneyPlaces),
			Subtotal:    item.Subtotal().StringFixed(domain.MoneyPlaces),
		})
	}

	return OrderResponse{
		ID:          order.ID,
		UserID:      order.UserID,
		Status:      string(order.Status),
		TotalAmount: order.Total.StringFixed(domain.MoneyPlaces),
		ItemsCount:  len(order.Items),
		Items:       items,
		CreatedAt:   formatTime(order.CreatedAt),
		UpdatedAt:   formatTime(order.UpdatedAt),
	}
}
