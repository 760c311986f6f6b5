package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"orderpay/internal/domain"
)

// NotificationType represents the type of notification.
type NotificationType string

const (
	NotificationPaymentSuccess NotificationType = "PAYMENT_SUCCESS"
	NotificationPaymentFailed  NotificationType = "PAYMENT_FAILED"
)

// Notification represents a notification to be sent.
type Notification struct {
	Type        NotificationType
	RecipientID string
	Title       string
	Message     string
	Data        map[string]any
	CreatedAt   time.Time
}

// Notifier delivers notifications to customers.
type Notifier interface {
	Notify(ctx context.Context, notification Notification) error
}

// NotificationService is a Notifier that records notifications in the log.
type NotificationService struct {
	logger *zap.Logger
}

// NewNotificationService creates a new NotificationService.
func NewNotificationService(logger *zap.Logger) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{logger: logger.Named("notifications")}
}

// Notify logs the notification.
func (s *NotificationService) Notify(ctx context.Context, notification Notification) error {
	s.logger.Info("Notification sent",
		zap.String("type", string(notification.Type)),
		zap.String("recipient_id", notification.RecipientID),
		zap.String("title", notification.Title),
		zap.String("message", notification.Message),
		zap.Any("data", notification.Data),
	)
	return nil
}

// paymentNotification tells the owner of order how a payment attempt ended.
func paymentNotification(order *domain.Order, payment *domain.Payment) Notification {
	amount := payment.Amount.StringFixed(domain.MoneyPlaces)

	n := Notification{
		Type:        NotificationPaymentSuccess,
		RecipientID: order.UserID,
		Title:       "Payment Successful",
		Message:     fmt.Sprintf("Payment of %s for order %s was successful", amount, order.ID),
		Data: map[string]any{
			"payment_id": payment.ID,
			"order_id":   order.ID,
			"amount":     amount,
			"gateway":    payment.Gateway,
		},
		CreatedAt: now(),
	}

	if payment.Status == domain.PaymentStatusFailed {
		n.Type = NotificationPaymentFailed
		n.Title = "Payment Failed"
		n.Message = fmt.Sprintf("Payment of %s for order %s failed. Please try again.", amount, order.ID)
		n.Data["error_code"] = payment.ErrorCode
	}

	return n
}
