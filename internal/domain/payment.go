package domain

import (
	"fmt"
	"maps"
	"time"

	"github.com/shopspring/decimal"
)

// PaymentStatus represents the current status of a payment.
type PaymentStatus string

const (
	PaymentStatusPending    PaymentStatus = "pending"
	PaymentStatusSuccessful PaymentStatus = "successful"
	PaymentStatusFailed     PaymentStatus = "failed"
)

// IsTerminal reports whether no further transition is allowed from s.
func (s PaymentStatus) IsTerminal() bool {
	return s == PaymentStatusSuccessful || s == PaymentStatusFailed
}

// Payment is one attempt to charge an order through a gateway.
// A new attempt is always a new Payment; terminal payments never change.
type Payment struct {
	ID              string
	OrderID         string
	Gateway         string
	Status          PaymentStatus
	Amount          decimal.Decimal
	GatewayResponse map[string]any
	TransactionID   *string
	ErrorCode       string
	ErrorMessage    string
	ProcessedAt     *time.Time
	FailedAt        *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// NewPendingPayment returns a payment in the pending state.
func NewPendingPayment(id, orderID, gateway string, amount decimal.Decimal, now time.Time) *Payment {
	return &Payment{
		ID:              id,
		OrderID:         orderID,
		Gateway:         gateway,
		Status:          PaymentStatusPending,
		Amount:          Money(amount),
		GatewayResponse: map[string]any{},
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

// MarkSuccessful records a gateway approval.
func (p *Payment) MarkSuccessful(transactionID string, response map[string]any, at time.Time) error {
	if p.Status != PaymentStatusPending {
		return fmt.Errorf("%w: payment %s is already %s", ErrInvalidPaymentState, p.ID, p.Status)
	}
	if transactionID == "" {
		return fmt.Errorf("%w: successful payment requires a transaction id", ErrInvalidPaymentState)
	}

	p.Status = PaymentStatusSuccessful
	p.TransactionID = &transactionID
	p.GatewayResponse = cloneResponse(response)
	p.ProcessedAt = &at
	p.UpdatedAt = at
	return nil
}

// MarkFailed records a decline or processing fault.
func (p *Payment) MarkFailed(code, message string, response map[string]any, at time.Time) error {
	if p.Status != PaymentStatusPending {
		return fmt.Errorf("%w: payment %s is already %s", ErrInvalidPaymentState, p.ID, p.Status)
	}

	p.Status = PaymentStatusFailed
	p.TransactionID = nil
	p.ErrorCode = code
	p.ErrorMessage = message
	p.GatewayResponse = cloneResponse(response)
	p.FailedAt = &at
	p.UpdatedAt = at
	return nil
}

// IsRefundable reports whether the payment can be refunded.
func (p *Payment) IsRefundable() bool {
	return p.Status == PaymentStatusSuccessful
}

func cloneResponse(response map[string]any) map[string]any {
	if response == nil {
		return map[string]any{}
	}
	return maps.Clone(response)
}
