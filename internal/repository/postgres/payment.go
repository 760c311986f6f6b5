package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"orderpay/internal/domain"
	"orderpay/internal/repository"
)

const paymentColumns = `p.id, p.order_id, p.gateway, p.status, p.amount, p.gateway_response, p.transaction_id,
	p.error_code, p.error_message, p.processed_at, p.failed_at, p.created_at, p.updated_at`

// PaymentRepository is a PostgreSQL implementation of repository.PaymentRepository.
type PaymentRepository struct {
	q Querier
}

// NewPaymentRepository creates a new PostgreSQL payment repository.
func NewPaymentRepository(db *sql.DB) *PaymentRepository {
	return &PaymentRepository{q: db}
}

// NewPaymentRepositoryWithTx creates a payment repository using a transaction.
func NewPaymentRepositoryWithTx(tx *sql.Tx) *PaymentRepository {
	return &PaymentRepository{q: tx}
}

// Create persists a new payment.
func (r *PaymentRepository) Create(ctx context.Context, payment *domain.Payment) error {
	query := `
		INSERT INTO payments (id, order_id, gateway, status, amount, gateway_response, transaction_id,
			error_code, error_message, processed_at, failed_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`

	response, err := marshalResponse(payment.GatewayResponse)
	if err != nil {
		return err
	}

	_, err = r.q.ExecContext(ctx, query,
		payment.ID,
		payment.OrderID,
		payment.Gateway,
		payment.Status,
		payment.Amount,
		response,
		payment.TransactionID,
		nullString(payment.ErrorCode),
		nullString(payment.ErrorMessage),
		payment.ProcessedAt,
		payment.FailedAt,
		payment.CreatedAt,
		payment.UpdatedAt,
	)

	return err
}

// GetByID retrieves a payment by ID.
func (r *PaymentRepository) GetByID(ctx context.Context, id string) (*domain.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments p WHERE p.id = $1`

	payment, err := scanPayment(r.q.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}

	return payment, nil
}

// Update persists the status and outcome fields of a payment.
func (r *PaymentRepository) Update(ctx context.Context, payment *domain.Payment) error {
	query := `
		UPDATE payments
		SET status = $1, gateway_response = $2, transaction_id = $3, error_code = $4,
			error_message = $5, processed_at = $6, failed_at = $7, updated_at = $8
		WHERE id = $9
	`

	response, err := marshalResponse(payment.GatewayResponse)
	if err != nil {
		return err
	}

	result, err := r.q.ExecContext(ctx, query,
		payment.Status,
		response,
		payment.TransactionID,
		nullString(payment.ErrorCode),
		nullString(payment.ErrorMessage),
		payment.ProcessedAt,
		payment.FailedAt,
		payment.UpdatedAt,
		payment.ID,
	)
	if err != nil {
		return err
	}

	return requireRow(result)
}

// ListByOrderID retrieves every payment of an order, oldest first.
func (r *PaymentRepository) ListByOrderID(ctx context.Context, orderID string) ([]*domain.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments p WHERE p.order_id = $1 ORDER BY p.created_at, p.id`
	return r.query(ctx, query, orderID)
}

// CountByOrderID counts the payments of an order.
func (r *PaymentRepository) CountByOrderID(ctx context.Context, orderID string) (int, error) {
	var count int
	err := r.q.QueryRowContext(ctx, `SELECT COUNT(*) FROM payments WHERE order_id = $1`, orderID).Scan(&count)
	return count, err
}

// List retrieves payments matching the filter, newest first.
func (r *PaymentRepository) List(ctx context.Context, filter repository.PaymentFilter) ([]*domain.Payment, error) {
	from := `payments p`
	var conditions []string
	var args []any

	if filter.UserID != "" {
		from += ` JOIN orders o ON o.id = p.order_id`
		args = append(args, filter.UserID)
		conditions = append(conditions, fmt.Sprintf("o.user_id = $%d", len(args)))
	}
	if filter.OrderID != "" {
		args = append(args, filter.OrderID)
		conditions = append(conditions, fmt.Sprintf("p.order_id = $%d", len(args)))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		conditions = append(conditions, fmt.Sprintf("p.status = $%d", len(args)))
	}

	query := `SELECT ` + paymentColumns + ` FROM ` + from
	if len(conditions) > 0 {
		query += ` WHERE ` + strings.Join(conditions, " AND ")
	}
	query += ` ORDER BY p.created_at DESC, p.id DESC` + pagination(&args, filter.Limit, filter.Offset)

	return r.query(ctx, query, args...)
}

func (r *PaymentRepository) query(ctx context.Context, query string, args ...any) ([]*domain.Payment, error) {
	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var payments []*domain.Payment
	for rows.Next() {
		payment, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		payments = append(payments, payment)
	}
	return payments, rows.Err()
}

func scanPayment(row rowScanner) (*domain.Payment, error) {
	var payment domain.Payment
	var response []byte
	var transactionID, errorCode, errorMessage sql.NullString
	var processedAt, failedAt sql.NullTime

	err := row.Scan(
		&payment.ID,
		&payment.OrderID,
		&payment.Gateway,
		&payment.Status,
		&payment.Amount,
		&response,
		&transactionID,
		&errorCode,
		&errorMessage,
		&processedAt,
		&failedAt,
		&payment.CreatedAt,
		&payment.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	payment.GatewayResponse = map[string]any{}
	if len(response) > 0 {
		if err := json.Unmarshal(response, &payment.GatewayResponse); err != nil {
			return nil, fmt.Errorf("decoding gateway response of payment %s: %w", payment.ID, err)
		}
	}
	if transactionID.Valid {
		payment.TransactionID = &transactionID.String
	}
	payment.ErrorCode = errorCode.String
	payment.ErrorMessage = errorMessage.String
	if processedAt.Valid {
		payment.ProcessedAt = &processedAt.Time
	}
	if failedAt.Valid {
		payment.FailedAt = &failedAt.Time
	}

	return &payment, nil
}

func marshalResponse(response map[string]any) ([]byte, error) {
	if response == nil {
		response = map[string]any{}
	}
	return json.Marshal(response)
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
