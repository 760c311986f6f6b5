package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"orderpay/internal/repository"
)

// Transactor is a PostgreSQL implementation of repository.Transactor.
type Transactor struct {
	db *sql.DB
}

// NewTransactor creates a transactor over db.
func NewTransactor(db *sql.DB) *Transactor {
	return &Transactor{db: db}
}

type txStore struct {
	orders   *OrderRepository
	payments *PaymentRepository
}

func (s *txStore) Orders() repository.OrderRepository     { return s.orders }
func (s *txStore) Payments() repository.PaymentRepository { return s.payments }

// RunInTransaction runs fn with repositories bound to a new transaction.
func (t *Transactor) RunInTransaction(ctx context.Context, fn func(ctx context.Context, store repository.Store) error) (err error) {
	tx, err := t.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	store := &txStore{
		orders:   NewOrderRepositoryWithTx(tx),
		payments: NewPaymentRepositoryWithTx(tx),
	}

	if err = fn(ctx, store); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	return nil
}
