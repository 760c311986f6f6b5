package repository

import "context"

// Store gives access to repositories bound to one transaction.
type Store interface {
	Orders() OrderRepository
	Payments() PaymentRepository
}

// Transactor runs a function inside a database transaction. The transaction
// commits when fn returns nil and rolls back when it returns an error or panics.
type Transactor interface {
	RunInTransaction(ctx context.Context, fn func(ctx context.Context, store Store) error) error
}
