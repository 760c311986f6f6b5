package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"
)

var migrations = []struct {
	name string
	stmt string
}{
	{"orders", `
		CREATE TABLE IF NOT EXISTS orders (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			status TEXT NOT NULL DEFAULT 'pending',
			total NUMERIC(12, 2) NOT NULL DEFAULT 0,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			deleted_at TIMESTAMPTZ
		)`},
	{"order_items", `
		CREATE TABLE IF NOT EXISTS order_items (
			id TEXT PRIMARY KEY,
			order_id TEXT NOT NULL REFERENCES orders(id) ON DELETE CASCADE,
			product_name TEXT NOT NULL,
			quantity INTEGER NOT NULL CHECK (quantity > 0),
			price NUMERIC(12, 2) NOT NULL CHECK (price >= 0)
		)`},
	{"payments", `
		CREATE TABLE IF NOT EXISTS payments (
			id TEXT PRIMARY KEY,
			order_id TEXT NOT NULL REFERENCES orders(id),
			gateway TEXT NOT NULL,
			status TEXT NOT NULL DEFAULT 'pending',
			amount NUMERIC(12, 2) NOT NULL,
			gateway_response JSONB NOT NULL DEFAULT '{}',
			transaction_id TEXT,
			error_code TEXT,
			error_message TEXT,
			processed_at TIMESTAMPTZ,
			failed_at TIMESTAMPTZ,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`},
	{"payment_gateway_configs", `
		CREATE TABLE IF NOT EXISTS payment_gateway_configs (
			gateway_name TEXT PRIMARY KEY,
			config_ciphertext TEXT NOT NULL,
			config_iv TEXT NOT NULL,
			is_active BOOLEAN NOT NULL DEFAULT TRUE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`},
	{"indexes", `
		CREATE INDEX IF NOT EXISTS idx_orders_user_id ON orders (user_id) WHERE deleted_at IS NULL;
		CREATE INDEX IF NOT EXISTS idx_order_items_order_id ON order_items (order_id);
		CREATE INDEX IF NOT EXISTS idx_payments_order_id ON payments (order_id);
		CREATE UNIQUE INDEX IF NOT EXISTS idx_payments_transaction_id ON payments (transaction_id) WHERE transaction_id IS NOT NULL`},
}

// Migrate creates the tables and indexes used by the repositories. It is safe
// to run on every start.
func Migrate(ctx context.Context, db *sql.DB, logger *zap.Logger) error {
	logger.Info("Running database migrations")

	for _, m := range migrations {
		if _, err := db.ExecContext(ctx, m.stmt); err != nil {
			logger.Error("Migration failed", zap.String("migration", m.name), zap.Error(err))
			return fmt.Errorf("migration %s: %w", m.name, err)
		}
	}

	logger.Info("Database migrations completed", zap.Int("count", len(migrations)))
	return nil
}
