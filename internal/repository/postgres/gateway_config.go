package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"orderpay/internal/crypto"
	"orderpay/internal/domain"
)

// GatewayConfigRepository is a PostgreSQL implementation of
// repository.GatewayConfigRepository. Settings are stored AES-GCM encrypted.
type GatewayConfigRepository struct {
	q         Querier
	encryptor crypto.EncryptionService
}

// NewGatewayConfigRepository creates a new PostgreSQL gateway config repository.
func NewGatewayConfigRepository(db *sql.DB, encryptor crypto.EncryptionService) *GatewayConfigRepository {
	return &GatewayConfigRepository{q: db, encryptor: encryptor}
}

// GetActiveByName retrieves and decrypts the active configuration of a gateway.
// Returns nil if the gateway has no active configuration.
func (r *GatewayConfigRepository) GetActiveByName(ctx context.Context, name string) (*domain.GatewayConfig, error) {
	query := `
		SELECT gateway_name, config_ciphertext, config_iv, is_active, created_at, updated_at
		FROM payment_gateway_configs
		WHERE gateway_name = $1 AND is_active = TRUE
	`

	var cfg domain.GatewayConfig
	var ciphertext, iv string
	err := r.q.QueryRowContext(ctx, query, name).Scan(
		&cfg.Name,
		&ciphertext,
		&iv,
		&cfg.Active,
		&cfg.CreatedAt,
		&cfg.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	settings, err := r.encryptor.Decrypt(ciphertext, iv)
	if err != nil {
		return nil, fmt.Errorf("decrypting %s gateway config: %w", name, err)
	}
	cfg.Settings = settings

	return &cfg, nil
}

// Save creates or replaces the configuration of a gateway.
func (r *GatewayConfigRepository) Save(ctx context.Context, cfg *domain.GatewayConfig) error {
	ciphertext, iv, err := r.encryptor.Encrypt(cfg.Settings)
	if err != nil {
		return fmt.Errorf("encrypting %s gateway config: %w", cfg.Name, err)
	}

	query := `
		INSERT INTO payment_gateway_configs (gateway_name, config_ciphertext, config_iv, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (gateway_name) DO UPDATE
		SET config_ciphertext = EXCLUDED.config_ciphertext,
			config_iv = EXCLUDED.config_iv,
			is_active = EXCLUDED.is_active,
			updated_at = EXCLUDED.updated_at
	`

	_, err = r.q.ExecContext(ctx, query,
		cfg.Name,
		ciphertext,
		iv,
		cfg.Active,
		cfg.CreatedAt,
		cfg.UpdatedAt,
	)

	return err
}
