package app

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"orderpay/internal/domain"
	"orderpay/internal/gateway"
)

type memoryConfigs struct {
	mu      sync.Mutex
	configs map[string]*domain.GatewayConfig
	saveErr error
}

func (m *memoryConfigs) GetActiveByName(ctx context.Context, name string) (*domain.GatewayConfig, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cfg, ok := m.configs[name]
	if !ok || !cfg.Active {
		return nil, nil
	}
	return cfg, nil
}

func (m *memoryConfigs) Save(ctx context.Context, cfg *domain.GatewayConfig) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.configs == nil {
		m.configs = make(map[string]*domain.GatewayConfig)
	}
	m.configs[cfg.Name] = cfg
	return nil
}

func TestSeedGatewayConfigs_ConfiguresEveryGateway(t *testing.T) {
	t.Parallel()

	repo := &memoryConfigs{}
	registry := gateway.NewDefaultRegistry(repo, zap.NewNop())
	assert.Empty(t, registry.ConfiguredGateways(context.Background()))

	err := SeedGatewayConfigs(context.Background(), repo, SandboxGatewayConfigs, registry.Available(), zap.NewNop())
	require.NoError(t, err)

	assert.Equal(t, registry.Available(), registry.ConfiguredGateways(context.Background()))
}

func TestSeedGatewayConfigs_SkipsUnknownNames(t *testing.T) {
	t.Parallel()

	repo := &memoryConfigs{}
	err := SeedGatewayConfigs(context.Background(), repo, SandboxGatewayConfigs,
		[]string{"bitcoin", gateway.PayPalGatewayName}, zap.NewNop())
	require.NoError(t, err)

	assert.Len(t, repo.configs, 1)
	assert.Contains(t, string(repo.configs[gateway.PayPalGatewayName].Settings), `"mode":"sandbox"`)
}

func TestSeedGatewayConfigs_SaveFailure(t *testing.T) {
	t.Parallel()

	repo := &memoryConfigs{saveErr: errors.New("read-only transaction")}
	err := SeedGatewayConfigs(context.Background(), repo, SandboxGatewayConfigs,
		[]string{gateway.CardGatewayName}, zap.NewNop())

	assert.ErrorContains(t, err, "credit_card")
}
