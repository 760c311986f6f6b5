package gateway

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"orderpay/internal/domain"
)

type stubGateway struct {
	name       string
	configured bool
}

func (g *stubGateway) Name() string       { return g.name }
func (g *stubGateway) IsConfigured() bool { return g.configured }
func (g *stubGateway) ProcessPayment(ctx context.Context, payment *domain.Payment) *Result {
	return Success("ok", g.name+"_tx", nil)
}
func (g *stubGateway) Refund(ctx context.Context, payment *domain.Payment, amount *decimal.Decimal) *Result {
	return Success("ok", g.name+"_refund", nil)
}

func countingFactory(gw Gateway, calls *int32) Factory {
	return func(ctx context.Context) (Gateway, error) {
		atomic.AddInt32(calls, 1)
		return gw, nil
	}
}

// ──────────────────────────────────────────────
// 1. REGISTRATION
// ──────────────────────────────────────────────

func TestRegistry_AvailableKeepsRegistrationOrder(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	r.Register("stripe", countingFactory(&stubGateway{name: "stripe", configured: true}, new(int32)))
	r.Register("credit_card", countingFactory(&stubGateway{name: "credit_card", configured: true}, new(int32)))
	r.Register("paypal", countingFactory(&stubGateway{name: "paypal", configured: true}, new(int32)))
	r.Register("stripe", countingFactory(&stubGateway{name: "stripe", configured: true}, new(int32)))

	assert.Equal(t, []string{"stripe", "credit_card", "paypal"}, r.Available())
	assert.True(t, r.Has("paypal"))
	assert.False(t, r.Has("bitcoin"))
}

func TestRegistry_DefaultGateways(t *testing.T) {
	t.Parallel()

	r := NewDefaultRegistry(nil, nil)

	assert.Equal(t, []string{CardGatewayName, PayPalGatewayName, StripeGatewayName}, r.Available())
	assert.Empty(t, r.ConfiguredGateways(context.Background()))
}

// ──────────────────────────────────────────────
// 2. RESOLUTION
// ──────────────────────────────────────────────

func TestRegistry_ResolveCachesConfiguredInstance(t *testing.T) {
	t.Parallel()

	var calls int32
	gw := &stubGateway{name: "mock", configured: true}
	r := NewRegistry()
	r.Register("mock", countingFactory(gw, &calls))

	first, err := r.Resolve(context.Background(), "mock")
	require.NoError(t, err)
	second, err := r.Resolve(context.Background(), "mock")
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestRegistry_ReRegisterEvictsCachedInstance(t *testing.T) {
	t.Parallel()

	var oldCalls, newCalls int32
	r := NewRegistry()
	r.Register("mock", countingFactory(&stubGateway{name: "mock", configured: true}, &oldCalls))

	_, err := r.Resolve(context.Background(), "mock")
	require.NoError(t, err)

	replacement := &stubGateway{name: "mock", configured: true}
	r.Register("mock", countingFactory(replacement, &newCalls))

	gw, err := r.Resolve(context.Background(), "mock")
	require.NoError(t, err)

	assert.Same(t, replacement, gw)
	assert.Equal(t, int32(1), atomic.LoadInt32(&oldCalls))
	assert.Equal(t, int32(1), atomic.LoadInt32(&newCalls))
}

func TestRegistry_UnknownGatewayListsAvailableNames(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	r.Register("credit_card", countingFactory(&stubGateway{name: "credit_card", configured: true}, new(int32)))
	r.Register("paypal", countingFactory(&stubGateway{name: "paypal", configured: true}, new(int32)))

	_, err := r.Resolve(context.Background(), "bitcoin")

	require.ErrorIs(t, err, ErrUnknownGateway)
	assert.Contains(t, err.Error(), `"bitcoin"`)
	assert.Contains(t, err.Error(), "credit_card, paypal")
}

func TestRegistry_UnconfiguredGatewayIsNotCached(t *testing.T) {
	t.Parallel()

	var calls int32
	gw := &stubGateway{name: "mock"}
	r := NewRegistry()
	r.Register("mock", countingFactory(gw, &calls))

	_, err := r.Resolve(context.Background(), "mock")
	require.ErrorIs(t, err, ErrGatewayNotConfigured)

	_, err = r.Resolve(context.Background(), "mock")
	require.ErrorIs(t, err, ErrGatewayNotConfigured)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls), "construction is retried until configured")
}

func TestRegistry_BrokenFactories(t *testing.T) {
	t.Parallel()

	var typedNil *stubGateway

	tests := []struct {
		name    string
		factory Factory
	}{
		{name: "nil factory", factory: nil},
		{name: "factory error", factory: func(ctx context.Context) (Gateway, error) {
			return nil, errors.New("boom")
		}},
		{name: "factory panic", factory: func(ctx context.Context) (Gateway, error) {
			panic("boom")
		}},
		{name: "nil gateway", factory: func(ctx context.Context) (Gateway, error) {
			return nil, nil
		}},
		{name: "typed nil gateway", factory: func(ctx context.Context) (Gateway, error) {
			// IsConfigured dereferences the nil receiver.
			return typedNil, nil
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			r := NewRegistry()
			r.Register("broken", tt.factory)

			gw, err := r.Resolve(context.Background(), "broken")

			assert.Nil(t, gw)
			assert.ErrorIs(t, err, ErrInvalidGatewayImplementation)
			assert.Empty(t, r.ConfiguredGateways(context.Background()))
		})
	}
}

func TestRegistry_ConfiguredGatewaysSkipsFailures(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	r.Register("credit_card", countingFactory(&stubGateway{name: "credit_card", configured: true}, new(int32)))
	r.Register("paypal", countingFactory(&stubGateway{name: "paypal"}, new(int32)))
	r.Register("broken", func(ctx context.Context) (Gateway, error) { return nil, errors.New("boom") })
	r.Register("stripe", countingFactory(&stubGateway{name: "stripe", configured: true}, new(int32)))

	assert.Equal(t, []string{"credit_card", "stripe"}, r.ConfiguredGateways(context.Background()))
}

func TestRegistry_ConcurrentResolveConstructsOnce(t *testing.T) {
	t.Parallel()

	var calls int32
	release := make(chan struct{})
	gw := &stubGateway{name: "mock", configured: true}
	r := NewRegistry()
	r.Register("mock", func(ctx context.Context) (Gateway, error) {
		atomic.AddInt32(&calls, 1)
		<-release
		return gw, nil
	})

	const callers = 32
	var wg sync.WaitGroup
	results := make([]Gateway, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], _ = r.Resolve(context.Background(), "mock")
		}(i)
	}
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	for _, got := range results {
		assert.Same(t, gw, got)
	}
}
