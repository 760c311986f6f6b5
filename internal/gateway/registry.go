package gateway

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// Factory constructs a gateway. The registry calls it lazily, at most once per
// name until the name is registered again.
type Factory func(ctx context.Context) (Gateway, error)

// Registry maps gateway names to factories and caches one configured instance
// per name for the life of the process. Create it once and share it.
type Registry struct {
	mu          sync.RWMutex
	names       []string
	factories   map[string]Factory
	generations map[string]uint64
	instances   map[string]Gateway

	flights singleflight.Group
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		factories:   make(map[string]Factory),
		generations: make(map[string]uint64),
		instances:   make(map[string]Gateway),
	}
}

// NewDefaultRegistry registers the credit card, PayPal and Stripe gateways.
func NewDefaultRegistry(configs ConfigSource, logger *zap.Logger, opts ...Option) *Registry {
	r := NewRegistry()
	r.Register(CardGatewayName, NewCardFactory(configs, logger, opts...))
	r.Register(PayPalGatewayName, NewPayPalFactory(configs, logger, opts...))
	r.Register(StripeGatewayName, NewStripeFactory(configs, logger, opts...))
	return r
}

// Register adds or replaces the factory for name and evicts any cached instance.
// A replaced name keeps its position in Available.
func (r *Registry) Register(name string, factory Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.factories[name]; !ok {
		r.names = append(r.names, name)
	}
	r.factories[name] = factory
	r.generations[name]++
	delete(r.instances, name)
}

// Available returns every registered name in registration order.
func (r *Registry) Available() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, len(r.names))
	copy(names, r.names)
	return names
}

// Has reports whether name is registered.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.factories[name]
	return ok
}

// Resolve returns the configured gateway registered under name.
//
// Errors wrap ErrUnknownGateway, ErrInvalidGatewayImplementation or
// ErrGatewayNotConfigured. Only configured instances are cached, and
// concurrent callers share a single construction.
func (r *Registry) Resolve(ctx context.Context, name string) (Gateway, error) {
	r.mu.RLock()
	if gw, ok := r.instances[name]; ok {
		r.mu.RUnlock()
		return gw, nil
	}
	factory, registered := r.factories[name]
	generation := r.generations[name]
	r.mu.RUnlock()

	if !registered {
		return nil, fmt.Errorf("%w: payment gateway %q is not registered. Available gateways: %s",
			ErrUnknownGateway, name, strings.Join(r.Available(), ", "))
	}

	key := fmt.Sprintf("%s#%d", name, generation)
	v, err, _ := r.flights.Do(key, func() (any, error) {
		if gw, ok := r.cached(name, generation); ok {
			return gw, nil
		}

		gw, configured, err := construct(ctx, name, factory)
		if err != nil {
			return nil, err
		}
		if !configured {
			return nil, fmt.Errorf("%w: payment gateway %q is not properly configured", ErrGatewayNotConfigured, name)
		}

		r.mu.Lock()
		if r.generations[name] == generation {
			r.instances[name] = gw
		}
		r.mu.Unlock()

		return gw, nil
	})
	if err != nil {
		return nil, err
	}

	return v.(Gateway), nil
}

// ConfiguredGateways returns the names that currently resolve. Gateways that
// fail to construct or are not configured are left out without error.
func (r *Registry) ConfiguredGateways(ctx context.Context) []string {
	configured := make([]string, 0)
	for _, name := range r.Available() {
		if _, err := r.Resolve(ctx, name); err == nil {
			configured = append(configured, name)
		}
	}
	return configured
}

func (r *Registry) cached(name string, generation uint64) (Gateway, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.generations[name] != generation {
		return nil, false
	}
	gw, ok := r.instances[name]
	return gw, ok
}

// construct builds the gateway and asks whether it is configured. A factory
// that fails, panics or yields a gateway that cannot answer is reported as
// ErrInvalidGatewayImplementation.
func construct(ctx context.Context, name string, factory Factory) (gw Gateway, configured bool, err error) {
	if factory == nil {
		return nil, false, fmt.Errorf("%w: no factory for %q", ErrInvalidGatewayImplementation, name)
	}

	defer func() {
		if p := recover(); p != nil {
			gw, configured = nil, false
			err = fmt.Errorf("%w: constructing %q panicked: %v", ErrInvalidGatewayImplementation, name, p)
		}
	}()

	gw, err = factory(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("%w: constructing %q: %w", ErrInvalidGatewayImplementation, name, err)
	}
	if gw == nil {
		return nil, false, fmt.Errorf("%w: factory for %q returned no gateway", ErrInvalidGatewayImplementation, name)
	}

	return gw, gw.IsConfigured(), nil
}
