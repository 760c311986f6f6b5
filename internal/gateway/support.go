package gateway

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	mathrand "math/rand/v2"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/newrelic/go-agent/v3/newrelic"
	"go.uber.org/zap"
)

var configValidator = validator.New()

// Option customizes the gateways built by this package.
type Option func(*options)

type options struct {
	roll func(n int) int
}

// WithRoll replaces the random source of the simulated processors.
// fn must return a number in [1, n].
func WithRoll(fn func(n int) int) Option {
	return func(o *options) {
		o.roll = fn
	}
}

// Support bundles what every gateway needs: scoped logging, configuration
// loading, transaction ids and fault containment.
type Support struct {
	name   string
	label  string
	logger *zap.Logger
	roll   func(n int) int
}

// NewSupport creates the helper for the gateway called name.
// label is the display name used in messages.
func NewSupport(name, label string, logger *zap.Logger, opts ...Option) *Support {
	o := options{
		roll: func(n int) int { return mathrand.IntN(n) + 1 },
	}
	for _, opt := range opts {
		opt(&o)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Support{
		name:   name,
		label:  label,
		logger: logger.With(zap.String("gateway", name)),
		roll:   o.roll,
	}
}

// Logger returns the logger scoped to the gateway.
func (s *Support) Logger() *zap.Logger {
	return s.logger
}

// LoadConfig fetches the active configuration, decodes it into dst and checks
// its `validate` tags. It reports whether dst now holds a usable configuration.
func (s *Support) LoadConfig(ctx context.Context, src ConfigSource, dst any) bool {
	if src == nil {
		return false
	}

	cfg, err := src.GetActiveByName(ctx, s.name)
	if err != nil {
		s.logger.Warn("failed to load gateway configuration", zap.Error(err))
		return false
	}
	if cfg == nil || !cfg.Active {
		s.logger.Debug("no active gateway configuration")
		return false
	}

	if err := json.Unmarshal(cfg.Settings, dst); err != nil {
		s.logger.Warn("gateway configuration is not valid JSON", zap.Error(err))
		return false
	}
	if err := configValidator.Struct(dst); err != nil {
		s.logger.Warn("gateway configuration is incomplete", zap.Error(err))
		return false
	}

	return true
}

// TransactionID returns a new time-ordered id prefixed with the gateway name.
func (s *Support) TransactionID() string {
	return s.name + "_" + uuid.Must(uuid.NewV7()).String()
}

// Roll returns a simulated dice roll in [1, n].
func (s *Support) Roll(n int) int {
	return s.roll(n)
}

// RandomHex returns 2n random hex characters.
func (s *Support) RandomHex(n int) string {
	b := make([]byte, n)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}

// RefundNotImplemented is the refund outcome of a gateway without refund
// support. The message names the gateway.
func RefundNotImplemented(name string) *Result {
	return Failure(fmt.Sprintf("Refund not implemented for %s", name), CodeNotImplemented, nil)
}

// Guard runs one simulated processor call. Errors, panics, a nil Result and
// a cancelled context all become a GATEWAY_ERROR failure.
func (s *Support) Guard(ctx context.Context, op string, log *zap.Logger, fn func() (*Result, error)) (result *Result) {
	if txn := newrelic.FromContext(ctx); txn != nil {
		defer txn.StartSegment("gateway/" + s.name + "/" + op).End()
	}

	defer func() {
		if r := recover(); r != nil {
			log.Error(s.label+" "+op+" panicked", zap.Any("panic", r))
			result = s.gatewayError(fmt.Errorf("%v", r))
		}
	}()

	if err := ctx.Err(); err != nil {
		log.Error(s.label+" "+op+" aborted", zap.Error(err))
		return s.gatewayError(err)
	}

	result, err := fn()
	if err != nil {
		log.Error(s.label+" "+op+" exception", zap.Error(err))
		return s.gatewayError(err)
	}
	if result == nil {
		log.Error(s.label + " " + op + " returned no result")
		return s.gatewayError(fmt.Errorf("no result"))
	}

	return result
}

func (s *Support) gatewayError(err error) *Result {
	return Failure(
		fmt.Sprintf("%s processing error: %s", s.label, err.Error()),
		CodeGatewayError,
		map[string]any{"error": err.Error()},
	)
}
