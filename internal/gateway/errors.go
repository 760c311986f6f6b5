package gateway

import "errors"

var (
	// ErrUnknownGateway is returned when no factory is registered under a name.
	ErrUnknownGateway = errors.New("unknown payment gateway")

	// ErrInvalidGatewayImplementation is returned when a factory fails, panics
	// or produces no usable gateway.
	ErrInvalidGatewayImplementation = errors.New("invalid payment gateway implementation")

	// ErrGatewayNotConfigured is returned when a gateway has no active, complete configuration.
	ErrGatewayNotConfigured = errors.New("payment gateway not configured")

	errNotConfigured = errors.New("gateway configuration missing")
)

// Error codes carried by failure Results.
const (
	CodeGatewayError           = "GATEWAY_ERROR"
	CodeNotImplemented         = "NOT_IMPLEMENTED"
	CodeInsufficientFunds      = "INSUFFICIENT_FUNDS"
	CodeVerificationRequired   = "VERIFICATION_REQUIRED"
	CodeCardDeclined           = "card_declined"
	CodeAuthenticationRequired = "authentication_required"
)
