package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"orderpay/internal/domain"
	"orderpay/internal/gateway"
	"orderpay/internal/repository"
	"orderpay/internal/service"
)

const (
	defaultPerPage = 15
	maxPerPage     = 100
)

var (
	errInvalidRequest    = errors.New("invalid request")
	errPaymentInProgress = errors.New("another payment for this order is in progress")
)

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error     string `json:"error"`
	ErrorCode string `json:"error_code,omitempty"`
	PaymentID string `json:"payment_id,omitempty"`
}

// DataResponse wraps a successful response body.
type DataResponse struct {
	Message string `json:"message,omitempty"`
	Data    any    `json:"data"`
}

// respondError sends an error response with the appropriate HTTP status code
// and attaches err to the request for logging and APM.
func respondError(c *gin.Context, err error) {
	_ = c.Error(err)

	resp := ErrorResponse{Error: err.Error()}

	var declined *service.DeclinedError
	var processing *service.ProcessingError
	switch {
	case errors.As(err, &declined):
		resp.ErrorCode = declined.Code
		resp.PaymentID = declined.PaymentID
	case errors.As(err, &processing):
		resp.ErrorCode = service.CodeProcessingError
		resp.PaymentID = processing.PaymentID
	}

	c.JSON(mapErrorToHTTPStatus(err), resp)
}

// respondJSON sends a JSON response with the given status code.
func respondJSON(c *gin.Context, code int, data any) {
	c.JSON(code, data)
}

// mapErrorToHTTPStatus maps service/repository errors to HTTP status codes.
func mapErrorToHTTPStatus(err error) int {
	switch {
	// Not found errors
	case errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound

	// Validation errors - Bad Request
	case errors.Is(err, errInvalidRequest),
		errors.Is(err, service.ErrInvalidOrderID),
		errors.Is(err, service.ErrInvalidPaymentID),
		errors.Is(err, service.ErrInvalidUserID),
		errors.Is(err, service.ErrEmptyOrder),
		errors.Is(err, service.ErrInvalidOrderItem),
		errors.Is(err, service.ErrInvalidPaymentAmount):
		return http.StatusBadRequest

	// Conflict errors
	case errors.Is(err, domain.ErrInvalidOrderState),
		errors.Is(err, domain.ErrInvalidPaymentState),
		errors.Is(err, errPaymentInProgress):
		return http.StatusConflict

	// Broken gateway wiring is a server fault, checked before the processing
	// failure that wraps it.
	case errors.Is(err, gateway.ErrInvalidGatewayImplementation):
		return http.StatusInternalServerError

	// Payment outcomes and gateway setup - Unprocessable Entity
	case errors.Is(err, gateway.ErrUnknownGateway),
		errors.Is(err, gateway.ErrGatewayNotConfigured),
		errors.Is(err, service.ErrPaymentDeclined),
		errors.Is(err, service.ErrPaymentProcessingFailed),
		errors.Is(err, service.ErrInvalidRefundAmount):
		return http.StatusUnprocessableEntity

	// Default to internal server error
	default:
		return http.StatusInternalServerError
	}
}

// pagination reads page and per_page query parameters.
func pagination(c *gin.Context) (limit, offset int, err error) {
	perPage := defaultPerPage
	if v := c.Query("per_page"); v != "" {
		if perPage, err = strconv.Atoi(v); err != nil || perPage < 1 || perPage > maxPerPage {
			return 0, 0, fmt.Errorf("%w: per_page must be between 1 and %d", errInvalidRequest, maxPerPage)
		}
	}

	page := 1
	if v := c.Query("page"); v != "" {
		if page, err = strconv.Atoi(v); err != nil || page < 1 {
			return 0, 0, fmt.Errorf("%w: page must be a positive integer", errInvalidRequest)
		}
	}

	return perPage, (page - 1) * perPage, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func formatTimePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := formatTime(*t)
	return &s
}
