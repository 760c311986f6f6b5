package handler

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"orderpay/internal/domain"
	"orderpay/internal/gateway"
	"orderpay/internal/repository"
	"orderpay/internal/service"
)

func TestMapErrorToHTTPStatus(t *testing.T) {
	t.Parallel()

	tests := []struct {
		err  error
		want int
	}{
		{repository.ErrNotFound, http.StatusNotFound},
		{fmt.Errorf("%w: bad page", errInvalidRequest), http.StatusBadRequest},
		{service.ErrEmptyOrder, http.StatusBadRequest},
		{service.ErrInvalidPaymentAmount, http.StatusBadRequest},
		{fmt.Errorf("%w: confirmed", domain.ErrInvalidOrderState), http.StatusConflict},
		{domain.ErrInvalidPaymentState, http.StatusConflict},
		{errPaymentInProgress, http.StatusConflict},
		{&service.DeclinedError{Code: gateway.CodeCardDeclined}, http.StatusUnprocessableEntity},
		{&service.ProcessingError{Cause: errors.New("timeout")}, http.StatusUnprocessableEntity},
		{&service.ProcessingError{Cause: fmt.Errorf("%w: x", gateway.ErrUnknownGateway)}, http.StatusUnprocessableEntity},
		{&service.ProcessingError{Cause: fmt.Errorf("%w: x", gateway.ErrInvalidGatewayImplementation)}, http.StatusInternalServerError},
		{service.ErrInvalidRefundAmount, http.StatusUnprocessableEntity},
		{errors.New("connection reset"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, mapErrorToHTTPStatus(tt.err), tt.err.Error())
	}
}

func TestCardExpiryValid(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, time.March, 31, 23, 0, 0, 0, time.UTC)

	assert.True(t, cardExpiryValid("03/26", now), "valid through the end of its month")
	assert.True(t, cardExpiryValid("12/30", now))
	assert.False(t, cardExpiryValid("02/26", now))
	assert.False(t, cardExpiryValid("3/26", now))
	assert.False(t, cardExpiryValid("00/26", now))
	assert.False(t, cardExpiryValid("13/26", now))
	assert.False(t, cardExpiryValid("03/26", now.Add(2*time.Hour)))
}

func TestProcessPaymentRequest_GatewayFields(t *testing.T) {
	t.Parallel()
	RegisterValidators()

	card := func(number, expiry, cvv string) ProcessPaymentRequest {
		return ProcessPaymentRequest{
			PaymentMethod: gateway.CardGatewayName,
			CardNumber:    number,
			CardExpiry:    expiry,
			CardCVV:       cvv,
		}
	}

	tests := []struct {
		name    string
		req     ProcessPaymentRequest
		wantTag string
	}{
		{"valid card", card("4111111111111111", "12/45", "123"), ""},
		{"card number too short", card("4111", "12/45", "123"), "min"},
		{"card number not digits", card("4111-1111-1111-1111", "12/45", "123"), "number"},
		{"missing card number", card("", "12/45", "123"), "required_if"},
		{"bad expiry month", card("4111111111111111", "13/45", "123"), "card_expiry"},
		{"expired card", card("4111111111111111", "01/20", "123"), "card_expiry"},
		{"short cvv", card("4111111111111111", "12/45", "12"), "len"},
		{"stripe with method id", ProcessPaymentRequest{PaymentMethod: gateway.StripeGatewayName, PaymentMethodID: "pm_card_visa"}, ""},
		{"stripe without method id", ProcessPaymentRequest{PaymentMethod: gateway.StripeGatewayName}, "required_if"},
		{"stripe with card fields", ProcessPaymentRequest{PaymentMethod: gateway.StripeGatewayName, PaymentMethodID: "pm_1", CardCVV: "123"}, "excluded_unless"},
		{"paypal", ProcessPaymentRequest{PaymentMethod: gateway.PayPalGatewayName}, ""},
		{"paypal with card number", ProcessPaymentRequest{PaymentMethod: gateway.PayPalGatewayName, CardNumber: "4111111111111111"}, "excluded_unless"},
		{"no method", ProcessPaymentRequest{}, "required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := binding.Validator.ValidateStruct(&tt.req)
			if tt.wantTag == "" {
				assert.NoError(t, err)
				return
			}

			var verrs validator.ValidationErrors
			require.ErrorAs(t, err, &verrs)
			assert.Equal(t, tt.wantTag, verrs[0].Tag())
		})
	}
}

func TestValidatePaymentAmount(t *testing.T) {
	t.Parallel()

	for _, amount := range []string{"0.01", "10", "999999.99"} {
		d := decimal.RequireFromString(amount)
		assert.NoError(t, validatePaymentAmount(&d), amount)
	}
	for _, amount := range []string{"0", "0.009", "-1", "1000000.00"} {
		d := decimal.RequireFromString(amount)
		assert.ErrorIs(t, validatePaymentAmount(&d), errInvalidRequest, amount)
	}
	assert.NoError(t, validatePaymentAmount(nil))
}
