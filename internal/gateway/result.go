package gateway

import "maps"

// Result is the immutable outcome of one gateway operation.
// Build it with Success or Failure only.
type Result struct {
	success       bool
	message       string
	transactionID string
	errorCode     string
	response      map[string]any
}

// Success returns an approved Result. It never carries an error code.
func Success(message, transactionID string, response map[string]any) *Result {
	return &Result{
		success:       true,
		message:       message,
		transactionID: transactionID,
		response:      copyResponse(response),
	}
}

// Failure returns a declined or errored Result. It never carries a transaction id.
func Failure(message, errorCode string, response map[string]any) *Result {
	return &Result{
		success:   false,
		message:   message,
		errorCode: errorCode,
		response:  copyResponse(response),
	}
}

// Succeeded reports whether the gateway approved the operation.
func (r *Result) Succeeded() bool { return r.success }

// Message is the human readable outcome.
func (r *Result) Message() string { return r.message }

// TransactionID is empty unless the Result is a success.
func (r *Result) TransactionID() string { return r.transactionID }

// ErrorCode is empty unless the Result is a failure.
func (r *Result) ErrorCode() string { return r.errorCode }

// GatewayResponse returns a copy of the diagnostic payload. Never nil.
func (r *Result) GatewayResponse() map[string]any {
	return copyResponse(r.response)
}

// Map renders the Result for API responses.
func (r *Result) Map() map[string]any {
	m := map[string]any{
		"success":          r.success,
		"message":          r.message,
		"transaction_id":   nil,
		"gateway_response": r.GatewayResponse(),
		"error_code":       nil,
	}
	if r.transactionID != "" {
		m["transaction_id"] = r.transactionID
	}
	if r.errorCode != "" {
		m["error_code"] = r.errorCode
	}
	return m
}

func copyResponse(response map[string]any) map[string]any {
	if response == nil {
		return map[string]any{}
	}
	return maps.Clone(response)
}
