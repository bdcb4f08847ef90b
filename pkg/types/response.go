// Package types holds the JSON envelope shared by every API response.
// Success payloads nest under "data", failures under "error", so clients
// can branch on the top-level key alone.
package types

// SuccessEnvelope wraps a successful response body.
type SuccessEnvelope struct {
	Data any `json:"data"`
}

// APIError is the caller-visible failure shape. Code is the stable
// machine-readable identifier; Message may vary between releases.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// ErrorEnvelope wraps a failure response body.
type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

// NewErrorEnvelope assembles the failure envelope. Details stay nil
// unless the caller decided the code may expose them.
func NewErrorEnvelope(code, message string, details any) ErrorEnvelope {
	return ErrorEnvelope{Error: APIError{Code: code, Message: message, Details: details}}
}
