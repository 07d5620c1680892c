// Package apierror provides the error envelope returned by every 4xx/5xx response.
// Internal details (DB errors, stack traces) never reach this package.
package apierror

// APIError is the canonical error envelope.
// Code carries the machine-readable failure reason when one exists.
type APIError struct {
	Detail string `json:"detail"`
	Code   string `json:"code,omitempty"`
}

func New(msg string) *APIError {
	return &APIError{Detail: msg}
}

// WithCode builds an envelope tagged with a failure reason.
func WithCode(code, msg string) *APIError {
	return &APIError{Detail: msg, Code: code}
}

// ValidationError wraps multiple field errors.
type ValidationError struct {
	Detail string            `json:"detail"`
	Fields map[string]string `json:"fields"`
}

func NewValidation(fields map[string]string) *ValidationError {
	return &ValidationError{Detail: "validation failed", Fields: fields}
}
