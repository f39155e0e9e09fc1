package triton

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors for common conditions.
var (
	// ErrNoBaseURL is returned when the server URL is missing.
	ErrNoBaseURL = errors.New("triton: base URL required")

	// ErrNoModel is returned when the model name is missing.
	ErrNoModel = errors.New("triton: model required")

	// ErrNoInputs is returned when the model declares no inputs.
	ErrNoInputs = errors.New("triton: model declares no inputs")

	// ErrShapeMismatch is returned when a tensor doesn't fit the declared input.
	ErrShapeMismatch = errors.New("triton: input shape mismatch")

	// ErrOutputMissing is returned when a declared output is absent from the response.
	ErrOutputMissing = errors.New("triton: output missing from response")

	// ErrNotReady is returned when the server or model reports not ready.
	ErrNotReady = errors.New("triton: not ready")
)

// APIError is a non-2xx response from the server.
type APIError struct {
	// StatusCode is the HTTP status code.
	StatusCode int

	// Message is the server's error text.
	Message string

	// Model the request was for.
	Model string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Model != "" {
		return fmt.Sprintf("triton [%s]: API error %d: %s", e.Model, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("triton: API error %d: %s", e.StatusCode, e.Message)
}

// IsNotFound returns true if the model or endpoint does not exist (HTTP 404).
func (e *APIError) IsNotFound() bool {
	return e.StatusCode == http.StatusNotFound
}

// IsBadRequest returns true if the server rejected the request (HTTP 400),
// typically a shape or datatype the model does not accept.
func (e *APIError) IsBadRequest() bool {
	return e.StatusCode == http.StatusBadRequest
}

// IsServerError returns true if this is a server-side error (HTTP 5xx).
func (e *APIError) IsServerError() bool {
	return e.StatusCode >= 500 && e.StatusCode < 600
}

// OpError wraps a transport or codec failure with the operation that failed.
type OpError struct {
	Op  string
	Err error
}

// Error implements the error interface.
func (e *OpError) Error() string {
	return fmt.Sprintf("triton %s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error.
func (e *OpError) Unwrap() error {
	return e.Err
}

func wrapOp(op string, err error) error {
	if err == nil {
		return nil
	}
	return &OpError{Op: op, Err: err}
}
