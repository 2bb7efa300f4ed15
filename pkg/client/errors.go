package client

import (
	"errors"
	"fmt"
)

// Error codes surfaced by the registration API.
const (
	CodeValidation      = "VALIDATION_FAILED"
	CodeInvalidArgument = "INVALID_ARGUMENT"
	CodeNotFound        = "NOT_FOUND"
	CodeInvalidState    = "INVALID_STATE"
	CodeUnauthorized    = "UNAUTHORIZED"
)

// ErrNoRegistration is returned by FindAndApprove when the email has no
// registration record at all.
var ErrNoRegistration = errors.New("no registration found for email")

// ErrNotPending is returned by FindAndApprove when the registration exists
// but is no longer awaiting a decision.
var ErrNotPending = errors.New("registration is not pending approval")

// APIError is a structured business failure reported by the server. It is a
// legitimate outcome of the request, distinct from a TransportError.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %s (%d): %s", e.Code, e.StatusCode, e.Message)
}

// TransportError marks network-layer failures: timeouts, refused
// connections, and responses that do not match the API's error shape. It is
// never conflated with a business outcome such as "rejected" or "not found".
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport error during %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// IsTransport reports whether err is a transport-layer failure.
func IsTransport(err error) bool {
	var transportErr *TransportError
	return errors.As(err, &transportErr)
}

func hasCode(err error, code string) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Code == code
}

// IsNotFound reports whether the server answered that no record exists.
func IsNotFound(err error) bool { return hasCode(err, CodeNotFound) }

// IsInvalidState reports whether the server refused a transition because the
// record is already in a terminal state.
func IsInvalidState(err error) bool { return hasCode(err, CodeInvalidState) }
