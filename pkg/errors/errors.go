package errors

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
)

// Sentinel errors for the client-side failure taxonomy. Callers branch on
// these with errors.Is rather than inspecting raw transport errors.
var (
	ErrCancelled      = errors.New("request cancelled")
	ErrTimeout        = errors.New("request timed out")
	ErrNetwork        = errors.New("network error")
	ErrSessionExpired = errors.New("session expired")
	ErrLoggedOut      = errors.New("logged out")
	ErrValidation     = errors.New("validation failed")
	ErrServer         = errors.New("server error")
)

// APIError is a structured error produced from an HTTP response or from a
// locally classified transport failure.
type APIError struct {
	Status      int               `json:"status,omitempty"`
	Code        string            `json:"code,omitempty"`
	Message     string            `json:"message"`
	FieldErrors map[string]string `json:"fieldErrors,omitempty"`
	Err         error             `json:"-"`
}

func (e *APIError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("api error (status %d): %s", e.Status, e.Message)
	}
	return e.Message
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// Cancelled creates a cancellation error with the given reason.
func Cancelled(reason string) *APIError {
	if reason == "" {
		reason = "request cancelled"
	}
	return &APIError{Message: reason, Err: ErrCancelled}
}

// Timeout creates a client-side timeout error.
func Timeout() *APIError {
	return &APIError{
		Message: "The request took too long. Please try again.",
		Err:     ErrTimeout,
	}
}

// Network creates a connectivity error wrapping the transport cause.
func Network(cause error) *APIError {
	return &APIError{
		Message: "Unable to reach the server. Please check your connection.",
		Err:     fmt.Errorf("%w: %w", ErrNetwork, cause),
	}
}

// SessionExpired creates the terminal error used when a token refresh fails.
func SessionExpired() *APIError {
	return &APIError{
		Status:  http.StatusUnauthorized,
		Message: "Your session has expired. Please sign in again.",
		Err:     ErrSessionExpired,
	}
}

// LoggedOut creates the error returned when an authenticated endpoint is
// called while the session is in the explicit logged-out state.
func LoggedOut() *APIError {
	return &APIError{
		Status:  http.StatusUnauthorized,
		Message: "You are logged out. Please sign in.",
		Err:     ErrLoggedOut,
	}
}

// Validation creates a field-level validation error.
func Validation(fields map[string]string) *APIError {
	return &APIError{
		Status:      http.StatusUnprocessableEntity,
		Message:     "Some fields are invalid.",
		FieldErrors: fields,
		Err:         ErrValidation,
	}
}

// Server creates an error for a non-2xx response, normalizing the message by
// HTTP status when the server did not supply one.
func Server(status int, message string) *APIError {
	if message == "" {
		message = messageForStatus(status)
	}
	return &APIError{Status: status, Message: message, Err: ErrServer}
}

// messageForStatus maps an HTTP status to the single user-facing message
// shown for that class of failure.
func messageForStatus(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "The request was invalid."
	case http.StatusUnauthorized:
		return "Authentication required."
	case http.StatusForbidden:
		return "You do not have permission to do that."
	case http.StatusNotFound:
		return "The requested resource was not found."
	case http.StatusConflict:
		return "The resource was modified concurrently. Please retry."
	case http.StatusUnprocessableEntity:
		return "The request could not be processed."
	case http.StatusTooManyRequests:
		return "Too many requests. Please slow down."
	default:
		if status >= 500 {
			return "The server encountered an error. Please try again later."
		}
		return "Something went wrong."
	}
}

// Classify translates a transport-level error into the taxonomy. Context
// cancellation maps to ErrCancelled, deadline expiry to ErrTimeout, and
// anything reachable through net.Error to ErrNetwork. Errors that already
// carry an *APIError pass through unchanged.
func Classify(err error) error {
	if err == nil {
		return nil
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return err
	}

	switch {
	case errors.Is(err, context.Canceled):
		return Cancelled("")
	case errors.Is(err, context.DeadlineExceeded):
		return Timeout()
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		if urlErr.Timeout() {
			return Timeout()
		}
		return Network(err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return Timeout()
		}
		return Network(err)
	}

	return &APIError{Message: "An unexpected error occurred.", Err: err}
}

// IsAuthFailure reports whether err is a 401 response eligible for the token
// refresh path. Locally classified failures (timeout, network, cancellation)
// are never auth failures.
func IsAuthFailure(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	if errors.Is(err, ErrTimeout) || errors.Is(err, ErrNetwork) || errors.Is(err, ErrCancelled) {
		return false
	}
	return apiErr.Status == http.StatusUnauthorized
}

// Wrap wraps an error with additional context.
func Wrap(err error, message string) error {
	return fmt.Errorf("%s: %w", message, err)
}
