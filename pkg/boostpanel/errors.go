package boostpanel

import (
	"errors"
	"fmt"
)

// Error represents an error returned by the Boostpanel API
type Error struct {
	StatusCode int    `json:"status_code"`
	Message    string `json:"message"`
	Body       string `json:"body,omitempty"`
	RequestID  string `json:"request_id,omitempty"`
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.RequestID != "" {
		return fmt.Sprintf("boostpanel: %s (status: %d, request_id: %s)", e.Message, e.StatusCode, e.RequestID)
	}
	return fmt.Sprintf("boostpanel: %s (status: %d)", e.Message, e.StatusCode)
}

// IsRetryable returns true if the error might be resolved by retrying
func (e *Error) IsRetryable() bool {
	return e.StatusCode >= 500 || e.StatusCode == 429 // Server errors or rate limiting
}

// IsClientError returns true if the error is due to client input
func (e *Error) IsClientError() bool {
	return e.StatusCode >= 400 && e.StatusCode < 500
}

// IsServerError returns true if the error is due to server issues
func (e *Error) IsServerError() bool {
	return e.StatusCode >= 500
}

// IsAuthError returns true if the error is related to authentication
func (e *Error) IsAuthError() bool {
	return e.StatusCode == 401 || e.StatusCode == 403
}

// IsNotFound returns true if the resource was not found
func (e *Error) IsNotFound() bool {
	return e.StatusCode == 404
}

// IsFatal returns true if retrying cannot help: the caller is unauthorized or
// the resource does not exist. Polling sessions end immediately on these.
func (e *Error) IsFatal() bool {
	return e.IsAuthError() || e.IsNotFound()
}

// Common error types
var (
	ErrInvalidCredentials = &Error{StatusCode: 401, Message: "invalid credentials"}
	ErrAccessDenied       = &Error{StatusCode: 403, Message: "access denied"}
	ErrNotFound           = &Error{StatusCode: 404, Message: "resource not found"}
	ErrServerError        = &Error{StatusCode: 500, Message: "internal server error"}
)

// IsAPIError checks if an error is a Boostpanel API error
func IsAPIError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// IsRetryableError checks if an error is retryable
func IsRetryableError(err error) bool {
	if e, ok := IsAPIError(err); ok {
		return e.IsRetryable()
	}
	return false
}

// IsFatalError checks if an error is fatal for a polling session
func IsFatalError(err error) bool {
	if e, ok := IsAPIError(err); ok {
		return e.IsFatal()
	}
	return false
}

// IsAuthError checks if an error is an authentication error
func IsAuthError(err error) bool {
	if e, ok := IsAPIError(err); ok {
		return e.IsAuthError()
	}
	return false
}
