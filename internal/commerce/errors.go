package commerce

import (
	"errors"
	"fmt"
)

var (
	// ErrItemNotFound is returned when a cart line no longer exists remotely.
	ErrItemNotFound = errors.New("commerce: cart item not found")

	// ErrAddressNotFound is returned when an address does not exist.
	ErrAddressNotFound = errors.New("commerce: address not found")

	// ErrOrderNotFound is returned when no order matches a payment reference.
	ErrOrderNotFound = errors.New("commerce: order not found")

	// ErrSessionExpired is returned when the remote rejects the session token.
	ErrSessionExpired = errors.New("commerce: session expired")
)

// APIError is an application-level failure reported by the commerce API.
// Message, when present, is safe to surface to the shopper; callers keep a
// generic fallback ready for when it is empty.
type APIError struct {
	StatusCode int    // HTTP status returned by the API
	Message    string // Human-readable message from the API, may be empty
	Op         string // Operation that failed (e.g., "commerce.update_cart_item")
	Err        error  // Underlying transport error, if any
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s (status %d)", e.Op, e.Message, e.StatusCode)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s: status %d", e.Op, e.StatusCode)
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// ErrorMessage extracts the remote's human-readable message from an error.
// Returns "" when the error carries none, so callers can substitute their
// own fallback.
func ErrorMessage(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Message
	}
	return ""
}

// IsTransient reports whether the failure is likely retryable: transport
// failures and 5xx responses, but not validation or not-found errors.
func IsTransient(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == 0 || apiErr.StatusCode >= 500
	}
	return false
}
