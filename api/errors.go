package api

import "fmt"

// NetworkError wraps transport failures: connection errors, timeouts, and
// non-2xx responses other than input rejections. Transient by taxonomy; the
// user may retry, the session never does automatically.
type NetworkError struct {
	Op         string // logical operation, e.g. "fetch page"
	StatusCode int    // HTTP status; 0 when the request never completed
	Err        error  // underlying error, may be nil for bare status failures
}

// Error implements the error interface.
func (e *NetworkError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s: unexpected status %d", e.Op, e.StatusCode)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

// Unwrap enables errors.Is and errors.As on the underlying cause.
func (e *NetworkError) Unwrap() error {
	return e.Err
}

// ValidationError marks a request the server rejected as invalid (HTTP 400
// or 422). Retrying without changing the input will not help.
type ValidationError struct {
	Op         string
	StatusCode int
	Reason     string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("%s: rejected: %s", e.Op, e.Reason)
	}
	return fmt.Sprintf("%s: rejected with status %d", e.Op, e.StatusCode)
}
