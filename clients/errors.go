package clients

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// HTTPError is a non-2xx answer the backend did not explain in a checkout
// or status body.
type HTTPError struct {
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("backend returned %d: %s", e.StatusCode, e.Body)
}

// Temporary reports whether the same request may succeed later.
func (e *HTTPError) Temporary() bool {
	return e.StatusCode >= 500 ||
		e.StatusCode == http.StatusTooManyRequests ||
		e.StatusCode == http.StatusRequestTimeout
}

// TransportError means no response was received.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("backend unreachable: %v", e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// Temporary is false for cancellations so callers stop retrying.
// Per-call timeouts stay temporary.
func (e *TransportError) Temporary() bool {
	return !errors.Is(e.Err, context.Canceled)
}
