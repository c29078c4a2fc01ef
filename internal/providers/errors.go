package providers

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// ProviderError is the only failure type that leaves a provider client. The
// raw response body stays in the client; Message is safe to show users.
type ProviderError struct {
	Provider   string
	Op         string
	Message    string
	StatusCode int
	// Transient marks failures worth retrying on non-mutating calls:
	// timeouts, connection errors, 429 and 5xx.
	Transient bool
	// Accepted marks a 2xx answer the client could not read. A mutating call
	// may have taken effect.
	Accepted bool
	Err      error
}

func (e *ProviderError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s %s failed (%d): %s", e.Provider, e.Op, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s %s failed: %s", e.Provider, e.Op, e.Message)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// IsTransient reports whether err is a retryable provider failure.
func IsTransient(err error) bool {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Transient
	}
	return false
}

// IsAccepted reports whether the provider acknowledged the call even though
// its answer was unusable.
func IsAccepted(err error) bool {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Accepted
	}
	return false
}

// MessageOf returns the user-safe message of err.
func MessageOf(err error) string {
	var pe *ProviderError
	if errors.As(err, &pe) && pe.Message != "" {
		return pe.Message
	}
	return "provider unavailable"
}

// TransportError wraps a failure to reach the provider at all.
func TransportError(provider, op string, err error) *ProviderError {
	pe := &ProviderError{Provider: provider, Op: op, Message: "provider unavailable", Transient: true, Err: err}
	if errors.Is(err, context.DeadlineExceeded) {
		pe.Message = "provider timed out"
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		pe.Message = "provider timed out"
	}
	return pe
}

// StatusError classifies a non-2xx HTTP answer.
func StatusError(provider, op string, status int, message string) *ProviderError {
	if message == "" {
		message = fmt.Sprintf("unexpected status %d", status)
	}
	return &ProviderError{
		Provider:   provider,
		Op:         op,
		Message:    message,
		StatusCode: status,
		Transient:  status == 429 || status >= 500,
	}
}
