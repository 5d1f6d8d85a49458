package llm

import (
	"errors"
	"fmt"
)

var (
	// ErrUpstream is matched by every failure of an upstream provider call.
	ErrUpstream = errors.New("upstream provider error")
	// ErrUnsupportedProvider is returned for provider ids missing from the registry.
	ErrUnsupportedProvider = errors.New("unsupported provider")
)

// UpstreamError describes a failed provider call. StatusCode is 0 when no HTTP response
// was received (transport failure, timeout).
type UpstreamError struct {
	Provider   string
	StatusCode int
	Body       string
	Err        error
}

func (e *UpstreamError) Error() string {
	msg := fmt.Sprintf("%s request failed", e.Provider)
	if e.StatusCode != 0 {
		msg = fmt.Sprintf("%s (status %d)", msg, e.StatusCode)
	}
	if e.Body != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.Body)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

// Unwrap returns the underlying cause, if any.
func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// Is reports ErrUpstream as a match so callers can classify without a type assertion.
func (e *UpstreamError) Is(target error) bool {
	return target == ErrUpstream
}
