package service

import (
	"errors"
	"fmt"

	"multichat/internal/llm"
	"multichat/internal/storage"
)

var (
	// ErrInvalidInput is returned when input validation fails.
	ErrInvalidInput = errors.New("invalid input")
	// ErrNotFound is returned when a requested resource is missing or owned by another user.
	ErrNotFound = errors.New("not found")
	// ErrUnauthenticated is returned when no user identity is available.
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrNoCredential is returned when the user has no active credential for the provider.
	ErrNoCredential = errors.New("no active credential for provider")
	// ErrConsistencyViolation is returned when a write would break a log invariant.
	ErrConsistencyViolation = errors.New("consistency violation")
	// ErrUnsupportedProvider is returned for provider ids missing from the registry.
	ErrUnsupportedProvider = llm.ErrUnsupportedProvider
	// ErrUpstream is matched by every failed provider call; the cause is an *llm.UpstreamError.
	ErrUpstream = llm.ErrUpstream
)

// ValidationError represents a validation error with a field name.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error on field %s: %s", e.Field, e.Message)
}

// Is makes validation errors match ErrInvalidInput.
func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidInput
}

// WrapError wraps an error with additional context.
func WrapError(err error, msg string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", msg, err)
}

// storeError translates storage errors into the service taxonomy and adds context.
func storeError(err error, msg string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, storage.ErrNotFound):
		return fmt.Errorf("%s: %w", msg, ErrNotFound)
	case errors.Is(err, storage.ErrConflict):
		return fmt.Errorf("%s: %w: %v", msg, ErrConsistencyViolation, err)
	default:
		return WrapError(err, msg)
	}
}

func requireUser(userID string) error {
	if userID == "" {
		return ErrUnauthenticated
	}
	return nil
}
