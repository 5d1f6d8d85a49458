package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"multichat/internal/contextutil"
	"multichat/internal/llm"
	"multichat/internal/service"
)

// maxBodyBytes caps decoded request bodies.
const maxBodyBytes = 1 << 20

// Error kinds reported in ErrorResponse.Kind.
const (
	KindUnauthenticated     = "unauthenticated"
	KindValidation          = "validation"
	KindNotFound            = "not_found"
	KindConfiguration       = "configuration"
	KindUnsupportedProvider = "unsupported_provider"
	KindUpstream            = "upstream"
	KindConsistency         = "consistency"
	KindInternal            = "internal"
)

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
	// UpstreamStatus is the status code returned by the provider, when there was one.
	UpstreamStatus int `json:"upstream_status,omitempty"`
}

// writeJSON writes v with the given status code.
func writeJSON(ctx context.Context, w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		contextutil.LoggerFromContext(ctx).ErrorContext(ctx, "failed to encode response", "error", err)
	}
}

// writeError writes an error response.
func writeError(w http.ResponseWriter, statusCode int, kind, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(ErrorResponse{
		Error: message,
		Kind:  kind,
	})
}

// decodeJSON decodes a bounded JSON request body into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		ctx := r.Context()
		contextutil.LoggerFromContext(ctx).WarnContext(ctx, "invalid request body", "error", err)
		writeError(w, http.StatusBadRequest, KindValidation, "Invalid request body")
		return false
	}
	return true
}

// handleServiceError maps service errors to appropriate HTTP status codes and responses.
func handleServiceError(ctx context.Context, w http.ResponseWriter, err error, defaultMsg string) {
	logger := contextutil.LoggerFromContext(ctx)

	var validationErr *service.ValidationError
	var upstreamErr *llm.UpstreamError

	switch {
	case errors.Is(err, service.ErrUnauthenticated):
		logger.WarnContext(ctx, "unauthenticated request")
		writeError(w, http.StatusUnauthorized, KindUnauthenticated, "Authentication required")

	case errors.As(err, &validationErr):
		logger.WarnContext(ctx, "validation error", "error", err)
		writeError(w, http.StatusBadRequest, KindValidation, validationErr.Error())

	case errors.Is(err, service.ErrInvalidInput):
		logger.WarnContext(ctx, "invalid input", "error", err)
		writeError(w, http.StatusBadRequest, KindValidation, "Invalid input")

	case errors.Is(err, service.ErrUnsupportedProvider):
		logger.WarnContext(ctx, "unsupported provider", "error", err)
		writeError(w, http.StatusBadRequest, KindUnsupportedProvider, err.Error())

	case errors.Is(err, service.ErrNotFound):
		writeError(w, http.StatusNotFound, KindNotFound, "Resource not found")

	case errors.Is(err, service.ErrNoCredential):
		logger.WarnContext(ctx, "missing credential", "error", err)
		writeError(w, http.StatusUnprocessableEntity, KindConfiguration, err.Error())

	case errors.As(err, &upstreamErr):
		logger.ErrorContext(ctx, "upstream provider error", "error", err)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadGateway)
		_ = json.NewEncoder(w).Encode(ErrorResponse{
			Error:          upstreamErr.Error(),
			Kind:           KindUpstream,
			UpstreamStatus: upstreamErr.StatusCode,
		})

	case errors.Is(err, service.ErrUpstream):
		logger.ErrorContext(ctx, "upstream provider error", "error", err)
		writeError(w, http.StatusBadGateway, KindUpstream, err.Error())

	case errors.Is(err, service.ErrConsistencyViolation):
		logger.ErrorContext(ctx, "consistency violation", "error", err)
		writeError(w, http.StatusInternalServerError, KindConsistency, defaultMsg)

	default:
		logger.ErrorContext(ctx, "service error", "error", err)
		writeError(w, http.StatusInternalServerError, KindInternal, defaultMsg)
	}
}

// userID returns the authenticated user id placed in the context by the auth middleware.
func userID(r *http.Request) string {
	return contextutil.UserIDFromContext(r.Context())
}
