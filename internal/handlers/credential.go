package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"multichat/internal/service"
)

// CredentialHandler handles HTTP requests for provider credentials.
type CredentialHandler struct {
	credentials service.CredentialService
	chatService service.ChatService
}

// NewCredentialHandler creates a new CredentialHandler.
func NewCredentialHandler(credentials service.CredentialService, chatService service.ChatService) *CredentialHandler {
	return &CredentialHandler{
		credentials: credentials,
		chatService: chatService,
	}
}

// SaveCredentialRequest is the body of POST /api/credentials.
type SaveCredentialRequest struct {
	Provider string `json:"provider"`
	Secret   string `json:"secret"`
}

// TestCredentialRequest is the body of POST /api/credentials/test.
type TestCredentialRequest struct {
	Provider string `json:"provider"`
	Secret   string `json:"secret"`
	Model    string `json:"model"`
}

// TestCredentialResponse reports whether a secret works.
type TestCredentialResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// List handles GET /api/credentials.
func (h *CredentialHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	creds, err := h.credentials.List(ctx, userID(r))
	if err != nil {
		handleServiceError(ctx, w, err, "Failed to list credentials")
		return
	}

	resp := make([]CredentialResponse, 0, len(creds))
	for _, c := range creds {
		resp = append(resp, toCredentialResponse(c))
	}
	writeJSON(ctx, w, http.StatusOK, resp)
}

// Save handles POST /api/credentials.
func (h *CredentialHandler) Save(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req SaveCredentialRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	cred, err := h.credentials.Save(ctx, userID(r), service.SaveCredentialRequest{
		Provider: req.Provider,
		Secret:   req.Secret,
	})
	if err != nil {
		handleServiceError(ctx, w, err, "Failed to save credential")
		return
	}
	writeJSON(ctx, w, http.StatusCreated, toCredentialResponse(cred))
}

// Delete handles DELETE /api/credentials/{id}.
func (h *CredentialHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := h.credentials.Delete(ctx, userID(r), chi.URLParam(r, "id")); err != nil {
		handleServiceError(ctx, w, err, "Failed to delete credential")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Test handles POST /api/credentials/test. Failures are reported in the body with status 200.
func (h *CredentialHandler) Test(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req TestCredentialRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if userID(r) == "" {
		handleServiceError(ctx, w, service.ErrUnauthenticated, "")
		return
	}

	res := h.chatService.TestCredential(ctx, service.TestCredentialRequest{
		Provider: req.Provider,
		Secret:   req.Secret,
		Model:    req.Model,
	})
	writeJSON(ctx, w, http.StatusOK, TestCredentialResponse{
		Success: res.Success,
		Message: res.Message,
	})
}
