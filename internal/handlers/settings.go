package handlers

import (
	"net/http"

	"multichat/internal/service"
)

// SettingsHandler handles HTTP requests for user settings.
type SettingsHandler struct {
	settings service.SettingsService
}

// NewSettingsHandler creates a new SettingsHandler.
func NewSettingsHandler(settings service.SettingsService) *SettingsHandler {
	return &SettingsHandler{settings: settings}
}

// UpdateSettingsRequest is the body of PATCH /api/settings. Omitted fields are unchanged.
type UpdateSettingsRequest struct {
	DefaultProvider *string  `json:"default_provider"`
	DefaultModel    *string  `json:"default_model"`
	Temperature     *float64 `json:"temperature"`
	MaxTokens       *int     `json:"max_tokens"`
	SystemPrompt    *string  `json:"system_prompt"`
	Theme           *string  `json:"theme"`
}

// Get handles GET /api/settings.
func (h *SettingsHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	s, err := h.settings.Get(ctx, userID(r))
	if err != nil {
		handleServiceError(ctx, w, err, "Failed to get settings")
		return
	}
	writeJSON(ctx, w, http.StatusOK, toSettingsResponse(s))
}

// Update handles PATCH /api/settings.
func (h *SettingsHandler) Update(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req UpdateSettingsRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	s, err := h.settings.Update(ctx, userID(r), service.UpdateSettingsRequest(req))
	if err != nil {
		handleServiceError(ctx, w, err, "Failed to update settings")
		return
	}
	writeJSON(ctx, w, http.StatusOK, toSettingsResponse(s))
}
