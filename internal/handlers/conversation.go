package handlers

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"multichat/internal/service"
)

// ConversationHandler handles HTTP requests for conversations, branches and exports.
type ConversationHandler struct {
	conversations service.ConversationService
}

// NewConversationHandler creates a new ConversationHandler.
func NewConversationHandler(conversations service.ConversationService) *ConversationHandler {
	return &ConversationHandler{conversations: conversations}
}

// CreateConversationRequest is the body of POST /api/conversations.
type CreateConversationRequest struct {
	Title string `json:"title"`
}

// RenameConversationRequest is the body of PATCH /api/conversations/{id}.
type RenameConversationRequest struct {
	Title string `json:"title"`
}

// CreateBranchRequest is the body of POST /api/conversations/{id}/branches.
type CreateBranchRequest struct {
	BranchFromMessageID string `json:"branch_from_message_id"`
	Name                string `json:"name"`
}

// List handles GET /api/conversations.
func (h *ConversationHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	convs, err := h.conversations.List(ctx, userID(r))
	if err != nil {
		handleServiceError(ctx, w, err, "Failed to list conversations")
		return
	}

	resp := make([]ConversationResponse, 0, len(convs))
	for _, c := range convs {
		resp = append(resp, toConversationResponse(c))
	}
	writeJSON(ctx, w, http.StatusOK, resp)
}

// Create handles POST /api/conversations. An empty body creates an untitled conversation.
func (h *ConversationHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req CreateConversationRequest
	if r.ContentLength != 0 && !decodeJSON(w, r, &req) {
		return
	}

	conv, err := h.conversations.Create(ctx, userID(r), req.Title)
	if err != nil {
		handleServiceError(ctx, w, err, "Failed to create conversation")
		return
	}
	writeJSON(ctx, w, http.StatusCreated, toConversationResponse(conv))
}

// Get handles GET /api/conversations/{id}.
func (h *ConversationHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	detail, err := h.conversations.Get(ctx, userID(r), chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(ctx, w, err, "Failed to get conversation")
		return
	}

	resp := ConversationDetailResponse{
		ConversationResponse: toConversationResponse(detail.Conversation),
		Messages:             make([]MessageResponse, 0, len(detail.Messages)),
	}
	for _, m := range detail.Messages {
		resp.Messages = append(resp.Messages, toMessageResponse(m))
	}
	writeJSON(ctx, w, http.StatusOK, resp)
}

// Rename handles PATCH /api/conversations/{id}.
func (h *ConversationHandler) Rename(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req RenameConversationRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	conv, err := h.conversations.Rename(ctx, userID(r), chi.URLParam(r, "id"), req.Title)
	if err != nil {
		handleServiceError(ctx, w, err, "Failed to rename conversation")
		return
	}
	writeJSON(ctx, w, http.StatusOK, toConversationResponse(conv))
}

// Delete handles DELETE /api/conversations/{id}.
func (h *ConversationHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := h.conversations.Delete(ctx, userID(r), chi.URLParam(r, "id")); err != nil {
		handleServiceError(ctx, w, err, "Failed to delete conversation")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Duplicate handles POST /api/conversations/{id}/duplicate.
func (h *ConversationHandler) Duplicate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	conv, err := h.conversations.Duplicate(ctx, userID(r), chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(ctx, w, err, "Failed to duplicate conversation")
		return
	}
	writeJSON(ctx, w, http.StatusCreated, toConversationResponse(conv))
}

// ListBranches handles GET /api/conversations/{id}/branches.
func (h *ConversationHandler) ListBranches(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	branches, err := h.conversations.ListBranches(ctx, userID(r), chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(ctx, w, err, "Failed to list branches")
		return
	}

	resp := make([]BranchResponse, 0, len(branches))
	for _, b := range branches {
		resp = append(resp, toBranchResponse(b))
	}
	writeJSON(ctx, w, http.StatusOK, resp)
}

// CreateBranch handles POST /api/conversations/{id}/branches.
func (h *ConversationHandler) CreateBranch(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req CreateBranchRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	res, err := h.conversations.CreateBranch(ctx, userID(r), service.CreateBranchRequest{
		ConversationID:      chi.URLParam(r, "id"),
		BranchFromMessageID: req.BranchFromMessageID,
		Name:                req.Name,
	})
	if err != nil {
		handleServiceError(ctx, w, err, "Failed to create branch")
		return
	}
	writeJSON(ctx, w, http.StatusCreated, CreateBranchResponse{
		Branch:       toBranchResponse(res.Branch),
		Conversation: toConversationResponse(res.Conversation),
	})
}

// Export handles GET /api/conversations/{id}/export?format=json|markdown|html.
func (h *ConversationHandler) Export(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	doc, err := h.conversations.Export(ctx, userID(r), chi.URLParam(r, "id"), r.URL.Query().Get("format"))
	if err != nil {
		handleServiceError(ctx, w, err, "Failed to export conversation")
		return
	}

	w.Header().Set("Content-Type", doc.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", doc.Filename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(doc.Body)
}
