package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"multichat/internal/contextutil"
	"multichat/internal/service"
)

// ChatHandler handles HTTP requests for chat.
type ChatHandler struct {
	chatService service.ChatService
}

// NewChatHandler creates a new ChatHandler.
func NewChatHandler(chatService service.ChatService) *ChatHandler {
	return &ChatHandler{
		chatService: chatService,
	}
}

// SendMessageRequest represents the HTTP request payload for chat.
// Provider and model are optional and fall back to the user's settings.
type SendMessageRequest struct {
	Message  string `json:"message"`
	Provider string `json:"provider"`
	Model    string `json:"model"`
}

// SendMessageResponse represents the HTTP response payload for chat.
type SendMessageResponse struct {
	Reply            string          `json:"reply"`
	Provider         string          `json:"provider"`
	Model            string          `json:"model"`
	UserMessage      MessageResponse `json:"user_message"`
	AssistantMessage MessageResponse `json:"assistant_message"`
}

// SendMessage handles POST /api/conversations/{id}/messages.
func (h *ChatHandler) SendMessage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	var req SendMessageRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	// Convert HTTP request to service request
	svcReq := service.SendMessageRequest{
		ConversationID: chi.URLParam(r, "id"),
		Message:        req.Message,
		Provider:       req.Provider,
		Model:          req.Model,
	}

	svcResp, err := h.chatService.SendMessage(ctx, userID(r), svcReq)
	if err != nil {
		handleServiceError(ctx, w, err, "Failed to process chat request")
		return
	}

	logger.DebugContext(ctx, "message sent", "conversation_id", svcReq.ConversationID, "provider", svcResp.Provider)
	writeJSON(ctx, w, http.StatusOK, SendMessageResponse{
		Reply:            svcResp.Reply,
		Provider:         svcResp.Provider,
		Model:            svcResp.Model,
		UserMessage:      toMessageResponse(svcResp.UserMessage),
		AssistantMessage: toMessageResponse(svcResp.AssistantMessage),
	})
}

// Providers handles GET /api/providers.
func (h *ChatHandler) Providers(w http.ResponseWriter, r *http.Request) {
	specs := h.chatService.Providers()

	resp := make([]ProviderResponse, 0, len(specs))
	for _, p := range specs {
		resp = append(resp, toProviderResponse(p))
	}
	writeJSON(r.Context(), w, http.StatusOK, resp)
}
