package handlers

import (
	"time"

	"multichat/internal/llm"
	"multichat/internal/service"
)

// MessageResponse is a stored message.
type MessageResponse struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversation_id"`
	Content        string    `json:"content"`
	Role           string    `json:"role"`
	Provider       string    `json:"provider,omitempty"`
	Model          string    `json:"model,omitempty"`
	MessageIndex   int       `json:"message_index"`
	CreatedAt      time.Time `json:"created_at"`
}

// ConversationResponse is a conversation summary.
type ConversationResponse struct {
	ID                  string    `json:"id"`
	Title               string    `json:"title"`
	BranchFromMessageID string    `json:"branch_from_message_id,omitempty"`
	MessageCount        int       `json:"message_count"`
	CreatedAt           time.Time `json:"created_at"`
	UpdatedAt           time.Time `json:"updated_at"`
}

// ConversationDetailResponse is a conversation with its messages in index order.
type ConversationDetailResponse struct {
	ConversationResponse
	Messages []MessageResponse `json:"messages"`
}

// BranchResponse links a parent conversation to a branch.
type BranchResponse struct {
	ID                   string    `json:"id"`
	ParentConversationID string    `json:"parent_conversation_id"`
	BranchConversationID string    `json:"branch_conversation_id"`
	BranchFromMessageID  string    `json:"branch_from_message_id"`
	Name                 string    `json:"name"`
	IsActive             bool      `json:"is_active"`
	CreatedAt            time.Time `json:"created_at"`
}

// CreateBranchResponse is a created branch and its conversation.
type CreateBranchResponse struct {
	Branch       BranchResponse       `json:"branch"`
	Conversation ConversationResponse `json:"conversation"`
}

// CredentialResponse is a stored credential. Secrets are never returned.
type CredentialResponse struct {
	ID        string    `json:"id"`
	Provider  string    `json:"provider"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}

// SettingsResponse holds the user's chat preferences.
type SettingsResponse struct {
	DefaultProvider string  `json:"default_provider"`
	DefaultModel    string  `json:"default_model"`
	Temperature     float64 `json:"temperature"`
	MaxTokens       int     `json:"max_tokens"`
	SystemPrompt    string  `json:"system_prompt"`
	Theme           string  `json:"theme"`
}

// ProviderResponse is one provider registry entry.
type ProviderResponse struct {
	ID      string   `json:"id"`
	Name    string   `json:"name"`
	Dialect string   `json:"dialect"`
	Models  []string `json:"models"`
}

func toMessageResponse(m service.Message) MessageResponse {
	return MessageResponse{
		ID:             m.ID,
		ConversationID: m.ConversationID,
		Content:        m.Content,
		Role:           m.Role,
		Provider:       m.Provider,
		Model:          m.Model,
		MessageIndex:   m.MessageIndex,
		CreatedAt:      m.CreatedAt,
	}
}

func toConversationResponse(c service.Conversation) ConversationResponse {
	return ConversationResponse{
		ID:                  c.ID,
		Title:               c.Title,
		BranchFromMessageID: c.BranchFromMessageID,
		MessageCount:        c.MessageCount,
		CreatedAt:           c.CreatedAt,
		UpdatedAt:           c.UpdatedAt,
	}
}

func toBranchResponse(b service.Branch) BranchResponse {
	return BranchResponse{
		ID:                   b.ID,
		ParentConversationID: b.ParentConversationID,
		BranchConversationID: b.BranchConversationID,
		BranchFromMessageID:  b.BranchFromMessageID,
		Name:                 b.Name,
		IsActive:             b.IsActive,
		CreatedAt:            b.CreatedAt,
	}
}

func toCredentialResponse(c service.Credential) CredentialResponse {
	return CredentialResponse{
		ID:        c.ID,
		Provider:  c.Provider,
		IsActive:  c.IsActive,
		CreatedAt: c.CreatedAt,
	}
}

func toSettingsResponse(s service.Settings) SettingsResponse {
	return SettingsResponse(s)
}

func toProviderResponse(p llm.ProviderSpec) ProviderResponse {
	return ProviderResponse{
		ID:      p.ID,
		Name:    p.Name,
		Dialect: string(p.Dialect),
		Models:  p.Models,
	}
}
