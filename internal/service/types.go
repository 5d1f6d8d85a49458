package service

import (
	"time"

	"multichat/internal/storage"
)

// Message is a stored conversation message in the domain layer.
type Message struct {
	ID             string
	ConversationID string
	Content        string
	Role           string
	Provider       string
	Model          string
	MessageIndex   int
	CreatedAt      time.Time
}

// Conversation is a conversation summary in the domain layer.
type Conversation struct {
	ID                  string
	Title               string
	BranchFromMessageID string
	MessageCount        int
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// ConversationDetail is a conversation together with its ordered messages.
type ConversationDetail struct {
	Conversation
	Messages []Message
}

// Branch links a parent conversation to a forked conversation.
type Branch struct {
	ID                   string
	ParentConversationID string
	BranchConversationID string
	BranchFromMessageID  string
	Name                 string
	IsActive             bool
	CreatedAt            time.Time
}

// Credential is a stored provider credential without its secret.
type Credential struct {
	ID        string
	Provider  string
	IsActive  bool
	CreatedAt time.Time
}

// Settings are the per-user chat preferences.
type Settings struct {
	DefaultProvider string
	DefaultModel    string
	Temperature     float64
	MaxTokens       int
	SystemPrompt    string
	Theme           string
}

func messageFromRecord(r storage.MessageRecord) Message {
	return Message{
		ID:             r.ID,
		ConversationID: r.ConversationID,
		Content:        r.Content,
		Role:           r.Role,
		Provider:       r.Provider,
		Model:          r.Model,
		MessageIndex:   r.MessageIndex,
		CreatedAt:      r.CreatedAt,
	}
}

func conversationFromRecord(r storage.ConversationRecord) Conversation {
	return Conversation{
		ID:                  r.ID,
		Title:               r.Title,
		BranchFromMessageID: r.BranchFromMessageID,
		MessageCount:        r.MessageCount,
		CreatedAt:           r.CreatedAt,
		UpdatedAt:           r.UpdatedAt,
	}
}

func branchFromRecord(r storage.BranchRecord) Branch {
	return Branch{
		ID:                   r.ID,
		ParentConversationID: r.ParentConversationID,
		BranchConversationID: r.BranchConversationID,
		BranchFromMessageID:  r.BranchFromMessageID,
		Name:                 r.Name,
		IsActive:             r.IsActive,
		CreatedAt:            r.CreatedAt,
	}
}

func credentialFromRecord(r storage.CredentialRecord) Credential {
	return Credential{
		ID:        r.ID,
		Provider:  r.Provider,
		IsActive:  r.IsActive,
		CreatedAt: r.CreatedAt,
	}
}

func settingsFromRecord(r storage.SettingsRecord) Settings {
	return Settings{
		DefaultProvider: r.DefaultProvider,
		DefaultModel:    r.DefaultModel,
		Temperature:     r.Temperature,
		MaxTokens:       r.MaxTokens,
		SystemPrompt:    r.SystemPrompt,
		Theme:           r.Theme,
	}
}
