package storage

import "time"

// Message roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

const (
	// DefaultConversationTitle is the placeholder title replaced by the first user message.
	DefaultConversationTitle = "New Conversation"
	// TitleMaxChars is the number of characters kept when deriving a title from a message.
	TitleMaxChars = 50
)

// CredentialRecord represents a stored provider secret for a user.
type CredentialRecord struct {
	ID        string // UUID
	UserID    string
	Provider  string // Provider registry id, e.g. "openai", "google"
	Secret    string // Empty when loaded through ListByUser
	IsActive  bool
	CreatedAt time.Time
}

// ConversationRecord represents one linear message timeline owned by a user.
type ConversationRecord struct {
	ID                  string // UUID
	UserID              string
	Title               string
	BranchFromMessageID string // Empty unless the conversation was created by branching
	MessageCount        int    // Next message index to be assigned
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// MessageRecord represents a single message in a conversation log.
type MessageRecord struct {
	ID             string // UUID
	ConversationID string
	Content        string
	Role           string // RoleUser or RoleAssistant
	Provider       string // Empty for user messages
	Model          string // Empty for user messages
	MessageIndex   int    // Dense, starts at 0 within the conversation
	CreatedAt      time.Time
}

// BranchRecord links a parent conversation to a conversation forked from it.
type BranchRecord struct {
	ID                   string // UUID
	UserID               string
	ParentConversationID string
	BranchConversationID string
	BranchFromMessageID  string
	Name                 string
	IsActive             bool
	CreatedAt            time.Time
}

// SettingsRecord holds per-user chat preferences.
type SettingsRecord struct {
	UserID          string
	DefaultProvider string
	DefaultModel    string
	Temperature     float64
	MaxTokens       int
	SystemPrompt    string
	Theme           string
	UpdatedAt       time.Time // Zero when the defaults were returned
}

// SettingsPatch carries a partial settings update; nil fields are left unchanged.
type SettingsPatch struct {
	DefaultProvider *string
	DefaultModel    *string
	Temperature     *float64
	MaxTokens       *int
	SystemPrompt    *string
	Theme           *string
}

// DefaultSettings returns the read-time defaults used when a user has no stored settings.
func DefaultSettings(userID string) SettingsRecord {
	return SettingsRecord{
		UserID:          userID,
		DefaultProvider: "google",
		DefaultModel:    "gemini-2.0-flash",
		Temperature:     0.7,
		MaxTokens:       2000,
		SystemPrompt:    "",
		Theme:           "system",
	}
}

// DeriveTitle builds a conversation title from the first user message: the first
// TitleMaxChars characters, followed by "..." when the message is longer.
func DeriveTitle(content string) string {
	runes := []rune(content)
	if len(runes) <= TitleMaxChars {
		return content
	}
	return string(runes[:TitleMaxChars]) + "..."
}
