package llm

// Logical message roles. Dialects map them onto their own wire roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message represents a single message in a chat conversation.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatParams holds generation parameters for completion requests.
type ChatParams struct {
	// MaxTokens specifies the maximum number of tokens to generate.
	MaxTokens int

	// Temperature controls the randomness of the output.
	Temperature float32
}

// DefaultChatParams returns the generation parameters used when none are configured.
func DefaultChatParams() ChatParams {
	return ChatParams{
		MaxTokens:   2000,
		Temperature: 0.7,
	}
}

// CompletionRequest is one non-streaming exchange with an upstream provider.
type CompletionRequest struct {
	Provider string // Registry id, used for error reporting
	BaseURL  string
	APIKey   string
	Model    string
	History  []Message
	Params   ChatParams
}
