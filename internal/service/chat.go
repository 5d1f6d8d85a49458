package service

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_llm_client.go -package=mocks multichat/internal/service LLMClient
//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_chat_service.go -package=mocks -mock_names=ChatService=MockChatService multichat/internal/service ChatService

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"multichat/internal/contextutil"
	"multichat/internal/llm"
	"multichat/internal/lock"
	"multichat/internal/metrics"
	"multichat/internal/storage"
)

// testCredentialPrompt is the single message sent when checking a credential.
const testCredentialPrompt = "Hello, this is a test message."

// LLMClient is an interface for interacting with the upstream providers.
// This interface is defined from the service layer's perspective (consumer-first).
type LLMClient interface {
	// Complete sends history to model at provider and returns the reply text.
	Complete(ctx context.Context, provider, apiKey, model string, history []llm.Message) (string, error)
	// Provider returns the registry entry for a provider id.
	Provider(id string) (llm.ProviderSpec, bool)
	// Providers returns the whole registry.
	Providers() []llm.ProviderSpec
}

// SendMessageRequest represents a chat request in the domain layer.
// Empty Provider and Model fall back to the user's settings.
type SendMessageRequest struct {
	ConversationID string `json:"conversation_id" validate:"required"`
	Message        string `json:"message" validate:"required"`
	Provider       string `json:"provider"`
	Model          string `json:"model"`
}

// SendMessageResponse represents a chat response in the domain layer.
type SendMessageResponse struct {
	Reply            string
	Provider         string
	Model            string
	UserMessage      Message
	AssistantMessage Message
}

// TestCredentialRequest checks an unsaved secret against a provider.
type TestCredentialRequest struct {
	Provider string `json:"provider" validate:"required"`
	Secret   string `json:"secret" validate:"required"`
	Model    string `json:"model"`
}

// TestCredentialResult reports the outcome of a credential test.
type TestCredentialResult struct {
	Success bool
	Message string
}

// ChatService provides chat functionality.
type ChatService interface {
	// SendMessage appends the user message, asks the provider for a reply over the full
	// history and appends the reply. A failed upstream call leaves the user message in place.
	SendMessage(ctx context.Context, userID string, req SendMessageRequest) (SendMessageResponse, error)
	// TestCredential performs one exchange with an unsaved secret. It never returns an error.
	TestCredential(ctx context.Context, req TestCredentialRequest) TestCredentialResult
	// Providers returns the provider registry.
	Providers() []llm.ProviderSpec
}

// ChatServiceConfig holds the collaborators of the chat service.
type ChatServiceConfig struct {
	LLM           LLMClient
	Credentials   storage.CredentialStore
	Conversations storage.ConversationStore
	Messages      storage.MessageStore
	Settings      storage.SettingsStore
	Locker        lock.Locker
	Metrics       *metrics.Metrics
	// Timeout bounds a single upstream call.
	Timeout time.Duration
}

// chatService implements ChatService.
type chatService struct {
	llmClient     LLMClient
	credentials   storage.CredentialStore
	conversations storage.ConversationStore
	messages      storage.MessageStore
	settings      storage.SettingsStore
	locker        lock.Locker
	metrics       *metrics.Metrics
	timeout       time.Duration
}

// NewChatService creates a new ChatService.
func NewChatService(cfg ChatServiceConfig) ChatService {
	if cfg.Locker == nil {
		cfg.Locker = lock.NewLocal()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	return &chatService{
		llmClient:     cfg.LLM,
		credentials:   cfg.Credentials,
		conversations: cfg.Conversations,
		messages:      cfg.Messages,
		settings:      cfg.Settings,
		locker:        cfg.Locker,
		metrics:       cfg.Metrics,
		timeout:       cfg.Timeout,
	}
}

// Providers returns the provider registry.
func (s *chatService) Providers() []llm.ProviderSpec {
	return s.llmClient.Providers()
}

// SendMessage processes a chat request.
func (s *chatService) SendMessage(ctx context.Context, userID string, req SendMessageRequest) (SendMessageResponse, error) {
	logger := contextutil.LoggerFromContext(ctx)

	if err := requireUser(userID); err != nil {
		return SendMessageResponse{}, err
	}

	// Business validation
	if strings.TrimSpace(req.Message) == "" {
		logger.WarnContext(ctx, "empty message in chat request")
		return SendMessageResponse{}, &ValidationError{
			Field:   "message",
			Message: "cannot be empty",
		}
	}
	if err := validateStruct(req); err != nil {
		return SendMessageResponse{}, err
	}

	provider, model, err := s.resolveTarget(ctx, userID, req.Provider, req.Model)
	if err != nil {
		return SendMessageResponse{}, err
	}
	logger = logger.With("conversation_id", req.ConversationID, "provider", provider, "model", model)

	// Unknown or foreign conversations fail before the lock is taken.
	if _, err := s.conversations.Get(ctx, userID, req.ConversationID); err != nil {
		return SendMessageResponse{}, storeError(err, "failed to load conversation")
	}

	unlock, err := s.locker.Lock(ctx, "conversation:"+req.ConversationID)
	if err != nil {
		return SendMessageResponse{}, WrapError(err, "failed to acquire conversation lock")
	}
	defer unlock()

	cred, err := s.credentials.GetActive(ctx, userID, provider)
	if errors.Is(err, storage.ErrNotFound) {
		logger.WarnContext(ctx, "no active credential for provider")
		return SendMessageResponse{}, fmt.Errorf("%w: %s", ErrNoCredential, provider)
	}
	if err != nil {
		return SendMessageResponse{}, storeError(err, "failed to load credential")
	}

	userRec, err := s.messages.Append(ctx, userID, &storage.MessageRecord{
		ConversationID: req.ConversationID,
		Content:        req.Message,
		Role:           storage.RoleUser,
	})
	if err != nil {
		return SendMessageResponse{}, storeError(err, "failed to append user message")
	}
	s.metrics.MessageAppended(storage.RoleUser)

	// The stored history already contains the new user message exactly once.
	history, err := loadHistory(ctx, s.messages, userID, req.ConversationID)
	if err != nil {
		return SendMessageResponse{}, err
	}
	wire := make([]llm.Message, 0, len(history))
	for _, m := range history {
		wire = append(wire, llm.Message{Role: m.Role, Content: m.Content})
	}

	reply, err := s.complete(ctx, provider, cred.Secret, model, wire)
	if err != nil {
		logger.ErrorContext(ctx, "failed to get LLM response", "history_length", len(wire), "error", err)
		return SendMessageResponse{}, WrapError(err, "failed to get LLM response")
	}

	assistantRec, err := s.messages.Append(ctx, userID, &storage.MessageRecord{
		ConversationID: req.ConversationID,
		Content:        reply,
		Role:           storage.RoleAssistant,
		Provider:       provider,
		Model:          model,
	})
	if err != nil {
		logger.ErrorContext(ctx, "failed to append assistant message", "error", err)
		return SendMessageResponse{}, storeError(err, "failed to append assistant message")
	}
	s.metrics.MessageAppended(storage.RoleAssistant)

	logger.InfoContext(ctx, "chat request processed successfully",
		"message_length", len(req.Message),
		"reply_length", len(reply),
		"history_length", len(wire),
	)
	return SendMessageResponse{
		Reply:            reply,
		Provider:         provider,
		Model:            model,
		UserMessage:      messageFromRecord(*userRec),
		AssistantMessage: messageFromRecord(*assistantRec),
	}, nil
}

// resolveTarget fills in provider and model from the user's settings.
// A provider chosen without a model gets the settings model only when it is the settings
// provider, and the first registry model otherwise.
func (s *chatService) resolveTarget(ctx context.Context, userID, provider, model string) (string, string, error) {
	if provider == "" || model == "" {
		settings, err := s.settings.Get(ctx, userID)
		if err != nil {
			return "", "", storeError(err, "failed to load settings")
		}
		if provider == "" {
			provider = settings.DefaultProvider
		}
		if model == "" && provider == settings.DefaultProvider {
			model = settings.DefaultModel
		}
	}

	spec, ok := s.llmClient.Provider(provider)
	if !ok {
		return "", "", fmt.Errorf("%w: %s", ErrUnsupportedProvider, provider)
	}
	if model == "" {
		if len(spec.Models) == 0 {
			return "", "", &ValidationError{Field: "model", Message: "cannot be empty"}
		}
		model = spec.Models[0]
	}
	return provider, model, nil
}

// complete calls the provider under the upstream timeout. Every failure is an upstream error.
func (s *chatService) complete(ctx context.Context, provider, apiKey, model string, history []llm.Message) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()
	reply, err := s.llmClient.Complete(ctx, provider, apiKey, model, history)
	s.metrics.ObserveUpstream(provider, time.Since(start), err)

	if err != nil && !errors.Is(err, ErrUpstream) && !errors.Is(err, ErrUnsupportedProvider) {
		err = &llm.UpstreamError{Provider: provider, Err: err}
	}
	return reply, err
}

// TestCredential checks a secret with a single exchange.
func (s *chatService) TestCredential(ctx context.Context, req TestCredentialRequest) TestCredentialResult {
	logger := contextutil.LoggerFromContext(ctx)

	if err := validateStruct(req); err != nil {
		return TestCredentialResult{Success: false, Message: "Test failed: " + err.Error()}
	}

	spec, ok := s.llmClient.Provider(req.Provider)
	if !ok {
		return TestCredentialResult{Success: false, Message: fmt.Sprintf("Test failed: unsupported provider %q", req.Provider)}
	}
	model := req.Model
	if model == "" && len(spec.Models) > 0 {
		model = spec.Models[0]
	}

	_, err := s.complete(ctx, req.Provider, req.Secret, model, []llm.Message{
		{Role: llm.RoleUser, Content: testCredentialPrompt},
	})
	if err != nil {
		logger.WarnContext(ctx, "credential test failed", "provider", req.Provider, "model", model, "error", err)
		return TestCredentialResult{Success: false, Message: "Test failed: " + err.Error()}
	}

	logger.InfoContext(ctx, "credential test succeeded", "provider", req.Provider, "model", model)
	return TestCredentialResult{
		Success: true,
		Message: fmt.Sprintf("Connection to %s successful using %s", spec.Name, model),
	}
}
