package service

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_conversation_service.go -package=mocks -mock_names=ConversationService=MockConversationService multichat/internal/service ConversationService

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"multichat/internal/contextutil"
	"multichat/internal/export"
	"multichat/internal/storage"
)

// CreateBranchRequest forks a conversation at a message.
type CreateBranchRequest struct {
	ConversationID      string `json:"conversation_id" validate:"required"`
	BranchFromMessageID string `json:"branch_from_message_id" validate:"required"`
	Name                string `json:"name" validate:"required,max=200"`
}

// BranchResult is a created branch and the conversation it points to.
type BranchResult struct {
	Branch       Branch
	Conversation Conversation
}

// ConversationService manages conversations, their message logs and branches.
type ConversationService interface {
	// Create starts an empty conversation. An empty title becomes the default title.
	Create(ctx context.Context, userID, title string) (Conversation, error)
	// Get returns a conversation with its messages in index order.
	Get(ctx context.Context, userID, conversationID string) (ConversationDetail, error)
	// List returns the user's conversations, most recently updated first.
	List(ctx context.Context, userID string) ([]Conversation, error)
	// Rename sets an explicit title.
	Rename(ctx context.Context, userID, conversationID, title string) (Conversation, error)
	// Delete removes a conversation and, recursively, every branch rooted at it.
	Delete(ctx context.Context, userID, conversationID string) error
	// Duplicate copies a conversation and its messages into an unlinked conversation.
	Duplicate(ctx context.Context, userID, conversationID string) (Conversation, error)
	// CreateBranch forks a conversation at a message, copying the prefix up to and including it.
	CreateBranch(ctx context.Context, userID string, req CreateBranchRequest) (BranchResult, error)
	// ListBranches returns the branches rooted at a conversation.
	ListBranches(ctx context.Context, userID, conversationID string) ([]Branch, error)
	// Export renders a conversation in the given format.
	Export(ctx context.Context, userID, conversationID, format string) (export.Document, error)
}

// conversationService implements ConversationService.
type conversationService struct {
	conversations storage.ConversationStore
	messages      storage.MessageStore
	branches      storage.BranchStore
}

// NewConversationService creates a new ConversationService.
func NewConversationService(conversations storage.ConversationStore, messages storage.MessageStore, branches storage.BranchStore) ConversationService {
	return &conversationService{
		conversations: conversations,
		messages:      messages,
		branches:      branches,
	}
}

// Create starts an empty conversation.
func (s *conversationService) Create(ctx context.Context, userID, title string) (Conversation, error) {
	logger := contextutil.LoggerFromContext(ctx)

	if err := requireUser(userID); err != nil {
		return Conversation{}, err
	}

	rec, err := s.conversations.Create(ctx, userID, strings.TrimSpace(title))
	if err != nil {
		logger.ErrorContext(ctx, "failed to create conversation", "error", err)
		return Conversation{}, storeError(err, "failed to create conversation")
	}

	logger.InfoContext(ctx, "conversation created", "conversation_id", rec.ID)
	return conversationFromRecord(*rec), nil
}

// Get returns the conversation with its ordered messages.
func (s *conversationService) Get(ctx context.Context, userID, conversationID string) (ConversationDetail, error) {
	if err := requireUser(userID); err != nil {
		return ConversationDetail{}, err
	}

	rec, err := s.conversations.Get(ctx, userID, conversationID)
	if err != nil {
		return ConversationDetail{}, storeError(err, "failed to get conversation")
	}

	msgs, err := s.history(ctx, userID, conversationID)
	if err != nil {
		return ConversationDetail{}, err
	}

	return ConversationDetail{
		Conversation: conversationFromRecord(*rec),
		Messages:     msgs,
	}, nil
}

// history loads the message log sorted by index.
func (s *conversationService) history(ctx context.Context, userID, conversationID string) ([]Message, error) {
	return loadHistory(ctx, s.messages, userID, conversationID)
}

func loadHistory(ctx context.Context, store storage.MessageStore, userID, conversationID string) ([]Message, error) {
	recs, err := store.ListByConversation(ctx, userID, conversationID)
	if err != nil {
		return nil, storeError(err, "failed to list messages")
	}

	// The store already orders by index; sort anyway so callers never depend on it.
	sort.SliceStable(recs, func(i, j int) bool {
		return recs[i].MessageIndex < recs[j].MessageIndex
	})

	out := make([]Message, 0, len(recs))
	for _, r := range recs {
		out = append(out, messageFromRecord(r))
	}
	return out, nil
}

// List returns the user's conversations.
func (s *conversationService) List(ctx context.Context, userID string) ([]Conversation, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}

	recs, err := s.conversations.ListByUser(ctx, userID)
	if err != nil {
		return nil, storeError(err, "failed to list conversations")
	}

	out := make([]Conversation, 0, len(recs))
	for _, r := range recs {
		out = append(out, conversationFromRecord(r))
	}
	return out, nil
}

// Rename sets an explicit title.
func (s *conversationService) Rename(ctx context.Context, userID, conversationID, title string) (Conversation, error) {
	logger := contextutil.LoggerFromContext(ctx)

	if err := requireUser(userID); err != nil {
		return Conversation{}, err
	}
	title = strings.TrimSpace(title)
	if title == "" {
		return Conversation{}, &ValidationError{Field: "title", Message: "cannot be empty"}
	}

	if err := s.conversations.Rename(ctx, userID, conversationID, title); err != nil {
		return Conversation{}, storeError(err, "failed to rename conversation")
	}

	rec, err := s.conversations.Get(ctx, userID, conversationID)
	if err != nil {
		return Conversation{}, storeError(err, "failed to get conversation")
	}

	logger.InfoContext(ctx, "conversation renamed", "conversation_id", conversationID)
	return conversationFromRecord(*rec), nil
}

// Delete removes a conversation and its branch tree.
func (s *conversationService) Delete(ctx context.Context, userID, conversationID string) error {
	logger := contextutil.LoggerFromContext(ctx)

	if err := requireUser(userID); err != nil {
		return err
	}

	if err := s.conversations.DeleteCascade(ctx, userID, conversationID); err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			logger.ErrorContext(ctx, "failed to delete conversation", "conversation_id", conversationID, "error", err)
		}
		return storeError(err, "failed to delete conversation")
	}

	logger.InfoContext(ctx, "conversation deleted", "conversation_id", conversationID)
	return nil
}

// Duplicate copies a conversation.
func (s *conversationService) Duplicate(ctx context.Context, userID, conversationID string) (Conversation, error) {
	logger := contextutil.LoggerFromContext(ctx)

	if err := requireUser(userID); err != nil {
		return Conversation{}, err
	}

	rec, err := s.conversations.Duplicate(ctx, userID, conversationID)
	if err != nil {
		return Conversation{}, storeError(err, "failed to duplicate conversation")
	}

	logger.InfoContext(ctx, "conversation duplicated", "source_id", conversationID, "conversation_id", rec.ID)
	return conversationFromRecord(*rec), nil
}

// CreateBranch forks a conversation at req.BranchFromMessageID.
func (s *conversationService) CreateBranch(ctx context.Context, userID string, req CreateBranchRequest) (BranchResult, error) {
	logger := contextutil.LoggerFromContext(ctx)

	if err := requireUser(userID); err != nil {
		return BranchResult{}, err
	}
	req.Name = strings.TrimSpace(req.Name)
	if err := validateStruct(req); err != nil {
		return BranchResult{}, err
	}

	branch, conv, err := s.branches.Create(ctx, userID, req.ConversationID, req.BranchFromMessageID, req.Name)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			logger.ErrorContext(ctx, "failed to create branch", "conversation_id", req.ConversationID, "error", err)
		}
		return BranchResult{}, storeError(err, "failed to create branch")
	}

	logger.InfoContext(ctx, "branch created",
		"parent_id", req.ConversationID,
		"conversation_id", conv.ID,
		"messages_copied", conv.MessageCount,
	)
	return BranchResult{
		Branch:       branchFromRecord(*branch),
		Conversation: conversationFromRecord(*conv),
	}, nil
}

// ListBranches returns the branches rooted at a conversation.
func (s *conversationService) ListBranches(ctx context.Context, userID, conversationID string) ([]Branch, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}

	recs, err := s.branches.ListByParent(ctx, userID, conversationID)
	if err != nil {
		return nil, storeError(err, "failed to list branches")
	}

	out := make([]Branch, 0, len(recs))
	for _, r := range recs {
		out = append(out, branchFromRecord(r))
	}
	return out, nil
}

// Export renders a conversation.
func (s *conversationService) Export(ctx context.Context, userID, conversationID, format string) (export.Document, error) {
	if err := requireUser(userID); err != nil {
		return export.Document{}, err
	}
	f, err := export.ParseFormat(format)
	if err != nil {
		return export.Document{}, &ValidationError{Field: "format", Message: fmt.Sprintf("unsupported format %q", format)}
	}

	detail, err := s.Get(ctx, userID, conversationID)
	if err != nil {
		return export.Document{}, err
	}

	conv := export.Conversation{
		ID:        detail.ID,
		Title:     detail.Title,
		CreatedAt: detail.CreatedAt,
		UpdatedAt: detail.UpdatedAt,
		Messages:  make([]export.Message, 0, len(detail.Messages)),
	}
	for _, m := range detail.Messages {
		conv.Messages = append(conv.Messages, export.Message{
			Index:     m.MessageIndex,
			Role:      m.Role,
			Content:   m.Content,
			Provider:  m.Provider,
			Model:     m.Model,
			CreatedAt: m.CreatedAt,
		})
	}

	doc, err := export.Render(conv, f)
	if err != nil {
		return export.Document{}, WrapError(err, "failed to export conversation")
	}
	return doc, nil
}
