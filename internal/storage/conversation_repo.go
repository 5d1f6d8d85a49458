package storage

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_conversation_store.go -package=mocks multichat/internal/storage ConversationStore

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
)

// ConversationStore defines the interface for conversation storage operations.
type ConversationStore interface {
	// Create inserts an empty conversation. An empty title becomes DefaultConversationTitle.
	Create(ctx context.Context, userID, title string) (*ConversationRecord, error)
	// Get returns a conversation owned by userID, or ErrNotFound.
	Get(ctx context.Context, userID, conversationID string) (*ConversationRecord, error)
	// ListByUser returns the user's conversations, most recently updated first.
	ListByUser(ctx context.Context, userID string) ([]ConversationRecord, error)
	// Rename sets the title of a conversation owned by userID.
	Rename(ctx context.Context, userID, conversationID, title string) error
	// DeleteCascade removes a conversation, its messages and every branch rooted at it,
	// recursively, in one transaction.
	DeleteCascade(ctx context.Context, userID, conversationID string) error
	// Duplicate copies a conversation and all its messages into a new, unlinked conversation.
	Duplicate(ctx context.Context, userID, conversationID string) (*ConversationRecord, error)
}

// ConversationRepo provides methods for conversation operations.
// It implements the ConversationStore interface.
type ConversationRepo struct {
	db *sql.DB
}

// NewConversationRepo creates a new ConversationRepo.
func NewConversationRepo(db *sql.DB) *ConversationRepo {
	return &ConversationRepo{db: db}
}

const conversationColumns = "id, user_id, title, COALESCE(branch_from_message_id, ''), next_message_index, created_at, updated_at"

func scanConversation(row interface{ Scan(...any) error }, conv *ConversationRecord) error {
	return row.Scan(&conv.ID, &conv.UserID, &conv.Title, &conv.BranchFromMessageID, &conv.MessageCount, &conv.CreatedAt, &conv.UpdatedAt)
}

// Create inserts an empty conversation.
func (r *ConversationRepo) Create(ctx context.Context, userID, title string) (*ConversationRecord, error) {
	if title == "" {
		title = DefaultConversationTitle
	}
	conv := &ConversationRecord{
		ID:     uuid.New().String(),
		UserID: userID,
		Title:  title,
	}
	if err := insertConversation(ctx, r.db, conv); err != nil {
		return nil, err
	}
	return conv, nil
}

// Get returns a conversation owned by userID.
func (r *ConversationRepo) Get(ctx context.Context, userID, conversationID string) (*ConversationRecord, error) {
	return getConversation(ctx, r.db, userID, conversationID)
}

// ListByUser returns the user's conversations, most recently updated first.
func (r *ConversationRepo) ListByUser(ctx context.Context, userID string) ([]ConversationRecord, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+conversationColumns+" FROM conversations WHERE user_id = ? ORDER BY updated_at DESC, created_at DESC",
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query conversations: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var convs []ConversationRecord
	for rows.Next() {
		var conv ConversationRecord
		if err := scanConversation(rows, &conv); err != nil {
			return nil, fmt.Errorf("failed to scan conversation: %w", err)
		}
		convs = append(convs, conv)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return convs, nil
}

// Rename sets the title of a conversation owned by userID.
func (r *ConversationRepo) Rename(ctx context.Context, userID, conversationID, title string) error {
	res, err := r.db.ExecContext(ctx,
		"UPDATE conversations SET title = ?, updated_at = ? WHERE id = ? AND user_id = ?",
		title, now(), conversationID, userID,
	)
	if err != nil {
		return fmt.Errorf("failed to rename conversation: %w", err)
	}
	return expectOneRow(res, "conversation "+conversationID)
}

// DeleteCascade removes the conversation and everything branched from it.
func (r *ConversationRepo) DeleteCascade(ctx context.Context, userID, conversationID string) error {
	return withTx(ctx, r.db, func(tx *sql.Tx) error {
		if _, err := getConversation(ctx, tx, userID, conversationID); err != nil {
			return err
		}
		return deleteConversationTree(ctx, tx, conversationID)
	})
}

// deleteConversationTree deletes conversationID after first deleting every branch
// target rooted at it, depth first.
func deleteConversationTree(ctx context.Context, q querier, conversationID string) error {
	children, err := listBranchTargets(ctx, q, conversationID)
	if err != nil {
		return err
	}
	for _, child := range children {
		if err := deleteConversationTree(ctx, q, child); err != nil {
			return err
		}
	}

	// Links in both directions: branches rooted here, and the branch that produced this conversation.
	if _, err := q.ExecContext(ctx,
		"DELETE FROM branches WHERE parent_conversation_id = ? OR branch_conversation_id = ?",
		conversationID, conversationID,
	); err != nil {
		return fmt.Errorf("failed to delete branches: %w", err)
	}
	if _, err := q.ExecContext(ctx, "DELETE FROM messages WHERE conversation_id = ?", conversationID); err != nil {
		return fmt.Errorf("failed to delete messages: %w", err)
	}
	if _, err := q.ExecContext(ctx, "DELETE FROM conversations WHERE id = ?", conversationID); err != nil {
		return fmt.Errorf("failed to delete conversation: %w", err)
	}
	return nil
}

func listBranchTargets(ctx context.Context, q querier, parentID string) ([]string, error) {
	rows, err := q.QueryContext(ctx,
		"SELECT branch_conversation_id FROM branches WHERE parent_conversation_id = ?",
		parentID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query branch targets: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan branch target: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return ids, nil
}

// Duplicate copies a conversation and all of its messages.
func (r *ConversationRepo) Duplicate(ctx context.Context, userID, conversationID string) (*ConversationRecord, error) {
	var dup *ConversationRecord
	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		src, err := getConversation(ctx, tx, userID, conversationID)
		if err != nil {
			return err
		}

		dup = &ConversationRecord{
			ID:     uuid.New().String(),
			UserID: userID,
			Title:  src.Title + " (Copy)",
		}
		if err := insertConversation(ctx, tx, dup); err != nil {
			return err
		}

		copied, err := copyMessages(ctx, tx, src.ID, dup.ID, -1)
		if err != nil {
			return err
		}
		return setMessageCount(ctx, tx, dup, copied)
	})
	if err != nil {
		return nil, err
	}
	return dup, nil
}

func getConversation(ctx context.Context, q querier, userID, conversationID string) (*ConversationRecord, error) {
	var conv ConversationRecord
	err := scanConversation(q.QueryRowContext(ctx,
		"SELECT "+conversationColumns+" FROM conversations WHERE id = ? AND user_id = ?",
		conversationID, userID,
	), &conv)

	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("conversation %s: %w", conversationID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query conversation: %w", err)
	}
	return &conv, nil
}

// insertConversation writes conv, filling in its timestamps.
func insertConversation(ctx context.Context, q querier, conv *ConversationRecord) error {
	ts := now()
	var branchFrom any
	if conv.BranchFromMessageID != "" {
		branchFrom = conv.BranchFromMessageID
	}
	_, err := q.ExecContext(ctx,
		`INSERT INTO conversations (id, user_id, title, branch_from_message_id, next_message_index, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		conv.ID, conv.UserID, conv.Title, branchFrom, conv.MessageCount, ts, ts,
	)
	if err != nil {
		return fmt.Errorf("failed to insert conversation: %w", err)
	}
	conv.CreatedAt = ts
	conv.UpdatedAt = ts
	return nil
}

func setMessageCount(ctx context.Context, q querier, conv *ConversationRecord, count int) error {
	if _, err := q.ExecContext(ctx,
		"UPDATE conversations SET next_message_index = ? WHERE id = ?",
		count, conv.ID,
	); err != nil {
		return fmt.Errorf("failed to set message count: %w", err)
	}
	conv.MessageCount = count
	return nil
}
