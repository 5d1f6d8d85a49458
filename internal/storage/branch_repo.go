package storage

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_branch_store.go -package=mocks multichat/internal/storage BranchStore

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
)

// BranchStore defines the interface for branch operations.
type BranchStore interface {
	// Create forks parentID at branchFromMessageID into a new conversation holding copies of
	// the parent's messages up to and including the branch point.
	Create(ctx context.Context, userID, parentID, branchFromMessageID, name string) (*BranchRecord, *ConversationRecord, error)
	// ListByParent returns the branches rooted at a conversation owned by userID.
	ListByParent(ctx context.Context, userID, parentID string) ([]BranchRecord, error)
}

// BranchRepo provides methods for branch operations.
// It implements the BranchStore interface.
type BranchRepo struct {
	db *sql.DB
}

// NewBranchRepo creates a new BranchRepo.
func NewBranchRepo(db *sql.DB) *BranchRepo {
	return &BranchRepo{db: db}
}

// Create forks a conversation. All writes share one transaction.
func (r *BranchRepo) Create(ctx context.Context, userID, parentID, branchFromMessageID, name string) (*BranchRecord, *ConversationRecord, error) {
	var (
		branch *BranchRecord
		conv   *ConversationRecord
	)

	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		parent, err := getConversation(ctx, tx, userID, parentID)
		if err != nil {
			return err
		}

		var pointIndex int
		err = tx.QueryRowContext(ctx,
			"SELECT message_index FROM messages WHERE id = ? AND conversation_id = ?",
			branchFromMessageID, parent.ID,
		).Scan(&pointIndex)
		if err == sql.ErrNoRows {
			return fmt.Errorf("message %s in conversation %s: %w", branchFromMessageID, parent.ID, ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("failed to query branch point: %w", err)
		}

		conv = &ConversationRecord{
			ID:                  uuid.New().String(),
			UserID:              userID,
			Title:               parent.Title + " - " + name,
			BranchFromMessageID: branchFromMessageID,
		}
		if err := insertConversation(ctx, tx, conv); err != nil {
			return err
		}

		copied, err := copyMessages(ctx, tx, parent.ID, conv.ID, pointIndex)
		if err != nil {
			return err
		}
		if err := setMessageCount(ctx, tx, conv, copied); err != nil {
			return err
		}

		branch = &BranchRecord{
			ID:                   uuid.New().String(),
			UserID:               userID,
			ParentConversationID: parent.ID,
			BranchConversationID: conv.ID,
			BranchFromMessageID:  branchFromMessageID,
			Name:                 name,
			IsActive:             true,
			CreatedAt:            conv.CreatedAt,
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO branches (id, user_id, parent_conversation_id, branch_conversation_id, branch_from_message_id, name, is_active, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, 1, ?)`,
			branch.ID, branch.UserID, branch.ParentConversationID, branch.BranchConversationID,
			branch.BranchFromMessageID, branch.Name, branch.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to insert branch: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	return branch, conv, nil
}

// ListByParent returns the branches of a conversation, oldest first.
func (r *BranchRepo) ListByParent(ctx context.Context, userID, parentID string) ([]BranchRecord, error) {
	if _, err := getConversation(ctx, r.db, userID, parentID); err != nil {
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, parent_conversation_id, branch_conversation_id, branch_from_message_id, name, is_active, created_at
		 FROM branches WHERE parent_conversation_id = ? AND user_id = ? ORDER BY created_at`,
		parentID, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query branches: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var branches []BranchRecord
	for rows.Next() {
		var b BranchRecord
		if err := rows.Scan(&b.ID, &b.UserID, &b.ParentConversationID, &b.BranchConversationID,
			&b.BranchFromMessageID, &b.Name, &b.IsActive, &b.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan branch: %w", err)
		}
		branches = append(branches, b)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return branches, nil
}
