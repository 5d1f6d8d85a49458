package storage

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_message_store.go -package=mocks multichat/internal/storage MessageStore

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
)

// MessageStore defines the interface for message log operations.
type MessageStore interface {
	// Append adds a message at the next dense index of a conversation owned by userID.
	// The first user message replaces the default conversation title.
	Append(ctx context.Context, userID string, msg *MessageRecord) (*MessageRecord, error)
	// ListByConversation returns the messages of a conversation owned by userID in index order.
	ListByConversation(ctx context.Context, userID, conversationID string) ([]MessageRecord, error)
	// GetByID returns a single message of a conversation owned by userID.
	GetByID(ctx context.Context, userID, messageID string) (*MessageRecord, error)
}

// MessageRepo provides methods for message operations.
// It implements the MessageStore interface.
type MessageRepo struct {
	db *sql.DB
}

// NewMessageRepo creates a new MessageRepo.
func NewMessageRepo(db *sql.DB) *MessageRepo {
	return &MessageRepo{db: db}
}

const messageColumns = "m.id, m.conversation_id, m.content, m.role, COALESCE(m.provider, ''), COALESCE(m.model, ''), m.message_index, m.created_at"

func scanMessage(row interface{ Scan(...any) error }, msg *MessageRecord) error {
	return row.Scan(&msg.ID, &msg.ConversationID, &msg.Content, &msg.Role, &msg.Provider, &msg.Model, &msg.MessageIndex, &msg.CreatedAt)
}

// Append reserves the next index and inserts the message in one transaction.
// The counter increment and the UNIQUE(conversation_id, message_index) constraint keep
// indices dense even when two writers race on the same conversation.
func (r *MessageRepo) Append(ctx context.Context, userID string, msg *MessageRecord) (*MessageRecord, error) {
	out := *msg
	out.ID = uuid.New().String()

	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		ts := now()

		var title string
		err := tx.QueryRowContext(ctx,
			`UPDATE conversations SET next_message_index = next_message_index + 1, updated_at = ?
			 WHERE id = ? AND user_id = ?
			 RETURNING next_message_index - 1, title`,
			ts, out.ConversationID, userID,
		).Scan(&out.MessageIndex, &title)
		if err == sql.ErrNoRows {
			return fmt.Errorf("conversation %s: %w", out.ConversationID, ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("failed to reserve message index: %w", err)
		}

		out.CreatedAt = ts
		if err := insertMessage(ctx, tx, &out); err != nil {
			return err
		}

		if out.MessageIndex == 0 && out.Role == RoleUser && title == DefaultConversationTitle {
			if _, err := tx.ExecContext(ctx,
				"UPDATE conversations SET title = ? WHERE id = ?",
				DeriveTitle(out.Content), out.ConversationID,
			); err != nil {
				return fmt.Errorf("failed to set conversation title: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &out, nil
}

// ListByConversation returns the messages of a conversation ordered by index.
func (r *MessageRepo) ListByConversation(ctx context.Context, userID, conversationID string) ([]MessageRecord, error) {
	if _, err := getConversation(ctx, r.db, userID, conversationID); err != nil {
		return nil, err
	}
	return listMessages(ctx, r.db, conversationID)
}

// GetByID returns a message by id, scoped to conversations owned by userID.
func (r *MessageRepo) GetByID(ctx context.Context, userID, messageID string) (*MessageRecord, error) {
	var msg MessageRecord
	err := scanMessage(r.db.QueryRowContext(ctx,
		"SELECT "+messageColumns+` FROM messages m
		 JOIN conversations c ON c.id = m.conversation_id
		 WHERE m.id = ? AND c.user_id = ?`,
		messageID, userID,
	), &msg)

	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("message %s: %w", messageID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query message: %w", err)
	}
	return &msg, nil
}

func listMessages(ctx context.Context, q querier, conversationID string) ([]MessageRecord, error) {
	rows, err := q.QueryContext(ctx,
		"SELECT "+messageColumns+" FROM messages m WHERE m.conversation_id = ? ORDER BY m.message_index",
		conversationID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query messages: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var msgs []MessageRecord
	for rows.Next() {
		var msg MessageRecord
		if err := scanMessage(rows, &msg); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		msgs = append(msgs, msg)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return msgs, nil
}

func insertMessage(ctx context.Context, q querier, msg *MessageRecord) error {
	var provider, model any
	if msg.Provider != "" {
		provider = msg.Provider
	}
	if msg.Model != "" {
		model = msg.Model
	}
	_, err := q.ExecContext(ctx,
		`INSERT INTO messages (id, conversation_id, content, role, provider, model, message_index, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		msg.ID, msg.ConversationID, msg.Content, msg.Role, provider, model, msg.MessageIndex, msg.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert message: %w", classify(err))
	}
	return nil
}

// copyMessages copies the messages of srcID with index <= maxIndex into dstID, keeping
// content, role, provider, model and index. A negative maxIndex copies everything.
// Returns the number of copied messages.
func copyMessages(ctx context.Context, q querier, srcID, dstID string, maxIndex int) (int, error) {
	msgs, err := listMessages(ctx, q, srcID)
	if err != nil {
		return 0, err
	}

	copied := 0
	ts := now()
	for _, m := range msgs {
		if maxIndex >= 0 && m.MessageIndex > maxIndex {
			break
		}
		m.ID = uuid.New().String()
		m.ConversationID = dstID
		m.CreatedAt = ts
		if err := insertMessage(ctx, q, &m); err != nil {
			return 0, err
		}
		copied++
	}
	return copied, nil
}
