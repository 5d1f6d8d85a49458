package storage

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_credential_store.go -package=mocks multichat/internal/storage CredentialStore

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
)

// CredentialStore defines the interface for credential storage operations.
type CredentialStore interface {
	// Save deactivates the user's active credential for provider and stores secret as the new
	// active one. Both writes happen in one transaction.
	Save(ctx context.Context, userID, provider, secret string) (*CredentialRecord, error)
	// GetActive returns the active credential for (userID, provider) or ErrNotFound.
	GetActive(ctx context.Context, userID, provider string) (*CredentialRecord, error)
	// ListByUser returns all credentials of a user without their secrets.
	ListByUser(ctx context.Context, userID string) ([]CredentialRecord, error)
	// Delete hard-deletes a credential owned by userID. Returns ErrNotFound otherwise.
	Delete(ctx context.Context, userID, credentialID string) error
}

// CredentialRepo provides methods for credential operations.
// It implements the CredentialStore interface.
type CredentialRepo struct {
	db *sql.DB
}

// NewCredentialRepo creates a new CredentialRepo.
func NewCredentialRepo(db *sql.DB) *CredentialRepo {
	return &CredentialRepo{db: db}
}

// Save rotates the active credential for (userID, provider).
// Previous credentials stay in the table with is_active = 0.
func (r *CredentialRepo) Save(ctx context.Context, userID, provider, secret string) (*CredentialRecord, error) {
	cred := &CredentialRecord{
		ID:        uuid.New().String(),
		UserID:    userID,
		Provider:  provider,
		Secret:    secret,
		IsActive:  true,
		CreatedAt: now(),
	}

	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		if err := deactivateActiveCredentials(ctx, tx, userID, provider); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx,
			"INSERT INTO credentials (id, user_id, provider, secret, is_active, created_at) VALUES (?, ?, ?, ?, 1, ?)",
			cred.ID, cred.UserID, cred.Provider, cred.Secret, cred.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to insert credential: %w", classify(err))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return cred, nil
}

// deactivateActiveCredentials flips the active flag off; it never removes rows.
func deactivateActiveCredentials(ctx context.Context, q querier, userID, provider string) error {
	_, err := q.ExecContext(ctx,
		"UPDATE credentials SET is_active = 0 WHERE user_id = ? AND provider = ? AND is_active = 1",
		userID, provider,
	)
	if err != nil {
		return fmt.Errorf("failed to deactivate credentials: %w", err)
	}
	return nil
}

// GetActive returns the active credential for (userID, provider).
func (r *CredentialRepo) GetActive(ctx context.Context, userID, provider string) (*CredentialRecord, error) {
	var cred CredentialRecord
	err := r.db.QueryRowContext(ctx,
		"SELECT id, user_id, provider, secret, is_active, created_at FROM credentials WHERE user_id = ? AND provider = ? AND is_active = 1",
		userID, provider,
	).Scan(&cred.ID, &cred.UserID, &cred.Provider, &cred.Secret, &cred.IsActive, &cred.CreatedAt)

	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query active credential: %w", err)
	}

	return &cred, nil
}

// ListByUser returns the user's credentials ordered by provider, newest first.
// The secret column is never selected.
func (r *CredentialRepo) ListByUser(ctx context.Context, userID string) ([]CredentialRecord, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT id, user_id, provider, is_active, created_at FROM credentials WHERE user_id = ? ORDER BY provider, created_at DESC",
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query credentials: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var creds []CredentialRecord
	for rows.Next() {
		var cred CredentialRecord
		if err := rows.Scan(&cred.ID, &cred.UserID, &cred.Provider, &cred.IsActive, &cred.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan credential: %w", err)
		}
		creds = append(creds, cred)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return creds, nil
}

// Delete removes a credential row. Ownership is part of the predicate, so a foreign
// credential is indistinguishable from a missing one.
func (r *CredentialRepo) Delete(ctx context.Context, userID, credentialID string) error {
	res, err := r.db.ExecContext(ctx,
		"DELETE FROM credentials WHERE id = ? AND user_id = ?",
		credentialID, userID,
	)
	if err != nil {
		return fmt.Errorf("failed to delete credential: %w", err)
	}
	return expectOneRow(res, "credential "+credentialID)
}
