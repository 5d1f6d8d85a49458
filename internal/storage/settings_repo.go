package storage

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_settings_store.go -package=mocks multichat/internal/storage SettingsStore

import (
	"context"
	"database/sql"
	"fmt"
)

// SettingsStore defines the interface for per-user settings.
type SettingsStore interface {
	// Get returns the stored settings, or DefaultSettings when none were saved.
	Get(ctx context.Context, userID string) (*SettingsRecord, error)
	// Update applies a partial update on top of the current settings and stores the result.
	Update(ctx context.Context, userID string, patch SettingsPatch) (*SettingsRecord, error)
}

// SettingsRepo provides methods for settings operations.
// It implements the SettingsStore interface.
type SettingsRepo struct {
	db *sql.DB
}

// NewSettingsRepo creates a new SettingsRepo.
func NewSettingsRepo(db *sql.DB) *SettingsRepo {
	return &SettingsRepo{db: db}
}

// Get returns the settings of userID.
func (r *SettingsRepo) Get(ctx context.Context, userID string) (*SettingsRecord, error) {
	return getSettings(ctx, r.db, userID)
}

// Update merges patch into the current settings and upserts the row.
func (r *SettingsRepo) Update(ctx context.Context, userID string, patch SettingsPatch) (*SettingsRecord, error) {
	var out *SettingsRecord
	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		cur, err := getSettings(ctx, tx, userID)
		if err != nil {
			return err
		}

		if patch.DefaultProvider != nil {
			cur.DefaultProvider = *patch.DefaultProvider
		}
		if patch.DefaultModel != nil {
			cur.DefaultModel = *patch.DefaultModel
		}
		if patch.Temperature != nil {
			cur.Temperature = *patch.Temperature
		}
		if patch.MaxTokens != nil {
			cur.MaxTokens = *patch.MaxTokens
		}
		if patch.SystemPrompt != nil {
			cur.SystemPrompt = *patch.SystemPrompt
		}
		if patch.Theme != nil {
			cur.Theme = *patch.Theme
		}
		cur.UpdatedAt = now()

		_, err = tx.ExecContext(ctx,
			`INSERT INTO user_settings (user_id, default_provider, default_model, temperature, max_tokens, system_prompt, theme, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
			 ON CONFLICT(user_id) DO UPDATE SET
				default_provider = excluded.default_provider,
				default_model = excluded.default_model,
				temperature = excluded.temperature,
				max_tokens = excluded.max_tokens,
				system_prompt = excluded.system_prompt,
				theme = excluded.theme,
				updated_at = excluded.updated_at`,
			cur.UserID, cur.DefaultProvider, cur.DefaultModel, cur.Temperature, cur.MaxTokens,
			cur.SystemPrompt, cur.Theme, cur.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to upsert settings: %w", err)
		}
		out = cur
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func getSettings(ctx context.Context, q querier, userID string) (*SettingsRecord, error) {
	var s SettingsRecord
	err := q.QueryRowContext(ctx,
		`SELECT user_id, default_provider, default_model, temperature, max_tokens, system_prompt, theme, updated_at
		 FROM user_settings WHERE user_id = ?`,
		userID,
	).Scan(&s.UserID, &s.DefaultProvider, &s.DefaultModel, &s.Temperature, &s.MaxTokens, &s.SystemPrompt, &s.Theme, &s.UpdatedAt)

	if err == sql.ErrNoRows {
		d := DefaultSettings(userID)
		return &d, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query settings: %w", err)
	}
	return &s, nil
}
