package service

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_settings_service.go -package=mocks -mock_names=SettingsService=MockSettingsService multichat/internal/service SettingsService

import (
	"context"
	"fmt"

	"multichat/internal/contextutil"
	"multichat/internal/storage"
)

// UpdateSettingsRequest is a partial settings update; nil fields are left unchanged.
type UpdateSettingsRequest struct {
	DefaultProvider *string  `json:"default_provider" validate:"omitempty,min=1"`
	DefaultModel    *string  `json:"default_model" validate:"omitempty,min=1"`
	Temperature     *float64 `json:"temperature" validate:"omitempty,gte=0,lte=2"`
	MaxTokens       *int     `json:"max_tokens" validate:"omitempty,gt=0"`
	SystemPrompt    *string  `json:"system_prompt" validate:"omitempty,max=8000"`
	Theme           *string  `json:"theme" validate:"omitempty,oneof=light dark system"`
}

// SettingsService manages per-user settings.
type SettingsService interface {
	// Get returns the user's settings, or the defaults when none were saved.
	Get(ctx context.Context, userID string) (Settings, error)
	// Update applies a partial update.
	Update(ctx context.Context, userID string, req UpdateSettingsRequest) (Settings, error)
}

// settingsService implements SettingsService.
type settingsService struct {
	store     storage.SettingsStore
	providers LLMClient
}

// NewSettingsService creates a new SettingsService.
func NewSettingsService(store storage.SettingsStore, providers LLMClient) SettingsService {
	return &settingsService{
		store:     store,
		providers: providers,
	}
}

// Get returns the user's settings.
func (s *settingsService) Get(ctx context.Context, userID string) (Settings, error) {
	if err := requireUser(userID); err != nil {
		return Settings{}, err
	}

	rec, err := s.store.Get(ctx, userID)
	if err != nil {
		return Settings{}, storeError(err, "failed to get settings")
	}
	return settingsFromRecord(*rec), nil
}

// Update validates and stores a partial update.
func (s *settingsService) Update(ctx context.Context, userID string, req UpdateSettingsRequest) (Settings, error) {
	logger := contextutil.LoggerFromContext(ctx)

	if err := requireUser(userID); err != nil {
		return Settings{}, err
	}
	if err := validateStruct(req); err != nil {
		return Settings{}, err
	}
	if req.DefaultProvider != nil {
		if _, ok := s.providers.Provider(*req.DefaultProvider); !ok {
			return Settings{}, fmt.Errorf("%w: %s", ErrUnsupportedProvider, *req.DefaultProvider)
		}
	}

	rec, err := s.store.Update(ctx, userID, storage.SettingsPatch{
		DefaultProvider: req.DefaultProvider,
		DefaultModel:    req.DefaultModel,
		Temperature:     req.Temperature,
		MaxTokens:       req.MaxTokens,
		SystemPrompt:    req.SystemPrompt,
		Theme:           req.Theme,
	})
	if err != nil {
		logger.ErrorContext(ctx, "failed to update settings", "error", err)
		return Settings{}, storeError(err, "failed to update settings")
	}

	logger.InfoContext(ctx, "settings updated")
	return settingsFromRecord(*rec), nil
}
