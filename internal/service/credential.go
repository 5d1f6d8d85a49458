package service

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_credential_service.go -package=mocks -mock_names=CredentialService=MockCredentialService multichat/internal/service CredentialService

import (
	"context"
	"fmt"

	"multichat/internal/contextutil"
	"multichat/internal/storage"
)

// SaveCredentialRequest stores a new active secret for a provider.
type SaveCredentialRequest struct {
	Provider string `json:"provider" validate:"required"`
	Secret   string `json:"secret" validate:"required"`
}

// CredentialService manages per-user provider credentials.
type CredentialService interface {
	// Save rotates the active credential for req.Provider.
	Save(ctx context.Context, userID string, req SaveCredentialRequest) (Credential, error)
	// List returns the user's credentials without secrets.
	List(ctx context.Context, userID string) ([]Credential, error)
	// Delete hard-deletes a credential owned by the user.
	Delete(ctx context.Context, userID, credentialID string) error
}

// credentialService implements CredentialService.
type credentialService struct {
	store     storage.CredentialStore
	providers LLMClient
}

// NewCredentialService creates a new CredentialService.
func NewCredentialService(store storage.CredentialStore, providers LLMClient) CredentialService {
	return &credentialService{
		store:     store,
		providers: providers,
	}
}

// Save validates the provider and stores the secret as the active credential.
func (s *credentialService) Save(ctx context.Context, userID string, req SaveCredentialRequest) (Credential, error) {
	logger := contextutil.LoggerFromContext(ctx)

	if err := requireUser(userID); err != nil {
		return Credential{}, err
	}
	if err := validateStruct(req); err != nil {
		logger.WarnContext(ctx, "invalid credential request", "error", err)
		return Credential{}, err
	}
	if _, ok := s.providers.Provider(req.Provider); !ok {
		return Credential{}, fmt.Errorf("%w: %s", ErrUnsupportedProvider, req.Provider)
	}

	rec, err := s.store.Save(ctx, userID, req.Provider, req.Secret)
	if err != nil {
		logger.ErrorContext(ctx, "failed to save credential", "provider", req.Provider, "error", err)
		return Credential{}, storeError(err, "failed to save credential")
	}

	logger.InfoContext(ctx, "credential saved", "provider", req.Provider, "credential_id", rec.ID)
	return credentialFromRecord(*rec), nil
}

// List returns the user's credentials.
func (s *credentialService) List(ctx context.Context, userID string) ([]Credential, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}

	recs, err := s.store.ListByUser(ctx, userID)
	if err != nil {
		return nil, storeError(err, "failed to list credentials")
	}

	out := make([]Credential, 0, len(recs))
	for _, r := range recs {
		out = append(out, credentialFromRecord(r))
	}
	return out, nil
}

// Delete removes a credential.
func (s *credentialService) Delete(ctx context.Context, userID, credentialID string) error {
	logger := contextutil.LoggerFromContext(ctx)

	if err := requireUser(userID); err != nil {
		return err
	}

	if err := s.store.Delete(ctx, userID, credentialID); err != nil {
		return storeError(err, "failed to delete credential")
	}

	logger.InfoContext(ctx, "credential deleted", "credential_id", credentialID)
	return nil
}
