package service_test

import (
	"errors"
	"testing"

	"multichat/internal/llm"
	"multichat/internal/service"
	"multichat/internal/service/mocks"
	"multichat/internal/storage"

	"go.uber.org/mock/gomock"
)

func ptr[T any](v T) *T {
	return &v
}

func TestSettingsService_GetDefaults(t *testing.T) {
	stores := newSQLiteStores(t)
	ctrl := gomock.NewController(t)
	svc := service.NewSettingsService(stores.settings, mocks.NewMockLLMClient(ctrl))

	got, err := svc.Get(testContext(), "user-1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	want := storage.DefaultSettings("user-1")
	if got.DefaultProvider != want.DefaultProvider || got.DefaultModel != want.DefaultModel ||
		got.Temperature != want.Temperature || got.MaxTokens != want.MaxTokens || got.Theme != want.Theme {
		t.Errorf("Get() = %+v, want defaults %+v", got, want)
	}

	if _, err := svc.Get(testContext(), ""); !errors.Is(err, service.ErrUnauthenticated) {
		t.Errorf("Get() without user error = %v, want ErrUnauthenticated", err)
	}
}

func TestSettingsService_Update(t *testing.T) {
	tests := []struct {
		name      string
		req       service.UpdateSettingsRequest
		mockSetup func(providers *mocks.MockLLMClient)
		wantErr   error
		check     func(t *testing.T, got service.Settings)
	}{
		{
			name: "partial update keeps other fields",
			req:  service.UpdateSettingsRequest{Temperature: ptr(1.2), Theme: ptr("dark")},
			check: func(t *testing.T, got service.Settings) {
				if got.Temperature != 1.2 || got.Theme != "dark" {
					t.Errorf("updated fields = %v/%q", got.Temperature, got.Theme)
				}
				if got.DefaultProvider != "google" || got.MaxTokens != 2000 {
					t.Errorf("untouched fields changed: %+v", got)
				}
			},
		},
		{
			name: "zero temperature is allowed",
			req:  service.UpdateSettingsRequest{Temperature: ptr(0.0)},
			check: func(t *testing.T, got service.Settings) {
				if got.Temperature != 0 {
					t.Errorf("temperature = %v, want 0", got.Temperature)
				}
			},
		},
		{
			name: "switch default provider",
			req:  service.UpdateSettingsRequest{DefaultProvider: ptr("openai"), DefaultModel: ptr("gpt-4o")},
			mockSetup: func(providers *mocks.MockLLMClient) {
				providers.EXPECT().Provider("openai").Return(openAISpec, true)
			},
			check: func(t *testing.T, got service.Settings) {
				if got.DefaultProvider != "openai" || got.DefaultModel != "gpt-4o" {
					t.Errorf("defaults = %s/%s", got.DefaultProvider, got.DefaultModel)
				}
			},
		},
		{
			name: "unknown provider",
			req:  service.UpdateSettingsRequest{DefaultProvider: ptr("acme")},
			mockSetup: func(providers *mocks.MockLLMClient) {
				providers.EXPECT().Provider("acme").Return(llm.ProviderSpec{}, false)
			},
			wantErr: service.ErrUnsupportedProvider,
		},
		{
			name:    "temperature out of range",
			req:     service.UpdateSettingsRequest{Temperature: ptr(2.5)},
			wantErr: service.ErrInvalidInput,
		},
		{
			name:    "non-positive max tokens",
			req:     service.UpdateSettingsRequest{MaxTokens: ptr(0)},
			wantErr: service.ErrInvalidInput,
		},
		{
			name:    "unknown theme",
			req:     service.UpdateSettingsRequest{Theme: ptr("neon")},
			wantErr: service.ErrInvalidInput,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stores := newSQLiteStores(t)
			ctrl := gomock.NewController(t)
			providers := mocks.NewMockLLMClient(ctrl)
			if tt.mockSetup != nil {
				tt.mockSetup(providers)
			}
			svc := service.NewSettingsService(stores.settings, providers)

			got, err := svc.Update(testContext(), "user-1", tt.req)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Update() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Update() unexpected error = %v", err)
			}
			tt.check(t, got)

			// The stored value matches what Update returned.
			stored, err := svc.Get(testContext(), "user-1")
			if err != nil {
				t.Fatalf("Get() error = %v", err)
			}
			if stored != got {
				t.Errorf("Get() = %+v, want %+v", stored, got)
			}
		})
	}
}

func TestSettingsService_Update_ValidationField(t *testing.T) {
	stores := newSQLiteStores(t)
	svc := service.NewSettingsService(stores.settings, mocks.NewMockLLMClient(gomock.NewController(t)))

	_, err := svc.Update(testContext(), "user-1", service.UpdateSettingsRequest{MaxTokens: ptr(-5)})
	var validationErr *service.ValidationError
	if !errors.As(err, &validationErr) {
		t.Fatalf("Update() error = %v, want *ValidationError", err)
	}
	if validationErr.Field != "max_tokens" {
		t.Errorf("ValidationError.Field = %q, want max_tokens", validationErr.Field)
	}
}
