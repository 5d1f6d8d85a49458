package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/mock/gomock"

	"multichat/internal/service"
	"multichat/internal/service/mocks"
)

func TestSettingsHandler(t *testing.T) {
	defaults := service.Settings{DefaultProvider: "google", DefaultModel: "gemini-2.0-flash", Temperature: 0.7, MaxTokens: 2000, Theme: "system"}

	t.Run("get", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		svc := mocks.NewMockSettingsService(ctrl)
		svc.EXPECT().Get(gomock.Any(), "user-1").Return(defaults, nil)

		w := httptest.NewRecorder()
		NewSettingsHandler(svc).Get(w, newRequest(t, http.MethodGet, "/api/settings", nil, nil))

		if w.Code != http.StatusOK {
			t.Fatalf("Get() status = %v", w.Code)
		}
		var resp SettingsResponse
		if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if resp.DefaultProvider != "google" || resp.MaxTokens != 2000 || resp.Theme != "system" {
			t.Errorf("Get() = %+v", resp)
		}
	})

	t.Run("partial update", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		svc := mocks.NewMockSettingsService(ctrl)
		svc.EXPECT().Update(gomock.Any(), "user-1", gomock.Any()).
			DoAndReturn(func(_ context.Context, _ string, req service.UpdateSettingsRequest) (service.Settings, error) {
				if req.Temperature == nil || *req.Temperature != 0.2 {
					t.Errorf("temperature not forwarded: %+v", req.Temperature)
				}
				if req.Theme != nil || req.DefaultProvider != nil {
					t.Errorf("omitted fields were set: %+v", req)
				}
				out := defaults
				out.Temperature = 0.2
				return out, nil
			})

		w := httptest.NewRecorder()
		NewSettingsHandler(svc).Update(w, newRequest(t, http.MethodPatch, "/api/settings", `{"temperature":0.2}`, nil))
		if w.Code != http.StatusOK {
			t.Fatalf("Update() status = %v (body %s)", w.Code, w.Body.String())
		}
	})

	t.Run("invalid update", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		svc := mocks.NewMockSettingsService(ctrl)
		svc.EXPECT().Update(gomock.Any(), "user-1", gomock.Any()).
			Return(service.Settings{}, &service.ValidationError{Field: "temperature", Message: "must be at most 2"})

		w := httptest.NewRecorder()
		NewSettingsHandler(svc).Update(w, newRequest(t, http.MethodPatch, "/api/settings", `{"temperature":3}`, nil))
		if w.Code != http.StatusBadRequest {
			t.Fatalf("Update() status = %v, want 400", w.Code)
		}
		if got := decodeError(t, w); got.Kind != KindValidation {
			t.Errorf("kind = %q, want %q", got.Kind, KindValidation)
		}
	})

	t.Run("store failure", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		svc := mocks.NewMockSettingsService(ctrl)
		svc.EXPECT().Get(gomock.Any(), "user-1").Return(service.Settings{}, fmt.Errorf("failed to get settings: %w", service.ErrConsistencyViolation))

		w := httptest.NewRecorder()
		NewSettingsHandler(svc).Get(w, newRequest(t, http.MethodGet, "/api/settings", nil, nil))
		if w.Code != http.StatusInternalServerError {
			t.Fatalf("Get() status = %v, want 500", w.Code)
		}
		if got := decodeError(t, w); got.Kind != KindConsistency {
			t.Errorf("kind = %q, want %q", got.Kind, KindConsistency)
		}
	})
}
