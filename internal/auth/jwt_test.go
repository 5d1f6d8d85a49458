package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestNewTokenService(t *testing.T) {
	if _, err := NewTokenService("", "multichat", time.Hour); err == nil {
		t.Error("NewTokenService() with empty secret should fail")
	}
	svc, err := NewTokenService("secret", "multichat", time.Hour)
	if err != nil || svc == nil {
		t.Fatalf("NewTokenService() = %v, %v", svc, err)
	}
}

func TestTokenService_IssueVerify(t *testing.T) {
	svc, err := NewTokenService("secret", "multichat", time.Hour)
	if err != nil {
		t.Fatalf("NewTokenService() error = %v", err)
	}

	token, err := svc.Issue("user-42")
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	userID, err := svc.Verify(token)
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if userID != "user-42" {
		t.Errorf("Verify() = %q, want user-42", userID)
	}

	if _, err := svc.Issue(""); err == nil {
		t.Error("Issue() with empty user should fail")
	}
}

func TestTokenService_Verify_Rejects(t *testing.T) {
	svc, _ := NewTokenService("secret", "multichat", time.Hour)
	other, _ := NewTokenService("other-secret", "multichat", time.Hour)
	otherIssuer, _ := NewTokenService("secret", "someone-else", time.Hour)
	expired, _ := NewTokenService("secret", "multichat", -time.Minute)

	foreign, _ := other.Issue("user-1")
	wrongIssuer, _ := otherIssuer.Issue("user-1")
	stale, _ := expired.Issue("user-1")

	none := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{
		Subject:   "user-1",
		Issuer:    "multichat",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	unsigned, _ := none.SignedString(jwt.UnsafeAllowNoneSignatureType)

	noSubject, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Issuer:    "multichat",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString([]byte("secret"))

	tests := []struct {
		name  string
		token string
	}{
		{name: "garbage", token: "not-a-token"},
		{name: "wrong secret", token: foreign},
		{name: "wrong issuer", token: wrongIssuer},
		{name: "expired", token: stale},
		{name: "alg none", token: unsigned},
		{name: "missing subject", token: noSubject},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := svc.Verify(tt.token); !errors.Is(err, ErrInvalidToken) {
				t.Errorf("Verify() error = %v, want ErrInvalidToken", err)
			}
		})
	}
}

func TestBearerToken(t *testing.T) {
	tests := []struct {
		name    string
		header  string
		want    string
		wantErr bool
	}{
		{name: "valid", header: "Bearer abc.def", want: "abc.def"},
		{name: "lowercase scheme", header: "bearer abc", want: "abc"},
		{name: "empty", header: "", wantErr: true},
		{name: "basic auth", header: "Basic dXNlcg==", wantErr: true},
		{name: "no token", header: "Bearer   ", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := BearerToken(tt.header)
			if tt.wantErr {
				if !errors.Is(err, ErrMissingToken) {
					t.Errorf("BearerToken() error = %v, want ErrMissingToken", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("BearerToken() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("BearerToken() = %q, want %q", got, tt.want)
			}
		})
	}
}
