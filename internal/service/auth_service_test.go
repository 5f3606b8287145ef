package service

import (
	"errors"
	"strings"
	"testing"
	"time"

	"branchdesk-server/internal/domain"
)

func TestAuthService_SignInAnonymously(t *testing.T) {
	service := NewAuthService("test-secret", 15*time.Minute, 7*24*time.Hour)

	first, err := service.SignInAnonymously()
	if err != nil {
		t.Fatalf("SignInAnonymously() error = %v", err)
	}
	second, _ := service.SignInAnonymously()

	if !strings.HasPrefix(first.UserID, "anon-") {
		t.Errorf("UserID = %q, want anon- prefix", first.UserID)
	}
	if first.UserID == second.UserID {
		t.Error("two sign-ins share a user id")
	}
	if first.ExpiresIn != int64((15 * time.Minute).Seconds()) {
		t.Errorf("ExpiresIn = %d", first.ExpiresIn)
	}

	claims, err := service.ValidateToken(first.AccessToken)
	if err != nil {
		t.Fatalf("ValidateToken() error = %v", err)
	}
	if claims.UserID != first.UserID {
		t.Errorf("claims.UserID = %q, want %q", claims.UserID, first.UserID)
	}

	if _, err := service.ValidateToken(first.RefreshToken); err == nil {
		t.Error("ValidateToken() accepted a refresh token")
	}
}

func TestAuthService_SignInWithoutSecret(t *testing.T) {
	service := NewAuthService("", time.Minute, time.Hour)

	_, err := service.SignInAnonymously()

	var aerr *AuthError
	if !errors.As(err, &aerr) {
		t.Errorf("SignInAnonymously() error = %v, want AuthError", err)
	}
}

func TestAuthService_RefreshToken(t *testing.T) {
	service := NewAuthService("test-secret", 15*time.Minute, 7*24*time.Hour)
	session, _ := service.SignInAnonymously()

	tests := []struct {
		name    string
		token   string
		wantErr bool
	}{
		{"valid refresh token", session.RefreshToken, false},
		{"access token", session.AccessToken, true},
		{"garbage", "not-a-token", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := service.RefreshToken(&domain.RefreshTokenRequest{RefreshToken: tt.token})
			if (err != nil) != tt.wantErr {
				t.Fatalf("RefreshToken() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			claims, err := service.ValidateToken(resp.AccessToken)
			if err != nil {
				t.Fatalf("ValidateToken() error = %v", err)
			}
			if claims.UserID != session.UserID {
				t.Errorf("claims.UserID = %q, want %q", claims.UserID, session.UserID)
			}
		})
	}
}
