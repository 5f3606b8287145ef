package service

import (
	"fmt"
	"time"

	"branchdesk-server/internal/domain"
	"branchdesk-server/pkg/jwt"

	"github.com/google/uuid"
)

// AuthService issues anonymous sessions. There are no accounts: every sign-in
// mints a fresh identity.
type AuthService struct {
	jwtSecret         string
	jwtExpiration     time.Duration
	refreshExpiration time.Duration
}

func NewAuthService(jwtSecret string, jwtExp, refreshExp time.Duration) *AuthService {
	return &AuthService{
		jwtSecret:         jwtSecret,
		jwtExpiration:     jwtExp,
		refreshExpiration: refreshExp,
	}
}

func (s *AuthService) SignInAnonymously() (*domain.Session, error) {
	if s.jwtSecret == "" {
		return nil, &AuthError{Err: fmt.Errorf("session signing is not configured")}
	}

	userID := "anon-" + uuid.New().String()

	accessToken, err := jwt.GenerateToken(userID, s.jwtExpiration, s.jwtSecret)
	if err != nil {
		return nil, &AuthError{Err: fmt.Errorf("failed to generate access token: %w", err)}
	}

	refreshToken, err := jwt.GenerateRefreshToken(userID, s.refreshExpiration, s.jwtSecret)
	if err != nil {
		return nil, &AuthError{Err: fmt.Errorf("failed to generate refresh token: %w", err)}
	}

	return &domain.Session{
		UserID:       userID,
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    int64(s.jwtExpiration.Seconds()),
	}, nil
}

func (s *AuthService) RefreshToken(req *domain.RefreshTokenRequest) (*domain.TokenResponse, error) {
	claims, err := jwt.ValidateToken(req.RefreshToken, s.jwtSecret)
	if err != nil || claims.TokenType != jwt.TokenTypeRefresh {
		return nil, &AuthError{Err: fmt.Errorf("invalid refresh token")}
	}

	accessToken, err := jwt.GenerateToken(claims.UserID, s.jwtExpiration, s.jwtSecret)
	if err != nil {
		return nil, &AuthError{Err: fmt.Errorf("failed to generate access token: %w", err)}
	}

	return &domain.TokenResponse{
		AccessToken: accessToken,
		ExpiresIn:   int64(s.jwtExpiration.Seconds()),
	}, nil
}

func (s *AuthService) ValidateToken(token string) (*jwt.Claims, error) {
	claims, err := jwt.ValidateAccessToken(token, s.jwtSecret)
	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}
	return claims, nil
}
