package websocket

import (
	"context"
	"sync"

	"branchdesk-server/internal/domain"
	"branchdesk-server/internal/viewsync"
	"branchdesk-server/pkg/jwt"
)

// Authenticator issues and checks anonymous session tokens.
type Authenticator interface {
	SignInAnonymously() (*domain.Session, error)
	ValidateToken(token string) (*jwt.Claims, error)
}

// TokenIdentity is the identity provider of one connection. A connection
// that presented a valid token starts signed in.
type TokenIdentity struct {
	auth Authenticator

	mu        sync.Mutex
	user      *viewsync.User
	listeners []func(*viewsync.User)
}

func NewTokenIdentity(auth Authenticator, token string) *TokenIdentity {
	p := &TokenIdentity{auth: auth}
	if token == "" {
		return p
	}

	if claims, err := auth.ValidateToken(token); err == nil {
		p.user = &viewsync.User{ID: claims.UserID, Token: token}
	}
	return p
}

func (p *TokenIdentity) OnAuthStateChange(fn func(*viewsync.User)) {
	p.mu.Lock()
	p.listeners = append(p.listeners, fn)
	user := p.user
	p.mu.Unlock()

	fn(user)
}

func (p *TokenIdentity) SignInAnonymously(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	session, err := p.auth.SignInAnonymously()
	if err != nil {
		return err
	}

	p.mu.Lock()
	p.user = &viewsync.User{ID: session.UserID, Token: session.AccessToken}
	user := p.user
	listeners := make([]func(*viewsync.User), len(p.listeners))
	copy(listeners, p.listeners)
	p.mu.Unlock()

	for _, fn := range listeners {
		fn(user)
	}
	return nil
}

func (p *TokenIdentity) User() *viewsync.User {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.user
}
