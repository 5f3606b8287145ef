package viewsync

import "context"

type SessionState string

const (
	StateUninitialized SessionState = "uninitialized"
	StateAwaitingAuth  SessionState = "awaiting_auth"
	StateAuthenticated SessionState = "authenticated"
)

// User is an identity issued by the provider.
type User struct {
	ID    string
	Token string
}

// IdentityProvider issues anonymous sessions. OnAuthStateChange delivers the
// current user (nil when signed out) once on registration and again after
// every change. Listeners are invoked without the provider's locks held.
type IdentityProvider interface {
	OnAuthStateChange(fn func(*User))
	SignInAnonymously(ctx context.Context) error
}

// Session is the connection status shown to the user. It reflects the last
// known auth state, not live connectivity.
type Session struct {
	State    SessionState `json:"state"`
	UserID   string       `json:"user_id,omitempty"`
	Token    string       `json:"token,omitempty"`
	Degraded bool         `json:"degraded,omitempty"`
}
