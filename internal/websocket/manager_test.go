package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"branchdesk-server/internal/domain"
	"branchdesk-server/internal/viewsync"
	"branchdesk-server/pkg/jwt"
)

func newTestManager(maxConn int) *Manager {
	return NewManager(maxConn, 4096, time.Second, time.Minute, 50*time.Second)
}

func readMessage(t *testing.T, client *Client) *Message {
	t.Helper()

	select {
	case data, ok := <-client.Send:
		if !ok {
			t.Fatal("send channel closed")
		}
		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			t.Fatalf("invalid message %s: %v", data, err)
		}
		return &msg
	default:
		t.Fatal("no message queued")
	}
	return nil
}

func TestManager_RegisterLimitsConnectionsPerDevice(t *testing.T) {
	m := newTestManager(2)

	clients := []*Client{
		NewClient("c1", "tablet", nil, m),
		NewClient("c2", "tablet", nil, m),
		NewClient("c3", "tablet", nil, m),
	}
	for _, c := range clients {
		m.registerClient(c)
	}

	if got := m.GetDeviceConnections("tablet"); got != 2 {
		t.Errorf("GetDeviceConnections() = %d, want 2", got)
	}
	if _, ok := <-clients[2].Send; ok {
		t.Error("rejected client send channel still open")
	}
}

func TestManager_UnregisterClosesClient(t *testing.T) {
	m := newTestManager(5)
	client := NewClient("c1", "tablet", nil, m)
	m.registerClient(client)

	m.unregisterClient(client)
	m.unregisterClient(client)

	if got := m.GetDeviceConnections("tablet"); got != 0 {
		t.Errorf("GetDeviceConnections() = %d, want 0", got)
	}
	if _, ok := <-client.Send; ok {
		t.Error("send channel still open after unregister")
	}

	client.Emit(TypePong, nil)
}

func TestManager_SendToClient(t *testing.T) {
	m := newTestManager(5)
	client := NewClient("c1", "tablet", nil, m)
	m.registerClient(client)

	if !m.SendToClient("c1", TypeNotice, viewsync.Notice{Level: "info", Message: "hello"}) {
		t.Fatal("SendToClient() = false")
	}
	if m.SendToClient("missing", TypePong, nil) {
		t.Error("SendToClient(missing) = true")
	}

	msg := readMessage(t, client)
	if msg.Type != TypeNotice {
		t.Errorf("Type = %q, want notice", msg.Type)
	}
	var notice NoticePayload
	msg.UnmarshalPayload(&notice)
	if notice.Message != "hello" {
		t.Errorf("Message = %q", notice.Message)
	}
}

func TestClient_FullBufferDisconnects(t *testing.T) {
	m := newTestManager(5)
	client := NewClient("c1", "tablet", nil, m)
	m.registerClient(client)

	for i := 0; i < sendBufferSize; i++ {
		client.Render(viewsync.Snapshot{Collection: domain.CollectionTasks, Branch: "centro", Items: []interface{}{}})
	}
	if got := m.GetDeviceConnections("tablet"); got != 1 {
		t.Fatalf("GetDeviceConnections() with a full buffer = %d, want 1", got)
	}

	client.Render(viewsync.Snapshot{Collection: domain.CollectionTasks, Branch: "centro", Items: []interface{}{}})

	deadline := time.Now().Add(2 * time.Second)
	for m.GetDeviceConnections("tablet") != 0 {
		if time.Now().After(deadline) {
			t.Fatal("slow client was not disconnected")
		}
		time.Sleep(5 * time.Millisecond)
	}

	queued := 0
	for range client.Send {
		queued++
	}
	if queued != sendBufferSize {
		t.Errorf("queued = %d, want %d", queued, sendBufferSize)
	}
}

func TestClient_RendersCoreOutput(t *testing.T) {
	client := NewClient("c1", "tablet", nil, newTestManager(1))

	client.SetTheme("ejemplares")
	client.Render(viewsync.Snapshot{Collection: domain.CollectionScripts, Branch: "ejemplares", Items: []interface{}{}})

	theme := readMessage(t, client)
	var themePayload ThemePayload
	theme.UnmarshalPayload(&themePayload)
	if theme.Type != TypeTheme || themePayload.Branch != "ejemplares" {
		t.Errorf("theme message = %s %+v", theme.Type, themePayload)
	}

	snapshot := readMessage(t, client)
	var snapshotPayload SnapshotPayload
	snapshot.UnmarshalPayload(&snapshotPayload)
	if snapshot.Type != TypeSnapshot || snapshotPayload.Collection != domain.CollectionScripts {
		t.Errorf("snapshot message = %s %+v", snapshot.Type, snapshotPayload)
	}
}

type fakeAuthenticator struct {
	err error
}

func (f *fakeAuthenticator) SignInAnonymously() (*domain.Session, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &domain.Session{UserID: "anon-new", AccessToken: "issued"}, nil
}

func (f *fakeAuthenticator) ValidateToken(token string) (*jwt.Claims, error) {
	if token != "good" {
		return nil, errors.New("invalid token")
	}
	return &jwt.Claims{UserID: "anon-existing"}, nil
}

func TestTokenIdentity(t *testing.T) {
	tests := []struct {
		name     string
		token    string
		wantUser string
	}{
		{"valid token", "good", "anon-existing"},
		{"invalid token", "bad", ""},
		{"no token", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			identity := NewTokenIdentity(&fakeAuthenticator{}, tt.token)

			var seen *viewsync.User
			identity.OnAuthStateChange(func(u *viewsync.User) { seen = u })

			got := ""
			if seen != nil {
				got = seen.ID
			}
			if got != tt.wantUser {
				t.Errorf("first notification user = %q, want %q", got, tt.wantUser)
			}
		})
	}
}

func TestTokenIdentity_SignInNotifiesListeners(t *testing.T) {
	identity := NewTokenIdentity(&fakeAuthenticator{}, "")

	var notifications []*viewsync.User
	identity.OnAuthStateChange(func(u *viewsync.User) { notifications = append(notifications, u) })

	if err := identity.SignInAnonymously(testContext(t)); err != nil {
		t.Fatalf("SignInAnonymously() error = %v", err)
	}

	if len(notifications) != 2 || notifications[1] == nil || notifications[1].Token != "issued" {
		t.Errorf("notifications = %v", notifications)
	}
}

func TestTokenIdentity_SignInFailure(t *testing.T) {
	identity := NewTokenIdentity(&fakeAuthenticator{err: errors.New("down")}, "")

	if err := identity.SignInAnonymously(testContext(t)); err == nil {
		t.Error("SignInAnonymously() error = nil")
	}
	if identity.User() != nil {
		t.Error("User() set after failed sign-in")
	}
}

// testContext stands in for testing.T.Context (Go 1.24+): it is cancelled
// when the test finishes.
func testContext(t *testing.T) context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	return ctx
}
