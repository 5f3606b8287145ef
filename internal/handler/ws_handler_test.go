package handler

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"branchdesk-server/internal/repository"
	"branchdesk-server/internal/service"
	"branchdesk-server/internal/viewsync"
	"branchdesk-server/internal/websocket"
)

func drain(client *websocket.Client) []*websocket.Message {
	var msgs []*websocket.Message
	for {
		select {
		case data := <-client.Send:
			var msg websocket.Message
			json.Unmarshal(data, &msg)
			msgs = append(msgs, &msg)
		default:
			return msgs
		}
	}
}

func newSessionClient(t *testing.T, token string) (*websocket.Client, *viewsync.Core) {
	t.Helper()

	manager := websocket.NewManager(5, 4096, time.Second, time.Minute, 50*time.Second)
	auth := service.NewAuthService("test-secret", time.Hour, 24*time.Hour)
	data := service.NewDataService(repository.NewMemoryGateway(), repository.NewMemoryObjectStorage(""), "")
	prefs := repository.NewMemoryPreferenceStore()

	client := websocket.NewClient("c1", "tablet", nil, manager)
	core := viewsync.NewCore(data, websocket.NewTokenIdentity(auth, token), viewsync.DevicePreferences(prefs, "tablet"), client, viewsync.Options{
		Branches: []string{"centro", "ejemplares"},
		Location: time.UTC,
	})
	client.Attach(core)
	t.Cleanup(core.Close)

	if err := core.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	return client, core
}

func TestWebSocketSession_SignsInAndPushesToken(t *testing.T) {
	client, core := newSessionClient(t, "")

	if got := core.Session(); got.State != viewsync.StateAuthenticated || got.Token == "" {
		t.Fatalf("Session() = %+v", got)
	}

	var last viewsync.Session
	for _, msg := range drain(client) {
		if msg.Type == websocket.TypeSession {
			msg.UnmarshalPayload(&last)
		}
	}
	if last.State != viewsync.StateAuthenticated || last.Token == "" {
		t.Errorf("last session message = %+v", last)
	}
}

func TestWebSocketMessageHandler(t *testing.T) {
	client, core := newSessionClient(t, "")
	drain(client)
	h := NewWebSocketMessageHandler()

	tests := []struct {
		name        string
		msgType     websocket.MessageType
		payload     interface{}
		wantErr     bool
		wantReplyOf websocket.MessageType
	}{
		{"switch branch", websocket.TypeSetBranch, websocket.SetBranchPayload{Branch: "ejemplares"}, false, websocket.TypeAck},
		{"unknown branch", websocket.TypeSetBranch, websocket.SetBranchPayload{Branch: "norte"}, true, websocket.TypeAck},
		{"set user", websocket.TypeSetUser, websocket.SetUserPayload{Name: "Ana"}, false, websocket.TypeAck},
		{"set view", websocket.TypeSetView, websocket.SetViewPayload{View: "orders"}, false, websocket.TypeAck},
		{"ping", websocket.TypePing, nil, false, websocket.TypePong},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, _ := websocket.NewMessage(tt.msgType, tt.payload)

			err := h.HandleWebSocketMessage(client, msg)
			if (err != nil) != tt.wantErr {
				t.Fatalf("HandleWebSocketMessage() error = %v, wantErr %v", err, tt.wantErr)
			}

			found := false
			for _, reply := range drain(client) {
				if reply.Type == tt.wantReplyOf {
					found = true
				}
			}
			if !found {
				t.Errorf("no %s reply", tt.wantReplyOf)
			}
		})
	}

	if core.Branch() != "ejemplares" || core.UserName() != "Ana" || core.ActiveView() != "orders" {
		t.Errorf("core state = %s/%s/%s", core.Branch(), core.UserName(), core.ActiveView())
	}
}
