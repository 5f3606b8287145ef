package handler

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"branchdesk-server/internal/repository"
	"branchdesk-server/internal/viewsync"
	"branchdesk-server/internal/websocket"

	"github.com/google/uuid"
	ws "github.com/gorilla/websocket"
)

const messageTimeout = 10 * time.Second

// WebSocketHandler opens one live dashboard session per connection. A
// connection may present a session token; without one the session signs in
// anonymously and pushes the issued token to the client.
type WebSocketHandler struct {
	ctx      context.Context
	manager  *websocket.Manager
	auth     websocket.Authenticator
	data     viewsync.DataSource
	prefs    repository.PreferenceStore
	options  viewsync.Options
	upgrader ws.Upgrader
}

func NewWebSocketHandler(ctx context.Context, manager *websocket.Manager, auth websocket.Authenticator, data viewsync.DataSource, prefs repository.PreferenceStore, options viewsync.Options, readBuffer, writeBuffer int) *WebSocketHandler {
	return &WebSocketHandler{
		ctx:     ctx,
		manager: manager,
		auth:    auth,
		data:    data,
		prefs:   prefs,
		options: options,
		upgrader: ws.Upgrader{
			ReadBufferSize:  readBuffer,
			WriteBufferSize: writeBuffer,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
}

func (h *WebSocketHandler) HandleConnection(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		token = strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	}

	deviceID := r.URL.Query().Get("device_id")
	if deviceID == "" {
		deviceID = "default"
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[WebSocket] Failed to upgrade connection: %v", err)
		return
	}

	client := websocket.NewClient(uuid.New().String(), deviceID, conn, h.manager)
	identity := websocket.NewTokenIdentity(h.auth, token)
	core := viewsync.NewCore(h.data, identity, viewsync.DevicePreferences(h.prefs, deviceID), client, h.options)
	client.Attach(core)

	h.manager.Register <- client

	go client.WritePump()
	go client.ReadPump()

	if err := core.Start(h.ctx); err != nil {
		log.Printf("[WebSocket] session %s did not start: %v", client.ID, err)
		return
	}
	go core.WatchDayRollover(h.ctx)
}

// WebSocketMessageHandler applies dashboard commands to the session core of
// the sending client.
type WebSocketMessageHandler struct{}

func NewWebSocketMessageHandler() *WebSocketMessageHandler {
	return &WebSocketMessageHandler{}
}

func (h *WebSocketMessageHandler) HandleWebSocketMessage(client *websocket.Client, msg *websocket.Message) error {
	if msg.Type == websocket.TypePing {
		client.Emit(websocket.TypePong, nil)
		return nil
	}

	core := client.Core()
	if core == nil {
		return errors.New("no session attached")
	}

	ctx, cancel := context.WithTimeout(context.Background(), messageTimeout)
	defer cancel()

	var err error
	switch msg.Type {
	case websocket.TypeSetBranch:
		var payload websocket.SetBranchPayload
		if err = msg.UnmarshalPayload(&payload); err == nil {
			err = core.SetBranch(ctx, payload.Branch)
		}

	case websocket.TypeSetUser:
		var payload websocket.SetUserPayload
		if err = msg.UnmarshalPayload(&payload); err == nil {
			err = core.SetUserName(ctx, payload.Name)
		}

	case websocket.TypeSetView:
		var payload websocket.SetViewPayload
		if err = msg.UnmarshalPayload(&payload); err == nil {
			err = core.SetView(payload.View)
		}

	case websocket.TypeSignIn:
		err = core.SignIn(ctx)

	case websocket.TypeRefresh:
		core.Refresh()

	default:
		log.Printf("[WebSocket] unknown message type: %s", msg.Type)
		return nil
	}

	ack := websocket.AckPayload{Type: msg.Type, Success: err == nil}
	if err != nil {
		ack.Error = err.Error()
	}
	client.Emit(websocket.TypeAck, ack)

	return err
}
