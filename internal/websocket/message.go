package websocket

import (
	"encoding/json"
	"time"

	"branchdesk-server/internal/viewsync"
)

type MessageType string

const (
	// client to server
	TypeSetBranch MessageType = "set_branch"
	TypeSetUser   MessageType = "set_user"
	TypeSetView   MessageType = "set_view"
	TypeSignIn    MessageType = "sign_in"
	TypeRefresh   MessageType = "refresh"
	TypePing      MessageType = "ping"

	// server to client
	TypeSession  MessageType = "session"
	TypeTheme    MessageType = "theme"
	TypeSnapshot MessageType = "snapshot"
	TypeCatalog  MessageType = "catalog"
	TypeNotice   MessageType = "notice"
	TypeAck      MessageType = "ack"
	TypePong     MessageType = "pong"
)

type Message struct {
	Type      MessageType     `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

type SetBranchPayload struct {
	Branch string `json:"branch"`
}

type SetUserPayload struct {
	Name string `json:"name"`
}

type SetViewPayload struct {
	View string `json:"view"`
}

type ThemePayload struct {
	Branch string `json:"branch"`
}

type CatalogPayload struct {
	Items []string `json:"items"`
}

// SessionPayload, SnapshotPayload and NoticePayload are sent as produced by
// the view sync core.
type (
	SessionPayload  = viewsync.Session
	SnapshotPayload = viewsync.Snapshot
	NoticePayload   = viewsync.Notice
)

type AckPayload struct {
	Type    MessageType `json:"type"`
	Success bool        `json:"success"`
	Error   string      `json:"error,omitempty"`
}

func NewMessage(msgType MessageType, payload interface{}) (*Message, error) {
	var payloadBytes json.RawMessage
	if payload != nil {
		bytes, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		payloadBytes = bytes
	}

	return &Message{
		Type:      msgType,
		Timestamp: time.Now(),
		Payload:   payloadBytes,
	}, nil
}

func (m *Message) UnmarshalPayload(v interface{}) error {
	if m.Payload == nil {
		return nil
	}
	return json.Unmarshal(m.Payload, v)
}
