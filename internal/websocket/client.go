package websocket

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"branchdesk-server/internal/viewsync"

	"github.com/gorilla/websocket"
)

// Client is one dashboard connection. It renders the output of its view sync
// core as messages on Send.
type Client struct {
	ID       string
	DeviceID string
	Conn     *websocket.Conn
	Manager  *Manager
	Send     chan []byte

	mu      sync.Mutex
	core    *viewsync.Core
	closed  bool
	evicted bool
}

const sendBufferSize = 256

func NewClient(id, deviceID string, conn *websocket.Conn, manager *Manager) *Client {
	return &Client{
		ID:       id,
		DeviceID: deviceID,
		Conn:     conn,
		Manager:  manager,
		Send:     make(chan []byte, sendBufferSize),
	}
}

// Attach binds the view sync core that drives this connection. The core is
// closed when the client unregisters.
func (c *Client) Attach(core *viewsync.Core) {
	c.mu.Lock()
	c.core = core
	c.mu.Unlock()
}

func (c *Client) Core() *viewsync.Core {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.core
}

func (c *Client) Render(snapshot viewsync.Snapshot) {
	c.emit(TypeSnapshot, snapshot)
}

func (c *Client) SetTheme(theme string) {
	c.emit(TypeTheme, ThemePayload{Branch: theme})
}

func (c *Client) SetSession(session viewsync.Session) {
	c.emit(TypeSession, session)
}

func (c *Client) Catalog(items []string) {
	c.emit(TypeCatalog, CatalogPayload{Items: items})
}

func (c *Client) Notify(notice viewsync.Notice) {
	c.emit(TypeNotice, notice)
}

// Emit queues a message without blocking. Messages to a closed client are
// dropped. A client whose buffer is full is disconnected and resyncs when it
// reconnects.
func (c *Client) Emit(msgType MessageType, payload interface{}) {
	c.emit(msgType, payload)
}

func (c *Client) emit(msgType MessageType, payload interface{}) {
	msg, err := NewMessage(msgType, payload)
	if err != nil {
		log.Printf("[WebSocket] failed to encode %s: %v", msgType, err)
		return
	}
	data, err := json.Marshal(msg)
	if err != nil {
		log.Printf("[WebSocket] failed to encode %s: %v", msgType, err)
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}

	select {
	case c.Send <- data:
	default:
		if c.evicted {
			return
		}
		c.evicted = true
		log.Printf("[WebSocket] client %s send buffer full at %s, disconnecting", c.ID, msgType)
		// emit can run under the core lock; unregistering closes the core
		go c.evict()
	}
}

func (c *Client) evict() {
	if c.Conn != nil {
		c.Conn.Close()
	}
	c.Manager.unregisterClient(c)
}

// shutdown closes the core, then the send channel.
func (c *Client) shutdown() {
	c.mu.Lock()
	core := c.core
	c.mu.Unlock()

	if core != nil {
		core.Close()
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.Send)
	}
}

func (c *Client) ReadPump() {
	defer func() {
		c.Manager.Unregister <- c
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(c.Manager.maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(c.Manager.pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(c.Manager.pongWait))
		return nil
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("[WebSocket] read error on %s: %v", c.ID, err)
			}
			break
		}

		c.Manager.HandleMessage <- &ClientMessage{
			Client:  c,
			Message: message,
		}
	}
}

func (c *Client) WritePump() {
	ticker := time.NewTicker(c.Manager.pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(c.Manager.writeWait))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.Conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			n := len(c.Send)
			for i := 0; i < n; i++ {
				w.Write([]byte{'\n'})
				w.Write(<-c.Send)
			}

			if err := w.Close(); err != nil {
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(c.Manager.writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
