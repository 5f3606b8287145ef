package websocket

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"branchdesk-server/internal/metrics"
)

type ClientMessage struct {
	Client  *Client
	Message []byte
}

type Manager struct {
	clients          map[string]*Client
	deviceIndex      map[string]map[string]bool
	clientsMutex     sync.RWMutex
	Register         chan *Client
	Unregister       chan *Client
	HandleMessage    chan *ClientMessage
	maxConnPerDevice int
	maxMessageSize   int64
	writeWait        time.Duration
	pongWait         time.Duration
	pingPeriod       time.Duration
	messageHandler   MessageHandler
}

type MessageHandler interface {
	HandleWebSocketMessage(client *Client, msg *Message) error
}

func NewManager(maxConnPerDevice int, maxMessageSize int64, writeWait, pongWait, pingPeriod time.Duration) *Manager {
	return &Manager{
		clients:          make(map[string]*Client),
		deviceIndex:      make(map[string]map[string]bool),
		Register:         make(chan *Client),
		Unregister:       make(chan *Client),
		HandleMessage:    make(chan *ClientMessage),
		maxConnPerDevice: maxConnPerDevice,
		maxMessageSize:   maxMessageSize,
		writeWait:        writeWait,
		pongWait:         pongWait,
		pingPeriod:       pingPeriod,
	}
}

func (m *Manager) SetMessageHandler(handler MessageHandler) {
	m.messageHandler = handler
}

func (m *Manager) Run() {
	for {
		select {
		case client := <-m.Register:
			m.registerClient(client)

		case client := <-m.Unregister:
			m.unregisterClient(client)

		case clientMsg := <-m.HandleMessage:
			m.processMessage(clientMsg)
		}
	}
}

func (m *Manager) registerClient(client *Client) {
	m.clientsMutex.Lock()
	defer m.clientsMutex.Unlock()

	if m.deviceIndex[client.DeviceID] == nil {
		m.deviceIndex[client.DeviceID] = make(map[string]bool)
	}

	if m.maxConnPerDevice > 0 && len(m.deviceIndex[client.DeviceID]) >= m.maxConnPerDevice {
		log.Printf("[WebSocket] max connections reached for device %s", client.DeviceID)
		client.shutdown()
		return
	}

	m.clients[client.ID] = client
	m.deviceIndex[client.DeviceID][client.ID] = true
	metrics.LiveSessions.Inc()

	log.Printf("[WebSocket] client registered: %s (device: %s)", client.ID, client.DeviceID)
}

func (m *Manager) unregisterClient(client *Client) {
	m.clientsMutex.Lock()
	_, ok := m.clients[client.ID]
	if ok {
		delete(m.clients, client.ID)
		delete(m.deviceIndex[client.DeviceID], client.ID)

		if len(m.deviceIndex[client.DeviceID]) == 0 {
			delete(m.deviceIndex, client.DeviceID)
		}
		metrics.LiveSessions.Dec()
	}
	m.clientsMutex.Unlock()

	client.shutdown()
	if ok {
		log.Printf("[WebSocket] client unregistered: %s", client.ID)
	}
}

func (m *Manager) processMessage(clientMsg *ClientMessage) {
	var msg Message
	if err := json.Unmarshal(clientMsg.Message, &msg); err != nil {
		log.Printf("[WebSocket] error unmarshaling message: %v", err)
		return
	}

	if m.messageHandler != nil {
		if err := m.messageHandler.HandleWebSocketMessage(clientMsg.Client, &msg); err != nil {
			log.Printf("[WebSocket] error handling %s: %v", msg.Type, err)
		}
	}
}

// Broadcast queues message for every connected client.
func (m *Manager) Broadcast(msgType MessageType, payload interface{}) {
	m.clientsMutex.RLock()
	defer m.clientsMutex.RUnlock()

	for _, client := range m.clients {
		client.Emit(msgType, payload)
	}
}

func (m *Manager) SendToClient(clientID string, msgType MessageType, payload interface{}) bool {
	m.clientsMutex.RLock()
	client, exists := m.clients[clientID]
	m.clientsMutex.RUnlock()

	if !exists {
		return false
	}
	client.Emit(msgType, payload)
	return true
}

func (m *Manager) GetDeviceConnections(deviceID string) int {
	m.clientsMutex.RLock()
	defer m.clientsMutex.RUnlock()

	if clients, exists := m.deviceIndex[deviceID]; exists {
		return len(clients)
	}
	return 0
}

// Shutdown closes every client session.
func (m *Manager) Shutdown() {
	m.clientsMutex.Lock()
	clients := make([]*Client, 0, len(m.clients))
	for id, client := range m.clients {
		clients = append(clients, client)
		delete(m.clients, id)
	}
	m.deviceIndex = make(map[string]map[string]bool)
	m.clientsMutex.Unlock()

	for _, client := range clients {
		client.shutdown()
		metrics.LiveSessions.Dec()
	}
}
