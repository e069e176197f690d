package websocket

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/nyxscore/connectone-sub003/internal/infrastructure/notification"
	"github.com/nyxscore/connectone-sub003/pkg/logger"
)

// Client represents a WebSocket connection client
type Client struct {
	UserID string
	Conn   *websocket.Conn
	Send   chan []byte
}

// Manager keeps the active connections and forwards dispatcher
// notifications to the recipient's socket. Delivery here is best-effort;
// a recipient without an open socket simply misses the push.
type Manager struct {
	clients    map[string]*Client
	Register   chan *Client
	Unregister chan *Client
	dispatcher *notification.Dispatcher
	mutex      sync.RWMutex
}

func NewManager(dispatcher *notification.Dispatcher) *Manager {
	return &Manager{
		clients:    make(map[string]*Client),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		dispatcher: dispatcher,
	}
}

// Start runs the manager's main loop in a goroutine
func (m *Manager) Start(ctx context.Context) {
	events, cancel := m.dispatcher.Subscribe()

	go func() {
		defer cancel()
		for {
			select {
			case client := <-m.Register:
				m.mutex.Lock()
				m.clients[client.UserID] = client
				m.mutex.Unlock()
				logger.Info("Client registered: %s", client.UserID)

			case client := <-m.Unregister:
				m.mutex.Lock()
				if _, ok := m.clients[client.UserID]; ok {
					delete(m.clients, client.UserID)
					close(client.Send)
				}
				m.mutex.Unlock()
				logger.Info("Client unregistered: %s", client.UserID)

			case event, ok := <-events:
				if !ok {
					return
				}
				payload, err := json.Marshal(event)
				if err != nil {
					logger.Error("Failed to marshal notification: %v", err)
					continue
				}
				m.SendToUser(event.RecipientUID, payload)

			case <-ctx.Done():
				return
			}
		}
	}()
}

// SendToUser sends a message to a specific user
func (m *Manager) SendToUser(userID string, message []byte) {
	m.mutex.RLock()
	client, ok := m.clients[userID]
	m.mutex.RUnlock()

	if !ok {
		return
	}

	select {
	case client.Send <- message:
	default:
		logger.Warn("Dropping websocket push for %s, send buffer full", userID)
	}
}

// ReadPump reads messages from the WebSocket connection
func (c *Client) ReadPump(m *Manager) {
	defer func() {
		m.Unregister <- c
		c.Conn.Close()
	}()

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Error("websocket read: %v", err)
			}
			break
		}

		logger.Debug("Received message from %s: %s", c.UserID, string(message))
	}
}

// WritePump sends messages to the WebSocket connection
func (c *Client) WritePump() {
	defer c.Conn.Close()

	for {
		message, ok := <-c.Send
		if !ok {
			c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		}

		if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
			logger.Error("websocket write: %v", err)
			return
		}
	}
}
