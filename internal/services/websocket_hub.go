package services

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/mealsync/server/internal/events"
	"github.com/mealsync/server/internal/observability"
)

// WSMessage represents a WebSocket message
type WSMessage struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// WSClient represents a connected WebSocket client
type WSClient struct {
	ID         string
	UserID     string
	Topics     map[string]bool
	Conn       *websocket.Conn
	Send       chan []byte
	hub        *WebSocketHub
	mu         sync.Mutex
	closedOnce sync.Once
}

// WebSocketHub fans sync progress out to connected UI clients. Delivery is
// best effort, at most once; stored sync state never depends on it.
type WebSocketHub struct {
	clients    map[*WSClient]bool
	topics     map[string]map[*WSClient]bool
	userConns  map[string]map[*WSClient]bool
	register   chan *WSClient
	unregister chan *WSClient
	broadcast  chan *broadcastMsg
	mu         sync.RWMutex
	logger     *observability.Logger
}

type broadcastMsg struct {
	topic   string
	userID  string // if set, only send to this user
	message []byte
}

// NewWebSocketHub creates a new WebSocket hub
func NewWebSocketHub() *WebSocketHub {
	return &WebSocketHub{
		clients:    make(map[*WSClient]bool),
		topics:     make(map[string]map[*WSClient]bool),
		userConns:  make(map[string]map[*WSClient]bool),
		register:   make(chan *WSClient),
		unregister: make(chan *WSClient),
		broadcast:  make(chan *broadcastMsg, 256),
		logger:     observability.GetLogger().WithField("component", "ws_hub"),
	}
}

// Run starts the hub's main loop
func (h *WebSocketHub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()
			h.logger.WithField("client_id", client.ID).Debug("websocket client connected")

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				for topic := range client.Topics {
					if topicClients, ok := h.topics[topic]; ok {
						delete(topicClients, client)
						if len(topicClients) == 0 {
							delete(h.topics, topic)
						}
					}
				}
				if client.UserID != "" {
					if userClients, ok := h.userConns[client.UserID]; ok {
						delete(userClients, client)
						if len(userClients) == 0 {
							delete(h.userConns, client.UserID)
						}
					}
				}
				close(client.Send)
			}
			h.mu.Unlock()
			h.logger.WithField("client_id", client.ID).Debug("websocket client disconnected")

		case msg := <-h.broadcast:
			h.mu.RLock()
			var targets map[*WSClient]bool

			if msg.userID != "" {
				targets = h.userConns[msg.userID]
			} else if msg.topic != "" {
				targets = h.topics[msg.topic]
			} else {
				targets = h.clients
			}

			for client := range targets {
				select {
				case client.Send <- msg.message:
				default:
					// buffer full, drop the connection
					go func(c *WSClient) {
						h.unregister <- c
					}(client)
				}
			}
			h.mu.RUnlock()
		}
	}
}

// Register adds a client to the hub
func (h *WebSocketHub) Register(client *WSClient) {
	h.register <- client
}

// Unregister removes a client from the hub
func (h *WebSocketHub) Unregister(client *WSClient) {
	h.unregister <- client
}

// Subscribe adds a client to a topic
func (h *WebSocketHub) Subscribe(client *WSClient, topic string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	client.Topics[topic] = true
	if h.topics[topic] == nil {
		h.topics[topic] = make(map[*WSClient]bool)
	}
	h.topics[topic][client] = true
}

// Unsubscribe removes a client from a topic
func (h *WebSocketHub) Unsubscribe(client *WSClient, topic string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	delete(client.Topics, topic)
	if topicClients, ok := h.topics[topic]; ok {
		delete(topicClients, client)
		if len(topicClients) == 0 {
			delete(h.topics, topic)
		}
	}
}

// SetUserID associates a client with a user
func (h *WebSocketHub) SetUserID(client *WSClient, userID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if client.UserID != "" && client.UserID != userID {
		if userClients, ok := h.userConns[client.UserID]; ok {
			delete(userClients, client)
			if len(userClients) == 0 {
				delete(h.userConns, client.UserID)
			}
		}
	}

	client.UserID = userID
	if h.userConns[userID] == nil {
		h.userConns[userID] = make(map[*WSClient]bool)
	}
	h.userConns[userID][client] = true
}

// BroadcastToTopic sends a message to all clients subscribed to a topic
func (h *WebSocketHub) BroadcastToTopic(topic string, msg WSMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Errorf("failed to marshal websocket message: %v", err)
		return
	}

	h.broadcast <- &broadcastMsg{topic: topic, message: data}
}

// SendToUser sends a message to all connections of a specific user
func (h *WebSocketHub) SendToUser(userID string, msg WSMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Errorf("failed to marshal websocket message: %v", err)
		return
	}

	h.broadcast <- &broadcastMsg{userID: userID, message: data}
}

// GetClientCount returns the number of connected clients
func (h *WebSocketHub) GetClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// NewClient creates a new WebSocket client connected to this hub
func (h *WebSocketHub) NewClient(id string, conn *websocket.Conn) *WSClient {
	return &WSClient{
		ID:     id,
		Topics: make(map[string]bool),
		Conn:   conn,
		Send:   make(chan []byte, 256),
		hub:    h,
	}
}

// Close closes the client connection
func (c *WSClient) Close() {
	c.closedOnce.Do(func() {
		c.hub.Unregister(c)
		c.Conn.Close()
	})
}

// WritePump pumps messages from the hub to the websocket connection
func (c *WSClient) WritePump() {
	ticker := time.NewTicker(30 * time.Second)
	defer func() {
		ticker.Stop()
		c.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			c.mu.Lock()
			err := c.Conn.WriteMessage(websocket.TextMessage, message)
			c.mu.Unlock()

			if err != nil {
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// ReadPump pumps messages from the websocket connection to the hub
func (c *WSClient) ReadPump(onMessage func(client *WSClient, messageType int, data []byte)) {
	defer c.Close()

	c.Conn.SetReadLimit(64 * 1024)
	c.Conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		messageType, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.logger.Warnf("websocket read error: %v", err)
			}
			break
		}

		if onMessage != nil {
			onMessage(c, messageType, message)
		}
	}
}

// Message types
const (
	WSTypeItemStatusUpdated   = "itemStatusUpdated"
	WSTypeSyncStarted         = "syncStarted"
	WSTypeSyncCompleted       = "syncCompleted"
	WSTypeSyncFailed          = "syncFailed"
	WSTypeInitialSyncComplete = "initialSyncComplete"
	WSTypeConfigSaved         = "configSaved"
	WSTypeError               = "error"
	WSTypeSubscribe           = "subscribe"
	WSTypeUnsubscribe         = "unsubscribe"
	WSTypePing                = "ping"
	WSTypePong                = "pong"
)

// Topics
const (
	TopicSync = "sync"
)

// ForwardBusEvents subscribes the hub to the sync engine's produced events
// so UI clients see progress without polling. Call once at startup.
func (h *WebSocketHub) ForwardBusEvents(bus *events.Bus) {
	// status rows carry per-user data, so they go only to the owner's
	// connections, never to a shared topic
	forwardStatus := func(wsType string) events.Handler {
		return func(_ events.EventType, payload interface{}) {
			event, ok := payload.(*events.StatusEvent)
			if !ok {
				return
			}
			h.SendToUser(event.UserID, WSMessage{Type: wsType, Payload: event.Status})
		}
	}
	bus.Subscribe(events.ItemStatusUpdated, forwardStatus(WSTypeItemStatusUpdated))
	bus.Subscribe(events.SyncCompleted, forwardStatus(WSTypeSyncCompleted))
	bus.Subscribe(events.SyncFailed, forwardStatus(WSTypeSyncFailed))

	forwardRun := func(wsType string) events.Handler {
		return func(_ events.EventType, payload interface{}) {
			event, ok := payload.(*events.SyncRunEvent)
			if !ok {
				return
			}
			h.SendToUser(event.UserID, WSMessage{Type: wsType, Payload: event.Result})
		}
	}
	bus.Subscribe(events.SyncStarted, forwardRun(WSTypeSyncStarted))
	bus.Subscribe(events.InitialSyncComplete, forwardRun(WSTypeInitialSyncComplete))

	bus.Subscribe(events.ConfigSaved, func(_ events.EventType, payload interface{}) {
		event, ok := payload.(*events.ConfigSavedEvent)
		if !ok {
			return
		}
		h.SendToUser(event.UserID, WSMessage{Type: WSTypeConfigSaved, Payload: nil})
	})
}
