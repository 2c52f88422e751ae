package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/mealsync/server/internal/middleware"
	"github.com/mealsync/server/internal/observability"
	"github.com/mealsync/server/internal/services"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Allow all origins for now - can be restricted in production
		return true
	},
}

// WebSocketHandler handles WebSocket connections for sync progress updates
type WebSocketHandler struct {
	hub    *services.WebSocketHub
	logger *observability.Logger
}

// NewWebSocketHandler creates a new WebSocketHandler
func NewWebSocketHandler(hub *services.WebSocketHub) *WebSocketHandler {
	return &WebSocketHandler{
		hub:    hub,
		logger: observability.GetLogger().WithField("component", "ws_handler"),
	}
}

// HandleConnection upgrades HTTP to WebSocket and manages the connection
func (h *WebSocketHandler) HandleConnection(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warnf("websocket upgrade failed: %v", err)
		return
	}

	client := h.hub.NewClient(uuid.New().String(), conn)

	if user := middleware.GetUserFromContext(r.Context()); user != nil {
		h.hub.SetUserID(client, user.ID)
		h.hub.Subscribe(client, services.TopicSync)
	}

	h.hub.Register(client)

	go client.WritePump()

	// blocks until the connection closes
	client.ReadPump(h.handleMessage)
}

// handleMessage processes incoming WebSocket messages
func (h *WebSocketHandler) handleMessage(client *services.WSClient, messageType int, data []byte) {
	if messageType != websocket.TextMessage {
		return
	}

	var msg services.WSMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		h.logger.Warnf("invalid websocket message: %v", err)
		return
	}

	switch msg.Type {
	case services.WSTypeSubscribe:
		if topic := topicFromPayload(msg.Payload); topic != "" {
			h.hub.Subscribe(client, topic)
		}

	case services.WSTypeUnsubscribe:
		if topic := topicFromPayload(msg.Payload); topic != "" {
			h.hub.Unsubscribe(client, topic)
		}

	case services.WSTypePing:
		response := services.WSMessage{Type: services.WSTypePong}
		if data, err := json.Marshal(response); err == nil {
			client.Send <- data
		}

	default:
		h.logger.Debugf("unknown websocket message type: %s", msg.Type)
	}
}

func topicFromPayload(payload interface{}) string {
	if topic, ok := payload.(string); ok {
		return topic
	}
	if m, ok := payload.(map[string]interface{}); ok {
		if topic, ok := m["topic"].(string); ok {
			return topic
		}
	}
	return ""
}
