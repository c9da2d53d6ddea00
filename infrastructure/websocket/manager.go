// Package websocket is the hub the engines publish through: fingerprint
// display frames and status lines, recognition results, restart-scan
// signals and per-frame face boxes all reach the UI as hub events.
package websocket

import (
	"encoding/json"
	"sync"

	"github.com/gofiber/websocket/v2"

	"eals-backend/pkg/logger"
)

// Event types pushed to the login screen.
const (
	EventFingerprintDisplay = "fingerprint_display"
	EventFingerprintStatus  = "fingerprint_status"
	EventFaceBoxes          = "face_boxes"
	EventLoginResult        = "login_result"
	EventRestartScan        = "restart_scan"
	EventSessionState       = "session_state"
)

// Message is the envelope every hub event is wrapped in.
type Message struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload,omitempty"`
}

// Hub fans hub events out to every connected UI client.
type Hub struct {
	mu      sync.RWMutex
	clients map[*websocket.Conn]bool
}

// Manager is the process-wide hub instance.
var Manager = &Hub{clients: make(map[*websocket.Conn]bool)}

// RegisterClient adds a connection to the hub.
func (h *Hub) RegisterClient(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[conn] = true

	logger.WebSocket("client_registered", "UI client connected", map[string]interface{}{"clients": len(h.clients)})
}

// UnregisterClient removes a connection from the hub.
func (h *Hub) UnregisterClient(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.clients, conn)

	logger.WebSocket("client_unregistered", "UI client disconnected", map[string]interface{}{"clients": len(h.clients)})
}

// Broadcast marshals the event once and writes it to every client. Dead
// connections are dropped on write failure.
func (h *Hub) Broadcast(eventType string, payload interface{}) {
	data, err := json.Marshal(Message{Type: eventType, Payload: payload})
	if err != nil {
		logger.WebSocketError("broadcast_marshal", "Failed to marshal hub event", err, map[string]interface{}{"type": eventType})
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	for conn := range h.clients {
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			delete(h.clients, conn)
		}
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
