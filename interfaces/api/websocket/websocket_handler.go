package websocket

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"

	wshub "eals-backend/infrastructure/websocket"
	"eals-backend/pkg/logger"
)

// WebSocketHandler registers kiosk UI clients with the broadcast hub. The
// stream is one-directional: engine events go out, nothing meaningful
// comes back except pings.
type WebSocketHandler struct{}

func NewWebSocketHandler() *WebSocketHandler {
	return &WebSocketHandler{}
}

func (h *WebSocketHandler) WebSocketUpgrade(c *fiber.Ctx) error {
	if websocket.IsWebSocketUpgrade(c) {
		return c.Next()
	}
	return fiber.ErrUpgradeRequired
}

func (h *WebSocketHandler) HandleWebSocket(c *websocket.Conn) {
	wshub.Manager.RegisterClient(c)
	defer wshub.Manager.UnregisterClient(c)

	// Drain the connection so pings are answered; a read error means the
	// client went away.
	for {
		if _, _, err := c.ReadMessage(); err != nil {
			logger.WebSocket("client_disconnected", "UI client disconnected", map[string]interface{}{
				"error": err.Error(),
			})
			return
		}
	}
}
