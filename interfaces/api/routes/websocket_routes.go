package routes

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"

	apiws "eals-backend/interfaces/api/websocket"
)

func SetupWebSocketRoutes(app *fiber.App) {
	handler := apiws.NewWebSocketHandler()

	app.Use("/ws", handler.WebSocketUpgrade)
	app.Get("/ws", websocket.New(handler.HandleWebSocket))
}
