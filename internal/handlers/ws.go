package handlers

import (
	"context"
	"log"
	"time"

	"reveal-backend/internal/models"
	"reveal-backend/internal/services"
	"reveal-backend/internal/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
)

// WebSocketHandler streams wallet events to the authenticated user. Clients
// may send {"event":"ping"}; anything else is ignored.
func WebSocketHandler(hub *Hub, wallet *services.WalletService) fiber.Handler {
	return websocket.New(func(c *websocket.Conn) {
		// Retrieve user info from locals (set by middleware)
		user, ok := c.Locals(localUser).(*models.User)
		if !ok {
			c.Close()
			return
		}

		// Generate a unique ID for this connection
		connID := uuid.New().String()
		hub.Register(user.ID, connID, c)

		defer func() {
			hub.Unregister(user.ID, connID)
			c.Close()
		}()

		balance, err := wallet.Balance(context.Background(), user.ID)
		if err != nil {
			log.Printf("ws balance: %v", err)
			return
		}
		_ = hub.Send(user.ID, connID, models.WalletEvent{
			Event:        "connected",
			TokenBalance: balance,
			Timestamp:    time.Now().UnixMilli(),
		})

		for {
			msgType, msg, err := c.ReadMessage()
			if err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
					log.Printf("error: %v", err)
				}
				break
			}
			if msgType != websocket.TextMessage {
				continue
			}
			var in struct {
				Event string `json:"event"`
			}
			if err := utils.SafeJSONParse(msg, &in); err != nil {
				utils.LogError(err, "JSON Parse")
				continue
			}
			if in.Event == "ping" {
				_ = hub.Send(user.ID, connID, fiber.Map{"event": "pong", "timestamp": time.Now().UnixMilli()})
			}
		}
	})
}

// WSUpgradeMiddleware upgrades the connection to WebSocket
func WSUpgradeMiddleware(c *fiber.Ctx) error {
	if websocket.IsWebSocketUpgrade(c) {
		c.Locals("allowed", true)
		return c.Next()
	}
	return fiber.ErrUpgradeRequired
}
