package handlers

import (
	"log"

	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"

	"github.com/bloomdoula/bloom-be/internal/realtime"
	"github.com/bloomdoula/bloom-be/internal/utils"
)

// WebSocketHandler upgrades a realtime connection. The session token travels
// as a query parameter because browsers cannot set headers on websocket
// upgrades; it is the same JWT the HTTP routes validate.
func (h *MessagingHandler) WebSocketHandler(jwtSecret string) func(*websocket.Conn) {
	return func(c *websocket.Conn) {
		tokenStr := c.Query("token")
		if tokenStr == "" {
			log.Println("WebSocket: token parameter missing")
			c.Close()
			return
		}

		claims, err := utils.ParseJWT(jwtSecret, tokenStr)
		if err != nil {
			log.Println("WebSocket: invalid token:", err)
			c.Close()
			return
		}

		var actor realtime.ActorKey
		switch claims.Kind {
		case utils.KindStaff:
			id, err := uuid.Parse(claims.UserID)
			if err != nil {
				c.Close()
				return
			}
			actor = realtime.StaffKey(id)
		case utils.KindClient:
			id, err := uuid.Parse(claims.ClientID)
			if err != nil {
				c.Close()
				return
			}
			actor = realtime.ClientKey(id)
		default:
			c.Close()
			return
		}

		log.Printf("WebSocket: %s connected\n", actor)

		client := &realtime.Client{
			ID:    uuid.New().String(),
			Actor: actor,
			Conn:  realtime.NewWebSocketConn(c),
			Send:  make(chan []byte, 256),
		}

		h.Hub.RegisterClient(client)
		defer func() {
			h.Hub.UnregisterClient(client)
			log.Printf("WebSocket: %s disconnected\n", actor)
		}()

		go func() {
			for msg := range client.Send {
				if err := c.WriteMessage(websocket.TextMessage, msg); err != nil {
					log.Println("WebSocket write error:", err)
					return
				}
			}
		}()

		for {
			var payload map[string]interface{}
			if err := c.ReadJSON(&payload); err != nil {
				log.Printf("WebSocket read error for %s: %v\n", actor, err)
				break
			}

			if msgType, ok := payload["type"].(string); ok && msgType == "pong" {
				continue
			}
		}
	}
}
