package server

import (
	"encoding/json"
	"log"
	"strconv"

	"marginalia/internal/middleware"
	"marginalia/internal/notifications"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

// WebsocketHandler handles GET /api/ws?post_id=N.
// With a post_id the connection subscribes to that post's comment events;
// without one it subscribes to the user's own notification inbox. The
// first frame carries the hub-assigned socket id, which the client echoes
// back as X-Socket-ID on writes so its own events are not mirrored to it.
func (s *Server) WebsocketHandler() fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		middleware.ActiveWebSockets.Inc()
		defer middleware.ActiveWebSockets.Dec()

		// Set by AuthRequired (ticket or bearer token)
		userIDVal := conn.Locals("userID")
		if userIDVal == nil {
			log.Printf("WebSocket: Unauthenticated connection attempt")
			_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"error":"unauthorized"}`))
			_ = conn.Close()
			return
		}
		userID := userIDVal.(uint)

		postID := uint(0)
		if raw := conn.Query("post_id"); raw != "" {
			parsed, err := strconv.ParseUint(raw, 10, 32)
			if err != nil || parsed == 0 {
				_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"error":"invalid post_id"}`))
				_ = conn.Close()
				return
			}
			postID = uint(parsed)
		}

		var client *notifications.Client
		var err error
		if postID != 0 {
			client, err = s.hub.Join(userID, postID, conn)
		} else {
			client, err = s.hub.JoinInbox(userID, conn)
		}
		if err != nil {
			log.Printf("WebSocket: Failed to register user %d: %v", userID, err)
			_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"error":"`+err.Error()+`"}`))
			_ = conn.Close()
			return
		}

		welcome := map[string]interface{}{
			"event": "connected",
			"payload": map[string]interface{}{
				"socket_id": client.SocketID,
				"user_id":   userID,
			},
		}
		if postID != 0 {
			welcome["payload"].(map[string]interface{})["post_id"] = postID
		}
		if welcomeJSON, err := json.Marshal(welcome); err == nil {
			client.TrySend(welcomeJSON)
		}

		// Start write pump in a goroutine
		go client.WritePump()

		// Read pump runs in the main handler goroutine (blocking)
		client.ReadPump()
	})
}
