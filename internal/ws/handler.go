package ws

import (
	"net/http"

	"tictactoe_live/internal/logger"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// HandleWS upgrades the request and serves the protocol on it. Viewing is
// public, so no token is required to connect; makeMove authenticates per
// message.
func HandleWS(hub *Hub, dispatcher *Dispatcher, allowedOrigin string) gin.HandlerFunc {
	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			if allowedOrigin == "" {
				return true
			}
			return r.Header.Get("Origin") == allowedOrigin
		},
	}
	log := logger.Component("ws")

	return func(c *gin.Context) {
		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			log.Warn("ws upgrade error", "error", err)
			return
		}

		client := NewClient(conn, hub, dispatcher, log)
		go client.Run()
	}
}
