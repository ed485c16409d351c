// api/handlers/ws_handler.go
package handlers

import (
	"net/http"

	"example.com/planner/services/calendar/api/middleware"
	"example.com/planner/services/calendar/internal/realtime"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

// WSHandler upgrades authenticated requests to live notification streams
type WSHandler struct {
	hub      *realtime.Hub
	log      *logrus.Logger
	upgrader websocket.Upgrader
}

// NewWSHandler creates a new WSHandler instance
func NewWSHandler(hub *realtime.Hub, log *logrus.Logger) *WSHandler {
	return &WSHandler{
		hub: hub,
		log: log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// Connect upgrades the request and registers the connection for pushes.
// A user may hold any number of concurrent connections.
func (h *WSHandler) Connect(c *gin.Context) {
	user, err := middleware.GetUserFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.WithError(err).Warn("WebSocket upgrade failed")
		return
	}

	h.hub.Register(user.ID, conn)
	go h.readLoop(user.ID, conn)
}

// readLoop drains inbound frames until the peer goes away. The stream is
// push-only; client frames are discarded.
func (h *WSHandler) readLoop(userID uint, conn *websocket.Conn) {
	defer h.hub.Unregister(userID, conn)
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
