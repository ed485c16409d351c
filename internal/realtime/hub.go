package realtime

import (
	"sync"

	"github.com/sirupsen/logrus"
)

// Conn is the subset of a websocket connection the hub needs. Satisfied by
// *websocket.Conn.
type Conn interface {
	WriteJSON(v interface{}) error
	Close() error
}

// Hub is the live-connection registry: user id -> set of open connections.
// It is constructed once at startup and shared by the WebSocket handler and
// the notification fan-out. All mutations are serialized under one mutex so
// connect/disconnect/push are safe from concurrent connection handlers.
type Hub struct {
	log *logrus.Logger

	mu    sync.Mutex
	conns map[uint]map[Conn]struct{}
}

// NewHub creates an empty hub
func NewHub(log *logrus.Logger) *Hub {
	return &Hub{
		log:   log,
		conns: make(map[uint]map[Conn]struct{}),
	}
}

// Register adds a connection to the user's set
func (h *Hub) Register(userID uint, conn Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	set, ok := h.conns[userID]
	if !ok {
		set = make(map[Conn]struct{})
		h.conns[userID] = set
	}
	set[conn] = struct{}{}

	h.log.WithField("user_id", userID).Debug("WebSocket connected")
}

// Unregister removes a connection from the user's set
func (h *Hub) Unregister(userID uint, conn Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.dropLocked(userID, conn)

	h.log.WithField("user_id", userID).Debug("WebSocket disconnected")
}

func (h *Hub) dropLocked(userID uint, conn Conn) {
	set, ok := h.conns[userID]
	if !ok {
		return
	}
	delete(set, conn)
	if len(set) == 0 {
		delete(h.conns, userID)
	}
}

// PushToUser sends a message to every live connection of the user. Delivery
// is best-effort: a connection that errors is closed and retired, never
// retried, so each connection receives the message at most once.
func (h *Hub) PushToUser(userID uint, message interface{}) {
	h.mu.Lock()
	defer h.mu.Unlock()

	set, ok := h.conns[userID]
	if !ok {
		return
	}

	for conn := range set {
		if err := conn.WriteJSON(message); err != nil {
			h.log.WithError(err).WithField("user_id", userID).
				Warn("Failed to push WebSocket message, retiring connection")
			conn.Close()
			h.dropLocked(userID, conn)
		}
	}
}

// ConnectionCount returns the number of live connections for a user
func (h *Hub) ConnectionCount(userID uint) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.conns[userID])
}

// Close closes every registered connection and empties the registry
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for userID, set := range h.conns {
		for conn := range set {
			conn.Close()
		}
		delete(h.conns, userID)
	}
}
