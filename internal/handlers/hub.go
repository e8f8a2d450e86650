package handlers

import (
	"sync"
	"time"

	"reveal-backend/internal/models"
	"reveal-backend/internal/utils"
)

// WriteTimeout bounds a single push to a client that supports deadlines.
const WriteTimeout = 5 * time.Second

type writeDeadliner interface {
	SetWriteDeadline(t time.Time) error
}

type hubConn struct {
	mu   sync.Mutex
	conn utils.JSONWriter
}

func (c *hubConn) send(payload interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if d, ok := c.conn.(writeDeadliner); ok {
		_ = d.SetWriteDeadline(time.Now().Add(WriteTimeout))
	}
	return utils.SendJSON(c.conn, payload)
}

// Hub fans wallet events out to every open websocket of a user.
type Hub struct {
	// userID -> connectionID -> connection
	users map[string]map[string]*hubConn
	mu    sync.RWMutex
}

func NewHub() *Hub {
	return &Hub{users: make(map[string]map[string]*hubConn)}
}

// Register returns true if this is the user's first open connection.
func (h *Hub) Register(userID, connID string, c utils.JSONWriter) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	conns, ok := h.users[userID]
	if !ok {
		conns = make(map[string]*hubConn)
		h.users[userID] = conns
	}
	conns[connID] = &hubConn{conn: c}
	return !ok
}

func (h *Hub) Unregister(userID, connID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if conns, ok := h.users[userID]; ok {
		delete(conns, connID)
		if len(conns) == 0 {
			delete(h.users, userID)
		}
	}
}

// Send writes to one registered connection, serialized with broadcasts.
func (h *Hub) Send(userID, connID string, payload interface{}) error {
	h.mu.RLock()
	c, ok := h.users[userID][connID]
	h.mu.RUnlock()
	if !ok {
		return nil
	}
	return c.send(payload)
}

// NotifyUser writes outside the registry lock, so a slow client only delays
// its own frames.
func (h *Hub) NotifyUser(userID string, event models.WalletEvent) {
	h.mu.RLock()
	conns := make([]*hubConn, 0, len(h.users[userID]))
	for _, c := range h.users[userID] {
		conns = append(conns, c)
	}
	h.mu.RUnlock()

	for _, c := range conns {
		// A failed write is left for the read loop to notice and unregister.
		utils.LogError(c.send(event), "NotifyUser")
	}
}

// IsUserOnline checks if any active connection belongs to the given user
func (h *Hub) IsUserOnline(userID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.users[userID]) > 0
}
