package hub

import (
	"encoding/json"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"
)

// conn is one live observer channel. Writes are serialized per
// connection: gorilla/websocket allows at most one concurrent writer.
type conn struct {
	id string
	ws *websocket.Conn
	mu sync.Mutex
}

func (c *conn) send(payload []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ws.WriteMessage(websocket.TextMessage, payload)
}

// Hub routes session-scoped progress events to the single observer
// connection that subscribed to the session. Broadcast delivery exists
// only for connection-lifecycle notices; per-session data never fans
// out to other connections.
type Hub struct {
	mu       sync.Mutex
	conns    map[string]*conn  // connection id → connection
	sessions map[string]string // session id → owning connection id
}

func New() *Hub {
	return &Hub{
		conns:    make(map[string]*conn),
		sessions: make(map[string]string),
	}
}

// Register adds a live connection and returns its identifier.
func (h *Hub) Register(ws *websocket.Conn) string {
	c := &conn{id: uuid.New().String(), ws: ws}
	h.mu.Lock()
	h.conns[c.id] = c
	h.mu.Unlock()
	log.WithField("connection_id", c.id).Debug("observer connected")
	return c.id
}

// Unregister drops a connection and any session associations that
// pointed at it.
func (h *Hub) Unregister(connID string) {
	h.mu.Lock()
	delete(h.conns, connID)
	for sessionID, owner := range h.sessions {
		if owner == connID {
			delete(h.sessions, sessionID)
		}
	}
	h.mu.Unlock()
	log.WithField("connection_id", connID).Debug("observer disconnected")
}

// Associate binds a session to the one connection that will receive
// its events. A later association for the same session replaces the
// earlier one.
func (h *Hub) Associate(sessionID, connID string) {
	h.mu.Lock()
	h.sessions[sessionID] = connID
	h.mu.Unlock()
}

// Publish delivers an event to the session's observer, if any. With no
// association the event is dropped; a failed delivery deregisters the
// connection.
func (h *Hub) Publish(sessionID string, event interface{}) {
	payload, err := json.Marshal(event)
	if err != nil {
		log.WithError(err).Warn("failed to encode event")
		return
	}

	h.mu.Lock()
	connID, ok := h.sessions[sessionID]
	var c *conn
	if ok {
		c = h.conns[connID]
	}
	h.mu.Unlock()

	if c == nil {
		log.WithField("session_id", sessionID).Debug("no observer for session, event dropped")
		return
	}
	if err := c.send(payload); err != nil {
		log.WithField("connection_id", c.id).WithError(err).Warn("event delivery failed, dropping connection")
		h.Unregister(c.id)
	}
}

// SendTo writes a message to one specific connection.
func (h *Hub) SendTo(connID string, event interface{}) {
	payload, err := json.Marshal(event)
	if err != nil {
		return
	}
	h.mu.Lock()
	c := h.conns[connID]
	h.mu.Unlock()
	if c == nil {
		return
	}
	if err := c.send(payload); err != nil {
		h.Unregister(connID)
	}
}

// Broadcast delivers a connection-lifecycle notice to every live
// connection. One failed delivery deregisters that connection without
// blocking the rest.
func (h *Hub) Broadcast(event interface{}) {
	payload, err := json.Marshal(event)
	if err != nil {
		return
	}

	h.mu.Lock()
	targets := make([]*conn, 0, len(h.conns))
	for _, c := range h.conns {
		targets = append(targets, c)
	}
	h.mu.Unlock()

	for _, c := range targets {
		if err := c.send(payload); err != nil {
			h.Unregister(c.id)
		}
	}
}

// Connections reports the number of live observer connections.
func (h *Hub) Connections() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.conns)
}
