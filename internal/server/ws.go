package server

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	// The API already allows cross-origin callers; the socket does too.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// clientMessage is what observers send over the socket. A subscribe
// message associates this connection as the single observer of a
// session; anything else is echoed back for connection testing.
type clientMessage struct {
	Type      string `json:"type"`
	SessionID string `json:"session_id"`
}

// handleWebSocket upgrades the connection, registers it with the hub,
// and consumes client messages until the peer goes away.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.WithError(err).Warn("websocket upgrade failed")
		return
	}

	connID := s.hub.Register(ws)
	defer func() {
		s.hub.Unregister(connID)
		ws.Close()
	}()

	for {
		_, data, err := ws.ReadMessage()
		if err != nil {
			return
		}

		var msg clientMessage
		if json.Unmarshal(data, &msg) == nil && msg.Type == "subscribe" && msg.SessionID != "" {
			s.hub.Associate(msg.SessionID, connID)
			s.hub.SendTo(connID, map[string]string{
				"type":       "subscribed",
				"session_id": msg.SessionID,
			})
			continue
		}

		// Echo for connection testing.
		s.hub.SendTo(connID, map[string]string{
			"type":    "echo",
			"message": fmt.Sprintf("Message received: %s", data),
		})
	}
}
