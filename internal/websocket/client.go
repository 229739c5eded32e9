package websocket

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait    = 10 * time.Second
	pongWait     = 60 * time.Second
	pingInterval = 50 * time.Second
	// Clients only listen; anything beyond a pong frame is noise.
	maxInboundBytes = 256
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// session is one open browser connection for a user. A user may hold
// several at once (tabs, devices); the hub tracks them per user id.
type session struct {
	conn   *websocket.Conn
	outbox chan []byte
	userID string
}

func ServeWS(w http.ResponseWriter, r *http.Request, hub *Hub, userID string) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		http.Error(w, "websocket upgrade failed", http.StatusBadRequest)
		return
	}
	s := &session{
		conn:   conn,
		outbox: make(chan []byte, 16),
		userID: userID,
	}
	hub.attach(s)
	go s.writeLoop(hub)
	s.readLoop(hub)
}

// readLoop discards inbound frames; its job is pong handling and
// noticing the peer going away.
func (s *session) readLoop(hub *Hub) {
	defer func() {
		hub.detach(s)
		_ = s.conn.Close()
	}()
	s.conn.SetReadLimit(maxInboundBytes)
	_ = s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := s.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (s *session) writeLoop(hub *Hub) {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		hub.detach(s)
		_ = s.conn.Close()
	}()
	for {
		select {
		case payload, ok := <-s.outbox:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = s.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := s.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
