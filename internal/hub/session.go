package hub

import (
	"sync"

	"github.com/gorilla/websocket"
)

// Session wraps a websocket connection with a write mutex so concurrent
// broadcasts never interleave frames.
type Session struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func NewSession(conn *websocket.Conn) *Session {
	return &Session{conn: conn}
}

func (s *Session) WriteJSON(v any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn.WriteJSON(v)
}

func (s *Session) ReadJSON(v any) error {
	return s.conn.ReadJSON(v)
}

func (s *Session) Close() error {
	return s.conn.Close()
}
