package httpapi

import (
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/example/delivery-tracking/internal/hub"
)

var upgrader = websocket.Upgrader{
	// the dashboards and customer views are served from other origins;
	// identity is enforced by the auth layer in front of this core
	CheckOrigin: func(r *http.Request) bool { return true },
}

type wsCommand struct {
	Action  string `json:"action"` // join | leave | chat
	Room    string `json:"room"`
	From    string `json:"from,omitempty"`
	Message string `json:"message,omitempty"`
}

// GET /ws?room=order-42 upgrades the connection and joins the optional
// initial room. Further joins/leaves arrive as commands on the socket.
// Reconnecting clients must re-join and re-sync via GET /orders/{id}.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return // Upgrade already wrote the error
	}
	sess := hub.NewSession(conn)
	defer func() {
		s.Hub.LeaveAll(sess)
		sess.Close()
	}()

	if room := r.URL.Query().Get("room"); room != "" {
		s.Hub.Join(room, sess)
	}

	for {
		var cmd wsCommand
		if err := sess.ReadJSON(&cmd); err != nil {
			return
		}
		if cmd.Room == "" {
			continue
		}
		switch cmd.Action {
		case "join":
			s.Hub.Join(cmd.Room, sess)
		case "leave":
			s.Hub.Leave(cmd.Room, sess)
		case "chat":
			// order-scoped messaging rides the same room mechanism
			s.Hub.Broadcast(cmd.Room, hub.EventChatMessage, hub.ChatPayload{From: cmd.From, Message: cmd.Message})
		}
	}
}
