package hub

import (
	"log/slog"
	"sync"

	"github.com/example/delivery-tracking/internal/observability"
)

// Event names are part of the client wire contract.
const (
	EventDriverLocation = "driver-location-update"
	EventOrderStatus    = "order-status-changed"
	EventRouteUpdated   = "route-updated"
	EventChatMessage    = "chat-message"
	EventOrderAssigned  = "order-assigned"
)

func OrderRoom(orderID string) string { return "order-" + orderID }
func UserRoom(userID string) string   { return "user-" + userID }

// Conn is the minimal connection surface the hub writes to. Production
// connections are *Session; tests plug in fakes.
type Conn interface {
	WriteJSON(v any) error
}

// Envelope wraps every event fanned out to subscribers.
type Envelope struct {
	Event string `json:"event"`
	Room  string `json:"room"`
	Data  any    `json:"data"`
}

// Hub maintains room membership and fans events out to subscribers.
// Delivery is best-effort: a failed write drops that subscriber only and
// never aborts the broadcast to the rest. Missed events are not replayed;
// reconnecting clients re-join and re-fetch state over REST.
type Hub struct {
	mu     sync.RWMutex
	rooms  map[string]map[Conn]struct{}
	logger *slog.Logger
}

func New(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{rooms: make(map[string]map[Conn]struct{}), logger: logger}
}

// Join adds the connection to a room. Joining twice is a no-op.
func (h *Hub) Join(room string, c Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	subs, ok := h.rooms[room]
	if !ok {
		subs = make(map[Conn]struct{})
		h.rooms[room] = subs
	}
	if _, ok := subs[c]; !ok {
		subs[c] = struct{}{}
		observability.RoomSubscribers.Inc()
	}
}

// Leave removes the connection from a room; an emptied room is deleted.
func (h *Hub) Leave(room string, c Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.leaveLocked(room, c)
}

// LeaveAll removes the connection from every room it joined. Called when
// the underlying socket closes.
func (h *Hub) LeaveAll(c Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for room := range h.rooms {
		h.leaveLocked(room, c)
	}
}

func (h *Hub) leaveLocked(room string, c Conn) {
	subs, ok := h.rooms[room]
	if !ok {
		return
	}
	if _, ok := subs[c]; ok {
		delete(subs, c)
		observability.RoomSubscribers.Dec()
	}
	if len(subs) == 0 {
		delete(h.rooms, room)
	}
}

// Broadcast delivers an event to every current subscriber of the room.
// Broadcasting to an empty or unknown room is a no-op.
func (h *Hub) Broadcast(room, event string, payload any) {
	h.mu.RLock()
	subs := make([]Conn, 0, len(h.rooms[room]))
	for c := range h.rooms[room] {
		subs = append(subs, c)
	}
	h.mu.RUnlock()
	if len(subs) == 0 {
		return
	}

	env := Envelope{Event: event, Room: room, Data: payload}
	var dead []Conn
	for _, c := range subs {
		if err := c.WriteJSON(env); err != nil {
			h.logger.Warn("broadcast send failed, dropping subscriber", "room", room, "event", event, "error", err)
			dead = append(dead, c)
		}
	}
	observability.BroadcastsTotal.WithLabelValues(event).Inc()

	if len(dead) > 0 {
		h.mu.Lock()
		for _, c := range dead {
			h.leaveLocked(room, c)
		}
		h.mu.Unlock()
	}
}

// Subscribers reports current room membership, used by tests and debug
// endpoints.
func (h *Hub) Subscribers(room string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[room])
}
