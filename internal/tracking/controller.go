package tracking

import (
	"context"
	"log/slog"
	"sync"

	"github.com/example/delivery-tracking/internal/hub"
	"github.com/example/delivery-tracking/internal/models"
	"github.com/example/delivery-tracking/internal/order"
	"github.com/example/delivery-tracking/internal/storage"
)

type RouteResolver interface {
	Resolve(ctx context.Context, from, to models.Coord) models.Route
}

type Broadcaster interface {
	Broadcast(room, event string, payload any)
}

// Controller decides, per order, whether active tracking is warranted and
// drives route recomputation plus hub fan-out on each driver ping. State
// here is a live-view cache: lost on restart, rebuilt as orders re-enter
// en_camino.
type Controller struct {
	Orders      storage.OrderStore
	Assignments storage.AssignmentStore
	Routes      RouteResolver
	Hub         Broadcaster
	Logger      *slog.Logger

	mu     sync.RWMutex
	active map[string]string // order id -> driver id
}

func NewController(orders storage.OrderStore, assignments storage.AssignmentStore, routes RouteResolver, h Broadcaster, logger *slog.Logger) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	return &Controller{
		Orders:      orders,
		Assignments: assignments,
		Routes:      routes,
		Hub:         h,
		Logger:      logger,
		active:      make(map[string]string),
	}
}

// Start begins broadcasting for an order that entered en_camino.
func (c *Controller) Start(orderID, driverID string) {
	c.mu.Lock()
	c.active[orderID] = driverID
	c.mu.Unlock()
	c.Logger.Info("tracking started", "order_id", orderID, "driver_id", driverID)
}

// Stop halts recomputation for an order that left en_camino. The hub room
// stays up for the final status broadcast and is collected lazily.
func (c *Controller) Stop(orderID string) {
	c.mu.Lock()
	_, ok := c.active[orderID]
	delete(c.active, orderID)
	c.mu.Unlock()
	if ok {
		c.Logger.Info("tracking stopped", "order_id", orderID)
	}
}

// Tracking reports whether an order is currently being tracked.
func (c *Controller) Tracking(orderID string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.active[orderID]
	return ok
}

// OnLocationUpdate fans a driver's new position out to every order
// currently tracked for that driver. A driver normally has one en_camino
// order, but all matches are handled so each room gets its own route.
func (c *Controller) OnLocationUpdate(ctx context.Context, driverID string, pos models.Coord) {
	c.mu.RLock()
	var orderIDs []string
	for oid, did := range c.active {
		if did == driverID {
			orderIDs = append(orderIDs, oid)
		}
	}
	c.mu.RUnlock()

	for _, oid := range orderIDs {
		o, err := c.Orders.Order(ctx, oid)
		if err != nil {
			c.Logger.Warn("tracked order load failed", "order_id", oid, "error", err)
			continue
		}
		if !order.Trackable(o.Status) {
			// status changed under us; drop the session
			c.Stop(oid)
			continue
		}

		// leg selection: toward the restaurant until pickup is reported,
		// then toward the customer
		dest := o.Dropoff
		if a, err := c.Assignments.ActiveByOrder(ctx, oid); err == nil && a.Status == models.AssignmentAssigned {
			dest = o.Pickup
		}

		rt := c.Routes.Resolve(ctx, pos, dest)
		room := hub.OrderRoom(oid)
		c.Hub.Broadcast(room, hub.EventDriverLocation, hub.LocationPayload{DriverID: driverID, Lat: pos.Lat, Lng: pos.Lng})
		c.Hub.Broadcast(room, hub.EventRouteUpdated, hub.RoutePayload{
			OrderID:        oid,
			Polyline:       hub.PolylinePairs(rt.Polyline),
			DistanceMeters: rt.DistanceMeters,
			Fallback:       rt.Fallback,
		})
	}
}
