package httpapi

import (
	"context"
	"encoding/json"
	"log/slog"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/example/delivery-tracking/internal/driver"
	"github.com/example/delivery-tracking/internal/hub"
	"github.com/example/delivery-tracking/internal/location"
	"github.com/example/delivery-tracking/internal/models"
	"github.com/example/delivery-tracking/internal/order"
	"github.com/example/delivery-tracking/internal/route"
	"github.com/example/delivery-tracking/internal/storage"
	"github.com/example/delivery-tracking/internal/tracking"
)

type wsConn struct{ msgs []hub.Envelope }

func (c *wsConn) WriteJSON(v any) error {
	c.msgs = append(c.msgs, v.(hub.Envelope))
	return nil
}

func (c *wsConn) byEvent(event string) []hub.Envelope {
	var out []hub.Envelope
	for _, m := range c.msgs {
		if m.Event == event {
			out = append(out, m)
		}
	}
	return out
}

func newTestEnv(t *testing.T) (*Server, *storage.MemoryStore, *location.MemoryStore, *hub.Hub, *tracking.Controller) {
	t.Helper()
	ms := storage.NewMemoryStore()
	ls := location.NewMemoryStore()
	h := hub.New(nil)
	resolver := route.NewResolver(nil, nil, time.Second, nil) // fallback-only in tests
	tracker := tracking.NewController(ms, ms, resolver, h, nil)
	orderSvc := &order.Service{Orders: ms, Assignments: ms, Hub: h, Tracker: tracker, Logger: slog.Default()}
	driverSvc := &driver.Service{Drivers: ms, Orders: ms, Assignments: ms, Locations: ls, Hub: h, Logger: slog.Default()}
	srv := NewTestServer(orderSvc, driverSvc, tracker, ls, ms, ms, ms, resolver, h, nil)
	return srv, ms, ls, h, tracker
}

func do(t *testing.T, srv *Server, method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	return rec
}

func TestRouteEndpointFallback(t *testing.T) {
	srv, _, _, _, _ := newTestEnv(t)
	rec := do(t, srv, "GET", "/orders/42/route?startLat=0&startLng=0&endLat=0&endLng=1", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Success  bool         `json:"success"`
		Route    [][2]float64 `json:"route"`
		Distance float64      `json:"distance"`
		Fallback bool         `json:"fallback"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if !resp.Success || !resp.Fallback {
		t.Fatalf("unexpected response %+v", resp)
	}
	if len(resp.Route) != 2 || resp.Route[0] != [2]float64{0, 0} || resp.Route[1] != [2]float64{0, 1} {
		t.Fatalf("unexpected route %+v", resp.Route)
	}
	if math.Abs(resp.Distance-111195) > 111195*0.01 {
		t.Fatalf("expected ~111195m, got %f", resp.Distance)
	}
}

func TestRouteEndpointMissingParams(t *testing.T) {
	srv, _, _, _, _ := newTestEnv(t)
	rec := do(t, srv, "GET", "/orders/42/route?startLat=0", "", nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestLocationUpdateRejectsInvalidCoords(t *testing.T) {
	srv, _, ls, _, _ := newTestEnv(t)
	rec := do(t, srv, "PUT", "/drivers/me/location", `{"latitude":95,"longitude":0}`,
		map[string]string{"X-Driver-ID": "7"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
	}
	if _, ok := ls.Get(context.Background(), "7"); ok {
		t.Fatal("rejected update must not be stored")
	}
}

func TestLocationUpdateRequiresIdentity(t *testing.T) {
	srv, _, _, _, _ := newTestEnv(t)
	rec := do(t, srv, "PUT", "/drivers/me/location", `{"latitude":1,"longitude":1}`, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

// End-to-end scenario: order 42 in preparando with driver 7 assigned;
// en_camino succeeds and is broadcast to room order-42; a subsequent
// location ping reaches the same room.
func TestStatusThenLocationScenario(t *testing.T) {
	srv, ms, _, h, _ := newTestEnv(t)
	ctx := context.Background()

	_ = ms.SaveOrder(ctx, &models.Order{
		ID: "42", Status: models.OrderPreparing, CustomerID: "c1", RestaurantID: "r1", DriverID: "7",
		Pickup: models.Coord{Lat: 1, Lng: 1}, Dropoff: models.Coord{Lat: 2, Lng: 2},
	})
	_ = ms.SaveDriver(ctx, &models.Driver{ID: "7", Availability: models.DriverOnDelivery})
	_ = ms.CreateAssignment(ctx, &models.Assignment{OrderID: "42", DriverID: "7", Status: models.AssignmentPickedUp, CreatedAt: time.Now(), UpdatedAt: time.Now()})

	viewer := &wsConn{}
	h.Join("order-42", viewer)

	rec := do(t, srv, "PUT", "/orders/42/status", `{"estado":"en_camino"}`,
		map[string]string{"X-Actor-Role": "driver", "X-Actor-ID": "7"})
	if rec.Code != http.StatusOK {
		t.Fatalf("status change failed: %d %s", rec.Code, rec.Body.String())
	}

	statusEvents := viewer.byEvent(hub.EventOrderStatus)
	if len(statusEvents) != 1 {
		t.Fatalf("expected order-status-changed, got %+v", viewer.msgs)
	}
	sp := statusEvents[0].Data.(hub.StatusPayload)
	if sp.OrderID != "42" || sp.Status != "en_camino" {
		t.Fatalf("unexpected status payload %+v", sp)
	}

	rec = do(t, srv, "PUT", "/drivers/me/location", `{"latitude":-34.6,"longitude":-58.4}`,
		map[string]string{"X-Driver-ID": "7"})
	if rec.Code != http.StatusNoContent {
		t.Fatalf("location update failed: %d %s", rec.Code, rec.Body.String())
	}

	locEvents := viewer.byEvent(hub.EventDriverLocation)
	if len(locEvents) != 1 {
		t.Fatalf("expected driver-location-update, got %+v", viewer.msgs)
	}
	lp := locEvents[0].Data.(hub.LocationPayload)
	if lp.DriverID != "7" || lp.Lat != -34.6 || lp.Lng != -58.4 {
		t.Fatalf("unexpected location payload %+v", lp)
	}
	if len(viewer.byEvent(hub.EventRouteUpdated)) != 1 {
		t.Fatalf("expected route-updated alongside the position")
	}
}

func TestStatusInvalidTransitionRejected(t *testing.T) {
	srv, ms, _, _, _ := newTestEnv(t)
	ctx := context.Background()
	_ = ms.SaveOrder(ctx, &models.Order{ID: "42", Status: models.OrderPending, CustomerID: "c1", RestaurantID: "r1", DriverID: "7"})

	rec := do(t, srv, "POST", "/orders/42/status", `{"estado":"entregado"}`,
		map[string]string{"X-Actor-Role": "driver", "X-Actor-ID": "7"})
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d: %s", rec.Code, rec.Body.String())
	}
	o, _ := ms.Order(ctx, "42")
	if o.Status != models.OrderPending {
		t.Fatalf("state mutated: %s", o.Status)
	}
}

func TestStatusUnauthorizedRejected(t *testing.T) {
	srv, ms, _, _, _ := newTestEnv(t)
	ctx := context.Background()
	_ = ms.SaveOrder(ctx, &models.Order{ID: "42", Status: models.OrderPreparing, CustomerID: "c1", RestaurantID: "r1"})

	rec := do(t, srv, "POST", "/orders/42/status", `{"estado":"cancelado"}`,
		map[string]string{"X-Actor-Role": "customer", "X-Actor-ID": "c1"})
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}
}

func TestStatusUnknownOrder(t *testing.T) {
	srv, _, _, _, _ := newTestEnv(t)
	rec := do(t, srv, "POST", "/orders/nope/status", `{"estado":"confirmado"}`,
		map[string]string{"X-Actor-Role": "admin"})
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestAssignPickupDeliverFlow(t *testing.T) {
	srv, ms, _, _, tracker := newTestEnv(t)
	ctx := context.Background()
	_ = ms.SaveOrder(ctx, &models.Order{ID: "42", Status: models.OrderPreparing, CustomerID: "c1", RestaurantID: "r1",
		Pickup: models.Coord{Lat: 1, Lng: 1}, Dropoff: models.Coord{Lat: 2, Lng: 2}})
	_ = ms.SaveDriver(ctx, &models.Driver{ID: "7", Availability: models.DriverAvailable})

	rec := do(t, srv, "POST", "/orders/42/assign", `{"driver_id":"7"}`, nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("assign: %d %s", rec.Code, rec.Body.String())
	}

	// assigned -> delivered must be rejected before pickup
	rec = do(t, srv, "PUT", "/drivers/orders/42/deliver", "", map[string]string{"X-Driver-ID": "7"})
	if rec.Code != http.StatusConflict {
		t.Fatalf("skip pickup: expected 409, got %d", rec.Code)
	}

	rec = do(t, srv, "PUT", "/drivers/orders/42/pickup", "", map[string]string{"X-Driver-ID": "7"})
	if rec.Code != http.StatusOK {
		t.Fatalf("pickup: %d %s", rec.Code, rec.Body.String())
	}

	rec = do(t, srv, "PUT", "/orders/42/status", `{"estado":"en_camino"}`,
		map[string]string{"X-Actor-Role": "driver", "X-Actor-ID": "7"})
	if rec.Code != http.StatusOK {
		t.Fatalf("en_camino: %d %s", rec.Code, rec.Body.String())
	}
	if !tracker.Tracking("42") {
		t.Fatal("tracking should be active while en_camino")
	}

	rec = do(t, srv, "PUT", "/drivers/orders/42/deliver", "", map[string]string{"X-Driver-ID": "7"})
	if rec.Code != http.StatusOK {
		t.Fatalf("deliver: %d %s", rec.Code, rec.Body.String())
	}
	if tracker.Tracking("42") {
		t.Fatal("tracking should stop after delivery")
	}

	o, _ := ms.Order(ctx, "42")
	if o.Status != models.OrderDelivered {
		t.Fatalf("expected entregado, got %s", o.Status)
	}
	d, _ := ms.Driver(ctx, "7")
	if d.Availability != models.DriverAvailable {
		t.Fatalf("driver should be available again, got %s", d.Availability)
	}
}

func TestOrderResync(t *testing.T) {
	srv, ms, ls, _, _ := newTestEnv(t)
	ctx := context.Background()
	_ = ms.SaveOrder(ctx, &models.Order{ID: "42", Status: models.OrderEnRoute, CustomerID: "c1", RestaurantID: "r1", DriverID: "7"})
	_ = ms.CreateAssignment(ctx, &models.Assignment{OrderID: "42", DriverID: "7", Status: models.AssignmentOnTheWay, CreatedAt: time.Now(), UpdatedAt: time.Now()})
	_ = ls.Set(ctx, "7", 1, 2, time.Now())

	rec := do(t, srv, "GET", "/orders/42", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("resync: %d %s", rec.Code, rec.Body.String())
	}
	var resp map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp["assignment"] == nil {
		t.Fatal("assignment missing from resync payload")
	}
	if resp["driver_location"] == nil {
		t.Fatal("driver location missing from resync payload")
	}
}

func TestPaymentConfirmation(t *testing.T) {
	srv, ms, _, _, _ := newTestEnv(t)
	ctx := context.Background()
	_ = ms.SaveOrder(ctx, &models.Order{ID: "9", Status: models.OrderPendingPayment, CustomerID: "c1", RestaurantID: "r1"})

	rec := do(t, srv, "POST", "/payments/confirmations", `{"order_id":"9"}`, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("confirm: %d %s", rec.Code, rec.Body.String())
	}
	o, _ := ms.Order(ctx, "9")
	if o.Status != models.OrderPending {
		t.Fatalf("expected pending, got %s", o.Status)
	}
}
