package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/example/delivery-tracking/internal/driver"
	"github.com/example/delivery-tracking/internal/location"
	"github.com/example/delivery-tracking/internal/models"
	"github.com/example/delivery-tracking/internal/observability"
	"github.com/example/delivery-tracking/internal/storage"
)

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]any{"success": false, "error": msg})
}

// statusForError maps the domain taxonomy onto HTTP codes.
func statusForError(err error) int {
	var it *models.InvalidTransitionError
	var ut *models.UnauthorizedTransitionError
	var ic *models.InvalidCoordinatesError
	var ac *models.AssignmentConflictError
	switch {
	case errors.As(err, &it), errors.As(err, &ac):
		return http.StatusConflict
	case errors.As(err, &ut):
		return http.StatusForbidden
	case errors.As(err, &ic):
		return http.StatusBadRequest
	case errors.Is(err, storage.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, driver.ErrNoDriverAvailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, driver.ErrDriverUnavailable):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

// actorFromRequest reads the identity the auth layer (out of scope here)
// places on the request.
func actorFromRequest(r *http.Request) models.Actor {
	role := models.Role(r.Header.Get("X-Actor-Role"))
	switch role {
	case models.RoleCustomer, models.RoleRestaurant, models.RoleDriver, models.RoleAdmin:
	default:
		role = models.RoleCustomer
	}
	return models.Actor{ID: r.Header.Get("X-Actor-ID"), Role: role}
}

// GET /orders/{id}/route?startLat&startLng&endLat&endLng
func (s *Server) handleOrderRoute(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	parse := func(key string) (float64, bool) {
		v, err := strconv.ParseFloat(q.Get(key), 64)
		return v, err == nil
	}
	startLat, ok1 := parse("startLat")
	startLng, ok2 := parse("startLng")
	endLat, ok3 := parse("endLat")
	endLng, ok4 := parse("endLng")
	if !ok1 || !ok2 || !ok3 || !ok4 {
		writeError(w, http.StatusBadRequest, "startLat, startLng, endLat, endLng are required")
		return
	}
	rt := s.Routes.Resolve(r.Context(),
		models.Coord{Lat: startLat, Lng: startLng},
		models.Coord{Lat: endLat, Lng: endLng})
	pairs := make([][2]float64, 0, len(rt.Polyline))
	for _, c := range rt.Polyline {
		pairs = append(pairs, [2]float64{c.Lat, c.Lng})
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"route":    pairs,
		"distance": rt.DistanceMeters,
		"fallback": rt.Fallback,
	})
}

// PUT /drivers/me/location
func (s *Server) handleDriverLocation(w http.ResponseWriter, r *http.Request) {
	driverID := r.Header.Get("X-Driver-ID")
	if driverID == "" {
		writeError(w, http.StatusUnauthorized, "missing driver identity")
		return
	}
	var body struct {
		Latitude  float64    `json:"latitude"`
		Longitude float64    `json:"longitude"`
		Timestamp *time.Time `json:"timestamp"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	at := time.Now()
	if body.Timestamp != nil {
		at = *body.Timestamp
	}

	err := s.Locations.Set(r.Context(), driverID, body.Latitude, body.Longitude, at)
	switch {
	case errors.Is(err, location.ErrStaleUpdate):
		// delayed ping, fresher position already stored; drop quietly
		observability.LocationUpdatesStale.Inc()
		w.WriteHeader(http.StatusNoContent)
		return
	case err != nil:
		observability.LocationUpdatesRejected.Inc()
		writeError(w, statusForError(err), err.Error())
		return
	}
	observability.LocationUpdatesTotal.Inc()

	if err := s.DriverStore.UpdateDriverLocation(r.Context(), driverID, body.Latitude, body.Longitude, at); err != nil && !errors.Is(err, storage.ErrNotFound) {
		s.logger.Warn("driver location persist failed", "driver_id", driverID, "error", err)
	}
	if s.Kafka != nil {
		_ = s.Kafka.PublishLocation(models.LocationUpdate{DriverID: driverID, Lat: body.Latitude, Lng: body.Longitude, Timestamp: at})
	}
	s.Tracker.OnLocationUpdate(r.Context(), driverID, models.Coord{Lat: body.Latitude, Lng: body.Longitude})
	w.WriteHeader(http.StatusNoContent)
}

// PUT /drivers/me/availability
func (s *Server) handleAvailability(w http.ResponseWriter, r *http.Request) {
	driverID := r.Header.Get("X-Driver-ID")
	if driverID == "" {
		writeError(w, http.StatusUnauthorized, "missing driver identity")
		return
	}
	var body struct {
		Availability models.Availability `json:"availability"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.DriverSvc.SetAvailability(r.Context(), driverID, body.Availability); err != nil {
		writeError(w, statusForError(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "availability": body.Availability})
}

// POST|PUT /orders/{id}/status
func (s *Server) handleOrderStatus(w http.ResponseWriter, r *http.Request) {
	orderID := mux.Vars(r)["id"]
	var body struct {
		Estado models.OrderStatus `json:"estado"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	o, err := s.OrderSvc.ChangeStatus(r.Context(), orderID, body.Estado, actorFromRequest(r))
	if err != nil {
		writeError(w, statusForError(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "order": o})
}

// POST /orders/{id}/assign
func (s *Server) handleAssign(w http.ResponseWriter, r *http.Request) {
	orderID := mux.Vars(r)["id"]
	var body struct {
		DriverID string `json:"driver_id"`
	}
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&body) // empty body means auto-pick
	}
	a, err := s.DriverSvc.Assign(r.Context(), orderID, body.DriverID)
	if err != nil {
		writeError(w, statusForError(err), err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"success": true, "assignment": a})
}

// GET /orders/{id} is the state-resync endpoint for reconnecting clients:
// the hub does not replay missed events.
func (s *Server) handleOrderGet(w http.ResponseWriter, r *http.Request) {
	orderID := mux.Vars(r)["id"]
	o, err := s.OrderStore.Order(r.Context(), orderID)
	if err != nil {
		writeError(w, statusForError(err), err.Error())
		return
	}
	resp := map[string]any{"success": true, "order": o, "tracking": s.Tracker.Tracking(orderID)}
	if a, err := s.Assignments.ActiveByOrder(r.Context(), orderID); err == nil {
		resp["assignment"] = a
		if pos, ok := s.Locations.Get(r.Context(), a.DriverID); ok {
			resp["driver_location"] = map[string]any{
				"lat":   pos.Coord.Lat,
				"lng":   pos.Coord.Lng,
				"at":    pos.At,
				"stale": pos.Stale(s.LocationMaxAge),
			}
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// PUT /drivers/orders/{id}/pickup
func (s *Server) handlePickup(w http.ResponseWriter, r *http.Request) {
	orderID := mux.Vars(r)["id"]
	driverID := r.Header.Get("X-Driver-ID")
	if driverID == "" {
		writeError(w, http.StatusUnauthorized, "missing driver identity")
		return
	}
	a, err := s.DriverSvc.MarkPickedUp(r.Context(), orderID, driverID)
	if err != nil {
		writeError(w, statusForError(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "assignment": a})
}

// PUT /drivers/orders/{id}/deliver
func (s *Server) handleDeliver(w http.ResponseWriter, r *http.Request) {
	orderID := mux.Vars(r)["id"]
	driverID := r.Header.Get("X-Driver-ID")
	if driverID == "" {
		writeError(w, http.StatusUnauthorized, "missing driver identity")
		return
	}
	a, err := s.DriverSvc.MarkDelivered(r.Context(), orderID, driverID)
	if err != nil {
		writeError(w, statusForError(err), err.Error())
		return
	}
	o, err := s.OrderSvc.ChangeStatus(r.Context(), orderID, models.OrderDelivered,
		models.Actor{ID: driverID, Role: models.RoleDriver})
	if err != nil {
		// assignment is closed either way; the order may already be
		// cancelled or confirmed delivered by the customer
		s.logger.Warn("order delivery transition failed", "order_id", orderID, "error", err)
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "assignment": a})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "assignment": a, "order": o})
}

// POST /payments/confirmations
func (s *Server) handlePaymentConfirmation(w http.ResponseWriter, r *http.Request) {
	var body struct {
		OrderID         string `json:"order_id"`
		PaymentIntentID string `json:"payment_intent_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.OrderID == "" {
		writeError(w, http.StatusBadRequest, "order_id is required")
		return
	}
	if s.Payments != nil && body.PaymentIntentID != "" {
		if err := s.Payments.Capture(r.Context(), body.PaymentIntentID); err != nil {
			writeError(w, http.StatusBadGateway, "payment capture failed")
			return
		}
	}
	o, err := s.OrderSvc.ConfirmPayment(r.Context(), body.OrderID)
	if err != nil {
		writeError(w, statusForError(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "order": o})
}
