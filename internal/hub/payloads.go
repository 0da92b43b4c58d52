package hub

import "github.com/example/delivery-tracking/internal/models"

// Payload field names are camelCase to match what the existing frontends
// already parse.

type LocationPayload struct {
	DriverID string  `json:"driverId"`
	Lat      float64 `json:"lat"`
	Lng      float64 `json:"lng"`
}

type StatusPayload struct {
	OrderID string `json:"orderId"`
	Status  string `json:"status"`
}

type RoutePayload struct {
	OrderID        string       `json:"orderId"`
	Polyline       [][2]float64 `json:"polyline"` // [lat,lng] pairs
	DistanceMeters float64      `json:"distanceMeters"`
	Fallback       bool         `json:"fallback"`
}

type AssignedPayload struct {
	OrderID  string `json:"orderId"`
	DriverID string `json:"driverId"`
}

type ChatPayload struct {
	From    string `json:"from"`
	Message string `json:"message"`
}

// PolylinePairs flattens route coordinates into [lat,lng] pairs for the
// wire format.
func PolylinePairs(coords []models.Coord) [][2]float64 {
	out := make([][2]float64, 0, len(coords))
	for _, c := range coords {
		out = append(out, [2]float64{c.Lat, c.Lng})
	}
	return out
}
