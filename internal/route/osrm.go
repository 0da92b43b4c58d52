package route

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/example/delivery-tracking/internal/models"
)

// Provider resolves a routed polyline between two points. Implementations
// may fail; the Resolver absorbs failures with a fallback.
type Provider interface {
	Route(ctx context.Context, from, to models.Coord) (models.Route, error)
}

// OSRMProvider performs route lookups against an OSRM HTTP server.
type OSRMProvider struct {
	Endpoint string
	Client   *http.Client
}

func NewOSRMProvider(endpoint string, timeout time.Duration) *OSRMProvider {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &OSRMProvider{Endpoint: endpoint, Client: &http.Client{Timeout: timeout}}
}

// Route queries OSRM /route between the points and returns the routed
// geometry plus distance in meters.
func (o *OSRMProvider) Route(ctx context.Context, from, to models.Coord) (models.Route, error) {
	// OSRM route query: /route/v1/driving/{lng1},{lat1};{lng2},{lat2}
	url := fmt.Sprintf("%s/route/v1/driving/%.6f,%.6f;%.6f,%.6f?overview=full&geometries=geojson",
		o.Endpoint, from.Lng, from.Lat, to.Lng, to.Lat)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return models.Route{}, err
	}
	resp, err := o.Client.Do(req)
	if err != nil {
		return models.Route{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return models.Route{}, fmt.Errorf("osrm status %d", resp.StatusCode)
	}
	var out struct {
		Routes []struct {
			Distance float64 `json:"distance"`
			Geometry struct {
				Coordinates [][]float64 `json:"coordinates"` // [lng,lat]
			} `json:"geometry"`
		} `json:"routes"`
		Code string `json:"code"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return models.Route{}, err
	}
	if out.Code != "Ok" || len(out.Routes) == 0 {
		return models.Route{}, fmt.Errorf("osrm no route: %v", out.Code)
	}
	best := out.Routes[0]
	poly := make([]models.Coord, 0, len(best.Geometry.Coordinates))
	for _, c := range best.Geometry.Coordinates {
		if len(c) < 2 {
			return models.Route{}, fmt.Errorf("osrm malformed geometry")
		}
		poly = append(poly, models.Coord{Lat: c[1], Lng: c[0]})
	}
	if len(poly) == 0 {
		return models.Route{}, fmt.Errorf("osrm empty geometry")
	}
	return models.Route{Polyline: poly, DistanceMeters: best.Distance, ComputedAt: time.Now()}, nil
}
