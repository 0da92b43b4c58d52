package route

import (
	"context"
	"log/slog"
	"time"

	"github.com/example/delivery-tracking/internal/geo"
	"github.com/example/delivery-tracking/internal/models"
	"github.com/example/delivery-tracking/internal/observability"
)

// Resolver degrades to a straight-line route whenever the provider fails,
// so route resolution never fails outward. Tracking stays available even
// with the provider down; fallback routes are labeled for the UI.
type Resolver struct {
	Provider Provider   // optional; nil means fallback-only
	Cache    *Cache     // optional
	Timeout  time.Duration
	Logger   *slog.Logger
}

func NewResolver(p Provider, cache *Cache, timeout time.Duration, logger *slog.Logger) *Resolver {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{Provider: p, Cache: cache, Timeout: timeout, Logger: logger}
}

// Resolve always returns a usable route.
func (r *Resolver) Resolve(ctx context.Context, from, to models.Coord) models.Route {
	observability.RouteResolutionsTotal.Inc()
	if r.Cache != nil {
		if rt, ok := r.Cache.Get(from, to); ok {
			return rt
		}
	}
	if r.Provider != nil {
		pctx, cancel := context.WithTimeout(ctx, r.Timeout)
		rt, err := r.Provider.Route(pctx, from, to)
		cancel()
		if err == nil {
			if r.Cache != nil {
				r.Cache.Set(from, to, rt)
			}
			return rt
		}
		r.Logger.Warn("route provider failed, using straight-line fallback", "error", err)
	}
	observability.RouteFallbacksTotal.Inc()
	return Fallback(from, to)
}

// Fallback builds a synthetic two-point route with great-circle distance.
func Fallback(from, to models.Coord) models.Route {
	return models.Route{
		Polyline:       []models.Coord{from, to},
		DistanceMeters: geo.Haversine(from.Lat, from.Lng, to.Lat, to.Lng),
		Fallback:       true,
		ComputedAt:     time.Now(),
	}
}
