package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	LocationUpdatesTotal    = promauto.NewCounter(prometheus.CounterOpts{Namespace: "delivery_tracking", Name: "location_updates_total", Help: "Driver location updates accepted"})
	LocationUpdatesRejected = promauto.NewCounter(prometheus.CounterOpts{Namespace: "delivery_tracking", Name: "location_updates_rejected_total", Help: "Driver location updates rejected for invalid coordinates"})
	LocationUpdatesStale    = promauto.NewCounter(prometheus.CounterOpts{Namespace: "delivery_tracking", Name: "location_updates_stale_total", Help: "Driver location updates discarded as older than the stored one"})

	BroadcastsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: "delivery_tracking", Name: "broadcasts_total", Help: "Events fanned out to room subscribers"},
		[]string{"event"},
	)
	RoomSubscribers = promauto.NewGauge(prometheus.GaugeOpts{Namespace: "delivery_tracking", Name: "room_subscribers", Help: "Currently connected room subscribers"})

	RouteResolutionsTotal = promauto.NewCounter(prometheus.CounterOpts{Namespace: "delivery_tracking", Name: "route_resolutions_total", Help: "Route resolutions served"})
	RouteFallbacksTotal   = promauto.NewCounter(prometheus.CounterOpts{Namespace: "delivery_tracking", Name: "route_fallbacks_total", Help: "Route resolutions degraded to straight-line fallback"})

	StatusTransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: "delivery_tracking", Name: "order_status_transitions_total", Help: "Successful order status transitions"},
		[]string{"to"},
	)
	AssignmentsTotal = promauto.NewCounter(prometheus.CounterOpts{Namespace: "delivery_tracking", Name: "assignments_total", Help: "Delivery assignments created"})

	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: "delivery_tracking", Name: "http_requests_total", Help: "Total HTTP requests handled"},
		[]string{"method", "path", "status"},
	)
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "delivery_tracking",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency distribution",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)
