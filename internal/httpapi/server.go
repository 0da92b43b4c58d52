package httpapi

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/example/delivery-tracking/internal/config"
	"github.com/example/delivery-tracking/internal/driver"
	"github.com/example/delivery-tracking/internal/hub"
	"github.com/example/delivery-tracking/internal/ingest"
	"github.com/example/delivery-tracking/internal/location"
	"github.com/example/delivery-tracking/internal/models"
	"github.com/example/delivery-tracking/internal/order"
	"github.com/example/delivery-tracking/internal/payments"
	"github.com/example/delivery-tracking/internal/route"
	"github.com/example/delivery-tracking/internal/storage"
	"github.com/example/delivery-tracking/internal/tracking"
)

// RouteResolver is the slice of the resolver the handlers need.
type RouteResolver interface {
	Resolve(ctx context.Context, from, to models.Coord) models.Route
}

// PaymentCapturer confirms a held payment with the gateway.
type PaymentCapturer interface {
	Capture(ctx context.Context, paymentIntentID string) error
}

type Server struct {
	OrderSvc    *order.Service
	DriverSvc   *driver.Service
	Tracker     *tracking.Controller
	Locations   location.Store
	OrderStore  storage.OrderStore
	DriverStore storage.DriverStore
	Assignments storage.AssignmentStore
	Routes      RouteResolver
	Hub         *hub.Hub
	Kafka       *ingest.KafkaProducer
	Payments    PaymentCapturer

	LocationMaxAge time.Duration

	logger *slog.Logger
	mux    *mux.Router
}

// NewServer wires the tracking core from config with env-driven backend
// selection: Redis vs in-memory locations, Postgres vs in-memory records,
// Kafka and the route provider optional.
func NewServer(cfg config.ServerConfig, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	var locations location.Store
	if cfg.RedisAddr != "" {
		locations = location.NewRedisStore(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisGeoKey)
	} else {
		locations = location.NewMemoryStore()
	}

	var orders storage.OrderStore
	var drivers storage.DriverStore
	var assignments storage.AssignmentStore
	if cfg.PGDSN != "" {
		if ps, err := storage.NewPostgresStore(cfg.PGDSN); err == nil {
			orders, drivers, assignments = ps, ps, ps
		} else {
			logger.Error("postgres unavailable, falling back to memory store", "error", err)
		}
	}
	if orders == nil {
		ms := storage.NewMemoryStore()
		orders, drivers, assignments = ms, ms, ms
	}

	var kp *ingest.KafkaProducer
	if len(cfg.KafkaBrokers) > 0 {
		kp = ingest.NewKafkaProducer(cfg.KafkaBrokers, cfg.KafkaTopic)
	}

	var pay PaymentCapturer
	if cfg.StripeAPIKey != "" {
		pay = payments.NewStripeClient(cfg.StripeAPIKey)
	}

	var provider route.Provider
	if cfg.RouteProviderURL != "" {
		provider = route.NewOSRMProvider(cfg.RouteProviderURL, cfg.RouteTimeout)
	}
	resolver := route.NewResolver(provider, route.NewCache(cfg.RouteCacheTTL), cfg.RouteTimeout, logger)

	h := hub.New(logger)
	tracker := tracking.NewController(orders, assignments, resolver, h, logger)

	orderSvc := &order.Service{Orders: orders, Assignments: assignments, Hub: h, Tracker: tracker, Logger: logger}
	driverSvc := &driver.Service{
		Drivers: drivers, Orders: orders, Assignments: assignments,
		Locations: locations, Hub: h, Logger: logger, NearbyLimit: cfg.NearbyLimit,
	}

	s := &Server{
		OrderSvc:       orderSvc,
		DriverSvc:      driverSvc,
		Tracker:        tracker,
		Locations:      locations,
		OrderStore:     orders,
		DriverStore:    drivers,
		Assignments:    assignments,
		Routes:         resolver,
		Hub:            h,
		Kafka:          kp,
		Payments:       pay,
		LocationMaxAge: cfg.LocationMaxAge,
		logger:         logger,
		mux:            mux.NewRouter(),
	}
	s.registerMiddleware()
	s.routes()
	return s
}

// NewTestServer assembles a server around pre-built collaborators. Used by
// handler tests.
func NewTestServer(orderSvc *order.Service, driverSvc *driver.Service, tracker *tracking.Controller,
	locations location.Store, orders storage.OrderStore, drivers storage.DriverStore,
	assignments storage.AssignmentStore, resolver RouteResolver, h *hub.Hub, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		OrderSvc:    orderSvc,
		DriverSvc:   driverSvc,
		Tracker:     tracker,
		Locations:   locations,
		OrderStore:  orders,
		DriverStore: drivers,
		Assignments: assignments,
		Routes:      resolver,
		Hub:         h,
		logger:      logger,
		mux:         mux.NewRouter(),
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.mux.HandleFunc("/orders/{id}/route", s.handleOrderRoute).Methods("GET")
	s.mux.HandleFunc("/orders/{id}/status", s.handleOrderStatus).Methods("POST", "PUT")
	s.mux.HandleFunc("/orders/{id}/assign", s.handleAssign).Methods("POST")
	s.mux.HandleFunc("/orders/{id}", s.handleOrderGet).Methods("GET")
	s.mux.HandleFunc("/drivers/me/location", s.handleDriverLocation).Methods("PUT")
	s.mux.HandleFunc("/drivers/me/availability", s.handleAvailability).Methods("PUT")
	s.mux.HandleFunc("/drivers/orders/{id}/pickup", s.handlePickup).Methods("PUT")
	s.mux.HandleFunc("/drivers/orders/{id}/deliver", s.handleDeliver).Methods("PUT")
	s.mux.HandleFunc("/payments/confirmations", s.handlePaymentConfirmation).Methods("POST")
	s.mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); w.Write([]byte("ok")) }).Methods("GET")
	s.mux.Handle("/metrics", promhttp.Handler())
	s.mux.HandleFunc("/ws", s.handleWS)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { s.mux.ServeHTTP(w, r) }
