package driver

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/example/delivery-tracking/internal/hub"
	"github.com/example/delivery-tracking/internal/location"
	"github.com/example/delivery-tracking/internal/models"
	"github.com/example/delivery-tracking/internal/observability"
	"github.com/example/delivery-tracking/internal/order"
	"github.com/example/delivery-tracking/internal/storage"
)

var (
	ErrNoDriverAvailable = errors.New("no available driver near pickup")
	ErrDriverUnavailable = errors.New("driver is not available for assignment")
)

type Broadcaster interface {
	Broadcast(room, event string, payload any)
}

type Service struct {
	Drivers     storage.DriverStore
	Orders      storage.OrderStore
	Assignments storage.AssignmentStore
	Locations   location.Store
	Hub         Broadcaster
	Logger      *slog.Logger

	// NearbyLimit caps how many candidate drivers auto-assignment
	// considers. Zero means a small default.
	NearbyLimit int
}

// Assign binds a driver to an order. With an empty driverID the closest
// available driver to the pickup point is chosen. The assigned driver is
// notified on their user room.
func (s *Service) Assign(ctx context.Context, orderID, driverID string) (*models.Assignment, error) {
	o, err := s.Orders.Order(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.Terminal(o.Status) {
		return nil, &models.InvalidTransitionError{From: string(o.Status), To: string(models.OrderEnRoute)}
	}
	if driverID == "" {
		driverID, err = s.pickNearest(ctx, o.Pickup)
		if err != nil {
			return nil, err
		}
	}
	d, err := s.Drivers.Driver(ctx, driverID)
	if err != nil {
		return nil, err
	}
	if d.Availability != models.DriverAvailable {
		return nil, ErrDriverUnavailable
	}

	now := time.Now()
	a := &models.Assignment{
		OrderID:   orderID,
		DriverID:  driverID,
		Status:    models.AssignmentAssigned,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.Assignments.CreateAssignment(ctx, a); err != nil {
		return nil, err
	}
	if err := s.Orders.SetOrderDriver(ctx, orderID, driverID); err != nil {
		return nil, err
	}
	if err := s.Drivers.UpdateAvailability(ctx, driverID, models.DriverOnDelivery); err != nil {
		s.Logger.Warn("availability update failed after assignment", "driver_id", driverID, "error", err)
	}
	observability.AssignmentsTotal.Inc()
	s.Hub.Broadcast(hub.UserRoom(driverID), hub.EventOrderAssigned, hub.AssignedPayload{OrderID: orderID, DriverID: driverID})
	s.Logger.Info("driver assigned", "order_id", orderID, "driver_id", driverID)
	return a, nil
}

func (s *Service) pickNearest(ctx context.Context, pickup models.Coord) (string, error) {
	limit := s.NearbyLimit
	if limit <= 0 {
		limit = 8
	}
	for _, id := range s.Locations.Nearby(ctx, pickup.Lat, pickup.Lng, limit) {
		d, err := s.Drivers.Driver(ctx, id)
		if err != nil {
			continue
		}
		if d.Availability == models.DriverAvailable {
			return id, nil
		}
	}
	return "", ErrNoDriverAvailable
}

// SetAvailability handles explicit driver-initiated availability toggles.
func (s *Service) SetAvailability(ctx context.Context, driverID string, to models.Availability) error {
	d, err := s.Drivers.Driver(ctx, driverID)
	if err != nil {
		return err
	}
	if !CanSetAvailability(d.Availability, to, true) {
		return &models.InvalidTransitionError{From: string(d.Availability), To: string(to)}
	}
	return s.Drivers.UpdateAvailability(ctx, driverID, to)
}

// MarkPickedUp records that the driver collected the order at the
// restaurant. Drives the leg switch in the tracking controller.
func (s *Service) MarkPickedUp(ctx context.Context, orderID, driverID string) (*models.Assignment, error) {
	return s.advance(ctx, orderID, driverID, models.AssignmentPickedUp)
}

func (s *Service) MarkOnTheWay(ctx context.Context, orderID, driverID string) (*models.Assignment, error) {
	return s.advance(ctx, orderID, driverID, models.AssignmentOnTheWay)
}

// MarkDelivered closes the assignment and frees the driver if no other
// active assignment remains.
func (s *Service) MarkDelivered(ctx context.Context, orderID, driverID string) (*models.Assignment, error) {
	a, err := s.advance(ctx, orderID, driverID, models.AssignmentDelivered)
	if err != nil {
		return nil, err
	}
	remaining, err := s.Assignments.ActiveByDriver(ctx, driverID)
	if err == nil && len(remaining) == 0 {
		if err := s.Drivers.UpdateAvailability(ctx, driverID, models.DriverAvailable); err != nil {
			s.Logger.Warn("availability reset failed after delivery", "driver_id", driverID, "error", err)
		}
	}
	return a, nil
}

func (s *Service) advance(ctx context.Context, orderID, driverID string, to models.AssignmentStatus) (*models.Assignment, error) {
	a, err := s.Assignments.ActiveByOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if a.DriverID != driverID {
		return nil, &models.UnauthorizedTransitionError{Role: models.RoleDriver, From: string(a.Status), To: string(to)}
	}
	if !CanAdvance(a.Status, to) {
		return nil, &models.InvalidTransitionError{From: string(a.Status), To: string(to)}
	}
	if err := s.Assignments.UpdateAssignmentStatus(ctx, orderID, to); err != nil {
		return nil, err
	}
	a.Status = to
	a.UpdatedAt = time.Now()
	return a, nil
}
