package order

import (
	"context"
	"log/slog"

	"github.com/example/delivery-tracking/internal/hub"
	"github.com/example/delivery-tracking/internal/models"
	"github.com/example/delivery-tracking/internal/observability"
	"github.com/example/delivery-tracking/internal/storage"
)

// Broadcaster is the slice of the hub the order service needs.
type Broadcaster interface {
	Broadcast(room, event string, payload any)
}

// Tracker is notified when an order enters or leaves the trackable state.
type Tracker interface {
	Start(orderID, driverID string)
	Stop(orderID string)
}

type Service struct {
	Orders      storage.OrderStore
	Assignments storage.AssignmentStore
	Hub         Broadcaster
	Tracker     Tracker
	Logger      *slog.Logger
}

// ChangeStatus runs one order through the state machine. On success the
// new status is persisted, broadcast to the order room, and the tracking
// controller is started or stopped as the order crosses en_camino.
func (s *Service) ChangeStatus(ctx context.Context, orderID string, to models.OrderStatus, actor models.Actor) (*models.Order, error) {
	o, err := s.Orders.Order(ctx, orderID)
	if err != nil {
		return nil, err
	}
	from := o.Status

	var asg *models.Assignment
	if to == models.OrderEnRoute {
		asg, _ = s.Assignments.ActiveByOrder(ctx, orderID) // nil when absent
	}
	if err := Transition(o, to, actor, asg != nil); err != nil {
		return nil, err
	}
	if err := s.Orders.UpdateOrderStatus(ctx, orderID, o.Status, o.StatusAt); err != nil {
		return nil, err
	}
	observability.StatusTransitionsTotal.WithLabelValues(string(to)).Inc()
	s.Hub.Broadcast(hub.OrderRoom(orderID), hub.EventOrderStatus, hub.StatusPayload{OrderID: orderID, Status: string(to)})

	switch {
	case Trackable(to):
		// the driver leaves the restaurant once the order is en route
		if asg.Status == models.AssignmentPickedUp {
			if err := s.Assignments.UpdateAssignmentStatus(ctx, orderID, models.AssignmentOnTheWay); err != nil {
				s.Logger.Warn("assignment advance failed", "order_id", orderID, "error", err)
			}
		}
		if s.Tracker != nil {
			s.Tracker.Start(orderID, asg.DriverID)
		}
	case Trackable(from):
		if s.Tracker != nil {
			s.Tracker.Stop(orderID)
		}
	}

	s.Logger.Info("order status changed",
		"order_id", orderID, "from", from, "to", to, "actor_role", actor.Role)
	return o, nil
}

// ConfirmPayment drives pending_payment -> pending once the gateway
// reports the charge went through.
func (s *Service) ConfirmPayment(ctx context.Context, orderID string) (*models.Order, error) {
	return s.ChangeStatus(ctx, orderID, models.OrderPending, models.Actor{Role: models.RoleAdmin})
}

// ExpireUnpaid cancels an order stuck in pending_payment. Called by the
// external payment sweep.
func (s *Service) ExpireUnpaid(ctx context.Context, orderID string) (*models.Order, error) {
	return s.ChangeStatus(ctx, orderID, models.OrderCancelled, models.Actor{Role: models.RoleAdmin})
}
