package order

import (
	"time"

	"github.com/example/delivery-tracking/internal/models"
)

// edges is the full set of permitted status transitions. Anything not
// listed here is rejected without touching the order.
var edges = map[models.OrderStatus][]models.OrderStatus{
	models.OrderPendingPayment: {models.OrderPending, models.OrderCancelled},
	models.OrderPending:        {models.OrderConfirmed, models.OrderCancelled},
	models.OrderConfirmed:      {models.OrderPreparing, models.OrderCancelled},
	models.OrderPreparing:      {models.OrderEnRoute, models.OrderCancelled},
	models.OrderEnRoute:        {models.OrderDelivered, models.OrderCancelled},
}

func CanTransition(from, to models.OrderStatus) bool {
	for _, next := range edges[from] {
		if next == to {
			return true
		}
	}
	return false
}

func Terminal(s models.OrderStatus) bool {
	return s == models.OrderDelivered || s == models.OrderCancelled
}

// Trackable is the single authority for "is this order currently in a
// state where driver location should be broadcast". Every component that
// needs the check goes through here.
func Trackable(s models.OrderStatus) bool {
	return s == models.OrderEnRoute
}

func ValidStatus(s models.OrderStatus) bool {
	switch s {
	case models.OrderPending, models.OrderPendingPayment, models.OrderConfirmed,
		models.OrderPreparing, models.OrderEnRoute, models.OrderDelivered, models.OrderCancelled:
		return true
	}
	return false
}

// roleAllowed encodes who may drive each edge. Ownership of the specific
// order is checked separately.
func roleAllowed(from, to models.OrderStatus, role models.Role) bool {
	if role == models.RoleAdmin {
		return true
	}
	switch to {
	case models.OrderCancelled:
		// past pending only the owning restaurant (or admin) may cancel
		if from == models.OrderPending || from == models.OrderPendingPayment {
			return role == models.RoleCustomer || role == models.RoleRestaurant
		}
		return role == models.RoleRestaurant
	case models.OrderConfirmed, models.OrderPreparing:
		return role == models.RoleRestaurant
	case models.OrderEnRoute:
		return role == models.RoleRestaurant || role == models.RoleDriver
	case models.OrderDelivered:
		return role == models.RoleDriver || role == models.RoleCustomer
	case models.OrderPending:
		// pending_payment -> pending happens on payment confirmation only
		return false
	}
	return false
}

func owns(actor models.Actor, o *models.Order) bool {
	switch actor.Role {
	case models.RoleAdmin:
		return true
	case models.RoleCustomer:
		return actor.ID != "" && actor.ID == o.CustomerID
	case models.RoleRestaurant:
		return actor.ID != "" && actor.ID == o.RestaurantID
	case models.RoleDriver:
		return actor.ID != "" && actor.ID == o.DriverID
	}
	return false
}

// Transition validates and applies a status change in place. It is
// all-or-nothing: on any error the order is left exactly as it was.
// hasActiveAssignment gates the preparando -> en_camino edge.
func Transition(o *models.Order, to models.OrderStatus, actor models.Actor, hasActiveAssignment bool) error {
	from := o.Status
	if !ValidStatus(to) || !CanTransition(from, to) {
		return &models.InvalidTransitionError{From: string(from), To: string(to)}
	}
	if !roleAllowed(from, to, actor.Role) || !owns(actor, o) {
		return &models.UnauthorizedTransitionError{Role: actor.Role, From: string(from), To: string(to)}
	}
	if to == models.OrderEnRoute && !hasActiveAssignment {
		return &models.InvalidTransitionError{From: string(from), To: string(to)}
	}
	o.Status = to
	o.StatusAt = time.Now()
	return nil
}
