package order

import (
	"errors"
	"testing"

	"github.com/example/delivery-tracking/internal/models"
)

func testOrder(status models.OrderStatus) *models.Order {
	return &models.Order{
		ID:           "42",
		Status:       status,
		CustomerID:   "c1",
		RestaurantID: "r1",
		DriverID:     "7",
	}
}

func TestTransitionHappyPath(t *testing.T) {
	o := testOrder(models.OrderPending)
	steps := []struct {
		to    models.OrderStatus
		actor models.Actor
	}{
		{models.OrderConfirmed, models.Actor{ID: "r1", Role: models.RoleRestaurant}},
		{models.OrderPreparing, models.Actor{ID: "r1", Role: models.RoleRestaurant}},
		{models.OrderEnRoute, models.Actor{ID: "7", Role: models.RoleDriver}},
		{models.OrderDelivered, models.Actor{ID: "7", Role: models.RoleDriver}},
	}
	for _, s := range steps {
		if err := Transition(o, s.to, s.actor, true); err != nil {
			t.Fatalf("transition to %s: %v", s.to, err)
		}
		if o.Status != s.to {
			t.Fatalf("expected %s, got %s", s.to, o.Status)
		}
	}
}

func TestInvalidEdgeLeavesStateUnchanged(t *testing.T) {
	o := testOrder(models.OrderPending)
	err := Transition(o, models.OrderDelivered, models.Actor{ID: "7", Role: models.RoleDriver}, true)
	var it *models.InvalidTransitionError
	if !errors.As(err, &it) {
		t.Fatalf("expected InvalidTransitionError, got %v", err)
	}
	if it.From != "pending" || it.To != "entregado" {
		t.Fatalf("error should identify states, got from=%s to=%s", it.From, it.To)
	}
	if o.Status != models.OrderPending {
		t.Fatalf("state mutated on invalid transition: %s", o.Status)
	}
}

func TestEnRouteRequiresAssignment(t *testing.T) {
	o := testOrder(models.OrderPreparing)
	err := Transition(o, models.OrderEnRoute, models.Actor{ID: "r1", Role: models.RoleRestaurant}, false)
	var it *models.InvalidTransitionError
	if !errors.As(err, &it) {
		t.Fatalf("expected InvalidTransitionError without assignment, got %v", err)
	}
	if o.Status != models.OrderPreparing {
		t.Fatalf("state mutated: %s", o.Status)
	}
}

func TestTerminalStatesRejectEverything(t *testing.T) {
	admin := models.Actor{Role: models.RoleAdmin}
	for _, terminal := range []models.OrderStatus{models.OrderDelivered, models.OrderCancelled} {
		o := testOrder(terminal)
		for _, to := range []models.OrderStatus{models.OrderPending, models.OrderConfirmed, models.OrderEnRoute, models.OrderCancelled} {
			if err := Transition(o, to, admin, true); err == nil {
				t.Fatalf("transition %s -> %s should fail", terminal, to)
			}
		}
	}
}

func TestCustomerCannotCancelPastPending(t *testing.T) {
	o := testOrder(models.OrderPreparing)
	err := Transition(o, models.OrderCancelled, models.Actor{ID: "c1", Role: models.RoleCustomer}, true)
	var ut *models.UnauthorizedTransitionError
	if !errors.As(err, &ut) {
		t.Fatalf("expected UnauthorizedTransitionError, got %v", err)
	}
	if o.Status != models.OrderPreparing {
		t.Fatalf("state mutated: %s", o.Status)
	}
}

func TestCustomerCannotCancelSomeoneElsesOrder(t *testing.T) {
	o := testOrder(models.OrderPending)
	err := Transition(o, models.OrderCancelled, models.Actor{ID: "other", Role: models.RoleCustomer}, true)
	var ut *models.UnauthorizedTransitionError
	if !errors.As(err, &ut) {
		t.Fatalf("expected UnauthorizedTransitionError for non-owner, got %v", err)
	}
}

func TestRestaurantCancelPastPending(t *testing.T) {
	o := testOrder(models.OrderEnRoute)
	if err := Transition(o, models.OrderCancelled, models.Actor{ID: "r1", Role: models.RoleRestaurant}, true); err != nil {
		t.Fatalf("restaurant cancel: %v", err)
	}
	if o.Status != models.OrderCancelled {
		t.Fatalf("expected cancelado, got %s", o.Status)
	}
}

func TestPendingPaymentEdges(t *testing.T) {
	o := testOrder(models.OrderPendingPayment)
	admin := models.Actor{Role: models.RoleAdmin}
	if err := Transition(o, models.OrderPending, admin, false); err != nil {
		t.Fatalf("payment confirmation: %v", err)
	}

	o = testOrder(models.OrderPendingPayment)
	if err := Transition(o, models.OrderCancelled, admin, false); err != nil {
		t.Fatalf("unpaid sweep cancel: %v", err)
	}

	// customers can abandon their own unpaid order
	o = testOrder(models.OrderPendingPayment)
	if err := Transition(o, models.OrderCancelled, models.Actor{ID: "c1", Role: models.RoleCustomer}, false); err != nil {
		t.Fatalf("customer cancel unpaid: %v", err)
	}
}

func TestTrackable(t *testing.T) {
	if !Trackable(models.OrderEnRoute) {
		t.Fatal("en_camino must be trackable")
	}
	for _, s := range []models.OrderStatus{models.OrderPending, models.OrderPendingPayment, models.OrderConfirmed,
		models.OrderPreparing, models.OrderDelivered, models.OrderCancelled} {
		if Trackable(s) {
			t.Fatalf("%s must not be trackable", s)
		}
	}
}

func TestUnknownStatusRejected(t *testing.T) {
	o := testOrder(models.OrderPending)
	if err := Transition(o, models.OrderStatus("listo"), models.Actor{Role: models.RoleAdmin}, true); err == nil {
		t.Fatal("unknown status should be rejected")
	}
}
