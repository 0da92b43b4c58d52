package models

import "fmt"

// InvalidTransitionError rejects a status change not permitted from the
// current state. State is left untouched by the caller.
type InvalidTransitionError struct {
	From string
	To   string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid state transition from %q to %q", e.From, e.To)
}

// UnauthorizedTransitionError rejects a status change the actor is not
// allowed to make, regardless of whether the edge itself is valid.
type UnauthorizedTransitionError struct {
	Role Role
	From string
	To   string
}

func (e *UnauthorizedTransitionError) Error() string {
	return fmt.Sprintf("%s may not transition order from %q to %q", e.Role, e.From, e.To)
}

// InvalidCoordinatesError rejects an out-of-range lat/lng pair. The prior
// stored location, if any, is retained.
type InvalidCoordinatesError struct {
	Lat float64
	Lng float64
}

func (e *InvalidCoordinatesError) Error() string {
	return fmt.Sprintf("invalid coordinates lat=%f lng=%f", e.Lat, e.Lng)
}

// AssignmentConflictError rejects a second active assignment for an order.
type AssignmentConflictError struct {
	OrderID string
}

func (e *AssignmentConflictError) Error() string {
	return fmt.Sprintf("order %s already has an active assignment", e.OrderID)
}
