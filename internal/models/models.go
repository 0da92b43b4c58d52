package models

import "time"

type Coord struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// OrderStatus values are the wire values the existing mobile and web
// clients send; the in-transit and terminal states are Spanish.
type OrderStatus string

const (
	OrderPending        OrderStatus = "pending"
	OrderPendingPayment OrderStatus = "pending_payment"
	OrderConfirmed      OrderStatus = "confirmado"
	OrderPreparing      OrderStatus = "preparando"
	OrderEnRoute        OrderStatus = "en_camino"
	OrderDelivered      OrderStatus = "entregado"
	OrderCancelled      OrderStatus = "cancelado"
)

type Order struct {
	ID           string      `json:"id"`
	Status       OrderStatus `json:"status"`
	CustomerID   string      `json:"customer_id"`
	RestaurantID string      `json:"restaurant_id"`
	DriverID     string      `json:"driver_id,omitempty"` // empty until assigned
	Pickup       Coord       `json:"pickup"`              // restaurant coords, copied at checkout
	Dropoff      Coord       `json:"dropoff"`             // immutable once created
	CreatedAt    time.Time   `json:"created_at"`
	StatusAt     time.Time   `json:"status_at"`
}

type Availability string

const (
	DriverOffline    Availability = "offline"
	DriverAvailable  Availability = "available"
	DriverOnDelivery Availability = "on_delivery"
)

type Driver struct {
	ID           string       `json:"id"`
	Availability Availability `json:"availability"`
	Loc          Coord        `json:"loc"`
	LocatedAt    time.Time    `json:"located_at"` // zero means never reported
	Vehicle      string       `json:"vehicle"`
}

// AssignmentStatus is the delivery sub-status, strictly forward-only.
type AssignmentStatus string

const (
	AssignmentAssigned  AssignmentStatus = "assigned"
	AssignmentPickedUp  AssignmentStatus = "picked_up"
	AssignmentOnTheWay  AssignmentStatus = "on_the_way"
	AssignmentDelivered AssignmentStatus = "delivered"
)

// Assignment binds one driver to one order. An order has at most one
// active (non-delivered) assignment at a time.
type Assignment struct {
	OrderID   string           `json:"order_id"`
	DriverID  string           `json:"driver_id"`
	Status    AssignmentStatus `json:"status"`
	CreatedAt time.Time        `json:"created_at"`
	UpdatedAt time.Time        `json:"updated_at"`
}

func (a Assignment) Active() bool { return a.Status != AssignmentDelivered }

// LocationUpdate is a single GPS ping from a driver device. Timestamp is
// client-reported and used to discard out-of-order deliveries.
type LocationUpdate struct {
	DriverID  string    `json:"driver_id"`
	Lat       float64   `json:"lat"`
	Lng       float64   `json:"lng"`
	Timestamp time.Time `json:"timestamp"`
}

// Route is ephemeral: recomputed on demand, never persisted.
type Route struct {
	Polyline       []Coord   `json:"polyline"`
	DistanceMeters float64   `json:"distance_meters"`
	Fallback       bool      `json:"fallback"` // straight-line estimate, provider unavailable
	ComputedAt     time.Time `json:"computed_at"`
}

type Role string

const (
	RoleCustomer   Role = "customer"
	RoleRestaurant Role = "restaurant"
	RoleDriver     Role = "driver"
	RoleAdmin      Role = "admin"
)

// Actor identifies who requested a state change, for authorization and
// ownership checks.
type Actor struct {
	ID   string
	Role Role
}
