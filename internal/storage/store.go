package storage

import (
	"context"
	"errors"
	"time"

	"github.com/example/delivery-tracking/internal/models"
)

var ErrNotFound = errors.New("not found")

// OrderStore defines persistence operations for orders.
type OrderStore interface {
	Order(ctx context.Context, id string) (*models.Order, error)
	SaveOrder(ctx context.Context, o *models.Order) error
	UpdateOrderStatus(ctx context.Context, id string, status models.OrderStatus, at time.Time) error
	SetOrderDriver(ctx context.Context, id, driverID string) error
}

// DriverStore defines persistence operations for drivers.
type DriverStore interface {
	Driver(ctx context.Context, id string) (*models.Driver, error)
	SaveDriver(ctx context.Context, d *models.Driver) error
	UpdateAvailability(ctx context.Context, id string, av models.Availability) error
	UpdateDriverLocation(ctx context.Context, id string, lat, lng float64, at time.Time) error
}

// AssignmentStore defines persistence for delivery assignments.
type AssignmentStore interface {
	// ActiveByOrder returns the active (non-delivered) assignment for an
	// order, or ErrNotFound.
	ActiveByOrder(ctx context.Context, orderID string) (*models.Assignment, error)
	// ActiveByDriver returns all active assignments for a driver.
	ActiveByDriver(ctx context.Context, driverID string) ([]models.Assignment, error)
	CreateAssignment(ctx context.Context, a *models.Assignment) error
	UpdateAssignmentStatus(ctx context.Context, orderID string, status models.AssignmentStatus) error
}
