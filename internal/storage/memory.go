package storage

import (
	"context"
	"sync"
	"time"

	"github.com/example/delivery-tracking/internal/models"
)

// MemoryStore keeps orders, drivers and assignments in maps. It backs
// local runs and tests; production uses PostgresStore.
type MemoryStore struct {
	mu          sync.RWMutex
	orders      map[string]*models.Order
	drivers     map[string]*models.Driver
	assignments map[string]*models.Assignment // keyed by order id, active only
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		orders:      make(map[string]*models.Order),
		drivers:     make(map[string]*models.Driver),
		assignments: make(map[string]*models.Assignment),
	}
}

func (m *MemoryStore) Order(ctx context.Context, id string) (*models.Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	o, ok := m.orders[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *o
	return &cp, nil
}

func (m *MemoryStore) SaveOrder(ctx context.Context, o *models.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *o
	m.orders[o.ID] = &cp
	return nil
}

func (m *MemoryStore) UpdateOrderStatus(ctx context.Context, id string, status models.OrderStatus, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return ErrNotFound
	}
	o.Status = status
	o.StatusAt = at
	return nil
}

func (m *MemoryStore) SetOrderDriver(ctx context.Context, id, driverID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return ErrNotFound
	}
	o.DriverID = driverID
	return nil
}

func (m *MemoryStore) Driver(ctx context.Context, id string) (*models.Driver, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	d, ok := m.drivers[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *d
	return &cp, nil
}

func (m *MemoryStore) SaveDriver(ctx context.Context, d *models.Driver) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *d
	m.drivers[d.ID] = &cp
	return nil
}

func (m *MemoryStore) UpdateAvailability(ctx context.Context, id string, av models.Availability) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.drivers[id]
	if !ok {
		return ErrNotFound
	}
	d.Availability = av
	return nil
}

func (m *MemoryStore) UpdateDriverLocation(ctx context.Context, id string, lat, lng float64, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.drivers[id]
	if !ok {
		return ErrNotFound
	}
	d.Loc = models.Coord{Lat: lat, Lng: lng}
	d.LocatedAt = at
	return nil
}

func (m *MemoryStore) ActiveByOrder(ctx context.Context, orderID string) (*models.Assignment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.assignments[orderID]
	if !ok || !a.Active() {
		return nil, ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (m *MemoryStore) ActiveByDriver(ctx context.Context, driverID string) ([]models.Assignment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []models.Assignment
	for _, a := range m.assignments {
		if a.DriverID == driverID && a.Active() {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (m *MemoryStore) CreateAssignment(ctx context.Context, a *models.Assignment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if cur, ok := m.assignments[a.OrderID]; ok && cur.Active() {
		return &models.AssignmentConflictError{OrderID: a.OrderID}
	}
	cp := *a
	m.assignments[a.OrderID] = &cp
	return nil
}

func (m *MemoryStore) UpdateAssignmentStatus(ctx context.Context, orderID string, status models.AssignmentStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.assignments[orderID]
	if !ok {
		return ErrNotFound
	}
	a.Status = status
	a.UpdatedAt = time.Now()
	return nil
}
