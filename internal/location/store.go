package location

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/example/delivery-tracking/internal/geo"
	"github.com/example/delivery-tracking/internal/models"
)

// ErrStaleUpdate marks an update whose client timestamp is older than the
// stored position. The caller drops it; the store keeps the fresher value.
var ErrStaleUpdate = errors.New("location update older than stored position")

// Position is a driver's last known location. No history is retained.
type Position struct {
	Coord models.Coord
	At    time.Time
}

// Stale reports whether the position has outlived maxAge. Advisory only:
// stale positions are still returned, consumers decide what to do.
func (p Position) Stale(maxAge time.Duration) bool {
	return maxAge > 0 && time.Since(p.At) > maxAge
}

// Store is the minimal interface the tracking controller and handlers need.
type Store interface {
	// Set validates coordinates and applies a compare-and-swap on the
	// update timestamp: older-than-stored updates return ErrStaleUpdate
	// and leave the stored position untouched.
	Set(ctx context.Context, driverID string, lat, lng float64, at time.Time) error
	Get(ctx context.Context, driverID string) (Position, bool)
	// Nearby returns driver ids ordered by distance from the given point.
	Nearby(ctx context.Context, lat, lng float64, limit int) []string
}

// MemoryStore is the in-process implementation used for local runs and
// tests. Production deployments point at Redis.
type MemoryStore struct {
	mu        sync.RWMutex
	positions map[string]Position
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{positions: make(map[string]Position)}
}

func (m *MemoryStore) Set(ctx context.Context, driverID string, lat, lng float64, at time.Time) error {
	if !geo.ValidCoord(lat, lng) {
		return &models.InvalidCoordinatesError{Lat: lat, Lng: lng}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if cur, ok := m.positions[driverID]; ok && at.Before(cur.At) {
		return ErrStaleUpdate
	}
	m.positions[driverID] = Position{Coord: models.Coord{Lat: lat, Lng: lng}, At: at}
	return nil
}

func (m *MemoryStore) Get(ctx context.Context, driverID string) (Position, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.positions[driverID]
	return p, ok
}

// naive scan; the Redis store uses GEORADIUS for real deployments
func (m *MemoryStore) Nearby(ctx context.Context, lat, lng float64, limit int) []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	type pair struct {
		id   string
		dist float64
	}
	arr := make([]pair, 0, len(m.positions))
	for id, p := range m.positions {
		arr = append(arr, pair{id, geo.Haversine(lat, lng, p.Coord.Lat, p.Coord.Lng)})
	}
	n := limit
	if n > len(arr) {
		n = len(arr)
	}
	// partial selection sort for top-N
	for i := 0; i < n; i++ {
		minIdx := i
		for j := i + 1; j < len(arr); j++ {
			if arr[j].dist < arr[minIdx].dist {
				minIdx = j
			}
		}
		arr[i], arr[minIdx] = arr[minIdx], arr[i]
	}
	out := make([]string, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, arr[i].id)
	}
	return out
}
