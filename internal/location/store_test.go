package location

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/example/delivery-tracking/internal/models"
)

func TestSetAndGet(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	now := time.Now()
	if err := s.Set(ctx, "d1", -34.6, -58.4, now); err != nil {
		t.Fatalf("set: %v", err)
	}
	p, ok := s.Get(ctx, "d1")
	if !ok {
		t.Fatal("position missing")
	}
	if p.Coord.Lat != -34.6 || p.Coord.Lng != -58.4 || !p.At.Equal(now) {
		t.Fatalf("unexpected position %+v", p)
	}
}

func TestInvalidCoordinatesPreservePrior(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	t0 := time.Now()
	if err := s.Set(ctx, "d1", 10, 20, t0); err != nil {
		t.Fatalf("set: %v", err)
	}

	cases := [][2]float64{{91, 0}, {-91, 0}, {0, 181}, {0, -181}}
	for _, c := range cases {
		err := s.Set(ctx, "d1", c[0], c[1], t0.Add(time.Second))
		var ic *models.InvalidCoordinatesError
		if !errors.As(err, &ic) {
			t.Fatalf("expected InvalidCoordinatesError for %v, got %v", c, err)
		}
	}
	p, ok := s.Get(ctx, "d1")
	if !ok || p.Coord.Lat != 10 || p.Coord.Lng != 20 {
		t.Fatalf("prior position not preserved: %+v", p)
	}
}

func TestInvalidCoordinatesWithNoPrior(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	if err := s.Set(ctx, "d1", 120, 0, time.Now()); err == nil {
		t.Fatal("expected rejection")
	}
	if _, ok := s.Get(ctx, "d1"); ok {
		t.Fatal("absence not preserved after rejected update")
	}
}

func TestStaleUpdateDiscarded(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	t1 := time.Now()
	t0 := t1.Add(-time.Minute)

	if err := s.Set(ctx, "d1", 1, 1, t1); err != nil {
		t.Fatalf("set: %v", err)
	}
	// delayed delivery of an older ping must not overwrite
	if err := s.Set(ctx, "d1", 2, 2, t0); !errors.Is(err, ErrStaleUpdate) {
		t.Fatalf("expected ErrStaleUpdate, got %v", err)
	}
	p, _ := s.Get(ctx, "d1")
	if p.Coord.Lat != 1 || p.Coord.Lng != 1 {
		t.Fatalf("stale update overwrote fresher position: %+v", p)
	}
}

func TestPositionStale(t *testing.T) {
	p := Position{At: time.Now().Add(-5 * time.Minute)}
	if !p.Stale(2 * time.Minute) {
		t.Fatal("expected stale")
	}
	if p.Stale(0) {
		t.Fatal("zero max age disables staleness")
	}
	fresh := Position{At: time.Now()}
	if fresh.Stale(2 * time.Minute) {
		t.Fatal("fresh position flagged stale")
	}
}

func TestNearbyOrdersByDistance(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	now := time.Now()
	_ = s.Set(ctx, "far", 1, 1, now)
	_ = s.Set(ctx, "near", 0.001, 0.001, now)
	_ = s.Set(ctx, "mid", 0.1, 0.1, now)

	got := s.Nearby(ctx, 0, 0, 2)
	if len(got) != 2 || got[0] != "near" || got[1] != "mid" {
		t.Fatalf("unexpected nearby order: %v", got)
	}
}
