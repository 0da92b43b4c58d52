package storage

import (
	"context"
	"database/sql"
	"errors"
	"time"

	_ "github.com/lib/pq"

	"github.com/example/delivery-tracking/internal/models"
)

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(dsn string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	// quick ping
	if err := db.Ping(); err != nil {
		return nil, err
	}
	return &PostgresStore{db: db}, nil
}

func (p *PostgresStore) DB() *sql.DB { return p.db }

func (p *PostgresStore) Order(ctx context.Context, id string) (*models.Order, error) {
	o := &models.Order{}
	var driverID sql.NullString
	err := p.db.QueryRowContext(ctx,
		`SELECT id, status, customer_id, restaurant_id, driver_id, pickup_lat, pickup_lng, dropoff_lat, dropoff_lng, created_at, status_at FROM orders WHERE id=$1`, id).
		Scan(&o.ID, &o.Status, &o.CustomerID, &o.RestaurantID, &driverID,
			&o.Pickup.Lat, &o.Pickup.Lng, &o.Dropoff.Lat, &o.Dropoff.Lng, &o.CreatedAt, &o.StatusAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	o.DriverID = driverID.String
	return o, nil
}

func (p *PostgresStore) SaveOrder(ctx context.Context, o *models.Order) error {
	_, err := p.db.ExecContext(ctx,
		`INSERT INTO orders(id, status, customer_id, restaurant_id, driver_id, pickup_lat, pickup_lng, dropoff_lat, dropoff_lng, created_at, status_at)
		 VALUES($1,$2,$3,$4,NULLIF($5,''),$6,$7,$8,$9,$10,$11)`,
		o.ID, o.Status, o.CustomerID, o.RestaurantID, o.DriverID,
		o.Pickup.Lat, o.Pickup.Lng, o.Dropoff.Lat, o.Dropoff.Lng, o.CreatedAt, o.StatusAt)
	return err
}

func (p *PostgresStore) UpdateOrderStatus(ctx context.Context, id string, status models.OrderStatus, at time.Time) error {
	res, err := p.db.ExecContext(ctx, `UPDATE orders SET status=$1, status_at=$2 WHERE id=$3`, status, at, id)
	if err != nil {
		return err
	}
	return mustAffect(res)
}

func (p *PostgresStore) SetOrderDriver(ctx context.Context, id, driverID string) error {
	res, err := p.db.ExecContext(ctx, `UPDATE orders SET driver_id=$1 WHERE id=$2`, driverID, id)
	if err != nil {
		return err
	}
	return mustAffect(res)
}

func (p *PostgresStore) Driver(ctx context.Context, id string) (*models.Driver, error) {
	d := &models.Driver{}
	var lat, lng sql.NullFloat64
	var at sql.NullTime
	err := p.db.QueryRowContext(ctx,
		`SELECT id, availability, lat, lng, located_at, vehicle FROM drivers WHERE id=$1`, id).
		Scan(&d.ID, &d.Availability, &lat, &lng, &at, &d.Vehicle)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	d.Loc = models.Coord{Lat: lat.Float64, Lng: lng.Float64}
	d.LocatedAt = at.Time
	return d, nil
}

func (p *PostgresStore) SaveDriver(ctx context.Context, d *models.Driver) error {
	_, err := p.db.ExecContext(ctx,
		`INSERT INTO drivers(id, availability, lat, lng, located_at, vehicle) VALUES($1,$2,$3,$4,$5,$6)
		 ON CONFLICT (id) DO UPDATE SET availability=EXCLUDED.availability, vehicle=EXCLUDED.vehicle`,
		d.ID, d.Availability, d.Loc.Lat, d.Loc.Lng, nullTime(d.LocatedAt), d.Vehicle)
	return err
}

func (p *PostgresStore) UpdateAvailability(ctx context.Context, id string, av models.Availability) error {
	res, err := p.db.ExecContext(ctx, `UPDATE drivers SET availability=$1 WHERE id=$2`, av, id)
	if err != nil {
		return err
	}
	return mustAffect(res)
}

func (p *PostgresStore) UpdateDriverLocation(ctx context.Context, id string, lat, lng float64, at time.Time) error {
	res, err := p.db.ExecContext(ctx, `UPDATE drivers SET lat=$1, lng=$2, located_at=$3 WHERE id=$4`, lat, lng, at, id)
	if err != nil {
		return err
	}
	return mustAffect(res)
}

func (p *PostgresStore) ActiveByOrder(ctx context.Context, orderID string) (*models.Assignment, error) {
	a := &models.Assignment{}
	err := p.db.QueryRowContext(ctx,
		`SELECT order_id, driver_id, status, created_at, updated_at FROM delivery_assignments WHERE order_id=$1 AND status <> 'delivered'`, orderID).
		Scan(&a.OrderID, &a.DriverID, &a.Status, &a.CreatedAt, &a.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return a, nil
}

func (p *PostgresStore) ActiveByDriver(ctx context.Context, driverID string) ([]models.Assignment, error) {
	rows, err := p.db.QueryContext(ctx,
		`SELECT order_id, driver_id, status, created_at, updated_at FROM delivery_assignments WHERE driver_id=$1 AND status <> 'delivered'`, driverID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []models.Assignment
	for rows.Next() {
		var a models.Assignment
		if err := rows.Scan(&a.OrderID, &a.DriverID, &a.Status, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (p *PostgresStore) CreateAssignment(ctx context.Context, a *models.Assignment) error {
	// the partial unique index on active assignments enforces the
	// one-active-assignment-per-order invariant at the database level
	var exists bool
	if err := p.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM delivery_assignments WHERE order_id=$1 AND status <> 'delivered')`, a.OrderID).Scan(&exists); err != nil {
		return err
	}
	if exists {
		return &models.AssignmentConflictError{OrderID: a.OrderID}
	}
	_, err := p.db.ExecContext(ctx,
		`INSERT INTO delivery_assignments(order_id, driver_id, status, created_at, updated_at) VALUES($1,$2,$3,$4,$5)`,
		a.OrderID, a.DriverID, a.Status, a.CreatedAt, a.UpdatedAt)
	return err
}

func (p *PostgresStore) UpdateAssignmentStatus(ctx context.Context, orderID string, status models.AssignmentStatus) error {
	res, err := p.db.ExecContext(ctx,
		`UPDATE delivery_assignments SET status=$1, updated_at=$2 WHERE order_id=$3 AND status <> 'delivered'`,
		status, time.Now(), orderID)
	if err != nil {
		return err
	}
	return mustAffect(res)
}

func mustAffect(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func nullTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t
}
