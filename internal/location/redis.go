package location

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/example/delivery-tracking/internal/geo"
	"github.com/example/delivery-tracking/internal/models"
)

// RedisStore implements Store on Redis GEO commands so multiple server
// instances and the Kafka consumer see the same positions.
type RedisStore struct {
	client *redis.Client
	key    string
}

func NewRedisStore(addr, password, key string) *RedisStore {
	c := redis.NewClient(&redis.Options{Addr: addr, Password: password})
	return &RedisStore{client: c, key: key}
}

func NewRedisStoreFromClient(c *redis.Client, key string) *RedisStore {
	return &RedisStore{client: c, key: key}
}

func (r *RedisStore) Set(ctx context.Context, driverID string, lat, lng float64, at time.Time) error {
	if !geo.ValidCoord(lat, lng) {
		return &models.InvalidCoordinatesError{Lat: lat, Lng: lng}
	}
	// compare-and-swap on the client-reported timestamp: a delayed ping
	// must not overwrite a fresher position
	if stored, err := r.client.HGet(ctx, tsKey(driverID), "ts").Result(); err == nil {
		if prev, perr := time.Parse(time.RFC3339Nano, stored); perr == nil && at.Before(prev) {
			return ErrStaleUpdate
		}
	}
	if _, err := r.client.GeoAdd(ctx, r.key, &redis.GeoLocation{Longitude: lng, Latitude: lat, Name: driverID}).Result(); err != nil {
		return err
	}
	return r.client.HSet(ctx, tsKey(driverID), map[string]interface{}{"ts": at.Format(time.RFC3339Nano)}).Err()
}

func (r *RedisStore) Get(ctx context.Context, driverID string) (Position, bool) {
	res, err := r.client.GeoPos(ctx, r.key, driverID).Result()
	if err != nil || len(res) == 0 || res[0] == nil {
		return Position{}, false
	}
	p := Position{Coord: models.Coord{Lat: res[0].Latitude, Lng: res[0].Longitude}}
	if v, err := r.client.HGet(ctx, tsKey(driverID), "ts").Result(); err == nil {
		if ts, perr := time.Parse(time.RFC3339Nano, v); perr == nil {
			p.At = ts
		}
	}
	return p, true
}

func (r *RedisStore) Nearby(ctx context.Context, lat, lng float64, limit int) []string {
	res, err := r.client.GeoRadius(ctx, r.key, lng, lat, &redis.GeoRadiusQuery{
		Radius: 10000, Unit: "m", Count: limit, Sort: "ASC",
	}).Result()
	if err != nil {
		return nil
	}
	out := make([]string, 0, len(res))
	for _, g := range res {
		out = append(out, g.Name)
	}
	return out
}

func tsKey(driverID string) string { return "driver:loc:" + driverID }
