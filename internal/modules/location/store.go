// README: Location store backed by Redis GEO and Postgres snapshots.
package location

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"nosh/internal/types"
)

const driverGeoKey = "geo:drivers"

type Store struct {
	db    *pgxpool.Pool
	redis *redis.Client
}

func NewStore(db *pgxpool.Pool, redis *redis.Client) *Store {
	return &Store{db: db, redis: redis}
}

func (s *Store) SetPosition(ctx context.Context, id types.ID, pos types.Point) error {
	return s.redis.GeoAdd(ctx, driverGeoKey, &redis.GeoLocation{
		Name:      string(id),
		Longitude: pos.Lng,
		Latitude:  pos.Lat,
	}).Err()
}

func (s *Store) RemovePosition(ctx context.Context, id types.ID) error {
	return s.redis.ZRem(ctx, driverGeoKey, string(id)).Err()
}

// Positions returns the known position for each requested driver. Drivers
// absent from the GEO index are omitted from the result map.
func (s *Store) Positions(ctx context.Context, ids []types.ID) (map[types.ID]types.Point, error) {
	if len(ids) == 0 {
		return map[types.ID]types.Point{}, nil
	}
	members := make([]string, len(ids))
	for i, id := range ids {
		members[i] = string(id)
	}
	pos, err := s.redis.GeoPos(ctx, driverGeoKey, members...).Result()
	if err != nil {
		return nil, err
	}
	out := make(map[types.ID]types.Point, len(ids))
	for i, p := range pos {
		if p == nil {
			continue
		}
		out[ids[i]] = types.Point{Lat: p.Latitude, Lng: p.Longitude}
	}
	return out, nil
}

func (s *Store) AppendSnapshot(ctx context.Context, snap Snapshot) error {
	_, err := s.db.Exec(ctx, `
        INSERT INTO driver_location_snapshots (driver_id, latitude, longitude, recorded_at)
        VALUES ($1, $2, $3, $4)`,
		string(snap.DriverID),
		snap.Position.Lat,
		snap.Position.Lng,
		snap.RecordedAt,
	)
	return err
}
