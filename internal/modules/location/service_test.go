package location

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"nosh/internal/types"
)

func setupTestRedis(t *testing.T) *redis.Client {
	t.Helper()
	addr := os.Getenv("NOSH_REDIS_ADDR")
	if addr == "" {
		t.Skip("NOSH_REDIS_ADDR not set; skipping Redis-backed tests")
	}
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() { rdb.Close() })
	return rdb
}

func TestSetAndReadPositions(t *testing.T) {
	rdb := setupTestRedis(t)
	store := NewStore(nil, rdb)
	ctx := context.Background()

	id := types.ID(fmt.Sprintf("driver_test_%d", time.Now().UnixNano()))
	pos := types.Point{Lat: 51.5074, Lng: -0.1278}

	if err := store.SetPosition(ctx, id, pos); err != nil {
		t.Fatalf("set position: %v", err)
	}
	t.Cleanup(func() { _ = store.RemovePosition(ctx, id) })

	got, err := store.Positions(ctx, []types.ID{id, "driver_missing"})
	if err != nil {
		t.Fatalf("positions: %v", err)
	}
	p, ok := got[id]
	if !ok {
		t.Fatalf("expected position for %s", id)
	}
	// Redis GEO stores on a geohash grid; allow a small error.
	if diff := DistanceKm(p, pos); diff > 0.01 {
		t.Errorf("position off by %f km", diff)
	}
	if _, ok := got["driver_missing"]; ok {
		t.Error("unknown driver must be omitted from positions")
	}
}

func TestUpdateRejectsBadCoordinates(t *testing.T) {
	svc := NewService(NewStore(nil, nil))
	err := svc.Update(context.Background(), Update{
		DriverID: "d1",
		Position: types.Point{Lat: 120, Lng: 0},
	})
	if err != ErrBadCoordinates {
		t.Fatalf("expected ErrBadCoordinates, got %v", err)
	}
}
