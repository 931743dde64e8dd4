// README: Delivery assignment store backed by PostgreSQL.
package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"nosh/internal/types"
)

type PGStore struct {
	db *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *PGStore {
	return &PGStore{db: db}
}

func (s *PGStore) Create(ctx context.Context, a *Assignment) error {
	pickup, err := json.Marshal(a.Pickup)
	if err != nil {
		return fmt.Errorf("marshal pickup snapshot: %w", err)
	}
	delivery, err := json.Marshal(a.Delivery)
	if err != nil {
		return fmt.Errorf("marshal delivery snapshot: %w", err)
	}
	meta, err := json.Marshal(a.Metadata)
	if err != nil {
		return fmt.Errorf("marshal assignment metadata: %w", err)
	}
	row := s.db.QueryRow(ctx, `
        INSERT INTO delivery_assignments (
            order_id, driver_id, status, assigned_at,
            estimated_pickup_time, estimated_delivery_time,
            pickup_location, delivery_location, metadata
        ) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
        RETURNING id`,
		string(a.OrderID),
		string(a.DriverID),
		string(a.Status),
		a.AssignedAt,
		a.EstimatedPickupTime,
		a.EstimatedDeliveryTime,
		pickup,
		delivery,
		meta,
	)
	return row.Scan(&a.ID)
}

// GetByOrder returns the assignment for an order, or nil when the order has
// none yet.
func (s *PGStore) GetByOrder(ctx context.Context, orderID types.ID) (*Assignment, error) {
	row := s.db.QueryRow(ctx, `
        SELECT id, order_id, driver_id, status, assigned_at,
               estimated_pickup_time, estimated_delivery_time,
               pickup_location, delivery_location, metadata
        FROM delivery_assignments
        WHERE order_id = $1
        ORDER BY assigned_at DESC
        LIMIT 1`, string(orderID),
	)

	var a Assignment
	var pickup, delivery, meta []byte
	err := row.Scan(
		&a.ID, &a.OrderID, &a.DriverID, &a.Status, &a.AssignedAt,
		&a.EstimatedPickupTime, &a.EstimatedDeliveryTime,
		&pickup, &delivery, &meta,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(pickup, &a.Pickup); err != nil {
		return nil, fmt.Errorf("unmarshal pickup snapshot: %w", err)
	}
	if err := json.Unmarshal(delivery, &a.Delivery); err != nil {
		return nil, fmt.Errorf("unmarshal delivery snapshot: %w", err)
	}
	if err := json.Unmarshal(meta, &a.Metadata); err != nil {
		return nil, fmt.Errorf("unmarshal assignment metadata: %w", err)
	}
	return &a, nil
}
