// README: Meal catalog lookup backed by PostgreSQL.
package catalog

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"nosh/internal/modules/order"
	"nosh/internal/types"
)

// Store resolves dishes for order validation and pricing. The catalog is
// owned by the meal-management side of the platform; this module only reads.
type Store struct {
	db *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

func (s *Store) Lookup(ctx context.Context, ids []types.ID) (map[types.ID]order.Dish, error) {
	if len(ids) == 0 {
		return map[types.ID]order.Dish{}, nil
	}
	raw := make([]string, len(ids))
	for i, id := range ids {
		raw[i] = string(id)
	}
	rows, err := s.db.Query(ctx, `
        SELECT id, chef_id, name, price, available
        FROM meals
        WHERE id = ANY($1)`, raw,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[types.ID]order.Dish, len(ids))
	for rows.Next() {
		var d order.Dish
		if err := rows.Scan(&d.ID, &d.ChefID, &d.Name, &d.Price, &d.Available); err != nil {
			return nil, err
		}
		out[d.ID] = d
	}
	return out, rows.Err()
}
