// README: Driver store backed by PostgreSQL with a per-driver availability CAS.
package driver

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"nosh/internal/types"
)

var ErrNotFound = errors.New("driver not found")

type PGStore struct {
	db *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *PGStore {
	return &PGStore{db: db}
}

func (s *PGStore) Get(ctx context.Context, id types.ID) (*Driver, error) {
	row := s.db.QueryRow(ctx, `
        SELECT id, name, status, availability, rating, total_deliveries, created_at, updated_at
        FROM drivers
        WHERE id = $1`, string(id),
	)
	return scanDriver(row)
}

// ListAvailable returns every driver eligible for assignment: active status
// and available. The fetched order is the tie-break order downstream, so the
// query sorts deterministically.
func (s *PGStore) ListAvailable(ctx context.Context) ([]Driver, error) {
	rows, err := s.db.Query(ctx, `
        SELECT id, name, status, availability, rating, total_deliveries, created_at, updated_at
        FROM drivers
        WHERE status = 'active' AND availability = 'available'
        ORDER BY created_at, id`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Driver
	for rows.Next() {
		d, err := scanDriver(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *d)
	}
	return out, rows.Err()
}

// MarkBusy flips a driver from available to busy. The WHERE clause is the
// atomic check-and-set that prevents two concurrent assignments from taking
// the same driver; it reports false when the driver was already taken.
func (s *PGStore) MarkBusy(ctx context.Context, id types.ID) (bool, error) {
	tag, err := s.db.Exec(ctx, `
        UPDATE drivers
        SET availability = 'busy', updated_at = NOW()
        WHERE id = $1 AND availability = 'available'`,
		string(id),
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// SetAvailability sets a driver's availability unconditionally, used for the
// busy-to-available release after delivery and for offline toggles.
func (s *PGStore) SetAvailability(ctx context.Context, id types.ID, a Availability) error {
	tag, err := s.db.Exec(ctx, `
        UPDATE drivers
        SET availability = $1, updated_at = NOW()
        WHERE id = $2`,
		string(a), string(id),
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() != 1 {
		return ErrNotFound
	}
	return nil
}

func (s *PGStore) IncrementDeliveries(ctx context.Context, id types.ID) error {
	_, err := s.db.Exec(ctx, `
        UPDATE drivers
        SET total_deliveries = total_deliveries + 1, updated_at = NOW()
        WHERE id = $1`, string(id),
	)
	return err
}

func scanDriver(row pgx.Row) (*Driver, error) {
	var d Driver
	var rating sql.NullFloat64
	err := row.Scan(&d.ID, &d.Name, &d.Status, &d.Availability, &rating, &d.TotalDeliveries, &d.CreatedAt, &d.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if rating.Valid {
		r := rating.Float64
		d.Rating = &r
	}
	return &d, nil
}
