// README: Location service handles driver position updates with snapshot persistence.
package location

import (
	"context"
	"errors"
	"time"

	"nosh/internal/types"
)

var ErrBadCoordinates = errors.New("coordinates out of range")

type Service struct {
	store *Store
}

func NewService(store *Store) *Service {
	return &Service{store: store}
}

type Update struct {
	DriverID types.ID
	Position types.Point
}

// Update records a driver position in the GEO index and appends a durable
// snapshot. Snapshot failures are returned; the GEO index is the source the
// dispatcher reads, so it is written first.
func (s *Service) Update(ctx context.Context, u Update) error {
	if !ValidCoordinates(u.Position) {
		return ErrBadCoordinates
	}
	if err := s.store.SetPosition(ctx, u.DriverID, u.Position); err != nil {
		return err
	}
	return s.store.AppendSnapshot(ctx, Snapshot{
		DriverID:   u.DriverID,
		Position:   u.Position,
		RecordedAt: time.Now(),
	})
}

// Forget removes a driver from the GEO index, used when a driver goes offline.
func (s *Service) Forget(ctx context.Context, id types.ID) error {
	return s.store.RemovePosition(ctx, id)
}
