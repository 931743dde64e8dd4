// README: Read-only driver pool view combining Postgres rows and GEO positions.
package driver

import (
	"context"

	"nosh/internal/types"
)

// Lister reads eligible drivers from persistent storage.
type Lister interface {
	ListAvailable(ctx context.Context) ([]Driver, error)
}

// PositionSource resolves current positions for a set of drivers. Drivers
// with no known position are omitted from the result.
type PositionSource interface {
	Positions(ctx context.Context, ids []types.ID) (map[types.ID]types.Point, error)
}

// Pool is the read-only view the dispatcher scores over: active, available
// drivers with their last known location overlaid from the GEO index.
type Pool struct {
	drivers   Lister
	positions PositionSource
}

func NewPool(drivers Lister, positions PositionSource) *Pool {
	return &Pool{drivers: drivers, positions: positions}
}

// Available returns assignment candidates in stable fetch order. Drivers with
// no GEO entry keep Location nil; the scorer disqualifies them rather than
// this view filtering them out.
func (p *Pool) Available(ctx context.Context) ([]Driver, error) {
	drivers, err := p.drivers.ListAvailable(ctx)
	if err != nil {
		return nil, err
	}
	if len(drivers) == 0 {
		return drivers, nil
	}

	ids := make([]types.ID, len(drivers))
	for i, d := range drivers {
		ids[i] = d.ID
	}
	pos, err := p.positions.Positions(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range drivers {
		if pt, ok := pos[drivers[i].ID]; ok {
			p := pt
			drivers[i].Location = &p
		}
	}
	return drivers, nil
}
