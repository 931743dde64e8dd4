// README: Assignment service: picks and locks a driver for a ready order.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"nosh/internal/config"
	"nosh/internal/modules/driver"
	"nosh/internal/modules/order"
	"nosh/internal/types"
)

var (
	ErrMissingDeliveryLocation = errors.New("order has no delivery location")
	ErrNoAvailableDrivers      = errors.New("no available drivers")
	ErrNoSuitableDriver        = errors.New("no suitable driver")
	ErrOrderNotReady           = errors.New("order is not ready for assignment")
	ErrAlreadyAssigned         = errors.New("order already has a delivery assignment")
)

// Orders reads order snapshots for assignment.
type Orders interface {
	Get(ctx context.Context, id types.ID) (*order.Order, error)
}

// Candidates supplies the pool of assignable drivers.
type Candidates interface {
	Available(ctx context.Context) ([]driver.Driver, error)
}

// Drivers performs the availability writes on the chosen driver.
type Drivers interface {
	MarkBusy(ctx context.Context, id types.ID) (bool, error)
	SetAvailability(ctx context.Context, id types.ID, a driver.Availability) error
}

// Store persists delivery assignments.
type Store interface {
	Create(ctx context.Context, a *Assignment) error
	GetByOrder(ctx context.Context, orderID types.ID) (*Assignment, error)
}

// Geocoder resolves an address line to coordinates. Optional; assignment for
// orders whose address lacks coordinates fails without one.
type Geocoder interface {
	Geocode(ctx context.Context, address string) (types.Point, error)
}

type Service struct {
	orders   Orders
	pool     Candidates
	drivers  Drivers
	store    Store
	geocoder Geocoder
	cfg      config.DispatchConfig
	log      *slog.Logger
}

func NewService(orders Orders, pool Candidates, drivers Drivers, store Store, geocoder Geocoder, cfg config.DispatchConfig, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		orders:   orders,
		pool:     pool,
		drivers:  drivers,
		store:    store,
		geocoder: geocoder,
		cfg:      cfg,
		log:      log,
	}
}

// AssignDriver runs the full assignment pipeline for one ready order: resolve
// the delivery point, score the available pool, then walk the ranking taking
// the first driver whose available-to-busy check-and-set succeeds. Losing the
// CAS to a concurrent assignment falls through to the next candidate.
func (s *Service) AssignDriver(ctx context.Context, orderID types.ID) (*Assignment, error) {
	o, err := s.orders.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if o.Status != order.StatusReady {
		return nil, fmt.Errorf("%w: status is %s", ErrOrderNotReady, o.Status)
	}
	if existing, err := s.store.GetByOrder(ctx, orderID); err != nil {
		return nil, err
	} else if existing != nil {
		return nil, ErrAlreadyAssigned
	}

	target, err := s.resolveDeliveryPoint(ctx, o)
	if err != nil {
		return nil, err
	}

	candidates, err := s.pool.Available(ctx)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return nil, ErrNoAvailableDrivers
	}

	ranked := scoreCandidates(target, candidates, s.cfg.MaxDistanceKm)
	if ranked[0].Score == 0 {
		return nil, ErrNoSuitableDriver
	}

	for _, c := range ranked {
		if c.Score == 0 {
			break
		}
		taken, err := s.drivers.MarkBusy(ctx, c.Driver.ID)
		if err != nil {
			return nil, err
		}
		if !taken {
			// Lost the race to another assignment; try the next one.
			s.log.Debug("driver taken concurrently, trying next candidate",
				"order_id", string(orderID), "driver_id", string(c.Driver.ID))
			continue
		}

		a, err := s.buildAssignment(o, target, c)
		if err == nil {
			err = s.store.Create(ctx, a)
		}
		if err != nil {
			// Release the driver so a failed insert does not strand them busy.
			if rerr := s.drivers.SetAvailability(ctx, c.Driver.ID, driver.AvailabilityAvailable); rerr != nil {
				s.log.Error("failed to release driver after assignment error",
					"driver_id", string(c.Driver.ID), "error", rerr)
			}
			return nil, err
		}

		s.log.Info("driver auto-assigned",
			"order_id", string(orderID),
			"driver_id", string(c.Driver.ID),
			"score", c.Score,
			"distance_km", c.DistanceKm)
		return a, nil
	}
	return nil, fmt.Errorf("%w: every scored candidate was taken concurrently", ErrNoSuitableDriver)
}

func (s *Service) resolveDeliveryPoint(ctx context.Context, o *order.Order) (types.Point, error) {
	addr := o.DeliveryAddress
	if addr == nil {
		return types.Point{}, ErrMissingDeliveryLocation
	}
	if addr.HasCoordinates() {
		return addr.Point(), nil
	}
	if s.geocoder == nil {
		return types.Point{}, fmt.Errorf("%w: address has no coordinates and geocoding is disabled", ErrMissingDeliveryLocation)
	}
	p, err := s.geocoder.Geocode(ctx, addr.Line())
	if err != nil {
		return types.Point{}, fmt.Errorf("%w: geocoding failed: %v", ErrMissingDeliveryLocation, err)
	}
	return p, nil
}

func (s *Service) buildAssignment(o *order.Order, target types.Point, c scoredCandidate) (*Assignment, error) {
	now := time.Now()
	pickupAt := now
	if o.ReadyAt != nil {
		pickupAt = *o.ReadyAt
	}

	// target is the resolved delivery point, which on the geocoded path
	// carries coordinates the address itself lacks.
	delivery := LocationSnapshot{
		Point:        target,
		Address:      o.DeliveryAddress.Line(),
		Instructions: "Deliver to customer",
	}
	if o.SpecialInstructions != nil && *o.SpecialInstructions != "" {
		delivery.Instructions = *o.SpecialInstructions
	}

	return &Assignment{
		OrderID:               o.ID,
		DriverID:              c.Driver.ID,
		Status:                AssignmentAssigned,
		AssignedAt:            now,
		EstimatedPickupTime:   pickupAt,
		EstimatedDeliveryTime: pickupAt.Add(time.Duration(s.cfg.DeliveryWindowMinutes) * time.Minute),
		Pickup: LocationSnapshot{
			// Chef pickup coordinates come from a later location update;
			// the snapshot records the instruction only.
			Instructions: "Pick up from chef location",
		},
		Delivery: delivery,
		Metadata: AssignmentMetadata{
			AutoAssigned: true,
			Score:        c.Score,
			DistanceKm:   c.DistanceKm,
			DriverRating: c.Driver.Rating,
		},
	}, nil
}
