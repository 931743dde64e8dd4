package dispatch

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"nosh/internal/config"
	"nosh/internal/modules/driver"
	"nosh/internal/modules/order"
	"nosh/internal/types"
)

type mockOrders map[types.ID]*order.Order

func (m mockOrders) Get(ctx context.Context, id types.ID) (*order.Order, error) {
	o, ok := m[id]
	if !ok {
		return nil, order.ErrNotFound
	}
	cp := *o
	return &cp, nil
}

type mockPool struct {
	drivers []driver.Driver
	err     error
}

func (m *mockPool) Available(ctx context.Context) ([]driver.Driver, error) {
	return m.drivers, m.err
}

// mockDrivers tracks availability with the same available-to-busy
// check-and-set as the real store.
type mockDrivers struct {
	mu           sync.Mutex
	availability map[types.ID]driver.Availability
}

func newMockDrivers(ids ...types.ID) *mockDrivers {
	m := &mockDrivers{availability: make(map[types.ID]driver.Availability)}
	for _, id := range ids {
		m.availability[id] = driver.AvailabilityAvailable
	}
	return m
}

func (m *mockDrivers) MarkBusy(ctx context.Context, id types.ID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.availability[id] != driver.AvailabilityAvailable {
		return false, nil
	}
	m.availability[id] = driver.AvailabilityBusy
	return true, nil
}

func (m *mockDrivers) SetAvailability(ctx context.Context, id types.ID, a driver.Availability) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.availability[id] = a
	return nil
}

func (m *mockDrivers) get(id types.ID) driver.Availability {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.availability[id]
}

type mockAssignments struct {
	mu        sync.Mutex
	byOrder   map[types.ID]*Assignment
	createErr error
}

func newMockAssignments() *mockAssignments {
	return &mockAssignments{byOrder: make(map[types.ID]*Assignment)}
}

func (m *mockAssignments) Create(ctx context.Context, a *Assignment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	a.ID = int64(len(m.byOrder) + 1)
	cp := *a
	m.byOrder[a.OrderID] = &cp
	return nil
}

func (m *mockAssignments) GetByOrder(ctx context.Context, orderID types.ID) (*Assignment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.byOrder[orderID]
	if !ok {
		return nil, nil
	}
	cp := *a
	return &cp, nil
}

func testConfig() config.DispatchConfig {
	return config.DispatchConfig{MaxDistanceKm: 10, DeliveryWindowMinutes: 30}
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func readyOrder(id types.ID) *order.Order {
	readyAt := time.Date(2025, 6, 1, 18, 0, 0, 0, time.UTC)
	return &order.Order{
		ID:     id,
		Status: order.StatusReady,
		DeliveryAddress: &types.Address{
			Street:   "14 Deansgate",
			City:     "Manchester",
			Postcode: "M3 1AY",
			Lat:      0,
			Lng:      0.001,
		},
		ReadyAt: &readyAt,
	}
}

func TestAssignRequiresReadyOrder(t *testing.T) {
	o := readyOrder("ord-1")
	o.Status = order.StatusPreparing
	svc := NewService(mockOrders{"ord-1": o}, &mockPool{}, newMockDrivers(), newMockAssignments(), nil, testConfig(), testLogger())

	_, err := svc.AssignDriver(context.Background(), "ord-1")
	if !errors.Is(err, ErrOrderNotReady) {
		t.Fatalf("err = %v, want ErrOrderNotReady", err)
	}
}

func TestAssignUnknownOrder(t *testing.T) {
	svc := NewService(mockOrders{}, &mockPool{}, newMockDrivers(), newMockAssignments(), nil, testConfig(), testLogger())
	if _, err := svc.AssignDriver(context.Background(), "nope"); !errors.Is(err, order.ErrNotFound) {
		t.Fatalf("err = %v, want order.ErrNotFound", err)
	}
}

func TestAssignMissingDeliveryLocation(t *testing.T) {
	noAddr := readyOrder("ord-1")
	noAddr.DeliveryAddress = nil
	noCoords := readyOrder("ord-2")
	noCoords.DeliveryAddress.Lat = 0
	noCoords.DeliveryAddress.Lng = 0

	orders := mockOrders{"ord-1": noAddr, "ord-2": noCoords}
	svc := NewService(orders, &mockPool{}, newMockDrivers(), newMockAssignments(), nil, testConfig(), testLogger())

	if _, err := svc.AssignDriver(context.Background(), "ord-1"); !errors.Is(err, ErrMissingDeliveryLocation) {
		t.Errorf("no address: err = %v, want ErrMissingDeliveryLocation", err)
	}
	// No geocoder configured, so a coordinate-less address cannot be resolved.
	if _, err := svc.AssignDriver(context.Background(), "ord-2"); !errors.Is(err, ErrMissingDeliveryLocation) {
		t.Errorf("no coordinates: err = %v, want ErrMissingDeliveryLocation", err)
	}
}

type geocoderFunc func(ctx context.Context, address string) (types.Point, error)

func (f geocoderFunc) Geocode(ctx context.Context, address string) (types.Point, error) {
	return f(ctx, address)
}

func TestAssignGeocodesAddressWithoutCoordinates(t *testing.T) {
	o := readyOrder("ord-1")
	o.DeliveryAddress.Lat = 0
	o.DeliveryAddress.Lng = 0

	var geocoded string
	resolved := types.Point{Lat: 51.5055, Lng: -0.0754}
	geocoder := geocoderFunc(func(ctx context.Context, address string) (types.Point, error) {
		geocoded = address
		return resolved, nil
	})

	d := driver.Driver{ID: "drv-1", Availability: driver.AvailabilityAvailable, Location: &types.Point{Lat: 51.51, Lng: -0.08}, Rating: ptF(4.5)}
	drivers := newMockDrivers("drv-1")
	store := newMockAssignments()
	svc := NewService(mockOrders{"ord-1": o}, &mockPool{drivers: []driver.Driver{d}}, drivers, store, geocoder, testConfig(), testLogger())

	a, err := svc.AssignDriver(context.Background(), "ord-1")
	if err != nil {
		t.Fatalf("assign: %v", err)
	}
	if a.DriverID != "drv-1" {
		t.Errorf("assigned %s", a.DriverID)
	}
	if geocoded == "" {
		t.Error("geocoder was not consulted")
	}
	// The snapshot must carry the resolved coordinates, not the empty ones
	// from the address.
	if a.Delivery.Point != resolved {
		t.Errorf("delivery point = %+v, want %+v", a.Delivery.Point, resolved)
	}
	stored, _ := store.GetByOrder(context.Background(), "ord-1")
	if stored.Delivery.Point != resolved {
		t.Errorf("persisted delivery point = %+v, want %+v", stored.Delivery.Point, resolved)
	}
}

func TestAssignNoAvailableDrivers(t *testing.T) {
	svc := NewService(mockOrders{"ord-1": readyOrder("ord-1")}, &mockPool{}, newMockDrivers(), newMockAssignments(), nil, testConfig(), testLogger())
	if _, err := svc.AssignDriver(context.Background(), "ord-1"); !errors.Is(err, ErrNoAvailableDrivers) {
		t.Fatalf("err = %v, want ErrNoAvailableDrivers", err)
	}
}

func TestAssignNoSuitableDriver(t *testing.T) {
	// A pool of drivers with no known location and an unrated driver far out
	// of range: everyone scores zero.
	pool := []driver.Driver{
		{ID: "ghost-1"},
		{ID: "ghost-2", Rating: ptF(5.0)},
		candidateAt("far", 50, nil),
	}
	svc := NewService(mockOrders{"ord-1": readyOrder("ord-1")}, &mockPool{drivers: pool}, newMockDrivers("ghost-1", "ghost-2", "far"), newMockAssignments(), nil, testConfig(), testLogger())
	if _, err := svc.AssignDriver(context.Background(), "ord-1"); !errors.Is(err, ErrNoSuitableDriver) {
		t.Fatalf("err = %v, want ErrNoSuitableDriver", err)
	}
}

func TestAssignPicksHighestScoreAndLocksDriver(t *testing.T) {
	near := candidateAt("drv-near", 2, ptF(4.0))
	far := candidateAt("drv-far", 20, ptF(5.0))
	drivers := newMockDrivers("drv-near", "drv-far")
	store := newMockAssignments()
	o := readyOrder("ord-1")
	svc := NewService(mockOrders{"ord-1": o}, &mockPool{drivers: []driver.Driver{far, near}}, drivers, store, nil, testConfig(), testLogger())

	a, err := svc.AssignDriver(context.Background(), "ord-1")
	if err != nil {
		t.Fatalf("assign: %v", err)
	}
	if a.DriverID != "drv-near" {
		t.Fatalf("assigned %s, want drv-near", a.DriverID)
	}
	if a.Status != AssignmentAssigned {
		t.Errorf("status = %s", a.Status)
	}
	if !a.Metadata.AutoAssigned {
		t.Error("metadata should mark the assignment automatic")
	}
	if a.Metadata.Score <= 0 || a.Metadata.DistanceKm <= 0 {
		t.Errorf("metadata = %+v", a.Metadata)
	}
	if a.Metadata.DriverRating == nil || *a.Metadata.DriverRating != 4.0 {
		t.Error("metadata should carry the driver rating")
	}

	wantDelivery := o.ReadyAt.Add(30 * time.Minute)
	if !a.EstimatedDeliveryTime.Equal(wantDelivery) {
		t.Errorf("estimated delivery = %v, want %v", a.EstimatedDeliveryTime, wantDelivery)
	}
	if !a.EstimatedPickupTime.Equal(*o.ReadyAt) {
		t.Errorf("estimated pickup = %v, want ready time", a.EstimatedPickupTime)
	}

	if got := drivers.get("drv-near"); got != driver.AvailabilityBusy {
		t.Errorf("winner availability = %s, want busy", got)
	}
	if got := drivers.get("drv-far"); got != driver.AvailabilityAvailable {
		t.Errorf("loser availability = %s, want available", got)
	}
}

func TestAssignFallsThroughWhenDriverTaken(t *testing.T) {
	first := candidateAt("drv-1", 1, ptF(5.0))
	second := candidateAt("drv-2", 3, ptF(4.0))
	drivers := newMockDrivers("drv-2")
	// drv-1 is already busy elsewhere; its CAS must fail.
	drivers.availability["drv-1"] = driver.AvailabilityBusy
	store := newMockAssignments()
	svc := NewService(mockOrders{"ord-1": readyOrder("ord-1")}, &mockPool{drivers: []driver.Driver{first, second}}, drivers, store, nil, testConfig(), testLogger())

	a, err := svc.AssignDriver(context.Background(), "ord-1")
	if err != nil {
		t.Fatalf("assign: %v", err)
	}
	if a.DriverID != "drv-2" {
		t.Fatalf("assigned %s, want fall-through to drv-2", a.DriverID)
	}
}

func TestAssignAllCandidatesTaken(t *testing.T) {
	d := candidateAt("drv-1", 1, ptF(5.0))
	drivers := newMockDrivers()
	drivers.availability["drv-1"] = driver.AvailabilityBusy
	svc := NewService(mockOrders{"ord-1": readyOrder("ord-1")}, &mockPool{drivers: []driver.Driver{d}}, drivers, newMockAssignments(), nil, testConfig(), testLogger())

	if _, err := svc.AssignDriver(context.Background(), "ord-1"); !errors.Is(err, ErrNoSuitableDriver) {
		t.Fatalf("err = %v, want ErrNoSuitableDriver", err)
	}
}

func TestAssignRejectsSecondAssignment(t *testing.T) {
	d := candidateAt("drv-1", 1, ptF(5.0))
	drivers := newMockDrivers("drv-1")
	store := newMockAssignments()
	svc := NewService(mockOrders{"ord-1": readyOrder("ord-1")}, &mockPool{drivers: []driver.Driver{d}}, drivers, store, nil, testConfig(), testLogger())

	if _, err := svc.AssignDriver(context.Background(), "ord-1"); err != nil {
		t.Fatalf("first assign: %v", err)
	}
	if _, err := svc.AssignDriver(context.Background(), "ord-1"); !errors.Is(err, ErrAlreadyAssigned) {
		t.Fatalf("second assign: err = %v, want ErrAlreadyAssigned", err)
	}
}

func TestAssignReleasesDriverWhenInsertFails(t *testing.T) {
	d := candidateAt("drv-1", 1, ptF(5.0))
	drivers := newMockDrivers("drv-1")
	store := newMockAssignments()
	store.createErr = errors.New("insert failed")
	svc := NewService(mockOrders{"ord-1": readyOrder("ord-1")}, &mockPool{drivers: []driver.Driver{d}}, drivers, store, nil, testConfig(), testLogger())

	if _, err := svc.AssignDriver(context.Background(), "ord-1"); err == nil {
		t.Fatal("expected insert error to propagate")
	}
	if got := drivers.get("drv-1"); got != driver.AvailabilityAvailable {
		t.Errorf("driver availability = %s, want released back to available", got)
	}
}
