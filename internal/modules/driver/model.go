// README: Driver entity and availability definitions.
package driver

import (
	"time"

	"nosh/internal/types"
)

type Status string

const (
	StatusActive    Status = "active"
	StatusInactive  Status = "inactive"
	StatusSuspended Status = "suspended"
	StatusPending   Status = "pending"
)

type Availability string

const (
	AvailabilityAvailable Availability = "available"
	AvailabilityBusy      Availability = "busy"
	AvailabilityOffline   Availability = "offline"
)

func (a Availability) Valid() bool {
	switch a {
	case AvailabilityAvailable, AvailabilityBusy, AvailabilityOffline:
		return true
	}
	return false
}

type Driver struct {
	ID           types.ID
	Name         string
	Status       Status
	Availability Availability
	// Location is the last known position, nil when the driver has never
	// reported one.
	Location        *types.Point
	Rating          *float64
	TotalDeliveries int
	CreatedAt       time.Time
	UpdatedAt       time.Time
}
