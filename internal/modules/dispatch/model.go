// README: Delivery assignment records and metadata.
package dispatch

import (
	"time"

	"nosh/internal/types"
)

type AssignmentStatus string

const (
	AssignmentAssigned  AssignmentStatus = "assigned"
	AssignmentPickedUp  AssignmentStatus = "picked_up"
	AssignmentDelivered AssignmentStatus = "delivered"
	AssignmentFailed    AssignmentStatus = "failed"
)

// LocationSnapshot freezes a pickup or delivery point at assignment time.
type LocationSnapshot struct {
	Point        types.Point `json:"point"`
	Address      string      `json:"address"`
	Instructions string      `json:"instructions,omitempty"`
}

// AssignmentMetadata records how the driver was chosen.
type AssignmentMetadata struct {
	AutoAssigned bool     `json:"auto_assigned"`
	Score        float64  `json:"assignment_score"`
	DistanceKm   float64  `json:"distance_km"`
	DriverRating *float64 `json:"driver_rating,omitempty"`
}

// Assignment links one ready order to one driver. At most one live assignment
// exists per order.
type Assignment struct {
	ID                    int64
	OrderID               types.ID
	DriverID              types.ID
	Status                AssignmentStatus
	AssignedAt            time.Time
	EstimatedPickupTime   time.Time
	EstimatedDeliveryTime time.Time
	Pickup                LocationSnapshot
	Delivery              LocationSnapshot
	Metadata              AssignmentMetadata
}
