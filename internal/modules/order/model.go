// README: Order aggregate, status definitions, and the transition table.
package order

import (
	"time"

	"nosh/internal/types"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusPreparing Status = "preparing"
	StatusReady     Status = "ready"
	StatusDelivered Status = "delivered"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "pending"
	PaymentPaid     PaymentStatus = "paid"
	PaymentRefunded PaymentStatus = "refunded"
	PaymentFailed   PaymentStatus = "failed"
)

type CancelReason string

const (
	CancelCustomerRequest CancelReason = "customer_request"
	CancelOutOfStock      CancelReason = "out_of_stock"
	CancelChefUnavailable CancelReason = "chef_unavailable"
	CancelDeliveryIssue   CancelReason = "delivery_issue"
	CancelFraudulent      CancelReason = "fraudulent"
	CancelDuplicate       CancelReason = "duplicate"
	CancelOther           CancelReason = "other"
)

func (r CancelReason) Valid() bool {
	switch r {
	case CancelCustomerRequest, CancelOutOfStock, CancelChefUnavailable,
		CancelDeliveryIssue, CancelFraudulent, CancelDuplicate, CancelOther:
		return true
	}
	return false
}

type OrderItem struct {
	DishID    types.ID `json:"dish_id"`
	Name      string   `json:"name"`
	Quantity  int      `json:"quantity"`
	UnitPrice int64    `json:"unit_price"`
}

type Order struct {
	ID            types.ID
	CustomerID    types.ID
	ChefID        types.ID
	Status        Status
	PaymentStatus PaymentStatus
	StatusVersion int

	Items       []OrderItem
	TotalAmount int64
	Currency    string

	DeliveryAddress     *types.Address
	SpecialInstructions *string
	PaymentID           *string
	ChefNotes           *string
	EstimatedPrepMin    *int

	IsRefundable        bool
	RefundEligibleUntil *time.Time

	CreatedAt   time.Time
	UpdatedAt   time.Time
	ReadyAt     *time.Time
	DeliveredAt *time.Time
	CompletedAt *time.Time

	CancelledAt       *time.Time
	CancelReason      *CancelReason
	CancelledBy       *types.ID
	CancelDescription *string
}

// Terminal reports whether the order can never leave its current status.
func (o *Order) Terminal() bool {
	return o.Status == StatusCompleted || o.Status == StatusCancelled
}

// AllowedTransitions represents the order state flow as code. Cancellation is
// legal from every non-terminal status and is listed explicitly so the table
// stays the single source of truth.
var AllowedTransitions = map[Status][]Status{
	StatusPending:   {StatusConfirmed, StatusCancelled},
	StatusConfirmed: {StatusPreparing, StatusCancelled},
	StatusPreparing: {StatusReady, StatusCancelled},
	StatusReady:     {StatusDelivered, StatusCancelled},
	StatusDelivered: {StatusCompleted, StatusCancelled},
}

func CanTransition(from, to Status) bool {
	next, ok := AllowedTransitions[from]
	if !ok {
		return false
	}
	for _, s := range next {
		if s == to {
			return true
		}
	}
	return false
}

// requiredPredecessor names the status an order must be in before the target
// status is reachable, used in transition error messages.
func requiredPredecessor(to Status) Status {
	switch to {
	case StatusConfirmed:
		return StatusPending
	case StatusPreparing:
		return StatusConfirmed
	case StatusReady:
		return StatusPreparing
	case StatusDelivered:
		return StatusReady
	case StatusCompleted:
		return StatusDelivered
	}
	return ""
}

// HistoryMetadata is the typed metadata bag on a history entry. Each action
// fills the fields relevant to it; Extra carries genuinely open-ended values
// such as admin notes.
type HistoryMetadata struct {
	Notes               string            `json:"notes,omitempty"`
	NoteType            string            `json:"note_type,omitempty"`
	CancelReason        string            `json:"cancel_reason,omitempty"`
	RefundEligibleUntil *int64            `json:"refund_eligible_until,omitempty"`
	PrevEligibleUntil   *int64            `json:"previous_eligible_until,omitempty"`
	IsRefundable        *bool             `json:"is_refundable,omitempty"`
	EligibilityReason   string            `json:"eligibility_reason,omitempty"`
	AssignmentScore     *float64          `json:"assignment_score,omitempty"`
	DistanceKm          *float64          `json:"distance_km,omitempty"`
	DriverRating        *float64          `json:"driver_rating,omitempty"`
	Extra               map[string]string `json:"extra,omitempty"`
}

// HistoryEntry is one immutable audit record of an action taken against an
// order. Entries are append-only and never mutated or deleted.
type HistoryEntry struct {
	ID          int64
	OrderID     types.ID
	Action      string
	PerformedBy types.ID
	Description string
	Metadata    HistoryMetadata
	PerformedAt time.Time
}
