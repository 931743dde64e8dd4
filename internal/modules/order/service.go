// README: Order service implements the lifecycle state machine and refund operations.
package order

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"log/slog"
	"time"

	"nosh/internal/modules/location"
	"nosh/internal/types"
)

// Store is the persistence boundary for orders and their history. UpdateStatus
// must be a compare-and-set on (status, status_version); it reports false when
// another writer got there first.
type Store interface {
	Create(ctx context.Context, o *Order) error
	Get(ctx context.Context, id types.ID) (*Order, error)
	UpdateStatus(ctx context.Context, id types.ID, from, to Status, version int, patch TransitionPatch) (bool, error)
	UpdateRefund(ctx context.Context, id types.ID, refundable bool, until *time.Time) error
	AppendHistory(ctx context.Context, e *HistoryEntry) error
	History(ctx context.Context, orderID types.ID) ([]HistoryEntry, error)
}

// TransitionPatch carries the per-transition field writes applied alongside a
// status change.
type TransitionPatch struct {
	ChefNotes         *string
	PrepMinutes       *int
	CancelReason      *CancelReason
	CancelledBy       *types.ID
	CancelDescription *string
}

// Dispatcher starts automatic driver assignment for a ready order. It is a
// best-effort side effect: the ready transition never fails or rolls back
// because assignment did.
type Dispatcher interface {
	AssignDriver(ctx context.Context, orderID types.ID) error
}

// DispatcherFunc adapts a plain function to the Dispatcher interface.
type DispatcherFunc func(ctx context.Context, orderID types.ID) error

func (f DispatcherFunc) AssignDriver(ctx context.Context, orderID types.ID) error {
	return f(ctx, orderID)
}

// StatusChange is the event published after every successful transition.
type StatusChange struct {
	OrderID    types.ID  `json:"order_id"`
	CustomerID types.ID  `json:"customer_id"`
	ChefID     types.ID  `json:"chef_id"`
	From       Status    `json:"from_status"`
	To         Status    `json:"to_status"`
	ChangedBy  types.ID  `json:"changed_by"`
	ChangedAt  time.Time `json:"changed_at"`
}

// Notifier delivers status-change events to interested parties. Failures are
// logged by the service, never propagated.
type Notifier interface {
	PublishStatusChange(ctx context.Context, ev StatusChange) error
}

// Dish is a catalog row used to validate and price order items.
type Dish struct {
	ID        types.ID
	ChefID    types.ID
	Name      string
	Price     int64
	Available bool
}

// Catalog resolves dishes for order creation. The meal catalog itself lives
// outside this module.
type Catalog interface {
	Lookup(ctx context.Context, ids []types.ID) (map[types.ID]Dish, error)
}

type Service struct {
	store    Store
	catalog  Catalog
	dispatch Dispatcher
	notifier Notifier
	log      *slog.Logger
}

func NewService(store Store, catalog Catalog, dispatch Dispatcher, notifier Notifier, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{store: store, catalog: catalog, dispatch: dispatch, notifier: notifier, log: log}
}

type CreateItem struct {
	DishID   types.ID
	Quantity int
}

type CreateCommand struct {
	CustomerID          types.ID
	ChefID              types.ID
	Items               []CreateItem
	DeliveryAddress     *types.Address
	SpecialInstructions *string
	// PaymentID marks the order paid at creation when set.
	PaymentID *string
}

// Create validates items against the catalog, prices the order server-side,
// and inserts it in pending status.
func (s *Service) Create(ctx context.Context, cmd CreateCommand) (*Order, error) {
	if cmd.CustomerID == "" || cmd.ChefID == "" || len(cmd.Items) == 0 {
		return nil, ErrBadRequest
	}
	if addr := cmd.DeliveryAddress; addr != nil && addr.HasCoordinates() && !location.ValidCoordinates(addr.Point()) {
		return nil, ErrBadRequest
	}

	ids := make([]types.ID, 0, len(cmd.Items))
	for _, it := range cmd.Items {
		if it.DishID == "" || it.Quantity <= 0 {
			return nil, ErrBadRequest
		}
		ids = append(ids, it.DishID)
	}
	dishes, err := s.catalog.Lookup(ctx, ids)
	if err != nil {
		return nil, err
	}

	items := make([]OrderItem, 0, len(cmd.Items))
	var total int64
	for _, it := range cmd.Items {
		dish, ok := dishes[it.DishID]
		if !ok || !dish.Available {
			return nil, ErrBadRequest
		}
		items = append(items, OrderItem{
			DishID:    dish.ID,
			Name:      dish.Name,
			Quantity:  it.Quantity,
			UnitPrice: dish.Price,
		})
		total += dish.Price * int64(it.Quantity)
	}

	now := time.Now()
	o := &Order{
		ID:                  newID(),
		CustomerID:          cmd.CustomerID,
		ChefID:              cmd.ChefID,
		Status:              StatusPending,
		PaymentStatus:       PaymentPending,
		StatusVersion:       0,
		Items:               items,
		TotalAmount:         total,
		Currency:            "GBP",
		DeliveryAddress:     cmd.DeliveryAddress,
		SpecialInstructions: cmd.SpecialInstructions,
		PaymentID:           cmd.PaymentID,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
	if cmd.PaymentID != nil {
		o.PaymentStatus = PaymentPaid
	}
	if err := s.store.Create(ctx, o); err != nil {
		return nil, err
	}
	if err := s.store.AppendHistory(ctx, &HistoryEntry{
		OrderID:     o.ID,
		Action:      "created",
		PerformedBy: cmd.CustomerID,
		Description: "Order placed",
		PerformedAt: now,
	}); err != nil {
		return nil, err
	}
	return o, nil
}

func (s *Service) Get(ctx context.Context, id types.ID) (*Order, error) {
	return s.store.Get(ctx, id)
}

func (s *Service) History(ctx context.Context, id types.ID) ([]HistoryEntry, error) {
	if _, err := s.store.Get(ctx, id); err != nil {
		return nil, err
	}
	return s.store.History(ctx, id)
}

type ConfirmCommand struct {
	OrderID     types.ID
	ActorID     types.ID
	Notes       *string
	PrepMinutes *int
}

func (s *Service) Confirm(ctx context.Context, cmd ConfirmCommand) (*Order, error) {
	return s.transition(ctx, cmd.OrderID, cmd.ActorID, StatusConfirmed,
		TransitionPatch{ChefNotes: cmd.Notes, PrepMinutes: cmd.PrepMinutes},
		"confirmed", "Order confirmed by chef", HistoryMetadata{Notes: deref(cmd.Notes)})
}

type PrepareCommand struct {
	OrderID     types.ID
	ActorID     types.ID
	Notes       *string
	PrepMinutes *int
}

func (s *Service) Prepare(ctx context.Context, cmd PrepareCommand) (*Order, error) {
	return s.transition(ctx, cmd.OrderID, cmd.ActorID, StatusPreparing,
		TransitionPatch{ChefNotes: cmd.Notes, PrepMinutes: cmd.PrepMinutes},
		"preparing", "Order preparation started", HistoryMetadata{Notes: deref(cmd.Notes)})
}

type ReadyCommand struct {
	OrderID types.ID
	ActorID types.ID
	Notes   *string
}

// MarkReady moves the order to ready and triggers automatic driver
// assignment. Assignment failure is logged and swallowed: the order stays
// ready without a driver and assignment can be retried out of band.
func (s *Service) MarkReady(ctx context.Context, cmd ReadyCommand) (*Order, error) {
	o, err := s.transition(ctx, cmd.OrderID, cmd.ActorID, StatusReady,
		TransitionPatch{ChefNotes: cmd.Notes},
		"ready", "Order marked as ready for delivery", HistoryMetadata{Notes: deref(cmd.Notes)})
	if err != nil {
		return nil, err
	}
	if s.dispatch != nil {
		if derr := s.dispatch.AssignDriver(ctx, o.ID); derr != nil {
			s.log.Warn("driver auto-assignment failed",
				"order_id", string(o.ID), "error", derr)
		}
	}
	return o, nil
}

type DeliverCommand struct {
	OrderID types.ID
	ActorID types.ID
	Notes   *string
}

func (s *Service) MarkDelivered(ctx context.Context, cmd DeliverCommand) (*Order, error) {
	desc := "Order delivered"
	if cmd.Notes != nil && *cmd.Notes != "" {
		desc = *cmd.Notes
	}
	o, err := s.transition(ctx, cmd.OrderID, cmd.ActorID, StatusDelivered,
		TransitionPatch{}, "delivered", desc, HistoryMetadata{Notes: deref(cmd.Notes)})
	if err != nil {
		return nil, err
	}
	// Record the stamped window on the history entry for auditability.
	if o.RefundEligibleUntil != nil {
		ms := o.RefundEligibleUntil.UnixMilli()
		yes := true
		if herr := s.store.AppendHistory(ctx, &HistoryEntry{
			OrderID:     o.ID,
			Action:      "refund_eligibility_updated",
			PerformedBy: cmd.ActorID,
			Description: "Within 24-hour refund window",
			Metadata:    HistoryMetadata{RefundEligibleUntil: &ms, IsRefundable: &yes},
			PerformedAt: time.Now(),
		}); herr != nil {
			return nil, herr
		}
	}
	return o, nil
}

type CompleteCommand struct {
	OrderID types.ID
	ActorID types.ID
	Notes   *string
}

func (s *Service) Complete(ctx context.Context, cmd CompleteCommand) (*Order, error) {
	desc := "Order completed"
	if cmd.Notes != nil && *cmd.Notes != "" {
		desc = *cmd.Notes
	}
	return s.transition(ctx, cmd.OrderID, cmd.ActorID, StatusCompleted,
		TransitionPatch{}, "completed", desc, HistoryMetadata{Notes: deref(cmd.Notes)})
}

type CancelCommand struct {
	OrderID     types.ID
	ActorID     types.ID
	Reason      CancelReason
	Description string
}

func (s *Service) Cancel(ctx context.Context, cmd CancelCommand) (*Order, error) {
	if !cmd.Reason.Valid() {
		return nil, ErrBadReason
	}
	reason := cmd.Reason
	return s.transition(ctx, cmd.OrderID, cmd.ActorID, StatusCancelled,
		TransitionPatch{
			CancelReason:      &reason,
			CancelledBy:       &cmd.ActorID,
			CancelDescription: &cmd.Description,
		},
		"cancelled", cmd.Description, HistoryMetadata{CancelReason: string(cmd.Reason)})
}

// transition performs the shared read-guard-CAS-audit-notify sequence.
func (s *Service) transition(ctx context.Context, orderID, actorID types.ID, to Status, patch TransitionPatch, action, description string, meta HistoryMetadata) (*Order, error) {
	o, err := s.store.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !CanTransition(o.Status, to) {
		return nil, &TransitionError{From: o.Status, To: to}
	}
	ok, err := s.store.UpdateStatus(ctx, o.ID, o.Status, to, o.StatusVersion, patch)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrConflict
	}
	if err := s.store.AppendHistory(ctx, &HistoryEntry{
		OrderID:     o.ID,
		Action:      action,
		PerformedBy: actorID,
		Description: description,
		Metadata:    meta,
		PerformedAt: time.Now(),
	}); err != nil {
		// An audit gap is worse than a failed request; surface it even
		// though the status write already committed.
		return nil, err
	}

	updated, err := s.store.Get(ctx, o.ID)
	if err != nil {
		return nil, err
	}
	if s.notifier != nil {
		ev := StatusChange{
			OrderID:    o.ID,
			CustomerID: o.CustomerID,
			ChefID:     o.ChefID,
			From:       o.Status,
			To:         to,
			ChangedBy:  actorID,
			ChangedAt:  updated.UpdatedAt,
		}
		if nerr := s.notifier.PublishStatusChange(ctx, ev); nerr != nil {
			s.log.Warn("status notification failed",
				"order_id", string(o.ID), "to_status", string(to), "error", nerr)
		}
	}
	return updated, nil
}

type RecomputeRefundCommand struct {
	OrderID types.ID
	ActorID types.ID
	Reason  string
}

// RecomputeRefundEligibility re-derives is_refundable from the policy and
// records the decision in the order history.
func (s *Service) RecomputeRefundEligibility(ctx context.Context, cmd RecomputeRefundCommand) (RefundDecision, error) {
	o, err := s.store.Get(ctx, cmd.OrderID)
	if err != nil {
		return RefundDecision{}, err
	}
	dec := EvaluateRefund(o, time.Now())
	if err := s.store.UpdateRefund(ctx, o.ID, dec.Refundable, o.RefundEligibleUntil); err != nil {
		return RefundDecision{}, err
	}
	if err := s.store.AppendHistory(ctx, &HistoryEntry{
		OrderID:     o.ID,
		Action:      "refund_eligibility_updated",
		PerformedBy: cmd.ActorID,
		Description: cmd.Reason + ": " + dec.Reason,
		Metadata: HistoryMetadata{
			IsRefundable:      &dec.Refundable,
			EligibilityReason: dec.Reason,
		},
		PerformedAt: time.Now(),
	}); err != nil {
		return RefundDecision{}, err
	}
	return dec, nil
}

type ExtendRefundWindowCommand struct {
	OrderID     types.ID
	ActorID     types.ID
	NewDeadline time.Time
	Reason      string
}

// ExtendRefundWindow replaces the refund deadline and re-derives
// is_refundable from the new window. Privileged operation; authorization is
// resolved by the caller.
func (s *Service) ExtendRefundWindow(ctx context.Context, cmd ExtendRefundWindowCommand) (*Order, error) {
	o, err := s.store.Get(ctx, cmd.OrderID)
	if err != nil {
		return nil, err
	}
	now := time.Now()
	refundable := cmd.NewDeadline.After(now)
	deadline := cmd.NewDeadline
	if err := s.store.UpdateRefund(ctx, o.ID, refundable, &deadline); err != nil {
		return nil, err
	}

	newMs := deadline.UnixMilli()
	meta := HistoryMetadata{
		RefundEligibleUntil: &newMs,
		IsRefundable:        &refundable,
	}
	if o.RefundEligibleUntil != nil {
		prev := o.RefundEligibleUntil.UnixMilli()
		meta.PrevEligibleUntil = &prev
	}
	if err := s.store.AppendHistory(ctx, &HistoryEntry{
		OrderID:     o.ID,
		Action:      "refund_eligibility_updated",
		PerformedBy: cmd.ActorID,
		Description: cmd.Reason + ": Refund window updated to " + deadline.UTC().Format(time.RFC3339),
		Metadata:    meta,
		PerformedAt: now,
	}); err != nil {
		return nil, err
	}
	return s.store.Get(ctx, o.ID)
}

type NoteCommand struct {
	OrderID  types.ID
	ActorID  types.ID
	Note     string
	NoteType string
}

// AddNote appends a free-form note to the order history without touching the
// order status.
func (s *Service) AddNote(ctx context.Context, cmd NoteCommand) error {
	if cmd.Note == "" {
		return ErrBadRequest
	}
	if _, err := s.store.Get(ctx, cmd.OrderID); err != nil {
		return err
	}
	return s.store.AppendHistory(ctx, &HistoryEntry{
		OrderID:     cmd.OrderID,
		Action:      "note_added",
		PerformedBy: cmd.ActorID,
		Description: "Note added: " + cmd.NoteType,
		Metadata:    HistoryMetadata{Notes: cmd.Note, NoteType: cmd.NoteType},
		PerformedAt: time.Now(),
	})
}

func newID() types.ID {
	var b [16]byte
	_, _ = rand.Read(b[:])
	return types.ID(hex.EncodeToString(b[:]))
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
