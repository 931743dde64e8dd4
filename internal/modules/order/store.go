// README: Order store backed by PostgreSQL.
package order

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"nosh/internal/types"
)

type PGStore struct {
	db *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *PGStore {
	return &PGStore{db: db}
}

func (s *PGStore) Create(ctx context.Context, o *Order) error {
	items, err := json.Marshal(o.Items)
	if err != nil {
		return fmt.Errorf("marshal items: %w", err)
	}
	var addr []byte
	if o.DeliveryAddress != nil {
		if addr, err = json.Marshal(o.DeliveryAddress); err != nil {
			return fmt.Errorf("marshal address: %w", err)
		}
	}
	_, err = s.db.Exec(ctx, `
        INSERT INTO orders (
            id, customer_id, chef_id, status, payment_status, status_version,
            items, total_amount, currency, delivery_address,
            special_instructions, payment_id, is_refundable,
            created_at, updated_at
        ) VALUES (
            $1, $2, $3, $4, $5, $6,
            $7, $8, $9, $10,
            $11, $12, $13,
            $14, $15
        )`,
		string(o.ID),
		string(o.CustomerID),
		string(o.ChefID),
		string(o.Status),
		string(o.PaymentStatus),
		o.StatusVersion,
		items,
		o.TotalAmount,
		o.Currency,
		addr,
		o.SpecialInstructions,
		o.PaymentID,
		o.IsRefundable,
		o.CreatedAt,
		o.UpdatedAt,
	)
	return err
}

func (s *PGStore) Get(ctx context.Context, id types.ID) (*Order, error) {
	row := s.db.QueryRow(ctx, `
        SELECT id, customer_id, chef_id, status, payment_status, status_version,
               items, total_amount, currency, delivery_address,
               special_instructions, payment_id, chef_notes, estimated_prep_minutes,
               is_refundable, refund_eligible_until,
               created_at, updated_at, ready_at, delivered_at, completed_at,
               cancelled_at, cancel_reason, cancelled_by, cancellation_description
        FROM orders
        WHERE id = $1`, string(id),
	)

	var o Order
	var items, addr []byte
	var specialInstructions, paymentID, chefNotes, cancelReason, cancelledBy, cancelDesc sql.NullString
	var prepMin sql.NullInt32
	var refundUntil, readyAt, deliveredAt, completedAt, cancelledAt sql.NullTime

	err := row.Scan(
		&o.ID, &o.CustomerID, &o.ChefID, &o.Status, &o.PaymentStatus, &o.StatusVersion,
		&items, &o.TotalAmount, &o.Currency, &addr,
		&specialInstructions, &paymentID, &chefNotes, &prepMin,
		&o.IsRefundable, &refundUntil,
		&o.CreatedAt, &o.UpdatedAt, &readyAt, &deliveredAt, &completedAt,
		&cancelledAt, &cancelReason, &cancelledBy, &cancelDesc,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(items, &o.Items); err != nil {
		return nil, fmt.Errorf("unmarshal items: %w", err)
	}
	if len(addr) > 0 {
		var a types.Address
		if err := json.Unmarshal(addr, &a); err != nil {
			return nil, fmt.Errorf("unmarshal address: %w", err)
		}
		o.DeliveryAddress = &a
	}
	o.SpecialInstructions = toStringPtr(specialInstructions)
	o.PaymentID = toStringPtr(paymentID)
	o.ChefNotes = toStringPtr(chefNotes)
	if prepMin.Valid {
		v := int(prepMin.Int32)
		o.EstimatedPrepMin = &v
	}
	o.RefundEligibleUntil = toTimePtr(refundUntil)
	o.ReadyAt = toTimePtr(readyAt)
	o.DeliveredAt = toTimePtr(deliveredAt)
	o.CompletedAt = toTimePtr(completedAt)
	o.CancelledAt = toTimePtr(cancelledAt)
	if cancelReason.Valid {
		r := CancelReason(cancelReason.String)
		o.CancelReason = &r
	}
	if cancelledBy.Valid {
		id := types.ID(cancelledBy.String)
		o.CancelledBy = &id
	}
	o.CancelDescription = toStringPtr(cancelDesc)
	return &o, nil
}

// UpdateStatus applies a guarded status change. The WHERE clause on
// (status, status_version) is the compare-and-set that serializes concurrent
// transition attempts on the same order; per-transition stamps (ready_at,
// delivered_at plus the refund window, completed_at, cancelled_at) are applied
// in the same statement.
func (s *PGStore) UpdateStatus(ctx context.Context, id types.ID, from, to Status, version int, patch TransitionPatch) (bool, error) {
	tag, err := s.db.Exec(ctx, `
        UPDATE orders
        SET status = $1,
            status_version = status_version + 1,
            updated_at = NOW(),
            ready_at = CASE WHEN $1 = 'ready' THEN NOW() ELSE ready_at END,
            delivered_at = CASE WHEN $1 = 'delivered' THEN NOW() ELSE delivered_at END,
            refund_eligible_until = CASE WHEN $1 = 'delivered' THEN NOW() + interval '24 hours' ELSE refund_eligible_until END,
            is_refundable = CASE WHEN $1 = 'delivered' THEN TRUE
                                 WHEN $1 = 'completed' THEN FALSE
                                 ELSE is_refundable END,
            completed_at = CASE WHEN $1 = 'completed' THEN NOW() ELSE completed_at END,
            cancelled_at = CASE WHEN $1 = 'cancelled' THEN NOW() ELSE cancelled_at END,
            cancel_reason = COALESCE($2, cancel_reason),
            cancelled_by = COALESCE($3, cancelled_by),
            cancellation_description = COALESCE($4, cancellation_description),
            chef_notes = COALESCE($5, chef_notes),
            estimated_prep_minutes = COALESCE($6, estimated_prep_minutes)
        WHERE id = $7 AND status = $8 AND status_version = $9`,
		string(to),
		cancelReasonPtr(patch.CancelReason),
		idPtr(patch.CancelledBy),
		patch.CancelDescription,
		patch.ChefNotes,
		patch.PrepMinutes,
		string(id),
		string(from),
		version,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (s *PGStore) UpdateRefund(ctx context.Context, id types.ID, refundable bool, until *time.Time) error {
	tag, err := s.db.Exec(ctx, `
        UPDATE orders
        SET is_refundable = $1,
            refund_eligible_until = $2,
            updated_at = NOW()
        WHERE id = $3`,
		refundable, until, string(id),
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() != 1 {
		return ErrNotFound
	}
	return nil
}

func (s *PGStore) AppendHistory(ctx context.Context, e *HistoryEntry) error {
	meta, err := json.Marshal(e.Metadata)
	if err != nil {
		return fmt.Errorf("marshal history metadata: %w", err)
	}
	_, err = s.db.Exec(ctx, `
        INSERT INTO order_history (
            order_id, action, performed_by, description, metadata, performed_at
        ) VALUES ($1, $2, $3, $4, $5, $6)`,
		string(e.OrderID),
		e.Action,
		string(e.PerformedBy),
		e.Description,
		meta,
		e.PerformedAt,
	)
	return err
}

func (s *PGStore) History(ctx context.Context, orderID types.ID) ([]HistoryEntry, error) {
	rows, err := s.db.Query(ctx, `
        SELECT id, order_id, action, performed_by, description, metadata, performed_at
        FROM order_history
        WHERE order_id = $1
        ORDER BY performed_at, id`, string(orderID),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []HistoryEntry
	for rows.Next() {
		var e HistoryEntry
		var meta []byte
		if err := rows.Scan(&e.ID, &e.OrderID, &e.Action, &e.PerformedBy, &e.Description, &meta, &e.PerformedAt); err != nil {
			return nil, err
		}
		if len(meta) > 0 {
			if err := json.Unmarshal(meta, &e.Metadata); err != nil {
				return nil, fmt.Errorf("unmarshal history metadata: %w", err)
			}
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func toStringPtr(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	s := v.String
	return &s
}

func toTimePtr(v sql.NullTime) *time.Time {
	if !v.Valid {
		return nil
	}
	t := v.Time
	return &t
}

func cancelReasonPtr(r *CancelReason) *string {
	if r == nil {
		return nil
	}
	s := string(*r)
	return &s
}

func idPtr(id *types.ID) *string {
	if id == nil {
		return nil
	}
	s := string(*id)
	return &s
}
