// README: Refund eligibility policy, a pure decision over an order snapshot.
package order

import (
	"fmt"
	"time"
)

// RefundWindow is the fixed span after delivery during which a
// customer-initiated refund is permitted.
const RefundWindow = 24 * time.Hour

type RefundDecision struct {
	Refundable bool
	Reason     string
}

// EvaluateRefund applies the refund eligibility rules to an order snapshot at
// the given instant. It never mutates the order; callers persist the result
// and record the reason in the order history.
func EvaluateRefund(o *Order, now time.Time) RefundDecision {
	switch {
	case o.Status == StatusCompleted || o.Status == StatusCancelled:
		return RefundDecision{
			Refundable: false,
			Reason:     fmt.Sprintf("Order status is %s", o.Status),
		}
	case o.DeliveredAt != nil && o.RefundEligibleUntil != nil && now.After(*o.RefundEligibleUntil):
		return RefundDecision{
			Refundable: false,
			Reason:     "24-hour refund window has expired",
		}
	case o.Status == StatusDelivered && o.RefundEligibleUntil != nil && !now.After(*o.RefundEligibleUntil):
		return RefundDecision{
			Refundable: true,
			Reason:     "Within 24-hour refund window",
		}
	case o.Status != StatusDelivered:
		return RefundDecision{
			Refundable: true,
			Reason:     "Order not yet delivered",
		}
	}
	// Delivered with no recorded window: keep the cached value rather than
	// guess a deadline that was never stamped.
	return RefundDecision{
		Refundable: o.IsRefundable,
		Reason:     "No refund window recorded for delivered order",
	}
}
