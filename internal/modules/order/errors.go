// README: Order error taxonomy.
package order

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound     = errors.New("order not found")
	ErrConflict     = errors.New("order state conflict")
	ErrBadRequest   = errors.New("bad request")
	ErrBadReason    = errors.New("unknown cancellation reason")
	ErrInvalidState = errors.New("invalid status transition")
)

// TransitionError reports an illegal status change and the predecessor status
// the change requires. It unwraps to ErrInvalidState so callers can keep
// switching on the sentinel.
type TransitionError struct {
	From, To Status
}

func (e *TransitionError) Error() string {
	req := requiredPredecessor(e.To)
	if req == "" {
		return fmt.Sprintf("order cannot move from %s to %s", e.From, e.To)
	}
	return fmt.Sprintf("order cannot move from %s to %s: requires status %s", e.From, e.To, req)
}

func (e *TransitionError) Unwrap() error { return ErrInvalidState }
