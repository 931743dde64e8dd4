package order

import (
	"errors"
	"strings"
	"testing"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		name string
		from Status
		to   Status
		want bool
	}{
		{"pending to confirmed", StatusPending, StatusConfirmed, true},
		{"pending to cancelled", StatusPending, StatusCancelled, true},
		{"pending to preparing skips confirm", StatusPending, StatusPreparing, false},
		{"pending to delivered", StatusPending, StatusDelivered, false},
		{"confirmed to preparing", StatusConfirmed, StatusPreparing, true},
		{"confirmed to ready skips preparing", StatusConfirmed, StatusReady, false},
		{"preparing to ready", StatusPreparing, StatusReady, true},
		{"ready to delivered", StatusReady, StatusDelivered, true},
		{"ready to completed skips delivered", StatusReady, StatusCompleted, false},
		{"delivered to completed", StatusDelivered, StatusCompleted, true},
		{"delivered to cancelled", StatusDelivered, StatusCancelled, true},
		{"completed is terminal", StatusCompleted, StatusCancelled, false},
		{"cancelled is terminal", StatusCancelled, StatusConfirmed, false},
		{"cancelled cannot reopen", StatusCancelled, StatusPending, false},
		{"no self transition", StatusPreparing, StatusPreparing, false},
		{"unknown status", Status("weird"), StatusConfirmed, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CanTransition(tt.from, tt.to); got != tt.want {
				t.Errorf("CanTransition(%s, %s) = %v, want %v", tt.from, tt.to, got, tt.want)
			}
		})
	}
}

func TestEveryNonTerminalStatusCanCancel(t *testing.T) {
	for _, s := range []Status{StatusPending, StatusConfirmed, StatusPreparing, StatusReady, StatusDelivered} {
		if !CanTransition(s, StatusCancelled) {
			t.Errorf("expected %s to allow cancellation", s)
		}
	}
}

func TestTerminal(t *testing.T) {
	if !(&Order{Status: StatusCompleted}).Terminal() {
		t.Error("completed should be terminal")
	}
	if !(&Order{Status: StatusCancelled}).Terminal() {
		t.Error("cancelled should be terminal")
	}
	if (&Order{Status: StatusDelivered}).Terminal() {
		t.Error("delivered should not be terminal")
	}
}

func TestTransitionErrorNamesRequiredStatus(t *testing.T) {
	err := &TransitionError{From: StatusPending, To: StatusDelivered}
	if !errors.Is(err, ErrInvalidState) {
		t.Fatal("transition error should unwrap to ErrInvalidState")
	}
	if msg := err.Error(); !strings.Contains(msg, string(StatusReady)) {
		t.Errorf("error %q should name the required predecessor %s", msg, StatusReady)
	}
}

func TestCancelReasonValid(t *testing.T) {
	for _, r := range []CancelReason{
		CancelCustomerRequest, CancelOutOfStock, CancelChefUnavailable,
		CancelDeliveryIssue, CancelFraudulent, CancelDuplicate, CancelOther,
	} {
		if !r.Valid() {
			t.Errorf("%s should be a valid reason", r)
		}
	}
	if CancelReason("changed_my_mind").Valid() {
		t.Error("unknown reason should be invalid")
	}
}
