package orders

import (
	"testing"

	"github.com/blendery/blendery-backend/pkg/enums"
	pkgerrors "github.com/blendery/blendery-backend/pkg/errors"
)

func TestCanTransition(t *testing.T) {
	cases := []struct {
		from enums.OrderStatus
		to   enums.OrderStatus
		want bool
	}{
		{enums.OrderStatusPending, enums.OrderStatusPaymentProcessing, true},
		{enums.OrderStatusPending, enums.OrderStatusPaid, false},
		{enums.OrderStatusPaymentProcessing, enums.OrderStatusPaid, true},
		{enums.OrderStatusPaymentProcessing, enums.OrderStatusPaymentFailed, true},
		{enums.OrderStatusPaymentFailed, enums.OrderStatusPaymentProcessing, true},
		{enums.OrderStatusPaid, enums.OrderStatusProcessing, true},
		{enums.OrderStatusProcessing, enums.OrderStatusShipped, true},
		{enums.OrderStatusShipped, enums.OrderStatusCompleted, true},
		{enums.OrderStatusShipped, enums.OrderStatusProcessing, false},
		{enums.OrderStatusCompleted, enums.OrderStatusCancelled, false},
		{enums.OrderStatusCancelled, enums.OrderStatusPending, false},
		{enums.OrderStatusPending, enums.OrderStatusCancelled, true},
		{enums.OrderStatusPaid, enums.OrderStatusCancelled, true},
		{enums.OrderStatusShipped, enums.OrderStatusCancelled, true},
	}

	for _, tc := range cases {
		if got := CanTransition(tc.from, tc.to); got != tc.want {
			t.Errorf("CanTransition(%s, %s) = %v, want %v", tc.from, tc.to, got, tc.want)
		}
	}
}

func TestValidateTransitionErrorCode(t *testing.T) {
	err := ValidateTransition(enums.OrderStatusCompleted, enums.OrderStatusCancelled)
	appErr := pkgerrors.As(err)
	if appErr == nil {
		t.Fatal("expected typed error")
	}
	if appErr.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict, got %s", appErr.Code())
	}

	if err := ValidateTransition("bogus", enums.OrderStatusPaid); pkgerrors.As(err).Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error for unknown status, got %v", err)
	}
}
