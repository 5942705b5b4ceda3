package orders

import (
	"fmt"

	"github.com/blendery/blendery-backend/pkg/enums"
	pkgerrors "github.com/blendery/blendery-backend/pkg/errors"
)

// transitions is the full order lifecycle. Cancellation is reachable from
// every non-terminal status; the two terminal statuses have no exits.
var transitions = map[enums.OrderStatus][]enums.OrderStatus{
	enums.OrderStatusPending:           {enums.OrderStatusPaymentProcessing, enums.OrderStatusCancelled},
	enums.OrderStatusPaymentProcessing: {enums.OrderStatusPaid, enums.OrderStatusPaymentFailed, enums.OrderStatusCancelled},
	enums.OrderStatusPaid:              {enums.OrderStatusProcessing, enums.OrderStatusCancelled},
	enums.OrderStatusPaymentFailed:     {enums.OrderStatusPaymentProcessing, enums.OrderStatusCancelled},
	enums.OrderStatusProcessing:        {enums.OrderStatusShipped, enums.OrderStatusCancelled},
	enums.OrderStatusShipped:           {enums.OrderStatusCompleted, enums.OrderStatusCancelled},
	enums.OrderStatusCompleted:         {},
	enums.OrderStatusCancelled:         {},
}

// CanTransition reports whether from may move to to in one step.
func CanTransition(from, to enums.OrderStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// ValidateTransition returns a state-conflict error for disallowed moves.
func ValidateTransition(from, to enums.OrderStatus) error {
	if !from.IsValid() || !to.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid order status")
	}
	if !CanTransition(from, to) {
		return pkgerrors.New(pkgerrors.CodeStateConflict,
			fmt.Sprintf("order cannot move from %s to %s", from, to))
	}
	return nil
}
