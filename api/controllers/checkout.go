package controllers

import (
	"net/http"

	"github.com/blendery/blendery-backend/api/responses"
	"github.com/blendery/blendery-backend/api/validators"
	checkoutsvc "github.com/blendery/blendery-backend/internal/checkout"
	pkgerrors "github.com/blendery/blendery-backend/pkg/errors"
	"github.com/blendery/blendery-backend/pkg/logger"
	"github.com/blendery/blendery-backend/pkg/types"
)

type checkoutRequest struct {
	ShippingAddress types.Address `json:"shipping_address" validate:"required"`
	Currency        string        `json:"currency" validate:"omitempty,oneof=USD EUR GBP"`
	DiscountCode    *string       `json:"discount_code,omitempty" validate:"omitempty,min=1,max=64"`
}

// Checkout converts the caller's cart into an order. The idempotency
// middleware in front of this route replays the stored response when the same
// Idempotency-Key arrives twice, so a retried submit cannot place two orders.
func Checkout(svc checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}

		owner, err := ownerFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload checkoutRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.Execute(r.Context(), owner, checkoutsvc.PlaceOrderInput{
			ShippingAddress: payload.ShippingAddress,
			Currency:        payload.Currency,
			DiscountCode:    payload.DiscountCode,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if logg != nil {
			ctx := logg.WithOrderID(r.Context(), order.ID.String())
			logg.Info(ctx, "order placed")
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, newOrderResponse(order))
	}
}
