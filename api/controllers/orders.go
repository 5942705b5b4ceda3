package controllers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/blendery/blendery-backend/api/responses"
	"github.com/blendery/blendery-backend/api/validators"
	"github.com/blendery/blendery-backend/internal/orders"
	"github.com/blendery/blendery-backend/pkg/db/models"
	pkgerrors "github.com/blendery/blendery-backend/pkg/errors"
	"github.com/blendery/blendery-backend/pkg/logger"
	"github.com/blendery/blendery-backend/pkg/types"
)

// OrderList serves the logged-in user's order history, newest first.
func OrderList(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		userID, err := userIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.ListForUser(r.Context(), userID, validators.PaginationParams(r))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		items := make([]orderResponse, 0, len(result.Orders))
		for i := range result.Orders {
			items = append(items, newOrderResponse(&result.Orders[i]))
		}
		responses.WriteSuccess(w, orderListResponse{
			Orders:     items,
			NextCursor: result.NextCursor,
		})
	}
}

// OrderDetail serves one order the caller owns.
func OrderDetail(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		owner, err := ownerFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		orderID, err := uuid.Parse(chi.URLParam(r, "orderId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid order id"))
			return
		}

		order, err := svc.Get(r.Context(), owner, orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newOrderResponse(order))
	}
}

// OrderCancel cancels a non-terminal order and restocks its items.
func OrderCancel(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		owner, err := ownerFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		orderID, err := uuid.Parse(chi.URLParam(r, "orderId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid order id"))
			return
		}

		order, err := svc.Cancel(r.Context(), owner, orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newOrderResponse(order))
	}
}

type orderListResponse struct {
	Orders     []orderResponse `json:"orders"`
	NextCursor string          `json:"next_cursor,omitempty"`
}

type orderResponse struct {
	OrderID         uuid.UUID           `json:"order_id"`
	Status          string              `json:"status"`
	Currency        string              `json:"currency"`
	SubtotalCents   int                 `json:"subtotal_cents"`
	ShippingCents   int                 `json:"shipping_cents"`
	TaxCents        int                 `json:"tax_cents"`
	DiscountCents   int                 `json:"discount_cents"`
	TotalCents      int                 `json:"total_cents"`
	DiscountCode    *string             `json:"discount_code,omitempty"`
	ShippingAddress *types.Address      `json:"shipping_address,omitempty"`
	Items           []orderItemResponse `json:"items"`
	History         []statusLogResponse `json:"history,omitempty"`
	CreatedAt       time.Time           `json:"created_at"`
}

type orderItemResponse struct {
	ProductID      uuid.UUID `json:"product_id"`
	Name           string    `json:"name"`
	UnitPriceCents int       `json:"unit_price_cents"`
	Quantity       int       `json:"quantity"`
	LineTotalCents int       `json:"line_total_cents"`
}

type statusLogResponse struct {
	FromStatus *string   `json:"from_status,omitempty"`
	ToStatus   string    `json:"to_status"`
	Note       *string   `json:"note,omitempty"`
	At         time.Time `json:"at"`
}

func newOrderResponse(order *models.Order) orderResponse {
	items := make([]orderItemResponse, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, orderItemResponse{
			ProductID:      item.ProductID,
			Name:           item.Name,
			UnitPriceCents: item.UnitPriceCents,
			Quantity:       item.Quantity,
			LineTotalCents: item.UnitPriceCents * item.Quantity,
		})
	}

	history := make([]statusLogResponse, 0, len(order.StatusLogs))
	for _, log := range order.StatusLogs {
		entry := statusLogResponse{
			ToStatus: string(log.ToStatus),
			Note:     log.Note,
			At:       log.CreatedAt,
		}
		if log.FromStatus != nil {
			from := string(*log.FromStatus)
			entry.FromStatus = &from
		}
		history = append(history, entry)
	}

	return orderResponse{
		OrderID:         order.ID,
		Status:          order.Status.String(),
		Currency:        order.Currency.String(),
		SubtotalCents:   order.SubtotalCents,
		ShippingCents:   order.ShippingCents,
		TaxCents:        order.TaxCents,
		DiscountCents:   order.DiscountCents,
		TotalCents:      order.TotalCents,
		DiscountCode:    order.DiscountCode,
		ShippingAddress: order.ShippingAddress,
		Items:           items,
		History:         history,
		CreatedAt:       order.CreatedAt,
	}
}
