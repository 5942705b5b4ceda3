package payments

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/blendery/blendery-backend/internal/cart"
	"github.com/blendery/blendery-backend/internal/orders"
	"github.com/blendery/blendery-backend/pkg/db/models"
	"github.com/blendery/blendery-backend/pkg/enums"
	pkgerrors "github.com/blendery/blendery-backend/pkg/errors"
	"github.com/blendery/blendery-backend/pkg/metrics"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// IntentView is the client-facing payment handle for an order.
type IntentView struct {
	OrderID      uuid.UUID `json:"order_id"`
	IntentID     string    `json:"intent_id"`
	ClientSecret string    `json:"client_secret"`
	AmountCents  int       `json:"amount_cents"`
	Currency     string    `json:"currency"`
}

// StatusView reports payment progress. Stale marks the provider as
// unreachable, in which case ProviderStatus is the last value we stored.
type StatusView struct {
	OrderID        uuid.UUID         `json:"order_id"`
	OrderStatus    enums.OrderStatus `json:"order_status"`
	IntentID       string            `json:"intent_id,omitempty"`
	ProviderStatus string            `json:"provider_status,omitempty"`
	Stale          bool              `json:"stale"`
}

// Service owns the payment half of an order's life.
type Service interface {
	CreateIntent(ctx context.Context, owner cart.Owner, orderID uuid.UUID) (*IntentView, error)
	GetStatus(ctx context.Context, owner cart.Owner, orderID uuid.UUID) (*StatusView, error)
}

type service struct {
	tx       txRunner
	orderSvc orders.Service
	repo     orders.Repository
	gateway  Gateway
	metrics  *metrics.StorefrontMetrics
}

// NewService builds the payments service. Metrics may be nil.
func NewService(tx txRunner, orderSvc orders.Service, repo orders.Repository, gateway Gateway, collector *metrics.StorefrontMetrics) (Service, error) {
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if orderSvc == nil {
		return nil, fmt.Errorf("orders service required")
	}
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if gateway == nil {
		return nil, fmt.Errorf("payment gateway required")
	}
	return &service{tx: tx, orderSvc: orderSvc, repo: repo, gateway: gateway, metrics: collector}, nil
}

// CreateIntent opens (or returns) the payment intent for an order. The call
// is idempotent on both sides: an order that already carries an intent gets
// the stored handle back, and the gateway keys provider creation on the
// order id.
func (s *service) CreateIntent(ctx context.Context, owner cart.Owner, orderID uuid.UUID) (*IntentView, error) {
	order, err := s.orderSvc.Get(ctx, owner, orderID)
	if err != nil {
		return nil, err
	}

	if order.PaymentIntentID != nil {
		// a retry with a new card reuses the stored intent, but a failed
		// order has to be reopened so the success webhook can land
		if order.Status == enums.OrderStatusPaymentFailed {
			if err := s.reopenFailedOrder(ctx, order); err != nil {
				return nil, err
			}
		}
		return intentView(order), nil
	}

	switch order.Status {
	case enums.OrderStatusPending, enums.OrderStatusPaymentFailed:
	default:
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict,
			fmt.Sprintf("order in status %s cannot start payment", order.Status))
	}

	result, err := s.gateway.CreateIntent(ctx, IntentRequest{
		OrderID:     order.ID,
		AmountCents: order.TotalCents,
		Currency:    order.Currency,
	})
	if err != nil {
		return nil, err
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		if err := repo.SetPaymentIntent(ctx, order.ID, result.IntentID, result.ClientSecret); err != nil {
			return err
		}
		moved, err := repo.TransitionStatus(ctx, order.ID, order.Status, enums.OrderStatusPaymentProcessing)
		if err != nil {
			return err
		}
		if !moved {
			return pkgerrors.New(pkgerrors.CodeConflict, "order changed concurrently, retry")
		}
		from := order.Status
		return repo.AppendStatusLog(ctx, &models.OrderStatusLog{
			OrderID:    order.ID,
			FromStatus: &from,
			ToStatus:   enums.OrderStatusPaymentProcessing,
		})
	})
	if err != nil {
		return nil, err
	}

	s.metrics.IncIntentCreated()

	order.PaymentIntentID = &result.IntentID
	order.PaymentClientSecret = &result.ClientSecret
	return intentView(order), nil
}

// reopenFailedOrder moves a payment_failed order back to payment_processing
// ahead of another attempt on the same intent.
func (s *service) reopenFailedOrder(ctx context.Context, order *models.Order) error {
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		moved, err := repo.TransitionStatus(ctx, order.ID, enums.OrderStatusPaymentFailed, enums.OrderStatusPaymentProcessing)
		if err != nil {
			return err
		}
		if !moved {
			return pkgerrors.New(pkgerrors.CodeConflict, "order changed concurrently, retry")
		}
		from := enums.OrderStatusPaymentFailed
		note := "payment retried"
		return repo.AppendStatusLog(ctx, &models.OrderStatusLog{
			OrderID:    order.ID,
			FromStatus: &from,
			ToStatus:   enums.OrderStatusPaymentProcessing,
			Note:       &note,
		})
	})
	if err != nil {
		return err
	}
	order.Status = enums.OrderStatusPaymentProcessing
	return nil
}

// GetStatus reads the provider's view of the payment. When the provider is
// unreachable the stored order state is returned flagged stale rather than
// failing the request; transitions stay webhook-driven either way.
func (s *service) GetStatus(ctx context.Context, owner cart.Owner, orderID uuid.UUID) (*StatusView, error) {
	order, err := s.orderSvc.Get(ctx, owner, orderID)
	if err != nil {
		return nil, err
	}

	view := &StatusView{OrderID: order.ID, OrderStatus: order.Status}
	if order.PaymentIntentID == nil {
		return view, nil
	}
	view.IntentID = *order.PaymentIntentID

	status, err := s.gateway.GetStatus(ctx, *order.PaymentIntentID)
	if err != nil {
		if appErr := pkgerrors.As(err); appErr != nil && appErr.Code() == pkgerrors.CodePaymentProvider {
			view.Stale = true
			view.ProviderStatus = derivedProviderStatus(order.Status)
			return view, nil
		}
		return nil, err
	}

	view.ProviderStatus = status.Status
	return view, nil
}

func intentView(order *models.Order) *IntentView {
	view := &IntentView{
		OrderID:     order.ID,
		AmountCents: order.TotalCents,
		Currency:    order.Currency.String(),
	}
	if order.PaymentIntentID != nil {
		view.IntentID = *order.PaymentIntentID
	}
	if order.PaymentClientSecret != nil {
		view.ClientSecret = *order.PaymentClientSecret
	}
	return view
}

// derivedProviderStatus is the best local guess while the provider is down.
func derivedProviderStatus(status enums.OrderStatus) string {
	switch status {
	case enums.OrderStatusPaid:
		return "succeeded"
	case enums.OrderStatusPaymentFailed:
		return "failed"
	case enums.OrderStatusPaymentProcessing:
		return "processing"
	default:
		return "unknown"
	}
}
