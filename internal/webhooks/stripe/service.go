package stripewebhook

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v84"
	"gorm.io/gorm"

	"github.com/blendery/blendery-backend/internal/orders"
	"github.com/blendery/blendery-backend/internal/products"
	"github.com/blendery/blendery-backend/pkg/db/models"
	"github.com/blendery/blendery-backend/pkg/enums"
	pkgerrors "github.com/blendery/blendery-backend/pkg/errors"
	"github.com/blendery/blendery-backend/pkg/metrics"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Result classifies what a delivery did.
type Result string

const (
	// ResultProcessed means the event's transition is durably applied.
	ResultProcessed Result = "processed"
	// ResultDuplicate means an earlier delivery already applied it.
	ResultDuplicate Result = "duplicate"
	// ResultIgnored means the event type is not one we act on.
	ResultIgnored Result = "ignored"
	// ResultFailed means processing failed and the reason was recorded;
	// the delivery should still be acked and the provider will redeliver.
	ResultFailed Result = "failed"
)

// ServiceParams collects the webhook service dependencies.
type ServiceParams struct {
	Events            EventRepository
	Orders            orders.Repository
	Products          products.Repository
	TransactionRunner txRunner
	Metrics           *metrics.StorefrontMetrics
}

// Service applies payment-provider notifications to orders.
type Service struct {
	events   EventRepository
	orders   orders.Repository
	products products.Repository
	txRunner txRunner
	metrics  *metrics.StorefrontMetrics
}

// NewService builds the webhook service. Metrics may be nil.
func NewService(params ServiceParams) (*Service, error) {
	if params.Events == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "event repo required")
	}
	if params.Orders == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "orders repo required")
	}
	if params.Products == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "products repo required")
	}
	if params.TransactionRunner == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "transaction runner required")
	}
	return &Service{
		events:   params.Events,
		orders:   params.Orders,
		products: params.Products,
		txRunner: params.TransactionRunner,
		metrics:  params.Metrics,
	}, nil
}

// HandleEvent applies one delivery. The provider event id is claimed as a
// database row before any work, so redeliveries of an already-processed id
// short-circuit without touching the order. A processing failure is written
// onto the claimed row and reported as ResultFailed with a nil error; the
// caller acks those, and the next redelivery retries from the stored row.
// A non-nil error means not even the failure could be persisted, and the
// delivery should be rejected so the provider tries again.
func (s *Service) HandleEvent(ctx context.Context, event *stripe.Event) (Result, error) {
	if event == nil || event.ID == "" {
		return ResultFailed, pkgerrors.New(pkgerrors.CodeValidation, "event id required")
	}

	target, relevant := targetStatus(event.Type)
	if !relevant {
		s.metrics.IncWebhookEvent(string(ResultIgnored))
		return ResultIgnored, nil
	}

	claimed, inserted, err := s.events.Claim(ctx, event.ID, string(event.Type))
	if err != nil {
		return ResultFailed, err
	}
	if !inserted && claimed.Processed {
		s.metrics.IncWebhookEvent(string(ResultDuplicate))
		return ResultDuplicate, nil
	}

	orderID, processErr := s.apply(ctx, event, target)
	if processErr != nil {
		reason := processErr.Error()
		if recordErr := s.events.RecordFailure(ctx, event.ID, orderID, reason); recordErr != nil {
			return ResultFailed, recordErr
		}
		s.metrics.IncWebhookEvent(string(ResultFailed))
		return ResultFailed, nil
	}

	s.metrics.IncWebhookEvent(string(ResultProcessed))
	return ResultProcessed, nil
}

// apply runs the order transition and the processed-mark in one transaction.
func (s *Service) apply(ctx context.Context, event *stripe.Event, target enums.OrderStatus) (*uuid.UUID, error) {
	if event.Data == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "event data required")
	}

	var intent stripe.PaymentIntent
	if err := json.Unmarshal(event.Data.Raw, &intent); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode payment intent event")
	}
	if intent.ID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment intent id missing")
	}

	var orderID *uuid.UUID
	err := s.txRunner.WithTx(ctx, func(tx *gorm.DB) error {
		orderRepo := s.orders.WithTx(tx)
		eventRepo := s.events.WithTx(tx)

		order, err := orderRepo.FindByPaymentIntentID(ctx, intent.ID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound,
					fmt.Sprintf("no order for payment intent %s", intent.ID))
			}
			return err
		}
		orderID = &order.ID

		if order.Status == target {
			// a concurrent delivery already landed the transition
			return eventRepo.MarkProcessed(ctx, event.ID, orderID)
		}
		if err := orders.ValidateTransition(order.Status, target); err != nil {
			return err
		}

		moved, err := orderRepo.TransitionStatus(ctx, order.ID, order.Status, target)
		if err != nil {
			return err
		}
		if !moved {
			return pkgerrors.New(pkgerrors.CodeConflict, "order changed concurrently")
		}

		// a provider-side cancellation releases the reserved units, same
		// as a customer cancel
		if target == enums.OrderStatusCancelled {
			productRepo := s.products.WithTx(tx)
			for _, item := range order.Items {
				if err := productRepo.IncrementStock(ctx, item.ProductID, item.Quantity); err != nil {
					return err
				}
			}
		}

		from := order.Status
		note := fmt.Sprintf("provider event %s", event.ID)
		if err := orderRepo.AppendStatusLog(ctx, &models.OrderStatusLog{
			OrderID:    order.ID,
			FromStatus: &from,
			ToStatus:   target,
			Note:       &note,
		}); err != nil {
			return err
		}

		return eventRepo.MarkProcessed(ctx, event.ID, orderID)
	})
	if err != nil {
		return orderID, err
	}
	return orderID, nil
}

func targetStatus(eventType stripe.EventType) (enums.OrderStatus, bool) {
	switch eventType {
	case stripe.EventTypePaymentIntentSucceeded:
		return enums.OrderStatusPaid, true
	case stripe.EventTypePaymentIntentPaymentFailed:
		return enums.OrderStatusPaymentFailed, true
	case stripe.EventTypePaymentIntentProcessing:
		return enums.OrderStatusPaymentProcessing, true
	case stripe.EventTypePaymentIntentCanceled:
		return enums.OrderStatusCancelled, true
	default:
		return "", false
	}
}
