package payments

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v84"
	"github.com/stripe/stripe-go/v84/paymentintent"

	"github.com/blendery/blendery-backend/pkg/enums"
	pkgerrors "github.com/blendery/blendery-backend/pkg/errors"
	pkgstripe "github.com/blendery/blendery-backend/pkg/stripe"
)

// IntentRequest is what the gateway needs to open a payment with the provider.
type IntentRequest struct {
	OrderID     uuid.UUID
	AmountCents int
	Currency    enums.Currency
}

// IntentResult is the provider-side handle for a created payment.
type IntentResult struct {
	IntentID     string
	ClientSecret string
	Status       string
}

// IntentStatus is the provider's current view of a payment.
type IntentStatus struct {
	IntentID string
	Status   string
}

// Gateway is the payment-provider seam. The Stripe implementation is the only
// production one; tests substitute fakes.
type Gateway interface {
	CreateIntent(ctx context.Context, req IntentRequest) (*IntentResult, error)
	GetStatus(ctx context.Context, intentID string) (*IntentStatus, error)
}

type stripeGateway struct{}

// NewStripeGateway wraps the initialized Stripe client as a Gateway.
func NewStripeGateway(api *pkgstripe.Client) Gateway {
	if api == nil {
		return nil
	}
	return &stripeGateway{}
}

// CreateIntent opens a payment intent for the order. The idempotency key is
// derived from the order id, so replaying the call after a network failure
// returns the intent Stripe already holds instead of opening a second one.
func (g *stripeGateway) CreateIntent(ctx context.Context, req IntentRequest) (*IntentResult, error) {
	if req.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if req.AmountCents <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount must be positive")
	}

	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(int64(req.AmountCents)),
		Currency: stripe.String(strings.ToLower(req.Currency.String())),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
		Metadata: map[string]string{"order_id": req.OrderID.String()},
	}
	params.Context = ctx
	params.SetIdempotencyKey(fmt.Sprintf("order-intent-%s", req.OrderID))

	intent, err := paymentintent.New(params)
	if err != nil {
		return nil, classifyStripeErr(err, "create payment intent")
	}
	return &IntentResult{
		IntentID:     intent.ID,
		ClientSecret: intent.ClientSecret,
		Status:       string(intent.Status),
	}, nil
}

// GetStatus reads the intent from the provider.
func (g *stripeGateway) GetStatus(ctx context.Context, intentID string) (*IntentStatus, error) {
	if intentID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "intent id required")
	}
	params := &stripe.PaymentIntentParams{}
	params.Context = ctx

	intent, err := paymentintent.Get(intentID, params)
	if err != nil {
		return nil, classifyStripeErr(err, "fetch payment intent")
	}
	return &IntentStatus{IntentID: intent.ID, Status: string(intent.Status)}, nil
}

// classifyStripeErr maps provider failures onto the storefront error codes:
// a declined card is the buyer's problem, a bad key is ours, and anything
// else is a provider outage the client may retry.
func classifyStripeErr(err error, op string) error {
	var stripeErr *stripe.Error
	if !errors.As(err, &stripeErr) {
		return pkgerrors.Wrap(pkgerrors.CodePaymentProvider, err, op+" failed")
	}

	switch stripeErr.Type {
	case stripe.ErrorTypeCard:
		declined := pkgerrors.Wrap(pkgerrors.CodeCardDeclined, err, "card was declined")
		if stripeErr.DeclineCode != "" {
			declined = declined.WithDetails(map[string]string{"decline_code": string(stripeErr.DeclineCode)})
		}
		return declined
	case stripe.ErrorType("authentication_error"):
		return pkgerrors.Wrap(pkgerrors.CodePaymentConfig, err, "payment provider credentials rejected")
	case stripe.ErrorTypeInvalidRequest:
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, op+" rejected by provider")
	default:
		return pkgerrors.Wrap(pkgerrors.CodePaymentProvider, err, op+" failed")
	}
}
