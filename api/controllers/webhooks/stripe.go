package webhooks

import (
	"fmt"
	"io"
	"net/http"

	"github.com/stripe/stripe-go/v84/webhook"

	"github.com/blendery/blendery-backend/api/responses"
	stripewebhook "github.com/blendery/blendery-backend/internal/webhooks/stripe"
	pkgerrors "github.com/blendery/blendery-backend/pkg/errors"
	"github.com/blendery/blendery-backend/pkg/logger"
)

// SigningSecretProvider hands out the endpoint secret used to verify
// Stripe-Signature headers.
type SigningSecretProvider interface {
	SigningSecret() string
}

// StripeWebhook receives payment-intent lifecycle events. Only a bad
// signature or an unreadable body is rejected with a 4xx; a processing
// failure is recorded on the event row and still acked with 200, because
// the provider retries on its own schedule and the stored row carries the
// reason. A 5xx is reserved for the case where not even the failure could
// be persisted.
func StripeWebhook(svc *stripewebhook.Service, client SigningSecretProvider, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "webhook service unavailable"))
			return
		}

		payload, err := io.ReadAll(r.Body)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read request body"))
			return
		}

		sigHeader := r.Header.Get("Stripe-Signature")
		if sigHeader == "" {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "stripe signature missing"))
			return
		}

		if client == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "stripe client unavailable"))
			return
		}

		event, err := webhook.ConstructEvent(payload, sigHeader, client.SigningSecret())
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "verify signature"))
			return
		}

		result, err := svc.HandleEvent(ctx, &event)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		if logg != nil {
			logg.Info(ctx, fmt.Sprintf("stripe event %s %s", event.ID, result))
		}
		responses.WriteSuccess(w, map[string]string{"result": string(result)})
	}
}
