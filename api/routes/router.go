package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/blendery/blendery-backend/api/controllers"
	webhookcontrollers "github.com/blendery/blendery-backend/api/controllers/webhooks"
	"github.com/blendery/blendery-backend/api/middleware"
	"github.com/blendery/blendery-backend/internal/cart"
	checkoutsvc "github.com/blendery/blendery-backend/internal/checkout"
	"github.com/blendery/blendery-backend/internal/orders"
	"github.com/blendery/blendery-backend/internal/payments"
	"github.com/blendery/blendery-backend/internal/products"
	stripewebhook "github.com/blendery/blendery-backend/internal/webhooks/stripe"
	"github.com/blendery/blendery-backend/pkg/config"
	"github.com/blendery/blendery-backend/pkg/db"
	"github.com/blendery/blendery-backend/pkg/logger"
	pkgredis "github.com/blendery/blendery-backend/pkg/redis"
	pkgstripe "github.com/blendery/blendery-backend/pkg/stripe"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient *pkgredis.Client,
	registry *prometheus.Registry,
	productService products.Service,
	cartService cart.Service,
	checkoutService checkoutsvc.Service,
	ordersService orders.Service,
	paymentsService payments.Service,
	stripeClient *pkgstripe.Client,
	stripeWebhookService *stripewebhook.Service,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	var redisPinger pkgredis.Pinger
	if redisClient != nil {
		redisPinger = redisClient
	}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, redisPinger))
	})

	if registry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	}

	var signer webhookcontrollers.SigningSecretProvider
	if stripeClient != nil {
		signer = stripeClient
	}

	r.Route("/api/v1/webhooks", func(r chi.Router) {
		r.Post("/stripe", webhookcontrollers.StripeWebhook(stripeWebhookService, signer, logg))
	})

	var idempotencyStore pkgredis.IdempotencyStore
	if redisClient != nil {
		idempotencyStore = redisClient
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Identity(logg))
		r.Use(middleware.Idempotency(idempotencyStore, cfg.Idempotency, logg))

		r.Route("/products", func(r chi.Router) {
			r.Get("/", controllers.ProductList(productService, logg))
			r.Get("/{productId}", controllers.ProductDetail(productService, logg))
		})

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", controllers.CartFetch(cartService, logg))
			r.Put("/items", controllers.CartSetItem(cartService, logg))
			r.Delete("/items/{productId}", controllers.CartRemoveItem(cartService, logg))
			r.Post("/merge", controllers.CartMerge(cartService, logg))
		})

		r.Post("/checkout", controllers.Checkout(checkoutService, logg))

		r.Route("/orders", func(r chi.Router) {
			r.Get("/", controllers.OrderList(ordersService, logg))
			r.Get("/{orderId}", controllers.OrderDetail(ordersService, logg))
			r.Post("/{orderId}/cancel", controllers.OrderCancel(ordersService, logg))
			r.Post("/{orderId}/payment-intent", controllers.PaymentIntentCreate(paymentsService, logg))
			r.Get("/{orderId}/payment", controllers.PaymentStatus(paymentsService, logg))
		})
	})

	return r
}
