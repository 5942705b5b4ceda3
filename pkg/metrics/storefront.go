package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// StorefrontMetrics records order placement, payment, and webhook activity.
type StorefrontMetrics struct {
	checkoutDuration *prometheus.HistogramVec
	ordersPlaced     prometheus.Counter
	ordersFailed     *prometheus.CounterVec
	intentsCreated   prometheus.Counter
	webhookEvents    *prometheus.CounterVec
}

// NewStorefrontMetrics registers the storefront metrics on the provided registerer.
func NewStorefrontMetrics(reg prometheus.Registerer) *StorefrontMetrics {
	if reg == nil {
		return &StorefrontMetrics{}
	}
	checkoutDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "checkout_duration_seconds",
		Help:    "Duration of order placement attempts in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"outcome"})
	ordersPlaced := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "orders_placed_total",
		Help: "Orders created successfully.",
	})
	ordersFailed := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "orders_failed_total",
		Help: "Order placement attempts that failed, by error code.",
	}, []string{"code"})
	intentsCreated := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "payment_intents_created_total",
		Help: "Payment intents created with the provider.",
	})
	webhookEvents := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "webhook_events_total",
		Help: "Webhook deliveries received, by result.",
	}, []string{"result"})
	reg.MustRegister(checkoutDuration, ordersPlaced, ordersFailed, intentsCreated, webhookEvents)
	return &StorefrontMetrics{
		checkoutDuration: checkoutDuration,
		ordersPlaced:     ordersPlaced,
		ordersFailed:     ordersFailed,
		intentsCreated:   intentsCreated,
		webhookEvents:    webhookEvents,
	}
}

// ObserveCheckout records a placement attempt duration with its outcome label.
func (m *StorefrontMetrics) ObserveCheckout(outcome string, duration time.Duration) {
	if m == nil || m.checkoutDuration == nil {
		return
	}
	m.checkoutDuration.WithLabelValues(normalizeLabel(outcome)).Observe(duration.Seconds())
}

// IncOrderPlaced increments the successful order counter.
func (m *StorefrontMetrics) IncOrderPlaced() {
	if m == nil || m.ordersPlaced == nil {
		return
	}
	m.ordersPlaced.Inc()
}

// IncOrderFailed increments the failed placement counter for an error code.
func (m *StorefrontMetrics) IncOrderFailed(code string) {
	if m == nil || m.ordersFailed == nil {
		return
	}
	m.ordersFailed.WithLabelValues(normalizeLabel(code)).Inc()
}

// IncIntentCreated increments the payment intent counter.
func (m *StorefrontMetrics) IncIntentCreated() {
	if m == nil || m.intentsCreated == nil {
		return
	}
	m.intentsCreated.Inc()
}

// IncWebhookEvent increments the webhook counter for a delivery result
// (processed, duplicate, ignored, failed).
func (m *StorefrontMetrics) IncWebhookEvent(result string) {
	if m == nil || m.webhookEvents == nil {
		return
	}
	m.webhookEvents.WithLabelValues(normalizeLabel(result)).Inc()
}

func normalizeLabel(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}
