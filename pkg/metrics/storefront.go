package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Storefront records HTTP traffic and cart/checkout activity.
type Storefront struct {
	requests        *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	cartMutations   *prometheus.CounterVec
	checkoutSteps   *prometheus.CounterVec
	submissions     *prometheus.CounterVec
	submitDuration  prometheus.Histogram
}

// NewStorefront registers the collectors on reg. A nil registerer yields a
// no-op recorder.
func NewStorefront(reg prometheus.Registerer) *Storefront {
	if reg == nil {
		return &Storefront{}
	}
	m := &Storefront{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "storefront_http_requests_total",
			Help: "HTTP requests served, by route and status.",
		}, []string{"method", "route", "status"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "storefront_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		cartMutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "storefront_cart_mutations_total",
			Help: "Cart and selection mutations.",
		}, []string{"op"}),
		checkoutSteps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "storefront_checkout_transitions_total",
			Help: "Checkout wizard transitions.",
		}, []string{"transition"}),
		submissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "storefront_order_submissions_total",
			Help: "Order submissions by outcome.",
		}, []string{"outcome"}),
		submitDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "storefront_order_submission_duration_seconds",
			Help:    "Latency of order submissions to the commerce API.",
			Buckets: prometheus.DefBuckets,
		}),
	}
	reg.MustRegister(m.requests, m.requestDuration, m.cartMutations, m.checkoutSteps, m.submissions, m.submitDuration)
	return m
}

// ObserveRequest records one served request.
func (m *Storefront) ObserveRequest(method, route string, status int, elapsed time.Duration) {
	if m == nil || m.requests == nil {
		return
	}
	route = normalizeLabel(route)
	m.requests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.requestDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

func (m *Storefront) IncCartMutation(op string) {
	if m == nil || m.cartMutations == nil {
		return
	}
	m.cartMutations.WithLabelValues(normalizeLabel(op)).Inc()
}

func (m *Storefront) IncCheckoutTransition(transition string) {
	if m == nil || m.checkoutSteps == nil {
		return
	}
	m.checkoutSteps.WithLabelValues(normalizeLabel(transition)).Inc()
}

// ObserveSubmission records the outcome ("success", "failure", "rejected") and latency.
func (m *Storefront) ObserveSubmission(outcome string, elapsed time.Duration) {
	if m == nil || m.submissions == nil {
		return
	}
	m.submissions.WithLabelValues(normalizeLabel(outcome)).Inc()
	m.submitDuration.Observe(elapsed.Seconds())
}

func normalizeLabel(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}
