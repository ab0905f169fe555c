package obs

import (
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	domainOnce sync.Once

	// IntentRequestsTotal counts payment intent creation attempts by outcome.
	IntentRequestsTotal *prometheus.CounterVec
	// ConfirmationsTotal counts payment confirmation outcomes by result and reason.
	ConfirmationsTotal *prometheus.CounterVec
	// CheckoutSessionsStarted counts decoded checkout sessions by source.
	CheckoutSessionsStarted *prometheus.CounterVec
	// OrderDecodeFailures counts order payload decode failures by reason tag.
	OrderDecodeFailures *prometheus.CounterVec
	// ConfirmLatency records provider confirmation latency in milliseconds.
	ConfirmLatency *prometheus.HistogramVec
)

// MustRegisterDomainMetrics initialises and registers domain-specific Prometheus collectors.
func MustRegisterDomainMetrics(namespace string, reg prometheus.Registerer) {
	domainOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		IntentRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payment_intent_requests_total",
			Help:      "Count of payment intent creation outcomes.",
		}, []string{"result"})
		ConfirmationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payment_confirmations_total",
			Help:      "Count of payment confirmation outcomes.",
		}, []string{"result", "reason"})
		CheckoutSessionsStarted = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "checkout_sessions_started_total",
			Help:      "Count of checkout sessions started, by order payload source.",
		}, []string{"source"})
		OrderDecodeFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "order_decode_failures_total",
			Help:      "Count of order payload decode failures by reason.",
		}, []string{"reason"})
		ConfirmLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "payment_confirm_duration_ms",
			Help:      "Latency of provider confirmation calls in milliseconds.",
			Buckets:   []float64{50, 100, 250, 500, 1000, 2500, 5000, 10000, 30000},
		}, []string{"result"})

		mustRegisterCollector(reg, IntentRequestsTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				IntentRequestsTotal = v
			}
		})
		mustRegisterCollector(reg, ConfirmationsTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				ConfirmationsTotal = v
			}
		})
		mustRegisterCollector(reg, CheckoutSessionsStarted, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				CheckoutSessionsStarted = v
			}
		})
		mustRegisterCollector(reg, OrderDecodeFailures, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				OrderDecodeFailures = v
			}
		})
		mustRegisterCollector(reg, ConfirmLatency, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.HistogramVec); ok {
				ConfirmLatency = v
			}
		})
	})
}

func mustRegisterCollector(reg prometheus.Registerer, collector prometheus.Collector, reuse func(prometheus.Collector)) {
	if err := reg.Register(collector); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if reuse != nil {
				reuse(are.ExistingCollector)
			}
			return
		}
		panic(fmt.Errorf("register domain metric: %w", err))
	}
}
