package telemetry

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Invocation metrics. Labels stay low-cardinality: operation keys are a
// small static set and outcome is one of four kinds.
var (
	invocationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "callbridge_invocations_total",
		Help: "Completed invocations by operation and outcome kind.",
	}, []string{"operation", "outcome"})

	invocationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "callbridge_invocation_duration_seconds",
		Help:    "Wall time of invocations, including retries.",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})

	retriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "callbridge_retries_total",
		Help: "Retry attempts by operation.",
	}, []string{"operation"})

	bindingErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "callbridge_binding_errors_total",
		Help: "Invocations rejected before dispatch.",
	}, []string{"operation"})
)

// ObserveInvocation records one terminal invocation result.
func ObserveInvocation(operation, outcome string, d time.Duration) {
	invocationsTotal.WithLabelValues(operation, outcome).Inc()
	invocationDuration.WithLabelValues(operation).Observe(d.Seconds())
}

// ObserveRetry records one retry attempt.
func ObserveRetry(operation string) {
	retriesTotal.WithLabelValues(operation).Inc()
}

// ObserveBindingError records a resolve rejection.
func ObserveBindingError(operation string) {
	bindingErrorsTotal.WithLabelValues(operation).Inc()
}

// Handler exposes the metrics endpoint for the gateway.
func Handler() http.Handler { return promhttp.Handler() }
