package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Request outcomes for RequestsTotal
const (
	OutcomeOK            = "ok"
	OutcomeBadRequest    = "bad_request"
	OutcomeTooLarge      = "too_large"
	OutcomeNotConfigured = "not_configured"
	OutcomeModelError    = "model_error"
	OutcomeInvalidJSON   = "invalid_json"
)

var (
	once sync.Once

	// RequestsTotal counts /analyze requests by outcome.
	RequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "nutrition",
		Subsystem: "analyzer",
		Name:      "requests_total",
		Help:      "Total number of /analyze requests, labeled by outcome.",
	}, []string{"outcome"})

	// ModelCallDurationSeconds is the latency of a single model attempt.
	ModelCallDurationSeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "nutrition",
		Subsystem: "analyzer",
		Name:      "model_call_duration_seconds",
		Help:      "Latency of one model API attempt, labeled by response mode and result.",
		Buckets:   []float64{0.25, 0.5, 1, 2, 5, 10, 20, 30, 60},
	}, []string{"mode", "result"})

	// JSONModeFallbacksTotal counts strict JSON attempts that failed and were
	// retried without the response format constraint.
	JSONModeFallbacksTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "nutrition",
		Subsystem: "analyzer",
		Name:      "json_mode_fallbacks_total",
		Help:      "Total number of model calls retried without JSON response format.",
	})
)

// Register registers all collectors on the default registry. Safe to call
// more than once.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(
			RequestsTotal,
			ModelCallDurationSeconds,
			JSONModeFallbacksTotal,
		)
	})
}

// ObserveModelCall records the latency of one model attempt
func ObserveModelCall(mode string, start time.Time, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	ModelCallDurationSeconds.WithLabelValues(mode, result).Observe(time.Since(start).Seconds())
}
