package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// CheckoutMetrics tracks checkout runs and the step each failed run stopped at.
type CheckoutMetrics struct {
	runs     *prometheus.CounterVec
	failures *prometheus.CounterVec
	warnings prometheus.Counter
	duration prometheus.Histogram
}

// NewCheckoutMetrics registers the checkout metrics on the provided registerer.
func NewCheckoutMetrics(reg prometheus.Registerer) *CheckoutMetrics {
	if reg == nil {
		return &CheckoutMetrics{}
	}
	runs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "checkout_runs_total",
		Help: "Checkout runs by final status.",
	}, []string{"status"})
	failures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "checkout_step_failures_total",
		Help: "Checkout runs that failed, by step.",
	}, []string{"step"})
	warnings := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "checkout_warnings_total",
		Help: "Best-effort checkout steps that did not succeed.",
	})
	duration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "checkout_run_duration_seconds",
		Help:    "Duration of checkout runs in seconds.",
		Buckets: []float64{.1, .25, .5, 1, 2.5, 5, 10, 30, 60},
	})
	reg.MustRegister(runs, failures, warnings, duration)
	return &CheckoutMetrics{runs: runs, failures: failures, warnings: warnings, duration: duration}
}

// ObserveRun records one finished run. failedStep is empty for successful runs.
func (m *CheckoutMetrics) ObserveRun(status, failedStep string, warnings int, duration time.Duration) {
	if m == nil || m.runs == nil {
		return
	}
	m.runs.WithLabelValues(normalizeLabel(status)).Inc()
	if failedStep != "" {
		m.failures.WithLabelValues(failedStep).Inc()
	}
	if warnings > 0 {
		m.warnings.Add(float64(warnings))
	}
	m.duration.Observe(duration.Seconds())
}
