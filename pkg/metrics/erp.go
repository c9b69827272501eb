package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// ERPMetrics records latency and failures of remote ERP calls.
type ERPMetrics struct {
	duration *prometheus.HistogramVec
	errors   *prometheus.CounterVec
}

// NewERPMetrics registers the ERP call metrics on the provided registerer.
func NewERPMetrics(reg prometheus.Registerer) *ERPMetrics {
	if reg == nil {
		return &ERPMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "erp_rpc_duration_seconds",
		Help:    "Duration of ERP RPC calls in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"model", "operation"})
	errs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "erp_rpc_errors_total",
		Help: "ERP RPC calls that returned a transport or remote error.",
	}, []string{"model", "operation"})
	reg.MustRegister(duration, errs)
	return &ERPMetrics{duration: duration, errors: errs}
}

// ObserveCall satisfies erp.CallObserver.
func (m *ERPMetrics) ObserveCall(model, operation string, duration time.Duration, err error) {
	if m == nil || m.duration == nil {
		return
	}
	model, operation = normalizeLabel(model), normalizeLabel(operation)
	m.duration.WithLabelValues(model, operation).Observe(duration.Seconds())
	if err != nil {
		m.errors.WithLabelValues(model, operation).Inc()
	}
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
