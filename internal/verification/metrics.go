package verification

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the verification pipeline.
type Metrics struct {
	// Results by kind ("credential", "did") and status
	Results *prometheus.CounterVec

	// Failures by kind and the step that failed
	Failures *prometheus.CounterVec

	Duration *prometheus.HistogramVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Results: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "attestor_verifications_total",
			Help: "Verification results by kind and status",
		}, []string{"kind", "status"}),
		Failures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "attestor_verification_failures_total",
			Help: "Failed verifications by kind and failing step",
		}, []string{"kind", "step"}),
		Duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "attestor_verification_duration_seconds",
			Help:    "End-to-end verification latency",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}, []string{"kind"}),
	}
}

func (m *Metrics) observe(kind string, status Status, step string, d time.Duration) {
	if m == nil {
		return
	}
	m.Results.WithLabelValues(kind, string(status)).Inc()
	if status == StatusFailed && step != "" {
		m.Failures.WithLabelValues(kind, step).Inc()
	}
	m.Duration.WithLabelValues(kind).Observe(d.Seconds())
}
