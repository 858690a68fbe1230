package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the DID registry and resolvers.
type Metrics struct {
	// Registrations by DID method
	Registrations *prometheus.CounterVec

	// Recovery attempts by outcome: "recovered", "rejected"
	Recoveries *prometheus.CounterVec

	// Resolutions by source: "cache", "redis", "resolver", and outcome
	Resolutions *prometheus.CounterVec

	ResolveLatency prometheus.Histogram
}

func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Registrations: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "attestor_did_registrations_total",
			Help: "DIDs registered by method",
		}, []string{"method"}),
		Recoveries: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "attestor_did_recoveries_total",
			Help: "DID recovery attempts by outcome",
		}, []string{"outcome"}),
		Resolutions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "attestor_did_resolutions_total",
			Help: "DID resolutions by source and outcome",
		}, []string{"source", "outcome"}),
		ResolveLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "attestor_did_resolve_duration_seconds",
			Help:    "Latency of DID resolution including cache lookups",
			Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2},
		}),
	}
}

func (m *Metrics) IncRegistration(method string) {
	if m != nil {
		m.Registrations.WithLabelValues(method).Inc()
	}
}

func (m *Metrics) IncRecovery(outcome string) {
	if m != nil {
		m.Recoveries.WithLabelValues(outcome).Inc()
	}
}

func (m *Metrics) IncResolution(source, outcome string) {
	if m != nil {
		m.Resolutions.WithLabelValues(source, outcome).Inc()
	}
}

func (m *Metrics) ObserveResolve(d time.Duration) {
	if m != nil {
		m.ResolveLatency.Observe(d.Seconds())
	}
}
