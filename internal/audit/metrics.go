package audit

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the audit log.
type Metrics struct {
	// Entries appended, by action
	Appended *prometheus.CounterVec

	// Appends that failed to reach the store
	AppendFailures prometheus.Counter

	// Entries delivered to the stream
	Streamed prometheus.Counter

	// Failed stream publishes (batches are retried)
	StreamFailures prometheus.Counter
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Appended: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "attestor_audit_entries_total",
			Help: "Audit entries appended by action",
		}, []string{"action"}),
		AppendFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "attestor_audit_append_failures_total",
			Help: "Audit entries that could not be appended",
		}),
		Streamed: factory.NewCounter(prometheus.CounterOpts{
			Name: "attestor_audit_streamed_total",
			Help: "Audit entries published to the stream",
		}),
		StreamFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "attestor_audit_stream_failures_total",
			Help: "Failed audit stream publishes",
		}),
	}
}

func (m *Metrics) IncAppended(action ActionType) {
	if m != nil {
		m.Appended.WithLabelValues(string(action)).Inc()
	}
}

func (m *Metrics) IncAppendFailures() {
	if m != nil {
		m.AppendFailures.Inc()
	}
}

func (m *Metrics) AddStreamed(n int) {
	if m != nil && n > 0 {
		m.Streamed.Add(float64(n))
	}
}

func (m *Metrics) IncStreamFailures() {
	if m != nil {
		m.StreamFailures.Inc()
	}
}
