package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the permission manager.
type Metrics struct {
	// Permissions granted by type
	Granted *prometheus.CounterVec

	Revoked prometheus.Counter
	Expired prometheus.Counter

	// Access attempts by outcome: "granted", "denied"
	Accesses *prometheus.CounterVec

	// Audit writes that failed after the primary effect was stored
	AuditFailures prometheus.Counter
}

func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Granted: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "attestor_permissions_granted_total",
			Help: "Permissions granted by type",
		}, []string{"type"}),
		Revoked: factory.NewCounter(prometheus.CounterOpts{
			Name: "attestor_permissions_revoked_total",
			Help: "Permissions revoked by their owner",
		}),
		Expired: factory.NewCounter(prometheus.CounterOpts{
			Name: "attestor_permissions_expired_total",
			Help: "Permissions promoted to expired on read",
		}),
		Accesses: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "attestor_permission_accesses_total",
			Help: "Credential accesses through a permission by outcome",
		}, []string{"outcome"}),
		AuditFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "attestor_permission_audit_failures_total",
			Help: "Audit entries that could not be written",
		}),
	}
}

func (m *Metrics) IncGranted(permType string) {
	if m != nil {
		m.Granted.WithLabelValues(permType).Inc()
	}
}

func (m *Metrics) IncRevoked() {
	if m != nil {
		m.Revoked.Inc()
	}
}

func (m *Metrics) IncExpired() {
	if m != nil {
		m.Expired.Inc()
	}
}

func (m *Metrics) IncAccess(outcome string) {
	if m != nil {
		m.Accesses.WithLabelValues(outcome).Inc()
	}
}

func (m *Metrics) IncAuditFailure() {
	if m != nil {
		m.AuditFailures.Inc()
	}
}
