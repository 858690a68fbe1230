package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for credential issuance and lifecycle.
type Metrics struct {
	// Issued credentials by type
	Issued *prometheus.CounterVec

	Revoked prometheus.Counter

	// Lazy Active to Expired promotions
	Expired prometheus.Counter

	// Anchoring attempts by event ("issue", "revoke") and outcome ("anchored", "failed")
	Anchors *prometheus.CounterVec

	Shares prometheus.Counter
}

func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Issued: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "attestor_credentials_issued_total",
			Help: "Credentials issued by type",
		}, []string{"type"}),
		Revoked: factory.NewCounter(prometheus.CounterOpts{
			Name: "attestor_credentials_revoked_total",
			Help: "Credentials revoked",
		}),
		Expired: factory.NewCounter(prometheus.CounterOpts{
			Name: "attestor_credentials_expired_total",
			Help: "Credentials promoted to expired on read",
		}),
		Anchors: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "attestor_credential_anchors_total",
			Help: "Ledger anchoring attempts by event and outcome",
		}, []string{"event", "outcome"}),
		Shares: factory.NewCounter(prometheus.CounterOpts{
			Name: "attestor_credential_shares_total",
			Help: "Share links created",
		}),
	}
}

func (m *Metrics) IncIssued(credType string) {
	if m != nil {
		m.Issued.WithLabelValues(credType).Inc()
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

func (m *Metrics) IncAnchor(event, outcome string) {
	if m != nil {
		m.Anchors.WithLabelValues(event, outcome).Inc()
	}
}

func (m *Metrics) IncShares() {
	if m != nil {
		m.Shares.Inc()
	}
}
