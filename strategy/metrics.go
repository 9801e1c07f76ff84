package strategy

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics contains the prometheus metrics for admission strategies.
type Metrics struct {
	Decisions          *prometheus.CounterVec
	CorrelationSignals *prometheus.CounterVec
	EmptyShare         *prometheus.GaugeVec
	QuotaFill          *prometheus.GaugeVec
}

// NewMetrics creates and registers all strategy metrics.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Decisions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "doorman_decisions_total",
				Help: "Admission decisions by strategy, outcome and reason",
			},
			[]string{"strategy", "decision", "reason"},
		),
		CorrelationSignals: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "doorman_correlation_signals_total",
				Help: "Candidates observed holding positively correlated quota attributes",
			},
			[]string{"strategy"},
		),
		EmptyShare: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "doorman_empty_admitted_share",
				Help: "Share of admitted candidates carrying no quota attribute",
			},
			[]string{"strategy"},
		),
		QuotaFill: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "doorman_quota_fill",
				Help: "Admitted count per quota attribute",
			},
			[]string{"strategy", "attribute"},
		),
	}

	reg.MustRegister(m.Decisions)
	reg.MustRegister(m.CorrelationSignals)
	reg.MustRegister(m.EmptyShare)
	reg.MustRegister(m.QuotaFill)

	return m
}

// TrackDecision records one admission decision.
func (m *Metrics) TrackDecision(strategy string, admit bool, reason string) {
	decision := "reject"
	if admit {
		decision = "admit"
	}
	m.Decisions.WithLabelValues(strategy, decision, reason).Inc()
}
