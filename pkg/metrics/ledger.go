package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// LedgerMetrics records observability events for the balance ledger and the
// payout scheduler. Integrity discrepancies are the alerting signal for the
// fast-path/slow-path balance disagreement described in the ledger service.
type LedgerMetrics struct {
	integrityDiscrepancies *prometheus.CounterVec
	attributions           *prometheus.CounterVec
	payoutDecisions        *prometheus.CounterVec
	forfeitures            prometheus.Counter
}

// NewLedgerMetrics registers ledger metrics on the provided registerer.
func NewLedgerMetrics(reg prometheus.Registerer) *LedgerMetrics {
	if reg == nil {
		return &LedgerMetrics{}
	}
	integrity := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ledger_integrity_discrepancies_total",
		Help: "Balance index disagreements detected against direct summation.",
	}, []string{"source"})
	attributions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ledger_attributions_total",
		Help: "Transactions attributed to balance periods, by kind.",
	}, []string{"kind"})
	decisions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "payout_decisions_total",
		Help: "Payout scheduling decisions, by outcome.",
	}, []string{"outcome"})
	forfeitures := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "ledger_forfeitures_total",
		Help: "Executed balance forfeitures.",
	})
	reg.MustRegister(integrity, attributions, decisions, forfeitures)
	return &LedgerMetrics{
		integrityDiscrepancies: integrity,
		attributions:           attributions,
		payoutDecisions:        decisions,
		forfeitures:            forfeitures,
	}
}

// IncIntegrityDiscrepancy records a fast-path/slow-path disagreement.
func (m *LedgerMetrics) IncIntegrityDiscrepancy(source string) {
	if m == nil || m.integrityDiscrepancies == nil {
		return
	}
	m.integrityDiscrepancies.WithLabelValues(normalizeLabel(source)).Inc()
}

// IncAttribution records one transaction attribution.
func (m *LedgerMetrics) IncAttribution(kind string) {
	if m == nil || m.attributions == nil {
		return
	}
	m.attributions.WithLabelValues(normalizeLabel(kind)).Inc()
}

// IncPayoutDecision records one scheduling outcome (due, below_minimum, instant, deferred).
func (m *LedgerMetrics) IncPayoutDecision(outcome string) {
	if m == nil || m.payoutDecisions == nil {
		return
	}
	m.payoutDecisions.WithLabelValues(normalizeLabel(outcome)).Inc()
}

// IncForfeiture records one executed forfeiture.
func (m *LedgerMetrics) IncForfeiture() {
	if m == nil || m.forfeitures == nil {
		return
	}
	m.forfeitures.Inc()
}
