package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// CoreMetrics records counters for the money core: ledger writes, webhook
// deliveries, and payout outcomes.
type CoreMetrics struct {
	ledgerEntries   *prometheus.CounterVec
	webhookEvents   *prometheus.CounterVec
	payoutOutcomes  *prometheus.CounterVec
	webhookDuration *prometheus.HistogramVec
}

// NewCoreMetrics registers the core metrics on the provided registerer.
func NewCoreMetrics(reg prometheus.Registerer) *CoreMetrics {
	if reg == nil {
		return &CoreMetrics{}
	}
	ledgerEntries := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ledger_entries_total",
		Help: "Ledger entries appended, by source and type.",
	}, []string{"source", "type"})
	webhookEvents := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "webhook_events_total",
		Help: "Payment webhook deliveries, by outcome.",
	}, []string{"outcome"})
	payoutOutcomes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "payout_outcomes_total",
		Help: "Payout terminal outcomes, by status.",
	}, []string{"status"})
	webhookDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "webhook_handle_duration_seconds",
		Help:    "Duration of payment webhook handling in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"outcome"})
	reg.MustRegister(ledgerEntries, webhookEvents, payoutOutcomes, webhookDuration)
	return &CoreMetrics{
		ledgerEntries:   ledgerEntries,
		webhookEvents:   webhookEvents,
		payoutOutcomes:  payoutOutcomes,
		webhookDuration: webhookDuration,
	}
}

// IncLedgerEntry counts an appended ledger entry.
func (m *CoreMetrics) IncLedgerEntry(source, entryType string) {
	if m == nil || m.ledgerEntries == nil {
		return
	}
	m.ledgerEntries.WithLabelValues(normalizeLabel(source), normalizeLabel(entryType)).Inc()
}

// IncWebhookEvent counts a webhook delivery by outcome.
func (m *CoreMetrics) IncWebhookEvent(outcome string) {
	if m == nil || m.webhookEvents == nil {
		return
	}
	m.webhookEvents.WithLabelValues(normalizeLabel(outcome)).Inc()
}

// ObserveWebhookDuration records handling latency for a webhook delivery.
func (m *CoreMetrics) ObserveWebhookDuration(outcome string, duration time.Duration) {
	if m == nil || m.webhookDuration == nil {
		return
	}
	m.webhookDuration.WithLabelValues(normalizeLabel(outcome)).Observe(duration.Seconds())
}

// IncPayoutOutcome counts a payout reaching a terminal status.
func (m *CoreMetrics) IncPayoutOutcome(status string) {
	if m == nil || m.payoutOutcomes == nil {
		return
	}
	m.payoutOutcomes.WithLabelValues(normalizeLabel(status)).Inc()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
