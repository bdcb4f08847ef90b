package metrics

import (
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestCoreMetricsExportsCountersAndHistogram(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewCoreMetrics(reg)

	metrics.IncLedgerEntry("order_payment", "credit")
	metrics.IncWebhookEvent("processed")
	metrics.IncPayoutOutcome("completed")
	metrics.ObserveWebhookDuration("processed", 120*time.Millisecond)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}

	if got, err := fetchCounterValue(mfs, "ledger_entries_total", "source", "order_payment"); err != nil {
		t.Fatalf("fetch ledger counter: %v", err)
	} else if got != 1 {
		t.Fatalf("expected ledger_entries_total=1, got %f", got)
	}

	if got, err := fetchCounterValue(mfs, "webhook_events_total", "outcome", "processed"); err != nil {
		t.Fatalf("fetch webhook counter: %v", err)
	} else if got != 1 {
		t.Fatalf("expected webhook_events_total=1, got %f", got)
	}

	if got, err := fetchCounterValue(mfs, "payout_outcomes_total", "status", "completed"); err != nil {
		t.Fatalf("fetch payout counter: %v", err)
	} else if got != 1 {
		t.Fatalf("expected payout_outcomes_total=1, got %f", got)
	}

	if got, err := fetchHistogramSum(mfs, "webhook_handle_duration_seconds", "outcome", "processed"); err != nil {
		t.Fatalf("fetch duration: %v", err)
	} else if got <= 0 {
		t.Fatalf("expected duration sum > 0, got %f", got)
	}
}

func TestCoreMetricsNilReceiverIsSafe(t *testing.T) {
	var metrics *CoreMetrics
	metrics.IncLedgerEntry("order_payment", "credit")
	metrics.IncWebhookEvent("duplicate")
	metrics.IncPayoutOutcome("failed")
	metrics.ObserveWebhookDuration("duplicate", time.Millisecond)
}

func fetchCounterValue(mfs []*dto.MetricFamily, name, label, value string) (float64, error) {
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		return 0, fmt.Errorf("metric %q not found", name)
	}
	for _, metric := range mf.GetMetric() {
		if matchesLabel(metric.GetLabel(), label, value) {
			return metric.GetCounter().GetValue(), nil
		}
	}
	return 0, fmt.Errorf("metric %q missing label %s=%s", name, label, value)
}

func fetchHistogramSum(mfs []*dto.MetricFamily, name, label, value string) (float64, error) {
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		return 0, fmt.Errorf("metric %q not found", name)
	}
	for _, metric := range mf.GetMetric() {
		if matchesLabel(metric.GetLabel(), label, value) {
			return metric.GetHistogram().GetSampleSum(), nil
		}
	}
	return 0, fmt.Errorf("histogram %q missing label %s=%s", name, label, value)
}

func findMetricFamily(mfs []*dto.MetricFamily, name string) *dto.MetricFamily {
	for _, mf := range mfs {
		if mf.GetName() == name {
			return mf
		}
	}
	return nil
}

func matchesLabel(labels []*dto.LabelPair, name, value string) bool {
	for _, label := range labels {
		if label.GetName() == name && label.GetValue() == value {
			return true
		}
	}
	return false
}
