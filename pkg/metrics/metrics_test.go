package metrics

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestERPMetricsExportsErrorsAndHistogram(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewERPMetrics(reg)
	m.ObserveCall("pos.order", "create", 120*time.Millisecond, nil)
	m.ObserveCall("pos.order", "create", 80*time.Millisecond, errors.New("boom"))

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}

	if got, err := fetchCounterValue(mfs, "erp_rpc_errors_total", "model", "pos.order"); err != nil {
		t.Fatalf("fetch errors: %v", err)
	} else if got != 1 {
		t.Fatalf("expected errors=1, got %f", got)
	}

	if got, err := fetchHistogramSum(mfs, "erp_rpc_duration_seconds", "operation", "create"); err != nil {
		t.Fatalf("fetch duration: %v", err)
	} else if got <= 0 {
		t.Fatalf("expected duration sum > 0, got %f", got)
	}
}

func TestCheckoutMetricsCountsFailedStep(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewCheckoutMetrics(reg)
	m.ObserveRun("failed", "Paid", 0, time.Second)
	m.ObserveRun("reconciled", "", 2, time.Second)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	if got, err := fetchCounterValue(mfs, "checkout_step_failures_total", "step", "Paid"); err != nil {
		t.Fatalf("fetch failures: %v", err)
	} else if got != 1 {
		t.Fatalf("expected failures=1, got %f", got)
	}
	if got, err := fetchCounterValue(mfs, "checkout_runs_total", "status", "reconciled"); err != nil {
		t.Fatalf("fetch runs: %v", err)
	} else if got != 1 {
		t.Fatalf("expected runs=1, got %f", got)
	}
	mf := findMetricFamily(mfs, "checkout_warnings_total")
	if mf == nil || mf.GetMetric()[0].GetCounter().GetValue() != 2 {
		t.Fatalf("expected warnings=2")
	}
}

func TestNilRegistererIsNoop(t *testing.T) {
	NewERPMetrics(nil).ObserveCall("pos.order", "create", time.Second, nil)
	NewCheckoutMetrics(nil).ObserveRun("failed", "Paid", 1, time.Second)
	var m *ERPMetrics
	m.ObserveCall("", "", 0, nil)
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
