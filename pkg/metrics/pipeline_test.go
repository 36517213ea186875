package metrics

import (
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestPipelineMetricsExportsCountersAndHistogram(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewPipelineMetrics(reg)
	metrics.IncUpload("accepted")
	metrics.IncValidationFailure("Signature mismatch")
	metrics.IncDedupHit()
	metrics.ObserveJobDuration("thumbnail", 250*time.Millisecond)
	metrics.IncJobSuccess("thumbnail")
	metrics.IncJobFailure("caption")

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}

	if got, err := fetchCounterValue(mfs, "uploads_total", "status", "accepted"); err != nil {
		t.Fatalf("fetch uploads: %v", err)
	} else if got != 1 {
		t.Fatalf("expected uploads=1, got %f", got)
	}

	if got, err := fetchCounterValue(mfs, "validation_failures_total", "reason", "Signature mismatch"); err != nil {
		t.Fatalf("fetch validation failures: %v", err)
	} else if got != 1 {
		t.Fatalf("expected validation failures=1, got %f", got)
	}

	if got, err := fetchCounterValue(mfs, "job_success", "job", "thumbnail"); err != nil {
		t.Fatalf("fetch success: %v", err)
	} else if got != 1 {
		t.Fatalf("expected success=1, got %f", got)
	}

	if got, err := fetchCounterValue(mfs, "job_failure", "job", "caption"); err != nil {
		t.Fatalf("fetch failure: %v", err)
	} else if got != 1 {
		t.Fatalf("expected failure=1, got %f", got)
	}

	if got, err := fetchHistogramSum(mfs, "job_duration_seconds", "job", "thumbnail"); err != nil {
		t.Fatalf("fetch duration: %v", err)
	} else if got <= 0 {
		t.Fatalf("expected duration sum > 0, got %f", got)
	}
}

func TestPipelineMetricsNilReceiverIsSafe(t *testing.T) {
	var metrics *PipelineMetrics
	metrics.IncUpload("accepted")
	metrics.IncValidationFailure("x")
	metrics.IncDedupHit()
	metrics.ObserveJobDuration("thumbnail", time.Second)
	metrics.IncJobSuccess("thumbnail")
	metrics.IncJobFailure("thumbnail")
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
