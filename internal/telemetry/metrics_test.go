package telemetry

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestNewMetrics(t *testing.T) {
	m := NewMetrics()

	if m.CompositionTotal == nil {
		t.Error("CompositionTotal should not be nil")
	}
	if m.RequestDurationMs == nil {
		t.Error("RequestDurationMs should not be nil")
	}
	if m.SafetyActionTotal == nil {
		t.Error("SafetyActionTotal should not be nil")
	}
	if m.QuotaDeniedTotal == nil {
		t.Error("QuotaDeniedTotal should not be nil")
	}
	if m.AlertsRaisedTotal == nil {
		t.Error("AlertsRaisedTotal should not be nil")
	}
	if m.MessageWordCount == nil {
		t.Error("MessageWordCount should not be nil")
	}
}

func TestRecordComposition(t *testing.T) {
	// Use a fresh registry to avoid polluting the default one
	reg := prometheus.NewRegistry()

	compositionTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "test_scribe_composition_total",
		Help: "Test counter",
	}, []string{"org", "format", "language", "tone", "outcome"})

	wordCount := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "test_scribe_message_word_count",
		Help:    "Test histogram",
		Buckets: []float64{40, 80, 130},
	}, []string{"format"})

	reg.MustRegister(compositionTotal, wordCount)

	m := &Metrics{
		CompositionTotal: compositionTotal,
		MessageWordCount: wordCount,
	}

	m.RecordComposition(CompositionLabels{
		Org:       "school-1",
		Format:    "email",
		Language:  "en",
		Tone:      "warm",
		Outcome:   "composed",
		WordCount: 105,
	})

	counter, err := compositionTotal.GetMetricWithLabelValues("school-1", "email", "en", "warm", "composed")
	if err != nil {
		t.Fatalf("failed to get metric: %v", err)
	}
	var metric dto.Metric
	counter.Write(&metric)
	if *metric.Counter.Value != 1 {
		t.Errorf("expected composition count 1, got %v", *metric.Counter.Value)
	}
}

func TestRecordSafetyAction(t *testing.T) {
	safetyTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "test_safety_action",
		Help: "Test",
	}, []string{"action"})

	m := &Metrics{SafetyActionTotal: safetyTotal}
	m.RecordSafetyAction("neutralized")

	counter, _ := safetyTotal.GetMetricWithLabelValues("neutralized")
	var metric dto.Metric
	counter.Write(&metric)
	if *metric.Counter.Value != 1 {
		t.Errorf("expected safety action count 1, got %v", *metric.Counter.Value)
	}
}

func TestRecordQuotaDenied(t *testing.T) {
	quotaTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "test_quota_denied",
		Help: "Test",
	}, []string{"org", "flow"})

	m := &Metrics{QuotaDeniedTotal: quotaTotal}
	m.RecordQuotaDenied("school-1", "compose")

	counter, _ := quotaTotal.GetMetricWithLabelValues("school-1", "compose")
	var metric dto.Metric
	counter.Write(&metric)
	if *metric.Counter.Value != 1 {
		t.Errorf("expected quota denied count 1, got %v", *metric.Counter.Value)
	}
}
