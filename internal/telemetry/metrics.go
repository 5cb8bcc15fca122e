package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the scribe service.
type Metrics struct {
	CompositionTotal  *prometheus.CounterVec
	RequestDurationMs *prometheus.HistogramVec
	SafetyActionTotal *prometheus.CounterVec
	QuotaDeniedTotal  *prometheus.CounterVec
	AlertsRaisedTotal *prometheus.CounterVec
	MessageWordCount  *prometheus.HistogramVec
}

// NewMetrics creates and registers all Prometheus metrics.
func NewMetrics() *Metrics {
	return &Metrics{
		CompositionTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "scribe_composition_total",
			Help: "Total composition attempts by outcome.",
		}, []string{"org", "format", "language", "tone", "outcome"}),

		RequestDurationMs: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "scribe_request_duration_ms",
			Help:    "End-to-end request duration in milliseconds.",
			Buckets: []float64{1, 2, 5, 10, 25, 50, 100, 250, 500, 1000},
		}, []string{"endpoint"}),

		SafetyActionTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "scribe_safety_action_total",
			Help: "Total safety scan outcomes.",
		}, []string{"action"}),

		QuotaDeniedTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "scribe_quota_denied_total",
			Help: "Total requests denied by the daily quota.",
		}, []string{"org", "flow"}),

		AlertsRaisedTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "scribe_alerts_raised_total",
			Help: "Total safety alerts raised.",
		}, []string{"org", "severity"}),

		MessageWordCount: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "scribe_message_word_count",
			Help:    "Word count of delivered messages.",
			Buckets: []float64{20, 40, 60, 80, 100, 120, 140},
		}, []string{"format"}),
	}
}

// RecordComposition records metrics for a completed composition attempt.
func (m *Metrics) RecordComposition(labels CompositionLabels) {
	m.CompositionTotal.WithLabelValues(
		labels.Org, labels.Format, labels.Language, labels.Tone, labels.Outcome,
	).Inc()

	if labels.WordCount > 0 {
		m.MessageWordCount.WithLabelValues(labels.Format).Observe(float64(labels.WordCount))
	}
}

// RecordDuration records an endpoint latency observation.
func (m *Metrics) RecordDuration(endpoint string, durationMs float64) {
	m.RequestDurationMs.WithLabelValues(endpoint).Observe(durationMs)
}

// RecordSafetyAction records a safety scan outcome: approved, flagged,
// neutralized, or blocked.
func (m *Metrics) RecordSafetyAction(action string) {
	m.SafetyActionTotal.WithLabelValues(action).Inc()
}

// RecordQuotaDenied records a quota denial for the given flow.
func (m *Metrics) RecordQuotaDenied(org, flow string) {
	m.QuotaDeniedTotal.WithLabelValues(org, flow).Inc()
}

// RecordAlert records a raised safety alert.
func (m *Metrics) RecordAlert(org, severity string) {
	m.AlertsRaisedTotal.WithLabelValues(org, severity).Inc()
}

// CompositionLabels holds the label values for recording a composition.
type CompositionLabels struct {
	Org       string
	Format    string
	Language  string
	Tone      string
	Outcome   string
	WordCount int
}
