// Package metrics provides Prometheus metrics for observability.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "community_intake"

// Metrics holds all Prometheus metrics for the service.
type Metrics struct {
	// Pipeline metrics
	PipelineRuns         *prometheus.CounterVec
	PipelineFallbacks    *prometheus.CounterVec
	SegmentsProcessed    prometheus.Counter
	SegmentFailures      *prometheus.CounterVec
	RecognitionLatency   *prometheus.HistogramVec
	TranscriptPartiality prometheus.Counter

	// Intake metrics
	ReportsSubmitted prometheus.Counter
	ReportsRejected  prometheus.Counter
	NotifyTotal      *prometheus.CounterVec
	NotifyLatency    prometheus.Histogram

	// Forum metrics
	PostsCreated        prometheus.Counter
	DuplicateRejections prometheus.Counter
	RepliesCreated      prometheus.Counter
	RepliesUnauthorized prometheus.Counter

	// Audio metrics
	AudioBytesReceived prometheus.Counter
}

// DefaultMetrics is the global metrics instance.
var DefaultMetrics = NewMetrics()

// NewMetrics creates and registers all Prometheus metrics.
func NewMetrics() *Metrics {
	return &Metrics{
		PipelineRuns: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pipeline_runs_total",
			Help:      "Total transcription pipeline invocations",
		}, []string{"outcome"}),
		PipelineFallbacks: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pipeline_fallbacks_total",
			Help:      "Whole-buffer fallback attempts after partial segment failure",
		}, []string{"outcome"}),
		SegmentsProcessed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "segments_processed_total",
			Help:      "Total audio segments sent to a recognition backend",
		}),
		SegmentFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "segment_failures_total",
			Help:      "Total segment recognition failures",
		}, []string{"kind"}),
		RecognitionLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "recognition_latency_seconds",
			Help:      "Per-segment recognition backend latency in seconds",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		}, []string{"provider"}),
		TranscriptPartiality: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transcripts_partial_total",
			Help:      "Transcripts returned with one or more failed segments",
		}),

		ReportsSubmitted: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reports_submitted_total",
			Help:      "Incident reports accepted and persisted",
		}),
		ReportsRejected: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reports_rejected_total",
			Help:      "Incident report submissions rejected by validation",
		}),
		NotifyTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notify_total",
			Help:      "Outbound report notifications by outcome",
		}, []string{"outcome"}),
		NotifyLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "notify_latency_seconds",
			Help:      "Notifier delivery latency in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		}),

		PostsCreated: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "forum_posts_created_total",
			Help:      "Forum posts accepted and persisted",
		}),
		DuplicateRejections: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "forum_duplicate_rejections_total",
			Help:      "Forum posts rejected by the duplicate guard",
		}),
		RepliesCreated: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "forum_replies_created_total",
			Help:      "Officer replies accepted and persisted",
		}),
		RepliesUnauthorized: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "forum_replies_unauthorized_total",
			Help:      "Reply attempts rejected because the actor is not a verified officer",
		}),

		AudioBytesReceived: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "audio_bytes_received_total",
			Help:      "Total audio bytes accepted for transcription",
		}),
	}
}

// RecordPipelineRun records a pipeline invocation outcome.
func (m *Metrics) RecordPipelineRun(outcome string) {
	m.PipelineRuns.WithLabelValues(outcome).Inc()
}

// RecordFallback records a whole-buffer fallback attempt outcome.
func (m *Metrics) RecordFallback(outcome string) {
	m.PipelineFallbacks.WithLabelValues(outcome).Inc()
}

// RecordSegment records one segment recognition attempt. failureKind is
// empty on success.
func (m *Metrics) RecordSegment(provider, failureKind string, latencySeconds float64) {
	m.SegmentsProcessed.Inc()
	m.RecognitionLatency.WithLabelValues(provider).Observe(latencySeconds)
	if failureKind != "" {
		m.SegmentFailures.WithLabelValues(failureKind).Inc()
	}
}

// RecordNotify records a notifier delivery attempt.
func (m *Metrics) RecordNotify(err error, latencySeconds float64) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.NotifyTotal.WithLabelValues(outcome).Inc()
	m.NotifyLatency.Observe(latencySeconds)
}
