package telemetry

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nephio-oran-claude-agents/internal/domain"
)

// Metrics exports the external metrics surface named verbatim in spec §6
// through a private Prometheus registry, following the teacher pack's
// registry-per-exporter pattern (99souls-ariadne's PrometheusExporter).
type Metrics struct {
	registry *prometheus.Registry

	HandoverDecisions  *prometheus.CounterVec
	PingPongSuppressions *prometheus.CounterVec
	RLFEventsTotal     prometheus.Counter
	QoSFeedbackEvents  *prometheus.CounterVec
	PredictorFallback  prometheus.Counter

	AdaptiveRequiredConfidence *prometheus.GaugeVec
	PredictionConfidenceAvg    *prometheus.GaugeVec
	DataDriftScore             prometheus.Gauge
	CPUUsagePercent            prometheus.Gauge
	MemoryUsageBytes           prometheus.Gauge
	ErrorRate                  prometheus.Gauge

	PredictionLatencySeconds  prometheus.Histogram
	HandoverIntervalSeconds   prometheus.Histogram
	TrainingDurationSeconds   prometheus.Histogram
}

// NewMetrics constructs and registers every series named in spec §6 under
// namespace (typically "handoversim").
func NewMetrics(namespace string) *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		HandoverDecisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "handover_decisions", Help: "Handover decisions by outcome.",
		}, []string{"outcome"}),
		PingPongSuppressions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "pingpong_suppressions", Help: "Ping-pong vetoes by reason.",
		}, []string{"reason"}),
		RLFEventsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "rlf_events_total", Help: "Total declared radio link failures.",
		}),
		QoSFeedbackEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "qos_feedback_events", Help: "QoS feedback samples by service type and outcome.",
		}, []string{"service_type", "outcome"}),
		PredictorFallback: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "predictor_fallback_total", Help: "Predictor failures that fell back to A3.",
		}),
		AdaptiveRequiredConfidence: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace, Name: "adaptive_required_confidence", Help: "Current adaptive required confidence per service type.",
		}, []string{"service_type"}),
		PredictionConfidenceAvg: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace, Name: "prediction_confidence_avg", Help: "Rolling average prediction confidence per antenna.",
		}, []string{"antenna_id"}),
		DataDriftScore: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "data_drift_score", Help: "Feature-distribution drift score for the predictor.",
		}),
		CPUUsagePercent: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "cpu_usage_percent", Help: "Process CPU utilization.",
		}),
		MemoryUsageBytes: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "memory_usage_bytes", Help: "Process resident memory.",
		}),
		ErrorRate: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "error_rate", Help: "Rolling request error rate.",
		}),
		PredictionLatencySeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace, Name: "prediction_latency_seconds", Help: "Predictor round-trip latency.",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		}),
		HandoverIntervalSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace, Name: "handover_interval_seconds", Help: "Time between consecutive applied handovers for a UE.",
			Buckets: []float64{1, 2, 5, 10, 30, 60, 120, 300},
		}),
		TrainingDurationSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace, Name: "training_duration_seconds", Help: "Downstream model (re)training duration.",
			Buckets: prometheus.DefBuckets,
		}),
	}

	registry.MustRegister(
		m.HandoverDecisions, m.PingPongSuppressions, m.RLFEventsTotal, m.QoSFeedbackEvents,
		m.PredictorFallback, m.AdaptiveRequiredConfidence, m.PredictionConfidenceAvg,
		m.DataDriftScore, m.CPUUsagePercent, m.MemoryUsageBytes, m.ErrorRate,
		m.PredictionLatencySeconds, m.HandoverIntervalSeconds, m.TrainingDurationSeconds,
	)

	return m
}

// Handler returns the HTTP handler serving this Metrics' Prometheus
// registry in text exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RecordSuppression implements engine.SuppressionNotifier, incrementing the
// ping-pong suppression counter for reason.
func (m *Metrics) RecordSuppression(reason domain.SuppressionReason) {
	m.PingPongSuppressions.WithLabelValues(string(reason)).Inc()
}
