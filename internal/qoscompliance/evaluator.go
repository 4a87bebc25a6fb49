// Package qoscompliance implements the QoS compliance evaluator (spec C8):
// it compares an observed QoS snapshot against a UE's declared
// requirements and emits a structured verdict the engine and the
// predictor-feedback path can both consume.
package qoscompliance

import "github.com/nephio-oran-claude-agents/internal/domain"

// MetricVerdict is the pass/fail outcome for one QoS metric.
type MetricVerdict struct {
	Metric   string  `json:"metric"`
	Passed   bool    `json:"passed"`
	Required float64 `json:"required"`
	Observed float64 `json:"observed"`
	Delta    float64 `json:"delta"`
}

// Verdict is the full structured compliance result for one evaluation.
type Verdict struct {
	OverallPassed          bool            `json:"overall_passed"`
	ConfidenceOK           bool            `json:"confidence_ok"`
	RequiredConfidence     float64         `json:"required_confidence"`
	BaseRequiredConfidence float64         `json:"base_required_confidence"`
	ObservedConfidence     float64         `json:"observed_confidence"`
	Metrics                []MetricVerdict `json:"metrics"`
	Violations             []MetricVerdict `json:"violations"`
}

// baseConfidenceThreshold maps a declared priority in [1,10] to [0.5,0.95].
func baseConfidenceThreshold(priority int) float64 {
	if priority < 1 {
		priority = 1
	}
	if priority > 10 {
		priority = 10
	}
	return 0.5 + float64(priority-1)*(0.45/9.0)
}

// Evaluate compares observed against the declared requirement qos,
// returning a structured Verdict. When adaptiveRequiredConfidence is
// non-nil it overrides the priority-derived base threshold (spec C7
// feeds this in). A requirement of 0 is treated as "not specified" and
// always passes, matching the upstream evaluator's convention; the one
// exception is jitter, whose 0 requirement defaults to 10% of the latency
// requirement.
func Evaluate(qos *domain.DeclaredQoS, observed domain.ObservedQoS, confidence float64, adaptiveRequiredConfidence *float64) Verdict {
	priority := 5
	var latencyReqMs, throughputReqMbps, jitterReqMs, reliabilityPct float64
	if qos != nil {
		priority = qos.ServicePriority
		latencyReqMs = qos.LatencyRequirementMs
		throughputReqMbps = qos.ThroughputRequirementMbps
		reliabilityPct = qos.ReliabilityPct
		jitterReqMs = qos.JitterMs
		if jitterReqMs == 0 {
			jitterReqMs = latencyReqMs * 0.1
		}
	}

	baseRequired := baseConfidenceThreshold(priority)
	required := baseRequired
	if adaptiveRequiredConfidence != nil {
		required = *adaptiveRequiredConfidence
	}

	latencyOK := true
	if latencyReqMs > 0 {
		latencyOK = observed.LatencyMs <= latencyReqMs
	}
	throughputOK := true
	if throughputReqMbps > 0 {
		throughputOK = observed.ThroughputMbps >= throughputReqMbps
	}
	jitterOK := true
	if jitterReqMs > 0 {
		jitterOK = observed.JitterMs <= jitterReqMs
	}
	maxLossPct := max(0.0, 100.0-reliabilityPct)
	reliabilityOK := true
	if reliabilityPct > 0 {
		reliabilityOK = observed.PacketLossRate <= maxLossPct
	}

	metrics := []MetricVerdict{
		{Metric: "latency", Passed: latencyOK, Required: latencyReqMs, Observed: observed.LatencyMs, Delta: observed.LatencyMs - latencyReqMs},
		{Metric: "throughput", Passed: throughputOK, Required: throughputReqMbps, Observed: observed.ThroughputMbps, Delta: observed.ThroughputMbps - throughputReqMbps},
		{Metric: "jitter", Passed: jitterOK, Required: jitterReqMs, Observed: observed.JitterMs, Delta: observed.JitterMs - jitterReqMs},
		{Metric: "reliability", Passed: reliabilityOK, Required: maxLossPct, Observed: observed.PacketLossRate, Delta: observed.PacketLossRate - maxLossPct},
	}

	var violations []MetricVerdict
	for _, m := range metrics {
		if !m.Passed {
			violations = append(violations, m)
		}
	}

	confidenceOK := confidence >= required
	overallPassed := len(violations) == 0 && confidenceOK

	return Verdict{
		OverallPassed:          overallPassed,
		ConfidenceOK:           confidenceOK,
		RequiredConfidence:     required,
		BaseRequiredConfidence: baseRequired,
		ObservedConfidence:     confidence,
		Metrics:                metrics,
		Violations:             violations,
	}
}
