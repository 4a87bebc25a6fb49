package network

import (
	"math/rand/v2"

	"github.com/nephio-oran-claude-agents/internal/domain"
)

// qosSimulatorContext is the subset of feature-vector state the synthetic
// QoS simulator (spec §4.2.1) needs.
type qosSimulatorContext struct {
	servingRSRPDBm float64
	servingLoad    int
	speed          float64
}

// qosSimulator produces a synthetic observed-QoS snapshot from RF
// conditions: poor signal or congestion degrade latency/throughput and
// increase jitter/packet loss.
type qosSimulator struct {
	baseLatencyMs     float64
	minLatencyMs      float64
	maxLatencyMs      float64
	maxThroughputMbps float64
	rng               *rand.Rand
}

func newQoSSimulator(src *rand.Rand) *qosSimulator {
	return &qosSimulator{
		baseLatencyMs:     12.0,
		minLatencyMs:      4.0,
		maxLatencyMs:      80.0,
		maxThroughputMbps: 400.0,
		rng:               src,
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// estimate returns a synthetic QoS snapshot; it never returns nil. The
// caller skips UEs without a serving cell.
func (s *qosSimulator) estimate(ctx qosSimulatorContext) *domain.ObservedQoS {
	quality := clamp((ctx.servingRSRPDBm+120.0)/70.0, 0.0, 1.0)
	loadPenalty := min(float64(ctx.servingLoad)/10.0, 2.0)
	speedPenalty := min(ctx.speed/30.0, 1.5)

	latency := clamp(s.baseLatencyMs-quality*6.0+loadPenalty*5.0+speedPenalty*3.0, s.minLatencyMs, s.maxLatencyMs)
	throughput := max(5.0, s.maxThroughputMbps*quality/(1.0+loadPenalty))
	jitter := clamp(1.0+(1.0-quality)*8.0+loadPenalty*2.0, 0.5, 50.0)
	packetLoss := min(20.0, max(0.0, (1.0-quality)*4.0+loadPenalty*1.5))

	jitter *= 1.0 + s.uniform(-0.1, 0.1)
	latency *= 1.0 + s.uniform(-0.05, 0.05)
	throughput *= 1.0 + s.uniform(-0.05, 0.05)
	packetLoss = max(0.0, packetLoss*(1.0+s.uniform(-0.1, 0.1)))

	return &domain.ObservedQoS{
		LatencyMs:      latency,
		ThroughputMbps: throughput,
		JitterMs:       jitter,
		PacketLossRate: packetLoss,
	}
}

func (s *qosSimulator) uniform(lo, hi float64) float64 {
	if s.rng == nil {
		return 0
	}
	return lo + s.rng.Float64()*(hi-lo)
}

// qosRollingWindow keeps the most recent observed-QoS samples for a UE and
// exposes the latest one (spec "observed-QoS rolling window").
type qosRollingWindow struct {
	capacity int
	samples  []domain.ObservedQoS
}

func newQoSRollingWindow(capacity int) *qosRollingWindow {
	if capacity < 1 {
		capacity = 1
	}
	return &qosRollingWindow{capacity: capacity}
}

func (w *qosRollingWindow) record(m domain.ObservedQoS) {
	w.samples = append(w.samples, m)
	if len(w.samples) > w.capacity {
		w.samples = w.samples[len(w.samples)-w.capacity:]
	}
}

func (w *qosRollingWindow) latest() *domain.ObservedQoS {
	if len(w.samples) == 0 {
		return nil
	}
	last := w.samples[len(w.samples)-1]
	return &last
}
