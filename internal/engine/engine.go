// Package engine implements the handover engine (spec C9): it orchestrates
// the network state manager, A3 evaluator, predictor, ping-pong tracker,
// and adaptive QoS manager into one per-tick decision, enforcing mode
// selection (A3 vs ML vs auto) and the three-layer suppression veto order.
package engine

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"sync"

	"github.com/nephio-oran-claude-agents/internal/a3"
	"github.com/nephio-oran-claude-agents/internal/domain"
	"github.com/nephio-oran-claude-agents/internal/predictor"
	"github.com/nephio-oran-claude-agents/internal/qosadapt"
)

// Mode selects which strategy supplies handover candidates.
type Mode string

const (
	ModeML   Mode = "ml"
	ModeA3   Mode = "a3"
	ModeAuto Mode = "auto"
)

// StateManager is the subset of *network.Manager the engine depends on.
type StateManager interface {
	FeatureVector(ueID string, nowS float64, qosRNG *rand.Rand) (domain.FeatureVector, error)
	AntennaCount() int
	ApplyHandover(ueID, targetID string, nowS, confidence, requiredConfidence float64) (domain.HandoverEvent, error)
	RecordSuppressed(ueID, candidate string, nowS, confidence, requiredConfidence float64, reason domain.SuppressionReason) domain.HandoverEvent
}

// PingPongTracker is the subset of *pingpong.Tracker the engine depends on.
type PingPongTracker interface {
	TimeSinceLast(ueID string, nowS float64) float64
	HandoversInWindow(ueID string, nowS, windowS float64) int
	ImmediatePingPong(ueID, candidate string, nowS, windowS float64) bool
	RecordHandover(ueID, destination string, timestampS float64)
}

// HandoverNotifier is the collaborator notified whenever a handover is
// applied (spec C11, via the happens-before ordering guarantee in §5).
type HandoverNotifier interface {
	RecordHandover(ueID, source, target string, tStart float64)
}

// SuppressionNotifier is the collaborator notified whenever a candidate
// handover is vetoed, keyed by suppression reason.
type SuppressionNotifier interface {
	RecordSuppression(reason domain.SuppressionReason)
}

// Config holds the engine's tunables (spec §4.9/§6).
type Config struct {
	Mode                      Mode
	MinAntennasML             int
	MinHandoverIntervalS      float64
	MaxHandoversPerMinute     int
	PingPongWindowS           float64
	PingPongConfidenceBoost   float64
	ImmediateReturnConfidence float64
	PredictorMaxFailures      int
}

// Engine implements spec C9's per-tick decision algorithm.
type Engine struct {
	cfg Config

	state       StateManager
	a3Eval      *a3.Evaluator
	pred        predictor.Predictor
	fallback    predictor.Predictor
	pingpong    PingPongTracker
	qos         *qosadapt.Manager
	notifier    HandoverNotifier
	suppression SuppressionNotifier
	log         *slog.Logger

	mu                  sync.Mutex
	tttClocks           map[string]*a3.TTTClock
	consecutiveFailures int
	forcedA3            bool

	modeOverride *Mode // set by SetMode; overrides auto-selection
}

// New constructs an Engine. fallback may be nil (no local fallback
// predictor configured); the engine then only retries the remote
// predictor once before reverting to A3 for the tick.
func New(cfg Config, state StateManager, a3Eval *a3.Evaluator, pred predictor.Predictor, fallback predictor.Predictor, pingpong PingPongTracker, qos *qosadapt.Manager, notifier HandoverNotifier, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.MinAntennasML < 1 {
		cfg.MinAntennasML = 3
	}
	return &Engine{
		cfg:       cfg,
		state:     state,
		a3Eval:    a3Eval,
		pred:      pred,
		fallback:  fallback,
		pingpong:  pingpong,
		qos:       qos,
		notifier:  notifier,
		log:       logger,
		tttClocks: make(map[string]*a3.TTTClock),
	}
}

// SetSuppressionNotifier attaches the collaborator notified of vetoed
// handover candidates, e.g. a telemetry.Metrics-backed counter.
func (e *Engine) SetSuppressionNotifier(n SuppressionNotifier) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.suppression = n
}

// SetMode pins the engine to a specific mode, disabling auto-selection
// (spec §6 "setting use_ml disables auto"). Pass nil to re-enable auto.
func (e *Engine) SetMode(m *Mode) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.modeOverride = m
}

// CurrentMode reports the mode the engine would use right now, resolving
// auto-selection against the topology's antenna count.
func (e *Engine) CurrentMode() Mode {
	e.mu.Lock()
	forced := e.forcedA3
	override := e.modeOverride
	e.mu.Unlock()

	if override != nil {
		return *override
	}
	if forced {
		return ModeA3
	}
	if e.cfg.Mode != ModeAuto {
		return e.cfg.Mode
	}
	if e.state.AntennaCount() >= e.cfg.MinAntennasML {
		return ModeML
	}
	return ModeA3
}

func (e *Engine) tttClockFor(ueID string, tttSeconds float64) *a3.TTTClock {
	e.mu.Lock()
	defer e.mu.Unlock()
	clock, ok := e.tttClocks[ueID]
	if !ok {
		clock = a3.NewTTTClock(tttSeconds)
		e.tttClocks[ueID] = clock
	}
	return clock
}

// Tick runs one decision cycle for ueID at simulation time nowS: spec
// §4.9's per-UE algorithm, steps 1-6. qosRNG, if non-nil, drives the
// synthetic QoS simulator's noise for this tick's feature-vector read
// (spec C1 "rng_for" feeding the QoS simulator reproducibly). Tick also
// returns the feature vector it built to reach its decision, so callers
// that need the tick's RF/QoS snapshot (e.g. the simulation worker's
// metrics push) do not have to re-query the state manager for a second,
// redundant read of the same tick.
func (e *Engine) Tick(ctx context.Context, ueID string, nowS, tttSeconds float64, qosRNG *rand.Rand) (domain.HandoverEvent, domain.FeatureVector, error) {
	fv, err := e.state.FeatureVector(ueID, nowS, qosRNG)
	if err != nil {
		return domain.HandoverEvent{}, domain.FeatureVector{}, err
	}
	serving := fv.ConnectedTo

	mode := e.CurrentMode()

	var candidate string
	var confidence float64

	switch mode {
	case ModeML:
		candidate, confidence = e.selectML(ctx, fv)
	default:
		candidate, confidence = e.selectA3(fv, serving, tttSeconds, nowS)
	}

	if candidate == "" || candidate == serving {
		return domain.HandoverEvent{UEID: ueID, From: serving, To: candidate, TimestampS: nowS, Outcome: domain.OutcomeSkipped, Confidence: confidence}, fv, nil
	}

	if reason, required := e.suppressionVeto(ueID, candidate, confidence, nowS, fv, mode); reason != domain.SuppressionNone {
		event := e.state.RecordSuppressed(ueID, candidate, nowS, confidence, required, reason)
		e.countSuppression(reason)
		return event, fv, nil
	}

	event, err := e.state.ApplyHandover(ueID, candidate, nowS, confidence, e.requiredConfidenceFor(fv, mode))
	if err != nil {
		event = e.state.RecordSuppressed(ueID, candidate, nowS, confidence, 0, domain.SuppressionUnknownTarget)
		e.countSuppression(domain.SuppressionUnknownTarget)
		return event, fv, nil
	}

	if event.Outcome == domain.OutcomeApplied {
		e.pingpong.RecordHandover(ueID, event.To, nowS)
		if e.notifier != nil {
			e.notifier.RecordHandover(ueID, event.From, event.To, nowS)
		}
		// The applied handover changed connected_to; refresh the returned
		// vector's serving-side view so callers see the post-handover state.
		fv.ConnectedTo = event.To
	}
	return event, fv, nil
}

// selectML calls the predictor, retrying once on transient failure. If the
// retry also fails, the tick falls back to the local fallback predictor (or
// to A3, if no fallback is configured or it fails too); once the configured
// failure budget is exceeded, the engine is forced into A3 mode.
func (e *Engine) selectML(ctx context.Context, fv domain.FeatureVector) (string, float64) {
	pred, err := e.pred.Predict(ctx, fv)
	if err != nil {
		e.log.WarnContext(ctx, "predictor failed, retrying once", slog.String("ue_id", fv.UEID), slog.String("error", err.Error()))
		pred, err = e.pred.Predict(ctx, fv)
	}

	if err != nil {
		e.mu.Lock()
		e.consecutiveFailures++
		exceeded := e.cfg.PredictorMaxFailures > 0 && e.consecutiveFailures >= e.cfg.PredictorMaxFailures
		if exceeded {
			e.forcedA3 = true
		}
		e.mu.Unlock()

		e.log.WarnContext(ctx, "predictor failed twice, falling back for this tick", slog.String("ue_id", fv.UEID))
		if e.fallback != nil {
			if fbPred, fbErr := e.fallback.Predict(ctx, fv); fbErr == nil {
				return fbPred.TargetAntenna, fbPred.Confidence
			}
		}
		target, conf := e.selectA3(fv, fv.ConnectedTo, 0, 0)
		return target, conf
	}

	e.mu.Lock()
	e.consecutiveFailures = 0
	e.mu.Unlock()
	return pred.TargetAntenna, pred.Confidence
}

// selectA3 iterates neighbors in RSRP-descending order (they are already
// ordered that way on the feature vector), evaluating the A3 condition
// and the UE's single per-UE TTT clock; the first neighbor to trigger is
// selected.
func (e *Engine) selectA3(fv domain.FeatureVector, serving string, tttSeconds, nowS float64) (string, float64) {
	servingRSRP, ok := fv.ServingRSRP()
	if !ok {
		return "", 0
	}
	servingRSRQ := findRSRQ(fv, serving)
	clock := e.tttClockFor(fv.UEID, tttSeconds)

	for _, m := range fv.NeighborRSRPDBm {
		if m.AntennaID == serving {
			continue
		}
		targetRSRQ := findRSRQ(fv, m.AntennaID)
		met := e.a3Eval.ConditionMet(
			a3.Metrics{RSRPDBm: servingRSRP, RSRQDB: servingRSRQ},
			a3.Metrics{RSRPDBm: m.ValueDB, RSRQDB: targetRSRQ},
		)
		if clock.Observe(met, nowS, m.AntennaID) {
			return m.AntennaID, 1.0
		}
		if met {
			// Only the strongest candidate's timer should run per tick;
			// weaker neighbors are re-evaluated on the next tick once the
			// strongest either triggers or the condition clears.
			break
		}
	}
	return "", 0
}

func findRSRQ(fv domain.FeatureVector, antennaID string) float64 {
	for _, m := range fv.NeighborRSRQDB {
		if m.AntennaID == antennaID {
			return m.ValueDB
		}
	}
	return 0
}

// requiredConfidenceFor returns the confidence gate an ML candidate had to
// clear; for A3 decisions this is always 0 (A3 confidence is always 1.0).
func (e *Engine) requiredConfidenceFor(fv domain.FeatureVector, mode Mode) float64 {
	if mode != ModeML || e.qos == nil {
		return 0
	}
	serviceType := string(domain.ServiceDefault)
	priority := 5
	if fv.DeclaredQoS != nil {
		serviceType = string(fv.DeclaredQoS.ServiceType)
		priority = fv.DeclaredQoS.ServicePriority
	}
	return e.qos.RequiredConfidence(serviceType, priority)
}

// suppressionVeto runs the three-layer ping-pong veto in spec-mandated
// order (too_recent, too_many, immediate_return), then the adaptive
// confidence gate for ML candidates. The first applicable veto wins.
func (e *Engine) suppressionVeto(ueID, candidate string, confidence, nowS float64, fv domain.FeatureVector, mode Mode) (domain.SuppressionReason, float64) {
	if e.pingpong.TimeSinceLast(ueID, nowS) < e.cfg.MinHandoverIntervalS && confidence < e.cfg.PingPongConfidenceBoost {
		return domain.SuppressionTooRecent, 0
	}
	if e.pingpong.HandoversInWindow(ueID, nowS, 60.0) >= e.cfg.MaxHandoversPerMinute && confidence < e.cfg.PingPongConfidenceBoost {
		return domain.SuppressionTooMany, 0
	}
	if e.pingpong.ImmediatePingPong(ueID, candidate, nowS, e.cfg.PingPongWindowS) && confidence < e.cfg.ImmediateReturnConfidence {
		return domain.SuppressionImmediateReturn, 0
	}

	if mode == ModeML {
		required := e.requiredConfidenceFor(fv, mode)
		if confidence < required {
			return domain.SuppressionLowConfidence, required
		}
	}
	return domain.SuppressionNone, 0
}

func (e *Engine) countSuppression(reason domain.SuppressionReason) {
	e.mu.Lock()
	n := e.suppression
	e.mu.Unlock()
	if n != nil {
		n.RecordSuppression(reason)
	}
}

// QoSFeedback folds one externally reported QoS pass/fail sample into the
// adaptive confidence manager (spec §4.9 "On a QoS feedback message").
func (e *Engine) QoSFeedback(serviceType string, passed bool) {
	if e.qos != nil {
		e.qos.ObserveFeedback(serviceType, passed)
	}
}

// AdaptiveRequiredConfidence reports the current confidence an ML
// candidate for serviceType/priority must clear, for external reporting
// (spec §6 qos-feedback response).
func (e *Engine) AdaptiveRequiredConfidence(serviceType string, priority int) float64 {
	if e.qos == nil {
		return 0
	}
	return e.qos.RequiredConfidence(serviceType, priority)
}

// ResetUE clears the engine's per-UE TTT clock, e.g. on UE removal.
func (e *Engine) ResetUE(ueID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.tttClocks, ueID)
}
