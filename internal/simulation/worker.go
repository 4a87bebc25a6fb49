// Package simulation implements the per-UE simulation loop (spec C10): one
// worker goroutine per UE that advances position along a trajectory,
// throttles re-evaluation of the handover engine, and pushes metrics to
// the telemetry collector every tick. It adapts the teacher's
// ProcessConcurrently worker-pool idiom (pkg/orchestrator) from a
// batch-of-items model to a long-lived one-worker-per-UE model.
package simulation

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/nephio-oran-claude-agents/internal/domain"
	"github.com/nephio-oran-claude-agents/internal/telemetry"
)

// SpeedProfile selects how quickly a worker advances along its trajectory
// (spec §4.10, grounded in the original simulator's point-skipping model).
type SpeedProfile string

const (
	SpeedLow    SpeedProfile = "LOW"
	SpeedMedium SpeedProfile = "MEDIUM"
	SpeedHigh   SpeedProfile = "HIGH"
)

// stepFor maps a speed profile to its trajectory-advance multiplier:
// LOW and anything unrecognized advance one sample-equivalent per tick,
// HIGH advances ten.
func stepFor(p SpeedProfile) float64 {
	if p == SpeedHigh {
		return 10.0
	}
	return 1.0
}

// TrajectoryPoint is one (time, position) sample of a UE's path.
type TrajectoryPoint struct {
	TimeS    float64
	Position domain.Position
}

// StateManager is the subset of *network.Manager a worker depends on.
type StateManager interface {
	UpdatePosition(ueID string, pos domain.Position, speedMps float64) error
	NearestAntenna(pos domain.Position) string
	ConnectedTo(ueID string) (string, bool)
	Attach(ueID, antennaID string, nowS float64) error
	FeatureVector(ueID string, nowS float64, qosRNG *rand.Rand) (domain.FeatureVector, error)
}

// EngineTicker is the subset of *engine.Engine a worker depends on. Tick
// returns the feature vector it built while deciding, so the worker can
// push that same tick's RF/QoS snapshot to telemetry without a second,
// redundant read of the state manager.
type EngineTicker interface {
	Tick(ctx context.Context, ueID string, nowS, tttSeconds float64, qosRNG *rand.Rand) (domain.HandoverEvent, domain.FeatureVector, error)
}

// MetricsCollector is the subset of *telemetry.Collector a worker depends
// on.
type MetricsCollector interface {
	Update(ueID string, sinrDB, nowS, dtS float64, servingCell string) telemetry.Snapshot
}

// FinalStatePersister receives a UE's terminal position and serving cell
// when its worker exits (spec §4.10 step 3). Optional: a nil persister is
// a no-op.
type FinalStatePersister interface {
	PersistFinalState(ueID string, pos domain.Position, connectedTo string)
}

// ChannelUpdater is the subset of *channel.Manager a worker depends on to
// advance shadowing and fading before reading a feature vector. Optional:
// a nil updater leaves the channel model static (e.g. unit tests pinning
// RF conditions).
type ChannelUpdater interface {
	Update(ueID string, pos domain.Position, velocityMps, nowS float64, src *rand.Rand) (shadowingDB, fadingLossDB float64)
}

// RNGSource hands out the per-UE deterministic RNG stream (spec C1) that
// drives both channel fading/shadowing noise and the synthetic QoS
// simulator, so repeat runs under the same global seed are reproducible.
// Optional: with a nil source the channel update is skipped and the QoS
// simulator gets a nil RNG, which adds no noise.
type RNGSource interface {
	RNGFor(ueID string) *rand.Rand
}

// Config holds a worker's tunables (spec §4.9/§4.10/§6).
type Config struct {
	TickIntervalS                 float64
	HandoverReevaluationIntervalS float64
	TTTSeconds                    float64
}

// Worker advances one UE's position along its trajectory and drives the
// engine/telemetry collaborators once per tick.
type Worker struct {
	ueID    string
	cfg     Config
	traj    []TrajectoryPoint
	profile SpeedProfile

	state      StateManager
	engine     EngineTicker
	collector  MetricsCollector
	persister  FinalStatePersister
	channel    ChannelUpdater
	rngSource  RNGSource
	log        *slog.Logger

	stopCh chan struct{}
	doneCh chan struct{}

	pathDurationS float64
	avgSpacingS   float64
	cursorS       float64

	lastNearest   string
	lastEvalAtS   float64
	hasEvaluated  bool
}

// NewWorker constructs a Worker for ueID. trajectory must be sorted by
// TimeS and non-empty.
func NewWorker(ueID string, cfg Config, trajectory []TrajectoryPoint, profile SpeedProfile, state StateManager, eng EngineTicker, collector MetricsCollector, persister FinalStatePersister, logger *slog.Logger, channel ChannelUpdater, rngSource RNGSource) *Worker {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.TickIntervalS <= 0 {
		cfg.TickIntervalS = 1.0
	}
	if cfg.HandoverReevaluationIntervalS <= 0 {
		cfg.HandoverReevaluationIntervalS = 3.0
	}

	duration := 0.0
	spacing := 1.0
	if n := len(trajectory); n > 1 {
		duration = trajectory[n-1].TimeS - trajectory[0].TimeS
		if duration > 0 {
			spacing = duration / float64(n-1)
		}
	}

	return &Worker{
		ueID:          ueID,
		cfg:           cfg,
		traj:          trajectory,
		profile:       profile,
		state:         state,
		engine:        eng,
		collector:     collector,
		persister:     persister,
		channel:       channel,
		rngSource:     rngSource,
		log:           logger,
		stopCh:        make(chan struct{}),
		doneCh:        make(chan struct{}),
		pathDurationS: duration,
		avgSpacingS:   spacing,
	}
}

// Stop signals the worker to exit after completing its current tick. It
// does not block; use Done to wait for exit.
func (w *Worker) Stop() {
	select {
	case <-w.stopCh:
	default:
		close(w.stopCh)
	}
}

// Done returns a channel closed once the worker has exited and persisted
// final state.
func (w *Worker) Done() <-chan struct{} {
	return w.doneCh
}

// Run drives the tick loop until ctx is cancelled or Stop is called. It
// completes the in-flight tick before observing either signal, so no tick
// is ever half-processed (spec §5 cancellation guarantee).
func (w *Worker) Run(ctx context.Context) {
	defer close(w.doneCh)

	ticker := time.NewTicker(time.Duration(w.cfg.TickIntervalS * float64(time.Second)))
	defer ticker.Stop()

	simTimeS := 0.0
	for {
		w.tick(ctx, simTimeS)
		simTimeS += w.cfg.TickIntervalS

		select {
		case <-ctx.Done():
			w.persistFinal()
			return
		case <-w.stopCh:
			w.persistFinal()
			return
		case <-ticker.C:
		}
	}
}

func (w *Worker) tick(ctx context.Context, nowS float64) {
	pos, speedMps := w.advance()
	if err := w.state.UpdatePosition(w.ueID, pos, speedMps); err != nil {
		w.log.WarnContext(ctx, "position update failed", slog.String("ue_id", w.ueID), slog.String("error", err.Error()))
		return
	}

	var ueRNG *rand.Rand
	if w.rngSource != nil {
		ueRNG = w.rngSource.RNGFor(w.ueID)
	}
	if w.channel != nil && ueRNG != nil {
		w.channel.Update(w.ueID, pos, speedMps, nowS, ueRNG)
	}

	connected, hasConn := w.state.ConnectedTo(w.ueID)
	if !hasConn || connected == "" {
		nearest := w.state.NearestAntenna(pos)
		if nearest != "" {
			if err := w.state.Attach(w.ueID, nearest, nowS); err != nil {
				w.log.WarnContext(ctx, "initial attach failed", slog.String("ue_id", w.ueID), slog.String("error", err.Error()))
			} else {
				connected = nearest
			}
		}
	}

	nearest := w.state.NearestAntenna(pos)
	shouldEvaluate := !w.hasEvaluated || nearest != w.lastNearest || (nowS-w.lastEvalAtS) >= w.cfg.HandoverReevaluationIntervalS

	var fv domain.FeatureVector
	haveFV := false
	if shouldEvaluate {
		_, tickFV, err := w.engine.Tick(ctx, w.ueID, nowS, w.cfg.TTTSeconds, ueRNG)
		if err != nil {
			w.log.WarnContext(ctx, "engine tick failed", slog.String("ue_id", w.ueID), slog.String("error", err.Error()))
		} else {
			fv, haveFV = tickFV, true
		}
		w.lastNearest = nearest
		w.lastEvalAtS = nowS
		w.hasEvaluated = true
	}
	if !haveFV {
		var err error
		fv, err = w.state.FeatureVector(w.ueID, nowS, ueRNG)
		if err != nil {
			w.log.WarnContext(ctx, "feature vector read failed", slog.String("ue_id", w.ueID), slog.String("error", err.Error()))
			return
		}
	}

	if w.collector != nil {
		sinr := servingSINR(fv)
		w.collector.Update(w.ueID, sinr, nowS, w.cfg.TickIntervalS, fv.ConnectedTo)
	}
}

func servingSINR(fv domain.FeatureVector) float64 {
	for _, m := range fv.NeighborSINRDB {
		if m.AntennaID == fv.ConnectedTo {
			return m.ValueDB
		}
	}
	return 0
}

// advance moves the worker's path cursor forward by its speed profile's
// step and returns the linearly interpolated position and instantaneous
// speed; the path loops once the cursor reaches its duration.
func (w *Worker) advance() (domain.Position, float64) {
	if len(w.traj) == 0 {
		return domain.Position{}, 0
	}
	if len(w.traj) == 1 {
		return w.traj[0].Position, 0
	}

	before := w.interpolate(w.cursorS)
	w.cursorS += stepFor(w.profile) * w.avgSpacingS
	if w.pathDurationS > 0 {
		for w.cursorS >= w.pathDurationS {
			w.cursorS -= w.pathDurationS
		}
	}
	after := w.interpolate(w.cursorS)

	speed := after.DistanceTo(before) / w.cfg.TickIntervalS
	return after, speed
}

// interpolate returns the linearly-interpolated position at cursor
// seconds (relative to traj[0].TimeS), clamping to the path's endpoints.
func (w *Worker) interpolate(cursorS float64) domain.Position {
	t0 := w.traj[0].TimeS
	target := t0 + cursorS

	if target <= w.traj[0].TimeS {
		return w.traj[0].Position
	}
	last := len(w.traj) - 1
	if target >= w.traj[last].TimeS {
		return w.traj[last].Position
	}

	for i := 0; i < last; i++ {
		a, b := w.traj[i], w.traj[i+1]
		if target >= a.TimeS && target <= b.TimeS {
			span := b.TimeS - a.TimeS
			if span <= 0 {
				return a.Position
			}
			frac := (target - a.TimeS) / span
			return domain.Position{
				X: a.Position.X + frac*(b.Position.X-a.Position.X),
				Y: a.Position.Y + frac*(b.Position.Y-a.Position.Y),
				Z: a.Position.Z + frac*(b.Position.Z-a.Position.Z),
			}
		}
	}
	return w.traj[last].Position
}

func (w *Worker) persistFinal() {
	if w.persister == nil {
		return
	}
	pos, _ := w.interpolateCurrent()
	connected, _ := w.state.ConnectedTo(w.ueID)
	w.persister.PersistFinalState(w.ueID, pos, connected)
}

func (w *Worker) interpolateCurrent() (domain.Position, bool) {
	if len(w.traj) == 0 {
		return domain.Position{}, false
	}
	return w.interpolate(w.cursorS), true
}
