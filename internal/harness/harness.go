// Package harness implements the experiment harness (spec C12): it seeds
// the reproducible RNG registry, drives a scenario tick-by-tick against one
// engine configuration, and collects the metrics needed to compare runs
// taken under identical random conditions. Per spec §1 this component is
// described only as a contract; the interfaces below are the seam cmd/
// wiring plugs a concrete network/engine/telemetry stack into, grounded on
// the teacher's comparative ML-vs-A3 experiment runner
// (scripts/run_enhanced_experiment.py) adapted to Go's explicit-dependency
// style in place of that script's module-level imports.
package harness

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"sort"

	"github.com/nephio-oran-claude-agents/internal/domain"
	"github.com/nephio-oran-claude-agents/internal/engine"
	"github.com/nephio-oran-claude-agents/internal/rng"
	"github.com/nephio-oran-claude-agents/internal/telemetry"
)

// Scenario names one run's UE population and duration. Trajectories and
// topology live outside the harness, in the network/simulation layer each
// Environment wraps.
type Scenario struct {
	Name          string
	GlobalSeed    string
	UEIDs         []string
	DurationS     float64
	TickIntervalS float64
	TTTSeconds    float64
}

// EngineRunner is the subset of *engine.Engine a harness run drives.
type EngineRunner interface {
	SetMode(*engine.Mode)
	CurrentMode() engine.Mode
	Tick(ctx context.Context, ueID string, nowS, tttSeconds float64, qosRNG *rand.Rand) (domain.HandoverEvent, domain.FeatureVector, error)
}

// MetricsCollector is the subset of *telemetry.Collector a harness run
// samples once per UE per tick.
type MetricsCollector interface {
	Update(ueID string, sinrDB, nowS, dtS float64, servingCell string) telemetry.Snapshot
}

// SINRSource reports the serving-cell SINR a UE currently experiences;
// normally backed by the same channel model driving the live simulation.
type SINRSource func(ueID string, nowS float64) float64

// Environment bundles one run's fully-wired collaborators: its own engine,
// its own metrics collector, and the channel feed it reads SINR from. Two
// paired runs of the same Scenario must each get a fresh Environment over
// fresh network/channel state, or the second run observes state polluted
// by the first.
type Environment struct {
	Engine     EngineRunner
	Metrics    MetricsCollector
	SINR       SINRSource
	ServingCell func(ueID string) string
}

// RunResult summarizes one scenario run under one engine mode.
type RunResult struct {
	Mode            engine.Mode
	Events          []domain.HandoverEvent
	AppliedCount    int
	SuppressedCount int
	SkippedCount    int
	RLFCount        int
	AvgThroughputMbps map[string]float64
}

// PairedResult holds two runs of the same Scenario, normally one forced to
// ModeA3 and one to ModeML, for side-by-side comparison.
type PairedResult struct {
	Scenario Scenario
	Baseline RunResult
	Candidate RunResult
}

// Runner seeds and executes scenario runs (spec C12).
type Runner struct {
	rng *rng.Registry
	log *slog.Logger
}

// NewRunner constructs a Runner with its own RNG registry, independent of
// whatever registry the live simulation uses.
func NewRunner(logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{rng: rng.NewRegistry(), log: logger}
}

// Seed (re)seeds the harness's RNG registry. Call this immediately before
// each run in a paired comparison so both runs draw from identical streams.
func (r *Runner) Seed(globalSeed string) {
	r.rng.Seed(globalSeed)
}

// Registry exposes the harness's RNG registry, e.g. for a QoS simulator
// wired into the Environment under test to draw from the same seeded
// streams the harness itself reseeds before each paired run.
func (r *Runner) Registry() *rng.Registry {
	return r.rng
}

// Verify runs the RNG registry's reproducibility self-test (spec §4.1's
// "verify()"); a false result is fatal per spec §7 and must not be
// silently swallowed by the caller.
func Verify() bool {
	return rng.Verify()
}

// Run drives sc tick-by-tick against env, forcing mode for the whole run,
// and returns the aggregated RunResult.
func (r *Runner) Run(ctx context.Context, sc Scenario, mode engine.Mode, env Environment) RunResult {
	m := mode
	env.Engine.SetMode(&m)

	result := RunResult{Mode: mode, AvgThroughputMbps: make(map[string]float64)}
	ticks := int(sc.DurationS / sc.TickIntervalS)

	for i := 0; i <= ticks; i++ {
		nowS := float64(i) * sc.TickIntervalS
		for _, ueID := range sc.UEIDs {
			event, _, err := env.Engine.Tick(ctx, ueID, nowS, sc.TTTSeconds, nil)
			if err != nil {
				r.log.WarnContext(ctx, "harness tick failed", slog.String("ue_id", ueID), slog.String("error", err.Error()))
				continue
			}
			result.Events = append(result.Events, event)
			switch event.Outcome {
			case domain.OutcomeApplied:
				result.AppliedCount++
			case domain.OutcomeSuppressed:
				result.SuppressedCount++
			case domain.OutcomeSkipped:
				result.SkippedCount++
			}

			serving := event.To
			if event.Outcome != domain.OutcomeApplied {
				serving = env.ServingCell(ueID)
			}
			sinr := env.SINR(ueID, nowS)
			snap := env.Metrics.Update(ueID, sinr, nowS, sc.TickIntervalS, serving)
			result.AvgThroughputMbps[ueID] = snap.AverageThroughputMbps
			if snap.RLFDeclared {
				result.RLFCount++
			}
		}
	}
	return result
}

// RunPaired runs sc once under baseline and once under candidate, reseeding
// the harness's RNG registry to the scenario's global seed before each run
// so both see identical random conditions. Callers must supply fresh
// Environments whose underlying network/channel state has not been touched
// by a prior run.
func (r *Runner) RunPaired(ctx context.Context, sc Scenario, baseline, candidate engine.Mode, baselineEnv, candidateEnv Environment) PairedResult {
	r.Seed(sc.GlobalSeed)
	base := r.Run(ctx, sc, baseline, baselineEnv)

	r.Seed(sc.GlobalSeed)
	cand := r.Run(ctx, sc, candidate, candidateEnv)

	return PairedResult{Scenario: sc, Baseline: base, Candidate: cand}
}

// ComparisonReport summarizes the delta between a paired run's two sides,
// with per-UE throughput deltas keyed by UE id.
type ComparisonReport struct {
	Scenario                string
	AppliedDelta            int
	SuppressedDelta         int
	RLFDelta                int
	AvgThroughputDeltaMbps  map[string]float64
}

// Compare reduces a PairedResult to a ComparisonReport: candidate minus
// baseline, UE-by-UE for throughput.
func Compare(p PairedResult) ComparisonReport {
	delta := make(map[string]float64, len(p.Scenario.UEIDs))
	ueIDs := make([]string, 0, len(p.Scenario.UEIDs))
	ueIDs = append(ueIDs, p.Scenario.UEIDs...)
	sort.Strings(ueIDs)
	for _, ueID := range ueIDs {
		delta[ueID] = p.Candidate.AvgThroughputMbps[ueID] - p.Baseline.AvgThroughputMbps[ueID]
	}
	return ComparisonReport{
		Scenario:               p.Scenario.Name,
		AppliedDelta:           p.Candidate.AppliedCount - p.Baseline.AppliedCount,
		SuppressedDelta:        p.Candidate.SuppressedCount - p.Baseline.SuppressedCount,
		RLFDelta:               p.Candidate.RLFCount - p.Baseline.RLFCount,
		AvgThroughputDeltaMbps: delta,
	}
}
