package harness

import (
	"context"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nephio-oran-claude-agents/internal/domain"
	"github.com/nephio-oran-claude-agents/internal/engine"
	"github.com/nephio-oran-claude-agents/internal/telemetry"
)

type fakeEngine struct {
	mode   engine.Mode
	events map[string][]domain.HandoverEvent
	calls  int
}

func (f *fakeEngine) SetMode(m *engine.Mode) { f.mode = *m }
func (f *fakeEngine) CurrentMode() engine.Mode { return f.mode }
func (f *fakeEngine) Tick(ctx context.Context, ueID string, nowS, tttSeconds float64, qosRNG *rand.Rand) (domain.HandoverEvent, domain.FeatureVector, error) {
	queue := f.events[ueID]
	idx := f.calls / len(f.events)
	f.calls++
	if idx >= len(queue) {
		return domain.HandoverEvent{UEID: ueID, Outcome: domain.OutcomeSkipped}, domain.FeatureVector{}, nil
	}
	return queue[idx], domain.FeatureVector{}, nil
}

type fakeCollector struct {
	rlfOn bool
}

func (c *fakeCollector) Update(ueID string, sinrDB, nowS, dtS float64, servingCell string) telemetry.Snapshot {
	return telemetry.Snapshot{AverageThroughputMbps: sinrDB, RLFDeclared: c.rlfOn}
}

func TestRunAggregatesOutcomeCounts(t *testing.T) {
	eng := &fakeEngine{
		events: map[string][]domain.HandoverEvent{
			"ue-1": {
				{UEID: "ue-1", Outcome: domain.OutcomeApplied, To: "cell-b"},
				{UEID: "ue-1", Outcome: domain.OutcomeSuppressed},
			},
		},
	}
	collector := &fakeCollector{}
	env := Environment{
		Engine:      eng,
		Metrics:     collector,
		SINR:        func(string, float64) float64 { return 20.0 },
		ServingCell: func(string) string { return "cell-a" },
	}
	sc := Scenario{Name: "one-ue", GlobalSeed: "seed", UEIDs: []string{"ue-1"}, DurationS: 1, TickIntervalS: 1, TTTSeconds: 0.5}

	r := NewRunner(nil)
	result := r.Run(context.Background(), sc, engine.ModeA3, env)

	require.Equal(t, 1, result.AppliedCount)
	require.Equal(t, 1, result.SuppressedCount)
	require.InDelta(t, 20.0, result.AvgThroughputMbps["ue-1"], 1e-9)
}

func TestRunPairedReseedsBetweenRuns(t *testing.T) {
	makeEnv := func() (Environment, *fakeEngine) {
		eng := &fakeEngine{events: map[string][]domain.HandoverEvent{"ue-1": {}}}
		env := Environment{
			Engine:      eng,
			Metrics:     &fakeCollector{},
			SINR:        func(string, float64) float64 { return 10.0 },
			ServingCell: func(string) string { return "cell-a" },
		}
		return env, eng
	}

	baseEnv, baseEng := makeEnv()
	candEnv, candEng := makeEnv()
	sc := Scenario{Name: "paired", GlobalSeed: "seed-x", UEIDs: []string{"ue-1"}, DurationS: 1, TickIntervalS: 1, TTTSeconds: 0.5}

	r := NewRunner(nil)
	paired := r.RunPaired(context.Background(), sc, engine.ModeA3, engine.ModeML, baseEnv, candEnv)

	require.Equal(t, engine.ModeA3, baseEng.mode)
	require.Equal(t, engine.ModeML, candEng.mode)
	require.Equal(t, engine.ModeA3, paired.Baseline.Mode)
	require.Equal(t, engine.ModeML, paired.Candidate.Mode)
}

func TestCompareComputesDeltas(t *testing.T) {
	paired := PairedResult{
		Scenario: Scenario{Name: "delta-check", UEIDs: []string{"ue-1"}},
		Baseline: RunResult{AppliedCount: 2, SuppressedCount: 1, RLFCount: 0, AvgThroughputMbps: map[string]float64{"ue-1": 10.0}},
		Candidate: RunResult{AppliedCount: 3, SuppressedCount: 0, RLFCount: 1, AvgThroughputMbps: map[string]float64{"ue-1": 15.0}},
	}

	report := Compare(paired)
	require.Equal(t, 1, report.AppliedDelta)
	require.Equal(t, -1, report.SuppressedDelta)
	require.Equal(t, 1, report.RLFDelta)
	require.InDelta(t, 5.0, report.AvgThroughputDeltaMbps["ue-1"], 1e-9)
}

func TestVerifyReportsReproducibility(t *testing.T) {
	require.True(t, Verify())
}
