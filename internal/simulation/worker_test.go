package simulation

import (
	"context"
	"math/rand/v2"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/nephio-oran-claude-agents/internal/domain"
	"github.com/nephio-oran-claude-agents/internal/telemetry"
)

type fakeState struct {
	mu          sync.Mutex
	positions   []domain.Position
	connectedTo string
	attached    string
	fv          domain.FeatureVector
}

func (f *fakeState) UpdatePosition(ueID string, pos domain.Position, speedMps float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.positions = append(f.positions, pos)
	return nil
}

func (f *fakeState) NearestAntenna(pos domain.Position) string { return "cell-a" }

func (f *fakeState) ConnectedTo(ueID string) (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connectedTo, f.connectedTo != ""
}

func (f *fakeState) Attach(ueID, antennaID string, nowS float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.attached = antennaID
	f.connectedTo = antennaID
	return nil
}

func (f *fakeState) FeatureVector(ueID string, nowS float64, _ *rand.Rand) (domain.FeatureVector, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fv := f.fv
	fv.ConnectedTo = f.connectedTo
	return fv, nil
}

type fakeEngine struct {
	calls int
}

func (e *fakeEngine) Tick(ctx context.Context, ueID string, nowS, tttSeconds float64, qosRNG *rand.Rand) (domain.HandoverEvent, domain.FeatureVector, error) {
	e.calls++
	return domain.HandoverEvent{}, domain.FeatureVector{}, nil
}

type fakeCollector struct {
	updates int
}

func (c *fakeCollector) Update(ueID string, sinrDB, nowS, dtS float64, servingCell string) telemetry.Snapshot {
	c.updates++
	return telemetry.Snapshot{}
}

type fakePersister struct {
	persisted bool
	ueID      string
	pos       domain.Position
	connected string
}

func (p *fakePersister) PersistFinalState(ueID string, pos domain.Position, connectedTo string) {
	p.persisted = true
	p.ueID = ueID
	p.pos = pos
	p.connected = connectedTo
}

func straightLineTrajectory() []TrajectoryPoint {
	return []TrajectoryPoint{
		{TimeS: 0, Position: domain.Position{X: 0}},
		{TimeS: 10, Position: domain.Position{X: 100}},
		{TimeS: 20, Position: domain.Position{X: 200}},
	}
}

func TestWorkerAttachesOnFirstTickOnly(t *testing.T) {
	state := &fakeState{}
	eng := &fakeEngine{}
	w := NewWorker("ue-1", Config{TickIntervalS: 1}, straightLineTrajectory(), SpeedLow, state, eng, nil, nil, nil, nil, nil)

	w.tick(context.Background(), 0)
	require.Equal(t, "cell-a", state.attached)

	state.attached = ""
	w.tick(context.Background(), 1)
	require.Empty(t, state.attached, "attach must not repeat once connected")
}

func TestWorkerReevaluatesWhenNearestAntennaChanges(t *testing.T) {
	state := &fakeState{connectedTo: "cell-a"}
	eng := &fakeEngine{}
	w := NewWorker("ue-1", Config{TickIntervalS: 1, HandoverReevaluationIntervalS: 100}, straightLineTrajectory(), SpeedLow, state, eng, nil, nil, nil, nil, nil)

	w.tick(context.Background(), 0)
	require.Equal(t, 1, eng.calls, "first tick always evaluates")

	w.tick(context.Background(), 1)
	require.Equal(t, 1, eng.calls, "nearest unchanged and interval not elapsed: no re-evaluation")

	w.lastNearest = "some-other-cell"
	w.tick(context.Background(), 2)
	require.Equal(t, 2, eng.calls, "nearest changed: re-evaluates")
}

func TestWorkerReevaluatesAfterIntervalElapses(t *testing.T) {
	state := &fakeState{connectedTo: "cell-a"}
	eng := &fakeEngine{}
	w := NewWorker("ue-1", Config{TickIntervalS: 1, HandoverReevaluationIntervalS: 3}, straightLineTrajectory(), SpeedLow, state, eng, nil, nil, nil, nil, nil)

	w.tick(context.Background(), 0)
	require.Equal(t, 1, eng.calls)
	w.tick(context.Background(), 1)
	w.tick(context.Background(), 2)
	require.Equal(t, 1, eng.calls, "interval not yet elapsed")
	w.tick(context.Background(), 3)
	require.Equal(t, 2, eng.calls, "interval elapsed: re-evaluates")
}

func TestWorkerPushesMetricsEveryTickRegardlessOfThrottle(t *testing.T) {
	state := &fakeState{connectedTo: "cell-a"}
	eng := &fakeEngine{}
	collector := &fakeCollector{}
	w := NewWorker("ue-1", Config{TickIntervalS: 1, HandoverReevaluationIntervalS: 100}, straightLineTrajectory(), SpeedLow, state, eng, collector, nil, nil, nil, nil)

	w.tick(context.Background(), 0)
	w.tick(context.Background(), 1)
	w.tick(context.Background(), 2)
	require.Equal(t, 3, collector.updates)
	require.Equal(t, 1, eng.calls)
}

func TestAdvanceInterpolatesLinearlyAlongTrajectory(t *testing.T) {
	state := &fakeState{connectedTo: "cell-a"}
	w := NewWorker("ue-1", Config{TickIntervalS: 1}, straightLineTrajectory(), SpeedLow, state, &fakeEngine{}, nil, nil, nil, nil, nil)

	pos, _ := w.advance()
	require.InDelta(t, 100.0, pos.X, 1e-6, "LOW profile advances one average-spacing step (here, one full sample) per tick")
}

func TestAdvanceHighSpeedCoversMoreGroundThanLow(t *testing.T) {
	lowState := &fakeState{connectedTo: "cell-a"}
	highState := &fakeState{connectedTo: "cell-a"}
	low := NewWorker("ue-1", Config{TickIntervalS: 1}, straightLineTrajectory(), SpeedLow, lowState, &fakeEngine{}, nil, nil, nil, nil, nil)
	high := NewWorker("ue-2", Config{TickIntervalS: 1}, straightLineTrajectory(), SpeedHigh, highState, &fakeEngine{}, nil, nil, nil, nil, nil)

	low.advance()
	high.advance()
	require.Greater(t, stepFor(SpeedHigh), stepFor(SpeedLow))
	// HIGH's raw advance (10 * avgSpacing = 100s) exceeds the 20s path
	// duration and wraps exactly to the start; LOW's (10s) does not.
	require.InDelta(t, 0.0, high.cursorS, 1e-6)
	require.InDelta(t, 1*low.avgSpacingS, low.cursorS, 1e-6)
}

func TestAdvanceLoopsPathOnceDurationExceeded(t *testing.T) {
	state := &fakeState{connectedTo: "cell-a"}
	w := NewWorker("ue-1", Config{TickIntervalS: 1}, straightLineTrajectory(), SpeedHigh, state, &fakeEngine{}, nil, nil, nil, nil, nil)

	for i := 0; i < 5; i++ {
		w.advance()
	}
	require.GreaterOrEqual(t, w.cursorS, 0.0)
	require.LessOrEqual(t, w.cursorS, w.pathDurationS)
}

func TestRunExitsBetweenTicksOnStop(t *testing.T) {
	state := &fakeState{connectedTo: "cell-a"}
	w := NewWorker("ue-1", Config{TickIntervalS: 0.01}, straightLineTrajectory(), SpeedLow, state, &fakeEngine{}, nil, nil, nil, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go w.Run(ctx)
	time.Sleep(20 * time.Millisecond)
	w.Stop()

	select {
	case <-w.Done():
	case <-time.After(time.Second):
		t.Fatal("worker did not exit after Stop")
	}
}

func TestRunPersistsFinalStateOnStop(t *testing.T) {
	state := &fakeState{connectedTo: "cell-a"}
	persister := &fakePersister{}
	w := NewWorker("ue-1", Config{TickIntervalS: 0.01}, straightLineTrajectory(), SpeedLow, state, &fakeEngine{}, nil, persister, nil, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go w.Run(ctx)
	time.Sleep(20 * time.Millisecond)
	w.Stop()
	<-w.Done()

	require.True(t, persister.persisted)
	require.Equal(t, "ue-1", persister.ueID)
}
