package network

import (
	"math/rand/v2"
	"testing"

	"github.com/nephio-oran-claude-agents/internal/domain"
	"github.com/stretchr/testify/require"
)

// fakeChannelProvider returns a caller-controlled path loss and a fixed
// shadow/fade contribution, so feature-vector math is deterministic in
// tests without depending on the real channel package.
type fakeChannelProvider struct {
	pathLossByDistance func(distanceM float64) float64
	extraLossDB        float64
}

func (f *fakeChannelProvider) PathLossDB(distanceM, _ float64) float64 {
	return f.pathLossByDistance(distanceM)
}

func (f *fakeChannelProvider) TotalLoss(_ string, pathLossDB float64, _ bool) float64 {
	return pathLossDB + f.extraLossDB
}

func newTestManager() (*Manager, *fakeChannelProvider) {
	ch := &fakeChannelProvider{pathLossByDistance: func(d float64) float64 { return d / 10.0 }}
	mgr := NewManager(ch, 50, -100.0, 100)
	return mgr, ch
}

func TestRegisterAntennaIsIdempotent(t *testing.T) {
	mgr, _ := newTestManager()
	mgr.RegisterAntenna(AntennaMeta{ID: "ant-1", TXPowerDBm: 40, CarrierFrequencyHz: 3.5e9})
	mgr.RegisterAntenna(AntennaMeta{ID: "ant-1", TXPowerDBm: 99, CarrierFrequencyHz: 1e9})

	mgr.RegisterUE("ue-1", domain.Position{}, nil)
	fv, err := mgr.FeatureVector("ue-1", 0, rand.New(rand.NewPCG(1, 2)))
	require.NoError(t, err)
	require.Len(t, fv.NeighborRSRPDBm, 1)
}

func TestResolveIDFollowsAliasesAndFallsBackToRaw(t *testing.T) {
	mgr, _ := newTestManager()
	mgr.RegisterAntenna(AntennaMeta{ID: "1", TXPowerDBm: 40})
	mgr.RegisterAlias("Antenna-One", "1")

	require.Equal(t, "1", mgr.ResolveID("Antenna-One"))
	require.Equal(t, "1", mgr.ResolveID("antenna-one"))
	require.Equal(t, "unknown-id", mgr.ResolveID("unknown-id"))
}

func TestFeatureVectorOrdersNeighborsByRSRPDescending(t *testing.T) {
	mgr, _ := newTestManager()
	mgr.RegisterAntenna(AntennaMeta{ID: "near", Position: domain.Position{X: 0}, TXPowerDBm: 40, CarrierFrequencyHz: 3.5e9})
	mgr.RegisterAntenna(AntennaMeta{ID: "far", Position: domain.Position{X: 5000}, TXPowerDBm: 40, CarrierFrequencyHz: 3.5e9})
	mgr.RegisterUE("ue-1", domain.Position{X: 0}, nil)

	fv, err := mgr.FeatureVector("ue-1", 0, rand.New(rand.NewPCG(3, 4)))
	require.NoError(t, err)
	require.Len(t, fv.NeighborRSRPDBm, 2)
	require.Equal(t, "near", fv.NeighborRSRPDBm[0].AntennaID)
	require.Equal(t, "far", fv.NeighborRSRPDBm[1].AntennaID)
	require.Greater(t, fv.NeighborRSRPDBm[0].ValueDB, fv.NeighborRSRPDBm[1].ValueDB)
}

func TestApplyHandoverSkipsWhenAlreadyConnected(t *testing.T) {
	mgr, _ := newTestManager()
	mgr.RegisterAntenna(AntennaMeta{ID: "ant-1", TXPowerDBm: 40})
	mgr.RegisterUE("ue-1", domain.Position{}, nil)

	first, err := mgr.ApplyHandover("ue-1", "ant-1", 0, 1.0, 0.5)
	require.NoError(t, err)
	require.Equal(t, domain.OutcomeApplied, first.Outcome)

	second, err := mgr.ApplyHandover("ue-1", "ant-1", 1, 1.0, 0.5)
	require.NoError(t, err)
	require.Equal(t, domain.OutcomeSkipped, second.Outcome)
}

func TestApplyHandoverRejectsUnknownAntenna(t *testing.T) {
	mgr, _ := newTestManager()
	mgr.RegisterUE("ue-1", domain.Position{}, nil)

	_, err := mgr.ApplyHandover("ue-1", "does-not-exist", 0, 1.0, 0.5)
	require.Error(t, err)
}

func TestEventsRingIsBoundedAndFIFO(t *testing.T) {
	ch := &fakeChannelProvider{pathLossByDistance: func(d float64) float64 { return d }}
	mgr := NewManager(ch, 50, -100.0, 2)
	mgr.RegisterAntenna(AntennaMeta{ID: "a"})
	mgr.RegisterAntenna(AntennaMeta{ID: "b"})
	mgr.RegisterAntenna(AntennaMeta{ID: "c"})
	mgr.RegisterUE("ue-1", domain.Position{}, nil)

	mgr.ApplyHandover("ue-1", "a", 0, 1, 0.5)
	mgr.ApplyHandover("ue-1", "b", 1, 1, 0.5)
	mgr.ApplyHandover("ue-1", "c", 2, 1, 0.5)

	events := mgr.Events()
	require.Len(t, events, 2)
	require.Equal(t, "b", events[0].To)
	require.Equal(t, "c", events[1].To)
}

func TestRecordQoSPopulatesObservedQoSOnFeatureVector(t *testing.T) {
	mgr, _ := newTestManager()
	mgr.RegisterAntenna(AntennaMeta{ID: "ant-1", TXPowerDBm: 40, CarrierFrequencyHz: 3.5e9})
	mgr.RegisterUE("ue-1", domain.Position{}, nil)
	_, err := mgr.ApplyHandover("ue-1", "ant-1", 0, 1.0, 0.0)
	require.NoError(t, err)

	require.NoError(t, mgr.RecordQoS("ue-1", domain.ObservedQoS{LatencyMs: 9, ThroughputMbps: 120}))

	fv, ferr := mgr.FeatureVector("ue-1", 0, rand.New(rand.NewPCG(9, 10)))
	require.NoError(t, ferr)
	require.NotNil(t, fv.ObservedQoS)
}
