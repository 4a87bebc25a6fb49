package channel

import (
	"math"
	"math/rand/v2"
	"testing"
)

func newTestModel() *Model {
	return NewModel(4.0, 37.0, 3.5, ABGPathLoss{Alpha: 3.5, Beta: 20.0, Gamma: 2.0})
}

func TestStationaryFadingRegeneratesAtMostOncePerTenSeconds(t *testing.T) {
	m := newTestModel()
	st := NewState()
	src := rand.New(rand.NewPCG(1, 2))

	first := m.UpdateFading(st, 0.0, 0.0, src)
	sameCoefficient := st.FadingCoefficient

	for tick := 1.0; tick < 10.0; tick += 1.0 {
		m.UpdateFading(st, 0.0, tick, src)
		if st.FadingCoefficient != sameCoefficient {
			t.Fatalf("fading regenerated before coherence time elapsed at t=%v", tick)
		}
	}
	second := m.UpdateFading(st, 0.0, 9.999, src)
	if first != second {
		t.Fatalf("stationary fading loss changed before 10s elapsed: %v vs %v", first, second)
	}

	m.UpdateFading(st, 0.0, 10.0, src)
	if st.FadingCoefficient == sameCoefficient {
		t.Fatalf("expected fading to regenerate at or after the 10s coherence boundary")
	}
}

func TestShadowingConvergesToFullCorrelationAtZeroDistance(t *testing.T) {
	m := newTestModel()
	st := NewState()
	src := rand.New(rand.NewPCG(7, 9))

	pos := Position{X: 0, Y: 0, Z: 0}
	first := m.UpdateShadowing(st, pos, src)

	// Same position on every subsequent call: rho == 1, so shadowing never
	// moves from its initial seeded value.
	for i := 0; i < 20; i++ {
		next := m.UpdateShadowing(st, pos, src)
		if math.Abs(next-first) > 1e-9 {
			t.Fatalf("expected shadowing to stay fixed at d=0 (rho=1), got %v then %v", first, next)
		}
	}
}

func TestShadowingBecomesIndependentAtLargeDistance(t *testing.T) {
	m := newTestModel()
	st := NewState()
	src := rand.New(rand.NewPCG(11, 13))

	m.UpdateShadowing(st, Position{}, src)

	const n = 20000
	samples := make([]float64, n)
	pos := Position{}
	for i := 0; i < n; i++ {
		// Move far beyond the decorrelation distance every step so rho ~ 0
		// and each draw is effectively an independent N(0, sigma_SF) sample.
		pos.X += m.DecorrDistanceM * 1000
		samples[i] = m.UpdateShadowing(st, pos, src)
	}

	var sum, sumSq float64
	for _, s := range samples {
		sum += s
		sumSq += s * s
	}
	mean := sum / n
	variance := sumSq/n - mean*mean

	if math.Abs(mean) > 0.5 {
		t.Fatalf("expected long-run shadowing mean near 0, got %v", mean)
	}
	wantVariance := m.SigmaSFDB * m.SigmaSFDB
	if math.Abs(variance-wantVariance) > 0.5 {
		t.Fatalf("expected shadowing variance near sigma_SF^2=%v, got %v", wantVariance, variance)
	}
}

func TestMeanStationaryFadingLossNearZeroDB(t *testing.T) {
	m := newTestModel()
	st := NewState()
	src := rand.New(rand.NewPCG(21, 23))

	const steps = 5000
	const dt = 10.0
	var sum float64
	for i := 0; i < steps; i++ {
		loss := m.UpdateFading(st, 0.0, float64(i)*dt, src)
		sum += loss
	}
	mean := sum / steps
	if math.Abs(mean) > 0.5 {
		t.Fatalf("expected mean stationary fading loss within ~0.5dB of 0, got %v", mean)
	}
}

func TestTotalLossCombinesPathLossShadowingAndFading(t *testing.T) {
	m := newTestModel()
	st := NewState()
	src := rand.New(rand.NewPCG(3, 4))

	m.UpdateShadowing(st, Position{X: 100}, src)
	m.UpdateFading(st, 1.0, 0.0, src)

	withFading := m.TotalLoss(st, 120.0, true)
	withoutFading := m.TotalLoss(st, 120.0, false)

	wantWithout := 120.0 + st.ShadowingDB
	if math.Abs(withoutFading-wantWithout) > 1e-9 {
		t.Fatalf("TotalLoss without fading = %v, want %v", withoutFading, wantWithout)
	}
	if math.Abs(withFading-withoutFading) < 1e-9 {
		t.Fatalf("expected fading to change total loss once present")
	}
}

func TestManagerStateForIsPerUEAndPersists(t *testing.T) {
	mgr := NewManager(newTestModel())
	src := rand.New(rand.NewPCG(5, 6))

	mgr.Update("ue-1", Position{X: 10}, 0.0, 0.0, src)
	s1 := mgr.StateFor("ue-1")
	s2 := mgr.StateFor("ue-1")
	if s1 != s2 {
		t.Fatalf("expected StateFor to return the same instance across calls")
	}

	mgr.RemoveUE("ue-1")
	s3 := mgr.StateFor("ue-1")
	if s3 == s1 {
		t.Fatalf("expected RemoveUE to drop state, forcing a fresh instance")
	}
}

func TestManagerResetAllReinitializesTrackedStates(t *testing.T) {
	mgr := NewManager(newTestModel())
	src := rand.New(rand.NewPCG(15, 16))

	mgr.Update("ue-1", Position{X: 500}, 0.0, 0.0, src)
	st := mgr.StateFor("ue-1")
	if st.ShadowingDB == 0 {
		t.Fatalf("expected shadowing to be nonzero after an update")
	}

	mgr.ResetAll()
	if st.Initialized {
		t.Fatalf("expected ResetAll to clear Initialized on tracked state")
	}
}
