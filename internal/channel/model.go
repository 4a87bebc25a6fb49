// Package channel implements the per-UE RF/channel model (spec C2): path
// loss, AR(1) spatially-correlated shadowing, and Doppler-aware Rayleigh
// fast fading, reproducible per UE via the caller-supplied RNG.
package channel

import (
	"math"
	"math/cmplx"
	"math/rand/v2"
)

const (
	// MinVelocityMps is the threshold below which a UE is treated as
	// stationary for Doppler purposes (slower than walking pace).
	MinVelocityMps = 0.1

	// StationaryCoherenceTimeS is the fading regeneration interval applied
	// to stationary UEs.
	StationaryCoherenceTimeS = 10.0

	// SpeedOfLightMps is used in the Doppler frequency calculation.
	SpeedOfLightMps = 3e8

	// epsilon avoids log10(0) in the fading-loss calculation.
	epsilon = 1e-10

	// rayleighMeanCompensationDB is 10*gamma/ln(10) for the
	// Euler-Mascheroni constant gamma, compensating the mean of
	// -10*log10(|h|^2) for a unit-variance Rayleigh coefficient so the
	// long-run mean fading loss is ~0 dB.
	rayleighMeanCompensationDB = 2.5066
)

// Position is a 3D point in meters.
type Position struct {
	X, Y, Z float64
}

// DistanceTo returns the Euclidean distance between two positions.
func (p Position) DistanceTo(o Position) float64 {
	dx, dy, dz := p.X-o.X, p.Y-o.Y, p.Z-o.Z
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}

// State is the per-UE channel state described in spec §3. It is owned
// exclusively by the UE's simulation worker; cross-UE access never occurs.
type State struct {
	ShadowingDB          float64
	LastPosition         Position
	FadingCoefficient    complex128
	LastFadingUpdateTime float64
	CoherenceTimeS       float64
	Initialized          bool
}

// NewState returns a freshly-lazily-initialized channel state, matching the
// "created lazily on first observation" lifecycle rule in spec §3.
func NewState() *State {
	return &State{
		FadingCoefficient: complex(1, 0),
		CoherenceTimeS:    StationaryCoherenceTimeS,
	}
}

// Model holds the shared, config-derived parameters for a channel; the
// mutable per-UE state lives in State, passed explicitly on every call so a
// single Model instance can serve every UE in the topology.
type Model struct {
	SigmaSFDB           float64
	DecorrDistanceM     float64
	CarrierFrequencyHz  float64
	PathLoss            PathLossModel
}

// NewModel constructs a Model. carrierFrequencyGHz is converted to Hz once
// so UpdateFading can compute Doppler shift directly.
func NewModel(sigmaSFDB, decorrDistanceM, carrierFrequencyGHz float64, pathLoss PathLossModel) *Model {
	return &Model{
		SigmaSFDB:          sigmaSFDB,
		DecorrDistanceM:    decorrDistanceM,
		CarrierFrequencyHz: carrierFrequencyGHz * 1e9,
		PathLoss:           pathLoss,
	}
}

// UpdateShadowing advances the AR(1) shadowing process for a new UE position
// and returns the updated value in dB. On the first call for a UE it seeds
// shadowing from N(0, sigma_SF) rather than zero, avoiding an
// under-dispersed first sample.
func (m *Model) UpdateShadowing(st *State, pos Position, src *rand.Rand) float64 {
	if !st.Initialized {
		st.ShadowingDB = src.NormFloat64() * m.SigmaSFDB
		st.LastPosition = pos
		st.Initialized = true
		return st.ShadowingDB
	}

	d := st.LastPosition.DistanceTo(pos)
	rho := math.Exp(-d / m.DecorrDistanceM)
	innovationScale := math.Sqrt(1 - rho*rho)
	innovation := src.NormFloat64() * m.SigmaSFDB

	st.ShadowingDB = rho*st.ShadowingDB + innovationScale*innovation
	st.LastPosition = pos
	return st.ShadowingDB
}

// UpdateFading advances the Doppler-aware Rayleigh fading process at
// simulation time nowS for the given velocity, regenerating the fading
// coefficient once its coherence time has elapsed, and returns the current
// mean-compensated fading loss in dB.
func (m *Model) UpdateFading(st *State, velocityMps, nowS float64, src *rand.Rand) float64 {
	if velocityMps < MinVelocityMps {
		st.CoherenceTimeS = StationaryCoherenceTimeS
	} else {
		dopplerHz := velocityMps * m.CarrierFrequencyHz / SpeedOfLightMps
		st.CoherenceTimeS = 9.0 / (16.0 * math.Pi * dopplerHz)
	}

	if nowS-st.LastFadingUpdateTime >= st.CoherenceTimeS {
		generateFading(st, src)
		st.LastFadingUpdateTime = nowS
	}

	return fadingLossDB(st)
}

func generateFading(st *State, src *rand.Rand) {
	real := src.NormFloat64()
	imag := src.NormFloat64()
	st.FadingCoefficient = complex(real, imag) / math.Sqrt2
}

func fadingLossDB(st *State) float64 {
	power := cmplx.Abs(st.FadingCoefficient)
	power *= power
	lossDB := -10 * math.Log10(power+epsilon)
	return lossDB - rayleighMeanCompensationDB
}

// TotalLoss returns path_loss + shadowing + fading, in dB, all positive =
// weaker signal (path loss is always positive; shadowing and fading are
// signed deviations).
func (m *Model) TotalLoss(st *State, pathLossDB float64, includeFading bool) float64 {
	total := pathLossDB + st.ShadowingDB
	if includeFading {
		total += fadingLossDB(st)
	}
	return total
}

// Reset clears a UE's channel state back to its lazily-initialized zero
// value, matching the "cleared on UE removal or explicit reset" rule.
func Reset(st *State) {
	*st = *NewState()
}
