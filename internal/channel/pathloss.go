package channel

import "math"

// PathLossModel computes deterministic propagation loss in dB for a given
// distance and carrier frequency. Implementations never add randomness —
// shadowing and fading are separate, explicitly-seeded concerns (see
// Model.TotalLoss).
type PathLossModel interface {
	PathLossDB(distanceM, frequencyGHz float64) float64
}

// ABGPathLoss implements the 3GPP TR 38.901 Alpha-Beta-Gamma model:
//
//	PL = 10*alpha*log10(max(1,d)) + beta + 10*gamma*log10(f_GHz)
type ABGPathLoss struct {
	Alpha float64
	Beta  float64
	Gamma float64
}

func (m ABGPathLoss) PathLossDB(distanceM, frequencyGHz float64) float64 {
	d := math.Max(1.0, distanceM)
	return 10*m.Alpha*math.Log10(d) + m.Beta + 10*m.Gamma*math.Log10(frequencyGHz)
}

// CloseInPathLoss implements the 3GPP TR 38.901 Close-In model:
//
//	PL = 32.4 + 10*n*log10(max(1,d)) + 20*log10(f_GHz)
type CloseInPathLoss struct {
	N float64
}

func (m CloseInPathLoss) PathLossDB(distanceM, frequencyGHz float64) float64 {
	d := math.Max(1.0, distanceM)
	return 32.4 + 10*m.N*math.Log10(d) + 20*math.Log10(frequencyGHz)
}
