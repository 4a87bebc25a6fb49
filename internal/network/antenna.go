// Package network implements the network state manager (spec C3): the
// antenna registry, per-UE state, feature-vector assembly, and the
// synthetic QoS simulator that feeds it.
package network

import "github.com/nephio-oran-claude-agents/internal/domain"

// AntennaMeta describes one antenna. It is immutable once registered.
type AntennaMeta struct {
	ID                 string
	Position           domain.Position
	TXPowerDBm         float64
	HeightM            float64
	AzimuthDeg         float64
	TiltDeg            float64
	Band               string
	CarrierFrequencyHz float64
	CoverageRadiusM    float64
}

// CarrierFrequencyGHz is a convenience accessor for path-loss calls, which
// take frequency in GHz.
func (a AntennaMeta) CarrierFrequencyGHz() float64 {
	return a.CarrierFrequencyHz / 1e9
}
