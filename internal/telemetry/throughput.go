package telemetry

import "math"

// ThroughputConfig holds the SINR-to-throughput model's tunables (spec
// §4.11/§6).
type ThroughputConfig struct {
	MinDecodableSINRDB float64
	RLFThresholdDB     float64
	RLFZoneEfficiency  float64
	MaxEfficiency      float64
	BandwidthHz        float64
}

// ThroughputModel computes instantaneous downlink throughput from SINR: a
// piecewise function with a dead zone below MinDecodableSINRDB, a linearly
// interpolated RLF zone between that floor and RLFThresholdDB, and Shannon
// capacity (capped at MaxEfficiency) above it.
type ThroughputModel struct {
	cfg ThroughputConfig
}

// NewThroughputModel constructs a model from cfg.
func NewThroughputModel(cfg ThroughputConfig) *ThroughputModel {
	return &ThroughputModel{cfg: cfg}
}

// ThroughputMbps returns the instantaneous throughput in Mbps for sinrDB.
// inInterruption forces zero throughput regardless of SINR, matching a
// UE mid-handover-interruption.
func (m *ThroughputModel) ThroughputMbps(sinrDB float64, inInterruption bool) float64 {
	if inInterruption {
		return 0
	}
	if sinrDB < m.cfg.MinDecodableSINRDB {
		return 0
	}
	if sinrDB < m.cfg.RLFThresholdDB {
		rangeDB := m.cfg.RLFThresholdDB - m.cfg.MinDecodableSINRDB
		if rangeDB <= 0 {
			return 0
		}
		position := (sinrDB - m.cfg.MinDecodableSINRDB) / rangeDB
		efficiency := position * m.cfg.RLFZoneEfficiency
		return efficiency * m.cfg.BandwidthHz / 1e6
	}

	sinrLinear := math.Pow(10, sinrDB/10.0)
	efficiency := math.Log2(1 + sinrLinear)
	if efficiency > m.cfg.MaxEfficiency {
		efficiency = m.cfg.MaxEfficiency
	}
	return efficiency * m.cfg.BandwidthHz / 1e6
}
