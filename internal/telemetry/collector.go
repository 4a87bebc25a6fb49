package telemetry

import (
	"log/slog"
	"sync"
)

// Snapshot is the unified per-tick telemetry result returned by
// Collector.Update (spec §4.11 "Unified update").
type Snapshot struct {
	ThroughputMbps        float64
	InInterruption        bool
	RLFDeclared           bool
	CumulativeThroughputMbpsS float64
	CumulativeTimeS       float64
	AverageThroughputMbps float64
}

// Collector integrates the RLF detector, throughput model, and
// interruption tracker behind one façade (spec C11), so the simulation
// loop has a single per-tick call to make.
type Collector struct {
	RLF           *RLFDetector
	Throughput    *ThroughputModel
	Interruptions *InterruptionTracker

	mu                sync.Mutex
	cumulativeMbpsS   map[string]float64
	cumulativeTimeS   map[string]float64
}

// NewCollector wires the three sub-collectors into one façade.
func NewCollector(rlfCfg RLFConfig, throughputCfg ThroughputConfig, interruptionCfg InterruptionConfig, logger *slog.Logger) *Collector {
	return &Collector{
		RLF:             NewRLFDetector(rlfCfg),
		Throughput:      NewThroughputModel(throughputCfg),
		Interruptions:   NewInterruptionTracker(interruptionCfg, logger),
		cumulativeMbpsS: make(map[string]float64),
		cumulativeTimeS: make(map[string]float64),
	}
}

// RecordHandover notifies every sub-collector that ueID has just executed
// a handover from source to target at tStart, per the engine's
// apply_handover-happens-before-record_handover ordering guarantee.
func (c *Collector) RecordHandover(ueID, source, target string, tStart float64) {
	c.RLF.NotifyHandoverStart(ueID, tStart)
	c.Interruptions.RecordHandover(ueID, source, target, tStart)
}

// Update advances RLF, throughput, and interruption-accumulation state for
// one tick and returns a unified Snapshot.
func (c *Collector) Update(ueID string, sinrDB, nowS, dtS float64, servingCell string) Snapshot {
	inInterruption := c.Interruptions.IsInInterruption(ueID, nowS)
	if inInterruption {
		c.RLF.NotifyHandoverStart(ueID, nowS)
	} else {
		c.RLF.NotifyHandoverComplete(ueID, nowS)
	}

	throughput := c.Throughput.ThroughputMbps(sinrDB, inInterruption)
	_, rlfDeclared := c.RLF.CheckRLF(ueID, sinrDB, nowS, servingCell)

	c.mu.Lock()
	c.cumulativeMbpsS[ueID] += throughput * dtS
	c.cumulativeTimeS[ueID] += dtS
	cumMbpsS := c.cumulativeMbpsS[ueID]
	cumTimeS := c.cumulativeTimeS[ueID]
	c.mu.Unlock()

	avg := 0.0
	if cumTimeS > 0 {
		avg = cumMbpsS / cumTimeS
	}

	return Snapshot{
		ThroughputMbps:            throughput,
		InInterruption:            inInterruption,
		RLFDeclared:               rlfDeclared,
		CumulativeThroughputMbpsS: cumMbpsS,
		CumulativeTimeS:           cumTimeS,
		AverageThroughputMbps:     avg,
	}
}

// RemoveUE drops ueID's state from every sub-collector.
func (c *Collector) RemoveUE(ueID string) {
	c.RLF.RemoveUE(ueID)
	c.Interruptions.RemoveUE(ueID)
	c.mu.Lock()
	delete(c.cumulativeMbpsS, ueID)
	delete(c.cumulativeTimeS, ueID)
	c.mu.Unlock()
}
