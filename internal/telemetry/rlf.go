// Package telemetry implements the metrics/RLF/interruption collector
// (spec C11): the T310-style radio-link-failure timer, the SINR-to-
// throughput model, the per-UE handover interruption FIFO, and the
// Prometheus export of the external metrics surface (spec §6).
package telemetry

import (
	"sync"

	"github.com/nephio-oran-claude-agents/internal/domain"
)

// RLFConfig holds the RLF detector's tunables (spec §4.11/§6).
type RLFConfig struct {
	ThresholdDB float64
	DurationS   float64
}

type ueRLFState struct {
	timerStartS       float64
	timerRunning      bool
	inInterruption    bool
	rlfCount          int
	lastSINRDB        float64
}

// RLFDetector implements the T310-style radio link failure timer (spec
// §4.11): a per-UE timer starts when SINR drops below threshold and, once
// it has run for DurationS (inclusive boundary), declares an RLF event.
// A running timer is cleared when a handover interruption starts, and no
// check runs until the interruption completes.
type RLFDetector struct {
	cfg RLFConfig

	mu     sync.Mutex
	states map[string]*ueRLFState
	events []domain.RLFEvent
}

// NewRLFDetector constructs a detector for the given thresholds.
func NewRLFDetector(cfg RLFConfig) *RLFDetector {
	return &RLFDetector{cfg: cfg, states: make(map[string]*ueRLFState)}
}

func (d *RLFDetector) stateFor(ueID string) *ueRLFState {
	st, ok := d.states[ueID]
	if !ok {
		st = &ueRLFState{}
		d.states[ueID] = st
	}
	return st
}

// NotifyHandoverStart marks ueID as being in a handover interruption and
// clears any running RLF timer — a handover gets a fresh RLF window.
func (d *RLFDetector) NotifyHandoverStart(ueID string, nowS float64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	st := d.stateFor(ueID)
	st.inInterruption = true
	st.timerRunning = false
}

// NotifyHandoverComplete clears ueID's interruption flag, resuming RLF
// detection on the next CheckRLF call.
func (d *RLFDetector) NotifyHandoverComplete(ueID string, _ float64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stateFor(ueID).inInterruption = false
}

// CheckRLF advances ueID's RLF timer for one observation of sinrDB at
// nowS and reports whether an RLF was just declared. The boundary
// duration >= DurationS is inclusive, matching the teacher's T310
// semantics; no check runs while the UE is in a handover interruption.
func (d *RLFDetector) CheckRLF(ueID string, sinrDB, nowS float64, servingCell string) (domain.RLFEvent, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	st := d.stateFor(ueID)
	st.lastSINRDB = sinrDB

	if st.inInterruption {
		return domain.RLFEvent{}, false
	}

	if sinrDB < d.cfg.ThresholdDB {
		if !st.timerRunning {
			st.timerRunning = true
			st.timerStartS = nowS
			return domain.RLFEvent{}, false
		}
		duration := nowS - st.timerStartS
		if duration >= d.cfg.DurationS {
			st.timerRunning = false
			st.rlfCount++
			event := domain.RLFEvent{
				UEID:        ueID,
				TimestampS:  nowS,
				DurationS:   duration,
				SINRDB:      sinrDB,
				ServingCell: servingCell,
				RLFNumber:   st.rlfCount,
			}
			d.events = append(d.events, event)
			return event, true
		}
		return domain.RLFEvent{}, false
	}

	st.timerRunning = false
	return domain.RLFEvent{}, false
}

// UERLFCount returns ueID's cumulative RLF count.
func (d *RLFDetector) UERLFCount(ueID string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	if st, ok := d.states[ueID]; ok {
		return st.rlfCount
	}
	return 0
}

// TotalRLFCount sums RLF counts across every tracked UE.
func (d *RLFDetector) TotalRLFCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	total := 0
	for _, st := range d.states {
		total += st.rlfCount
	}
	return total
}

// Events returns a copy of every declared RLF event, oldest first.
func (d *RLFDetector) Events() []domain.RLFEvent {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]domain.RLFEvent, len(d.events))
	copy(out, d.events)
	return out
}

// RemoveUE drops ueID's RLF tracking state.
func (d *RLFDetector) RemoveUE(ueID string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.states, ueID)
}
