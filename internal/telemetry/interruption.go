package telemetry

import (
	"log/slog"
	"sync"

	"github.com/nephio-oran-claude-agents/internal/domain"
)

// InterruptionConfig holds the handover interruption tracker's tunables
// (spec §4.11/§6/§9).
type InterruptionConfig struct {
	DurationS float64
	QueueCap  int
}

type ueInterruptionState struct {
	records        []domain.InterruptionRecord
	accumulatedS   float64
	handoverCount  int
	droppedCount   int
}

// InterruptionTracker accumulates per-UE handover interruption windows in
// a bounded FIFO. Spec §9's open question on a full queue ("drop oldest vs
// block") is resolved here as drop-oldest with a counted, logged warning.
type InterruptionTracker struct {
	cfg InterruptionConfig
	log *slog.Logger

	mu     sync.Mutex
	states map[string]*ueInterruptionState
}

// NewInterruptionTracker constructs a tracker from cfg. A nil logger
// defaults to slog.Default().
func NewInterruptionTracker(cfg InterruptionConfig, logger *slog.Logger) *InterruptionTracker {
	if cfg.QueueCap < 1 {
		cfg.QueueCap = 20
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &InterruptionTracker{cfg: cfg, log: logger, states: make(map[string]*ueInterruptionState)}
}

func (t *InterruptionTracker) stateFor(ueID string) *ueInterruptionState {
	st, ok := t.states[ueID]
	if !ok {
		st = &ueInterruptionState{}
		t.states[ueID] = st
	}
	return st
}

// RecordHandover appends an interruption window [tStart, tStart+Duration]
// for ueID. If the FIFO is already at capacity, the oldest record is
// evicted (its duration added to the accumulator first) and a warning is
// logged, per the drop-oldest resolution of spec §9.
func (t *InterruptionTracker) RecordHandover(ueID, source, target string, tStart float64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	st := t.stateFor(ueID)
	if len(st.records) >= t.cfg.QueueCap {
		evicted := st.records[0]
		st.records = st.records[1:]
		st.accumulatedS += evicted.EndTime - evicted.StartTime
		st.droppedCount++
		t.log.Warn("interruption queue full, dropping oldest record",
			slog.String("ue_id", ueID), slog.Int("queue_cap", t.cfg.QueueCap))
	}

	st.records = append(st.records, domain.InterruptionRecord{
		UEID:      ueID,
		StartTime: tStart,
		EndTime:   tStart + t.cfg.DurationS,
		Source:    source,
		Target:    target,
	})
	st.handoverCount++
}

// evictCompletedLocked removes records whose end time has passed, adding
// each one's full duration to the accumulator exactly once.
func (t *InterruptionTracker) evictCompletedLocked(st *ueInterruptionState, nowS float64) {
	kept := st.records[:0:0]
	for _, r := range st.records {
		if r.EndTime <= nowS {
			st.accumulatedS += r.EndTime - r.StartTime
			continue
		}
		kept = append(kept, r)
	}
	st.records = kept
}

// IsInInterruption evicts completed records for ueID then reports whether
// nowS falls inside any still-active interruption window.
func (t *InterruptionTracker) IsInInterruption(ueID string, nowS float64) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	st := t.stateFor(ueID)
	t.evictCompletedLocked(st, nowS)
	for _, r := range st.records {
		if r.StartTime <= nowS && nowS < r.EndTime {
			return true
		}
	}
	return false
}

// TotalInterruption returns the accumulator plus the elapsed portion of
// any still-active record (clipped to nowS) — overlap is by design not
// subtracted, so two handovers within the interruption window count as
// two separate interruptions.
func (t *InterruptionTracker) TotalInterruption(ueID string, nowS float64) float64 {
	t.mu.Lock()
	defer t.mu.Unlock()

	st := t.stateFor(ueID)
	t.evictCompletedLocked(st, nowS)

	total := st.accumulatedS
	for _, r := range st.records {
		if r.StartTime <= nowS && nowS < r.EndTime {
			total += nowS - r.StartTime
		} else {
			total += r.EndTime - r.StartTime
		}
	}
	return total
}

// HandoverCount returns the number of handovers recorded for ueID
// (independent of whether their interruption record has since been
// evicted).
func (t *InterruptionTracker) HandoverCount(ueID string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stateFor(ueID).handoverCount
}

// DroppedCount returns the number of interruption records evicted early
// due to queue capacity, for ueID.
func (t *InterruptionTracker) DroppedCount(ueID string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stateFor(ueID).droppedCount
}

// RemoveUE drops ueID's interruption tracking state entirely.
func (t *InterruptionTracker) RemoveUE(ueID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.states, ueID)
}
