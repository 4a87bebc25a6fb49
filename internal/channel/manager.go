package channel

import (
	"math/rand/v2"
	"sync"
)

// Manager owns the per-UE channel State map for one topology. The map
// itself is guarded by a mutex (insert/lookup only); the State value for a
// given UE is mutated exclusively by that UE's simulation worker, so no lock
// is held across the shadowing/fading update math itself.
type Manager struct {
	model *Model

	mu     sync.Mutex
	states map[string]*State
}

// NewManager creates a Manager sharing a single Model (and thus path-loss
// parameters) across every UE.
func NewManager(model *Model) *Manager {
	return &Manager{model: model, states: make(map[string]*State)}
}

// StateFor returns the channel State for ueID, lazily creating it on first
// observation.
func (mgr *Manager) StateFor(ueID string) *State {
	mgr.mu.Lock()
	defer mgr.mu.Unlock()
	st, ok := mgr.states[ueID]
	if !ok {
		st = NewState()
		mgr.states[ueID] = st
	}
	return st
}

// Update advances shadowing and fading for ueID and returns the current
// (shadowing_db, fading_loss_db) pair.
func (mgr *Manager) Update(ueID string, pos Position, velocityMps, nowS float64, src *rand.Rand) (shadowingDB, fadingLossDB float64) {
	st := mgr.StateFor(ueID)
	shadowingDB = mgr.model.UpdateShadowing(st, pos, src)
	fadingLossDB = mgr.model.UpdateFading(st, velocityMps, nowS, src)
	return shadowingDB, fadingLossDB
}

// TotalLoss computes the total downlink loss for ueID given a path loss
// value computed by the caller (distance/frequency specific per antenna).
func (mgr *Manager) TotalLoss(ueID string, pathLossDB float64, includeFading bool) float64 {
	st := mgr.StateFor(ueID)
	return mgr.model.TotalLoss(st, pathLossDB, includeFading)
}

// PathLossDB delegates to the shared path loss model.
func (mgr *Manager) PathLossDB(distanceM, frequencyGHz float64) float64 {
	return mgr.model.PathLoss.PathLossDB(distanceM, frequencyGHz)
}

// RemoveUE deletes ueID's channel state.
func (mgr *Manager) RemoveUE(ueID string) {
	mgr.mu.Lock()
	defer mgr.mu.Unlock()
	delete(mgr.states, ueID)
}

// ResetAll reinitializes every tracked UE's channel state in place.
func (mgr *Manager) ResetAll() {
	mgr.mu.Lock()
	defer mgr.mu.Unlock()
	for _, st := range mgr.states {
		Reset(st)
	}
}

// ClearAll drops every tracked UE's channel state entirely.
func (mgr *Manager) ClearAll() {
	mgr.mu.Lock()
	defer mgr.mu.Unlock()
	mgr.states = make(map[string]*State)
}
