package network

import (
	"fmt"
	"math"
	"math/rand/v2"
	"sort"
	"strings"
	"sync"

	"github.com/nephio-oran-claude-agents/internal/channel"
	"github.com/nephio-oran-claude-agents/internal/domain"
)

// ChannelProvider is the subset of *channel.Manager the network state
// manager depends on: reading the current shared shadow/fade sample for a
// UE and computing path loss for a given antenna.
type ChannelProvider interface {
	PathLossDB(distanceM, frequencyGHz float64) float64
	TotalLoss(ueID string, pathLossDB float64, includeFading bool) float64
}

// PingPongProvider supplies the two ping-pong-derived scalars that belong
// on a feature vector; the engine's suppression logic queries the same
// tracker directly for the full veto decision.
type PingPongProvider interface {
	TimeSinceLast(ueID string, nowS float64) float64
	HandoversInWindow(ueID string, nowS, windowS float64) int
}

// TrajectoryPoint is one (time, position) sample of a UE's path.
type TrajectoryPoint struct {
	TimeS    float64
	Position domain.Position
}

// ueState is the mutable per-UE record held by Manager.
type ueState struct {
	id          string
	position    domain.Position
	speed       float64
	connectedTo string
	trajectory  []TrajectoryPoint
	declaredQoS *domain.DeclaredQoS

	mobility     *mobilityTracker
	qosWindow    *qosRollingWindow
	lastSpeed    float64
	lastSpeedSet bool
}

// Manager holds the antenna registry, per-UE state, and a bounded ring of
// handover events (spec C3). One mutex guards the antenna map and the UE
// map; per-UE channel updates happen outside this lock via ChannelProvider.
type Manager struct {
	mu       sync.Mutex
	antennas map[string]AntennaMeta
	order    []string // registration order, for stable iteration
	aliases  map[string]string
	ues      map[string]*ueState

	resourceBlocks int
	noiseFloorDBm  float64

	channelProvider  ChannelProvider
	pingPongProvider PingPongProvider

	events    []domain.HandoverEvent
	eventsCap int
}

// NewManager constructs a network state manager. resourceBlocks defaults to
// 1 if given as 0 or negative. eventsCap bounds the global handover-event
// ring; a value of 0 or below falls back to a cap of 1000.
func NewManager(channelProvider ChannelProvider, resourceBlocks int, noiseFloorDBm float64, eventsCap int) *Manager {
	if resourceBlocks < 1 {
		resourceBlocks = 1
	}
	if eventsCap < 1 {
		eventsCap = 1000
	}
	return &Manager{
		antennas:        make(map[string]AntennaMeta),
		aliases:         make(map[string]string),
		ues:             make(map[string]*ueState),
		resourceBlocks:  resourceBlocks,
		noiseFloorDBm:   noiseFloorDBm,
		channelProvider: channelProvider,
		eventsCap:       eventsCap,
	}
}

// SetPingPongProvider wires the ping-pong tracker used to populate
// time_since_last_handover / handover_count_in_last_minute on feature
// vectors. Optional: a nil provider leaves those fields at their zero
// value (+Inf / 0).
func (m *Manager) SetPingPongProvider(p PingPongProvider) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pingPongProvider = p
}

// RegisterAntenna adds an antenna to the topology. A no-op if the id is
// already registered, per spec (antennas are immutable once registered).
func (m *Manager) RegisterAntenna(meta AntennaMeta) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.antennas[meta.ID]; ok {
		return
	}
	m.antennas[meta.ID] = meta
	m.order = append(m.order, meta.ID)
}

// AntennaCount reports the number of antennas currently registered in the
// topology, used by the engine's auto mode-selection threshold.
func (m *Manager) AntennaCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.antennas)
}

// RegisterAlias maps alias to canonical, case-insensitively. A no-op if
// either is empty.
func (m *Manager) RegisterAlias(alias, canonical string) {
	if alias == "" || canonical == "" {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.aliases[alias] = canonical
	m.aliases[strings.ToLower(alias)] = canonical
}

// ResolveID returns the canonical antenna id for s, following registered
// aliases (direct, then lower-cased, then a digits-only "antennaN" match),
// and falling back to the raw string if nothing resolves.
func (m *Manager) ResolveID(s string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.resolveIDLocked(s)
}

func (m *Manager) resolveIDLocked(s string) string {
	if s == "" {
		return s
	}
	if _, ok := m.antennas[s]; ok {
		return s
	}
	if canon, ok := m.aliases[s]; ok {
		if _, ok := m.antennas[canon]; ok {
			return canon
		}
	}
	lowered := strings.ToLower(s)
	if canon, ok := m.aliases[lowered]; ok {
		if _, ok := m.antennas[canon]; ok {
			return canon
		}
	}
	if strings.HasPrefix(lowered, "antenna") {
		var digits strings.Builder
		for _, r := range s {
			if r >= '0' && r <= '9' {
				digits.WriteRune(r)
			}
		}
		if digits.Len() > 0 {
			if _, ok := m.antennas[digits.String()]; ok {
				return digits.String()
			}
		}
	}
	return s
}

// RegisterUE creates a UE entity with an initial position and trajectory.
func (m *Manager) RegisterUE(ueID string, initial domain.Position, trajectory []TrajectoryPoint) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ues[ueID] = &ueState{
		id:         ueID,
		position:   initial,
		trajectory: trajectory,
		mobility:   newMobilityTracker(),
		qosWindow:  newQoSRollingWindow(20),
	}
}

// RemoveUE deletes a UE entity; callers are responsible for persisting its
// last known position before calling this.
func (m *Manager) RemoveUE(ueID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.ues, ueID)
}

// SetDeclaredQoS attaches (or clears, with nil) a service-level requirement
// to a UE, surfaced on subsequent feature vectors.
func (m *Manager) SetDeclaredQoS(ueID string, qos *domain.DeclaredQoS) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	st, ok := m.ues[ueID]
	if !ok {
		return fmt.Errorf("UE %s not found", ueID)
	}
	st.declaredQoS = qos
	return nil
}

// UpdatePosition advances a UE's position and speed, typically called once
// per simulation tick by the owning worker before FeatureVector.
func (m *Manager) UpdatePosition(ueID string, pos domain.Position, speedMps float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	st, ok := m.ues[ueID]
	if !ok {
		return fmt.Errorf("UE %s not found", ueID)
	}
	st.position = pos
	st.speed = speedMps
	return nil
}

// Position returns a UE's current position and ok=false if unknown.
func (m *Manager) Position(ueID string) (domain.Position, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	st, ok := m.ues[ueID]
	if !ok {
		return domain.Position{}, false
	}
	return st.position, true
}

// ConnectedTo returns a UE's current serving antenna (possibly empty).
func (m *Manager) ConnectedTo(ueID string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	st, ok := m.ues[ueID]
	if !ok {
		return "", false
	}
	return st.connectedTo, true
}

// Trajectory returns a copy of the UE's recorded trajectory samples.
func (m *Manager) Trajectory(ueID string) ([]TrajectoryPoint, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	st, ok := m.ues[ueID]
	if !ok {
		return nil, false
	}
	out := make([]TrajectoryPoint, len(st.trajectory))
	copy(out, st.trajectory)
	return out, true
}

// NearestAntenna returns the id of the antenna closest to pos, or "" if no
// antennas are registered.
func (m *Manager) NearestAntenna(pos domain.Position) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	best := ""
	bestDist := math.Inf(1)
	for _, id := range m.order {
		a := m.antennas[id]
		d := a.Position.DistanceTo(pos)
		if d < bestDist {
			bestDist = d
			best = id
		}
	}
	return best
}

// FeatureVector assembles the per-tick feature vector for ueID (spec
// 4.3 step 1-7). nowS is the current simulation time, used to populate
// time_since_last_handover and handover_count_in_last_minute via the wired
// PingPongProvider, and qosRNG drives the synthetic QoS simulator's noise.
func (m *Manager) FeatureVector(ueID string, nowS float64, qosRNG *rand.Rand) (domain.FeatureVector, error) {
	m.mu.Lock()

	st, ok := m.ues[ueID]
	if !ok {
		m.mu.Unlock()
		return domain.FeatureVector{}, fmt.Errorf("UE %s not found", ueID)
	}

	resolved := m.resolveIDLocked(st.connectedTo)
	st.connectedTo = resolved

	type antennaView struct {
		id       string
		distance float64
		freqGHz  float64
		txPower  float64
	}
	views := make([]antennaView, 0, len(m.antennas))
	for _, id := range m.order {
		a := m.antennas[id]
		views = append(views, antennaView{
			id:       id,
			distance: a.Position.DistanceTo(st.position),
			freqGHz:  a.CarrierFrequencyGHz(),
			txPower:  a.TXPowerDBm,
		})
	}

	antennaLoads := make(map[string]int, len(m.antennas))
	for id := range m.antennas {
		antennaLoads[id] = 0
	}
	for _, u := range m.ues {
		conn := m.resolveIDLocked(u.connectedTo)
		u.connectedTo = conn
		if _, ok := antennaLoads[conn]; ok {
			antennaLoads[conn]++
		}
	}

	speed := st.speed
	m.mu.Unlock()

	rsrpDBm := make(map[string]float64, len(views))
	rsrpMW := make(map[string]float64, len(views))
	for _, v := range views {
		pathLossDB := m.channelProvider.PathLossDB(v.distance, v.freqGHz)
		totalLoss := m.channelProvider.TotalLoss(ueID, pathLossDB, true)
		rsrp := v.txPower - totalLoss
		rsrpDBm[v.id] = rsrp
		rsrpMW[v.id] = math.Pow(10, rsrp/10.0)
	}

	noiseMW := math.Pow(10, m.noiseFloorDBm/10.0)
	var totalMW float64
	for _, v := range rsrpMW {
		totalMW += v
	}

	sinrDB := make(map[string]float64, len(views))
	rsrqDB := make(map[string]float64, len(views))
	for _, v := range views {
		sig := rsrpMW[v.id]
		interf := totalMW - sig
		denom := noiseMW + interf
		if denom > 0 && sig/denom > 0 {
			sinrDB[v.id] = 10 * math.Log10(sig/denom)
		} else {
			sinrDB[v.id] = math.Inf(-1)
		}

		rssi := sig + denom
		if rssi > 0 {
			rsrqLin := (float64(m.resourceBlocks) * sig) / rssi
			if rsrqLin > 0 {
				rsrqDB[v.id] = 10 * math.Log10(rsrqLin)
			} else {
				rsrqDB[v.id] = math.Inf(-1)
			}
		} else {
			rsrqDB[v.id] = math.Inf(-1)
		}
	}

	ordered := make([]string, len(views))
	for i, v := range views {
		ordered[i] = v.id
	}
	sort.Slice(ordered, func(i, j int) bool { return rsrpDBm[ordered[i]] > rsrpDBm[ordered[j]] })

	fv := domain.FeatureVector{
		UEID:        ueID,
		Latitude:    st.position.X,
		Longitude:   st.position.Y,
		Altitude:    st.position.Z,
		Speed:       speed,
		ConnectedTo: resolved,
	}
	for _, id := range ordered {
		fv.NeighborRSRPDBm = append(fv.NeighborRSRPDBm, domain.AntennaMetric{AntennaID: id, ValueDB: rsrpDBm[id]})
		fv.NeighborSINRDB = append(fv.NeighborSINRDB, domain.AntennaMetric{AntennaID: id, ValueDB: sinrDB[id]})
		fv.NeighborRSRQDB = append(fv.NeighborRSRQDB, domain.AntennaMetric{AntennaID: id, ValueDB: rsrqDB[id]})
		fv.NeighborCellLoads = append(fv.NeighborCellLoads, domain.AntennaLoad{AntennaID: id, Load: antennaLoads[id]})
	}

	m.mu.Lock()
	hcr, curvature, stability := st.mobility.update(st.position.X, st.position.Y)
	var accel float64
	if st.lastSpeedSet {
		accel = speed - st.lastSpeed
	}
	st.lastSpeed = speed
	st.lastSpeedSet = true
	declared := st.declaredQoS
	m.mu.Unlock()

	fv.HeadingChangeRate = hcr
	fv.PathCurvature = curvature
	fv.Stability = stability
	fv.Acceleration = accel
	fv.DeclaredQoS = declared

	if m.pingPongProvider != nil {
		fv.TimeSinceLastHandover = m.pingPongProvider.TimeSinceLast(ueID, nowS)
		fv.HandoverCountLastMin = m.pingPongProvider.HandoversInWindow(ueID, nowS, 60.0)
	} else {
		fv.TimeSinceLastHandover = math.Inf(1)
	}

	if servingRSRP, ok := fv.ServingRSRP(); ok && resolved != "" {
		sim := newQoSSimulator(qosRNG)
		snapshot := sim.estimate(qosSimulatorContext{
			servingRSRPDBm: servingRSRP,
			servingLoad:    fv.ServingLoad(),
			speed:          speed,
		})
		if snapshot != nil {
			m.mu.Lock()
			st.qosWindow.record(*snapshot)
			m.mu.Unlock()
		}
	}

	m.mu.Lock()
	fv.ObservedQoS = st.qosWindow.latest()
	m.mu.Unlock()

	return fv, nil
}

// ApplyHandover moves ueID to targetID (resolving aliases first). If the
// resolved target equals the current serving cell it returns an event
// with outcome "skipped" and a nil error; an unregistered target returns an
// error the engine should treat as unknown_target.
func (m *Manager) ApplyHandover(ueID, targetID string, nowS, confidence, requiredConfidence float64) (domain.HandoverEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	st, ok := m.ues[ueID]
	if !ok {
		return domain.HandoverEvent{}, fmt.Errorf("UE %s not found", ueID)
	}

	prev := m.resolveIDLocked(st.connectedTo)
	st.connectedTo = prev
	resolvedTarget := m.resolveIDLocked(targetID)

	if resolvedTarget == prev {
		return domain.HandoverEvent{
			UEID: ueID, From: prev, To: resolvedTarget, TimestampS: nowS,
			Outcome: domain.OutcomeSkipped, Confidence: confidence, RequiredConfidence: requiredConfidence,
		}, nil
	}

	if _, ok := m.antennas[resolvedTarget]; !ok {
		return domain.HandoverEvent{}, fmt.Errorf("antenna %s unknown", targetID)
	}

	st.connectedTo = resolvedTarget
	event := domain.HandoverEvent{
		UEID: ueID, From: prev, To: resolvedTarget, TimestampS: nowS,
		Outcome: domain.OutcomeApplied, Confidence: confidence, RequiredConfidence: requiredConfidence,
	}
	m.recordEventLocked(event)
	return event, nil
}

// Attach sets ueID's serving cell directly, without recording a handover
// event, for the simulation loop's first-tick initial attach (spec
// §4.10: "no handover event is counted"). A no-op if ueID already has a
// non-empty connected_to.
func (m *Manager) Attach(ueID, antennaID string, nowS float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	st, ok := m.ues[ueID]
	if !ok {
		return fmt.Errorf("UE %s not found", ueID)
	}
	if st.connectedTo != "" {
		return nil
	}
	resolved := m.resolveIDLocked(antennaID)
	if _, ok := m.antennas[resolved]; !ok {
		return fmt.Errorf("antenna %s unknown", antennaID)
	}
	st.connectedTo = resolved
	return nil
}

// RecordSuppressed appends a suppressed-outcome event to the global ring
// without mutating UE state. Used by the engine so suppressed decisions
// remain visible through Events().
func (m *Manager) RecordSuppressed(ueID, candidate string, nowS, confidence, requiredConfidence float64, reason domain.SuppressionReason) domain.HandoverEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	st := m.ues[ueID]
	from := ""
	if st != nil {
		from = st.connectedTo
	}
	event := domain.HandoverEvent{
		UEID: ueID, From: from, To: candidate, TimestampS: nowS,
		Outcome: domain.OutcomeSuppressed, SuppressionReason: reason,
		Confidence: confidence, RequiredConfidence: requiredConfidence,
	}
	m.recordEventLocked(event)
	return event
}

func (m *Manager) recordEventLocked(e domain.HandoverEvent) {
	m.events = append(m.events, e)
	if len(m.events) > m.eventsCap {
		m.events = m.events[len(m.events)-m.eventsCap:]
	}
}

// Events returns a copy of the global bounded handover-event ring.
func (m *Manager) Events() []domain.HandoverEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.HandoverEvent, len(m.events))
	copy(out, m.events)
	return out
}

// RecordQoS updates ueID's observed-QoS rolling window directly (spec
// "record_qos"), e.g. from an externally reported /qos-feedback sample.
func (m *Manager) RecordQoS(ueID string, metrics domain.ObservedQoS) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	st, ok := m.ues[ueID]
	if !ok {
		return fmt.Errorf("UE %s not found", ueID)
	}
	st.qosWindow.record(metrics)
	return nil
}
