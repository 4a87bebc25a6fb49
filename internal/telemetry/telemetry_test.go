package telemetry

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func defaultRLFConfig() RLFConfig {
	return RLFConfig{ThresholdDB: -6.0, DurationS: 1.0}
}

func defaultThroughputConfig() ThroughputConfig {
	return ThroughputConfig{
		MinDecodableSINRDB: -10.0,
		RLFThresholdDB:     -6.0,
		RLFZoneEfficiency:  0.5,
		MaxEfficiency:      6.0,
		BandwidthHz:        20e6,
	}
}

func TestRLFBoundaryIsInclusive(t *testing.T) {
	d := NewRLFDetector(defaultRLFConfig())

	_, declared := d.CheckRLF("ue-1", -8.0, 0.0, "cell-a")
	require.False(t, declared)

	_, declared = d.CheckRLF("ue-1", -8.0, 1.0, "cell-a")
	require.True(t, declared)
	require.Equal(t, 1, d.UERLFCount("ue-1"))
}

func TestRLFRecoversResetsTimer(t *testing.T) {
	d := NewRLFDetector(defaultRLFConfig())
	d.CheckRLF("ue-1", -8.0, 0.0, "cell-a")
	d.CheckRLF("ue-1", -2.0, 0.5, "cell-a")
	_, declared := d.CheckRLF("ue-1", -8.0, 1.0, "cell-a")
	require.False(t, declared, "timer should have restarted after recovery")
}

func TestRLFSuppressedDuringHandoverInterruption(t *testing.T) {
	d := NewRLFDetector(defaultRLFConfig())
	d.CheckRLF("ue-1", -8.0, 0.0, "cell-a")
	d.NotifyHandoverStart("ue-1", 0.5)

	_, declared := d.CheckRLF("ue-1", -8.0, 1.0, "cell-a")
	require.False(t, declared)
}

func TestThroughputZeroBelowMinDecodable(t *testing.T) {
	m := NewThroughputModel(defaultThroughputConfig())
	require.Zero(t, m.ThroughputMbps(-11.0, false))
}

func TestThroughputRLFZoneIsPositiveButBelowShannon(t *testing.T) {
	cfg := defaultThroughputConfig()
	m := NewThroughputModel(cfg)

	// At -9 dB the RLF zone gives 0.25 * 0.5 = 0.125 b/s/Hz (2.5 Mbps over
	// 20 MHz); Shannon gives log2(1 + 10^-0.9) ~ 0.171 b/s/Hz (~3.42 Mbps).
	rlfZone := m.ThroughputMbps(-9.0, false)
	require.Greater(t, rlfZone, 0.0)
	require.InDelta(t, 2.5, rlfZone, 1e-9)

	shannonAt := NewThroughputModel(ThroughputConfig{
		MinDecodableSINRDB: -100, RLFThresholdDB: -100,
		RLFZoneEfficiency: cfg.RLFZoneEfficiency, MaxEfficiency: cfg.MaxEfficiency, BandwidthHz: cfg.BandwidthHz,
	}).ThroughputMbps(-9.0, false)
	require.Less(t, rlfZone, shannonAt)
}

func TestThroughputZeroDuringInterruption(t *testing.T) {
	m := NewThroughputModel(defaultThroughputConfig())
	require.Zero(t, m.ThroughputMbps(20.0, true))
}

func TestInterruptionTrackerNoDoubleCounting(t *testing.T) {
	tr := NewInterruptionTracker(InterruptionConfig{DurationS: 0.05, QueueCap: 20}, nil)

	tr.RecordHandover("ue-1", "a", "b", 0.0)
	tr.RecordHandover("ue-1", "b", "c", 0.02)

	require.True(t, tr.IsInInterruption("ue-1", 0.01))
	require.InDelta(t, 0.10, tr.TotalInterruption("ue-1", 0.10), 1e-9)
}

func TestInterruptionTrackerDropsOldestOnOverflow(t *testing.T) {
	tr := NewInterruptionTracker(InterruptionConfig{DurationS: 100, QueueCap: 2}, nil)

	tr.RecordHandover("ue-1", "a", "b", 0)
	tr.RecordHandover("ue-1", "b", "c", 1)
	tr.RecordHandover("ue-1", "c", "d", 2)

	require.Equal(t, 1, tr.DroppedCount("ue-1"))
	require.Equal(t, 3, tr.HandoverCount("ue-1"))
}

func TestCollectorRecordHandoverSuppressesRLFDuringInterruption(t *testing.T) {
	c := NewCollector(defaultRLFConfig(), defaultThroughputConfig(), InterruptionConfig{DurationS: 0.05, QueueCap: 20}, nil)

	c.RecordHandover("ue-1", "a", "b", 0.0)
	snap := c.Update("ue-1", -8.0, 0.01, 0.01, "b")
	require.True(t, snap.InInterruption)
	require.Zero(t, snap.ThroughputMbps)
	require.False(t, snap.RLFDeclared)
}

func TestMetricsHandlerServesPrometheusText(t *testing.T) {
	m := NewMetrics("handoversim_test")
	m.HandoverDecisions.WithLabelValues("applied").Inc()

	require.NotPanics(t, func() {
		_ = m.Handler()
	})
}
