package pingpong

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTimeSinceLastIsInfiniteForUnknownUE(t *testing.T) {
	tr := NewTracker(8)
	require.True(t, math.IsInf(tr.TimeSinceLast("ue-1", 100), 1))
}

func TestTimeSinceLastReflectsMostRecentHandover(t *testing.T) {
	tr := NewTracker(8)
	tr.RecordHandover("ue-1", "ant-a", 10.0)
	tr.RecordHandover("ue-1", "ant-b", 15.0)

	require.InDelta(t, 5.0, tr.TimeSinceLast("ue-1", 20.0), 1e-9)
}

func TestHandoversInWindowCountsOnlyWithinBound(t *testing.T) {
	tr := NewTracker(8)
	tr.RecordHandover("ue-1", "a", 0)
	tr.RecordHandover("ue-1", "b", 30)
	tr.RecordHandover("ue-1", "c", 65)

	require.Equal(t, 2, tr.HandoversInWindow("ue-1", 65, 60))
}

func TestImmediatePingPongDetectsReturnWithinWindow(t *testing.T) {
	tr := NewTracker(8)
	tr.RecordHandover("ue-1", "ant-a", 0)
	tr.RecordHandover("ue-1", "ant-b", 5)

	// candidate "ant-a" was left 5s ago, within a 10s window, and is not the
	// most-recent destination ("ant-b") -> this is a ping-pong return.
	require.True(t, tr.ImmediatePingPong("ue-1", "ant-a", 8, 10))
}

func TestImmediatePingPongFalseForMostRecentDestination(t *testing.T) {
	tr := NewTracker(8)
	tr.RecordHandover("ue-1", "ant-a", 0)
	tr.RecordHandover("ue-1", "ant-b", 5)

	// "ant-b" IS the most-recent destination, so staying/returning to it is
	// not considered a ping-pong.
	require.False(t, tr.ImmediatePingPong("ue-1", "ant-b", 8, 10))
}

func TestImmediatePingPongFalseOutsideWindow(t *testing.T) {
	tr := NewTracker(8)
	tr.RecordHandover("ue-1", "ant-a", 0)
	tr.RecordHandover("ue-1", "ant-b", 50)

	require.False(t, tr.ImmediatePingPong("ue-1", "ant-a", 55, 10))
}

func TestRecentDestinationsDequeIsBoundedAndMostRecentFirst(t *testing.T) {
	tr := NewTracker(8)
	for i := 0; i < 10; i++ {
		tr.RecordHandover("ue-1", string(rune('a'+i)), float64(i))
	}
	recent := tr.RecentDestinations("ue-1")
	require.Len(t, recent, 8)
	require.Equal(t, "j", recent[0])
}

func TestRecentDestinationsDequeHonorsConfiguredHistoryLength(t *testing.T) {
	tr := NewTracker(3)
	for i := 0; i < 10; i++ {
		tr.RecordHandover("ue-1", string(rune('a'+i)), float64(i))
	}
	recent := tr.RecentDestinations("ue-1")
	require.Len(t, recent, 3)
	require.Equal(t, "j", recent[0])
}

func TestNewTrackerDefaultsNonPositiveHistoryLength(t *testing.T) {
	tr := NewTracker(0)
	for i := 0; i < 10; i++ {
		tr.RecordHandover("ue-1", string(rune('a'+i)), float64(i))
	}
	require.Len(t, tr.RecentDestinations("ue-1"), 8)
}

func TestClearRemovesUELog(t *testing.T) {
	tr := NewTracker(8)
	tr.RecordHandover("ue-1", "a", 0)
	tr.Clear("ue-1")
	require.True(t, math.IsInf(tr.TimeSinceLast("ue-1", 10), 1))
	require.Equal(t, 0, tr.HandoversInWindow("ue-1", 10, 60))
}
