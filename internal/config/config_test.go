package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefaultPassesValidate(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	require.Equal(t, 4.0, cfg.Channel.SigmaSFDB)
	require.Equal(t, 37.0, cfg.Channel.DecorrDistanceM)
	require.Equal(t, "auto", cfg.Engine.Mode)
	require.Equal(t, 3, cfg.PingPong.MaxHandoversPerMinute)
	require.Equal(t, -6.0, cfg.RLF.RLFThresholdDB)
	require.Equal(t, 20, cfg.RLF.InterruptionQueueCap)
}

func TestLoadAppliesDefaultsOnTopOfFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("engine:\n  mode: ml\n  hysteresis_db: 5\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "ml", cfg.Engine.Mode)
	require.Equal(t, 5.0, cfg.Engine.HysteresisDB)
	// Untouched fields still get defaults.
	require.Equal(t, 4.0, cfg.Channel.SigmaSFDB)
	require.Equal(t, 3, cfg.Engine.MinAntennasML)
}

func TestLoadRejectsEmptyPath(t *testing.T) {
	_, err := Load("")
	require.Error(t, err)
}

func TestValidateRejectsBadEngineMode(t *testing.T) {
	cfg := Default()
	cfg.Engine.Mode = "bogus"
	require.Error(t, cfg.Validate())
}

func TestValidateRejectsLowHighBelowLowThreshold(t *testing.T) {
	cfg := Default()
	cfg.QoS.HighThreshold = 0.05
	cfg.QoS.LowThreshold = 0.1
	require.Error(t, cfg.Validate())
}

func TestValidateRejectsBadPathLossModel(t *testing.T) {
	cfg := Default()
	cfg.Channel.PathLossModel = "nonsense"
	require.Error(t, cfg.Validate())
}
