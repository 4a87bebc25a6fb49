// Package config provides configuration management for the handover decision
// engine. It implements memory-efficient struct layouts and comprehensive
// validation for every tunable named in the engine's configuration surface.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the main application configuration with memory-optimized
// layout. Fields are ordered by size (largest to smallest) to minimize
// memory padding.
type Config struct {
	// Nested structs
	Server     ServerConfig     `yaml:"server"`
	Monitoring MonitoringConfig `yaml:"monitoring"`
	Channel    ChannelConfig    `yaml:"channel"`
	Engine     EngineConfig     `yaml:"engine"`
	PingPong   PingPongConfig   `yaml:"pingpong"`
	QoS        QoSConfig        `yaml:"adaptive_qos"`
	RLF        RLFConfig        `yaml:"rlf"`
	Predictor  PredictorConfig  `yaml:"predictor"`

	// Smaller fields last
	Environment string `yaml:"environment"`
	LogLevel    string `yaml:"log_level"`
}

// ServerConfig contains HTTP server configuration for the §6 external
// interface surface (mode/handover/state/predict-stub/qos-feedback).
type ServerConfig struct {
	// Duration fields first (int64)
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	// Integer fields
	Port           int `yaml:"port"`
	MaxHeaderBytes int `yaml:"max_header_bytes"`

	// String fields
	Host string `yaml:"host"`
}

// MonitoringConfig contains the Prometheus scrape surface configuration.
type MonitoringConfig struct {
	Port        int    `yaml:"port"`
	MetricsPath string `yaml:"metrics_path"`
	HealthPath  string `yaml:"health_path"`
}

// ChannelConfig holds the RF/channel model tunables from spec §4.2/§6.
type ChannelConfig struct {
	SigmaSFDB           float64 `yaml:"sigma_sf_db"`
	DecorrDistanceM     float64 `yaml:"decorr_distance_m"`
	CarrierFrequencyGHz float64 `yaml:"carrier_frequency_ghz"`
	NoiseFloorDBm       float64 `yaml:"noise_floor_dbm"`
	ResourceBlocks      int     `yaml:"resource_blocks"`
	PathLossModel       string  `yaml:"path_loss_model"` // "abg" or "close_in"

	ABG     ABGParams     `yaml:"abg"`
	CloseIn CloseInParams `yaml:"close_in"`
}

// ABGParams configures the Alpha-Beta-Gamma path loss model.
type ABGParams struct {
	Alpha float64 `yaml:"alpha"`
	Beta  float64 `yaml:"beta"`
	Gamma float64 `yaml:"gamma"`
}

// CloseInParams configures the Close-In path loss model.
type CloseInParams struct {
	N float64 `yaml:"n"`
}

// EngineConfig holds handover engine tunables from spec §4.9/§6.
type EngineConfig struct {
	HandoverReevaluationIntervalS time.Duration `yaml:"handover_reevaluation_interval_s"`

	MinAntennasML int     `yaml:"min_antennas_ml"`
	HysteresisDB  float64 `yaml:"hysteresis_db"`
	TTTSeconds    float64 `yaml:"ttt_seconds"`
	RSRQFloorDB   float64 `yaml:"rsrq_floor_db"`

	Mode      string `yaml:"mode"` // "ml", "a3", "auto"
	EventType string `yaml:"event_type"` // "rsrp_based", "rsrq_based", "mixed"
}

// PingPongConfig holds the ping-pong prevention tunables from spec §4.4/§6.
type PingPongConfig struct {
	MinHandoverIntervalS           float64 `yaml:"min_handover_interval_s"`
	PingPongWindowS                float64 `yaml:"pingpong_window_s"`
	PingPongConfidenceBoost        float64 `yaml:"pingpong_confidence_boost"`
	DefaultImmediateReturnConfidence float64 `yaml:"default_immediate_return_confidence"`

	MaxHandoversPerMinute int `yaml:"max_handovers_per_minute"`
	HistoryLength         int `yaml:"history_length"`
}

// QoSConfig holds the adaptive QoS threshold manager tunables from spec
// §4.7/§6.
type QoSConfig struct {
	Alpha         float64 `yaml:"alpha"`
	BoostFactor   float64 `yaml:"boost_factor"`
	RelaxFactor   float64 `yaml:"relax_factor"`
	MaxBoost      float64 `yaml:"max_boost"`
	MaxRelax      float64 `yaml:"max_relax"`
	HighThreshold float64 `yaml:"high_threshold"`
	LowThreshold  float64 `yaml:"low_threshold"`
}

// RLFConfig holds the RLF/throughput/interruption tunables from spec
// §4.11/§6.
type RLFConfig struct {
	InterruptionDurationS time.Duration `yaml:"interruption_duration_s"`
	RLFDurationS          float64       `yaml:"rlf_duration_s"`

	RLFThresholdDB     float64 `yaml:"rlf_threshold_db"`
	MinDecodableSINRDB float64 `yaml:"min_decodable_sinr_db"`
	RLFZoneEfficiency  float64 `yaml:"rlf_zone_efficiency"`
	MaxEfficiency      float64 `yaml:"max_efficiency"`
	BandwidthHz        float64 `yaml:"bandwidth_hz"`

	InterruptionQueueCap int `yaml:"interruption_queue_cap"`
}

// PredictorConfig configures the Predictor capability's retry/fallback
// policy (spec §4.6/§7).
type PredictorConfig struct {
	RequestTimeout time.Duration `yaml:"request_timeout"`

	MaxConsecutiveFailures int    `yaml:"max_consecutive_failures"`
	Endpoint               string `yaml:"endpoint"`
}

// Load reads and parses configuration from the specified file.
func Load(filepath string) (*Config, error) {
	if filepath == "" {
		return nil, fmt.Errorf("configuration file path cannot be empty")
	}

	data, err := os.ReadFile(filepath)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file %s: %w", filepath, err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse configuration file %s: %w", filepath, err)
	}

	cfg.SetDefaults()

	return cfg, nil
}

// Default returns a Config populated entirely with documented defaults.
func Default() *Config {
	cfg := &Config{}
	cfg.SetDefaults()
	return cfg
}

// SetDefaults applies default values for every unspecified configuration
// field, per the enumerated defaults in spec §6.
func (c *Config) SetDefaults() {
	// Server defaults
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.Host == "" {
		c.Server.Host = "0.0.0.0"
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = 10 * time.Second
	}
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = 10 * time.Second
	}
	if c.Server.IdleTimeout == 0 {
		c.Server.IdleTimeout = 60 * time.Second
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = 30 * time.Second
	}
	if c.Server.MaxHeaderBytes == 0 {
		c.Server.MaxHeaderBytes = 1 << 20
	}

	// Monitoring defaults
	if c.Monitoring.Port == 0 {
		c.Monitoring.Port = 9090
	}
	if c.Monitoring.MetricsPath == "" {
		c.Monitoring.MetricsPath = "/metrics"
	}
	if c.Monitoring.HealthPath == "" {
		c.Monitoring.HealthPath = "/healthz"
	}

	// Channel defaults
	if c.Channel.SigmaSFDB == 0 {
		c.Channel.SigmaSFDB = 4.0
	}
	if c.Channel.DecorrDistanceM == 0 {
		c.Channel.DecorrDistanceM = 37.0
	}
	if c.Channel.CarrierFrequencyGHz == 0 {
		c.Channel.CarrierFrequencyGHz = 3.5
	}
	if c.Channel.NoiseFloorDBm == 0 {
		c.Channel.NoiseFloorDBm = -100.0
	}
	if c.Channel.ResourceBlocks == 0 {
		c.Channel.ResourceBlocks = 50
	}
	if c.Channel.PathLossModel == "" {
		c.Channel.PathLossModel = "abg"
	}
	if c.Channel.ABG.Alpha == 0 {
		c.Channel.ABG.Alpha = 3.5
	}
	if c.Channel.ABG.Beta == 0 {
		c.Channel.ABG.Beta = 22.4
	}
	if c.Channel.ABG.Gamma == 0 {
		c.Channel.ABG.Gamma = 2.0
	}
	if c.Channel.CloseIn.N == 0 {
		c.Channel.CloseIn.N = 2.0
	}

	// Engine defaults
	if c.Engine.Mode == "" {
		c.Engine.Mode = "auto"
	}
	if c.Engine.EventType == "" {
		c.Engine.EventType = "rsrp_based"
	}
	if c.Engine.MinAntennasML == 0 {
		c.Engine.MinAntennasML = 3
	}
	if c.Engine.HysteresisDB == 0 {
		c.Engine.HysteresisDB = 2.0
	}
	if c.Engine.RSRQFloorDB == 0 {
		c.Engine.RSRQFloorDB = -10.0
	}
	if c.Engine.HandoverReevaluationIntervalS == 0 {
		c.Engine.HandoverReevaluationIntervalS = 3 * time.Second
	}

	// Ping-pong defaults
	if c.PingPong.MinHandoverIntervalS == 0 {
		c.PingPong.MinHandoverIntervalS = 2.0
	}
	if c.PingPong.MaxHandoversPerMinute == 0 {
		c.PingPong.MaxHandoversPerMinute = 3
	}
	if c.PingPong.PingPongWindowS == 0 {
		c.PingPong.PingPongWindowS = 10.0
	}
	if c.PingPong.PingPongConfidenceBoost == 0 {
		c.PingPong.PingPongConfidenceBoost = 0.9
	}
	if c.PingPong.DefaultImmediateReturnConfidence == 0 {
		c.PingPong.DefaultImmediateReturnConfidence = 0.95
	}
	if c.PingPong.HistoryLength == 0 {
		c.PingPong.HistoryLength = 8
	}

	// Adaptive QoS defaults
	if c.QoS.Alpha == 0 {
		c.QoS.Alpha = 0.2
	}
	if c.QoS.BoostFactor == 0 {
		c.QoS.BoostFactor = 0.3
	}
	if c.QoS.RelaxFactor == 0 {
		c.QoS.RelaxFactor = 0.2
	}
	if c.QoS.MaxBoost == 0 {
		c.QoS.MaxBoost = 0.2
	}
	if c.QoS.MaxRelax == 0 {
		c.QoS.MaxRelax = 0.1
	}
	if c.QoS.HighThreshold == 0 {
		c.QoS.HighThreshold = 0.3
	}
	if c.QoS.LowThreshold == 0 {
		c.QoS.LowThreshold = 0.1
	}

	// RLF / throughput / interruption defaults
	if c.RLF.RLFThresholdDB == 0 {
		c.RLF.RLFThresholdDB = -6.0
	}
	if c.RLF.RLFDurationS == 0 {
		c.RLF.RLFDurationS = 1.0
	}
	if c.RLF.MinDecodableSINRDB == 0 {
		c.RLF.MinDecodableSINRDB = -10.0
	}
	if c.RLF.RLFZoneEfficiency == 0 {
		c.RLF.RLFZoneEfficiency = 0.5
	}
	if c.RLF.MaxEfficiency == 0 {
		c.RLF.MaxEfficiency = 6.0
	}
	if c.RLF.BandwidthHz == 0 {
		c.RLF.BandwidthHz = 20e6
	}
	if c.RLF.InterruptionDurationS == 0 {
		c.RLF.InterruptionDurationS = 50 * time.Millisecond
	}
	if c.RLF.InterruptionQueueCap == 0 {
		c.RLF.InterruptionQueueCap = 20
	}

	// Predictor defaults
	if c.Predictor.RequestTimeout == 0 {
		c.Predictor.RequestTimeout = 5 * time.Second
	}
	if c.Predictor.MaxConsecutiveFailures == 0 {
		c.Predictor.MaxConsecutiveFailures = 5
	}

	// Environment defaults
	if c.Environment == "" {
		c.Environment = "development"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
}

// Validate performs comprehensive validation of the configuration.
func (c *Config) Validate() error {
	if c == nil {
		return fmt.Errorf("configuration cannot be nil")
	}

	if err := c.validateServer(); err != nil {
		return fmt.Errorf("server configuration error: %w", err)
	}
	if err := c.validateMonitoring(); err != nil {
		return fmt.Errorf("monitoring configuration error: %w", err)
	}
	if err := c.validateChannel(); err != nil {
		return fmt.Errorf("channel configuration error: %w", err)
	}
	if err := c.validateEngine(); err != nil {
		return fmt.Errorf("engine configuration error: %w", err)
	}
	if err := c.validatePingPong(); err != nil {
		return fmt.Errorf("pingpong configuration error: %w", err)
	}
	if err := c.validateQoS(); err != nil {
		return fmt.Errorf("adaptive qos configuration error: %w", err)
	}
	if err := c.validateRLF(); err != nil {
		return fmt.Errorf("rlf configuration error: %w", err)
	}

	return nil
}

func (c *Config) validateServer() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Server.Host == "" {
		return fmt.Errorf("server host cannot be empty")
	}
	if c.Server.ReadTimeout <= 0 {
		return fmt.Errorf("read timeout must be positive")
	}
	if c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("write timeout must be positive")
	}
	return nil
}

func (c *Config) validateMonitoring() error {
	if c.Monitoring.Port < 1 || c.Monitoring.Port > 65535 {
		return fmt.Errorf("invalid monitoring port: %d", c.Monitoring.Port)
	}
	if c.Monitoring.MetricsPath == "" {
		return fmt.Errorf("metrics path cannot be empty")
	}
	return nil
}

func (c *Config) validateChannel() error {
	if c.Channel.SigmaSFDB < 0 {
		return fmt.Errorf("sigma_sf_db cannot be negative")
	}
	if c.Channel.DecorrDistanceM <= 0 {
		return fmt.Errorf("decorr_distance_m must be positive")
	}
	if c.Channel.CarrierFrequencyGHz <= 0 {
		return fmt.Errorf("carrier_frequency_ghz must be positive")
	}
	if c.Channel.ResourceBlocks < 1 {
		return fmt.Errorf("resource_blocks must be at least 1")
	}
	switch c.Channel.PathLossModel {
	case "abg", "close_in":
	default:
		return fmt.Errorf("unknown path_loss_model: %s", c.Channel.PathLossModel)
	}
	return nil
}

func (c *Config) validateEngine() error {
	if c.Engine.HysteresisDB < 0 {
		return fmt.Errorf("hysteresis_db must be non-negative")
	}
	if c.Engine.TTTSeconds < 0 {
		return fmt.Errorf("ttt_seconds must be non-negative")
	}
	if c.Engine.MinAntennasML < 1 {
		return fmt.Errorf("min_antennas_ml must be at least 1")
	}
	switch c.Engine.Mode {
	case "ml", "a3", "auto":
	default:
		return fmt.Errorf("unknown engine mode: %s", c.Engine.Mode)
	}
	switch c.Engine.EventType {
	case "rsrp_based", "rsrq_based", "mixed":
	default:
		return fmt.Errorf("unknown a3 event_type: %s", c.Engine.EventType)
	}
	if c.Engine.HandoverReevaluationIntervalS < 0 {
		return fmt.Errorf("handover_reevaluation_interval_s cannot be negative")
	}
	return nil
}

func (c *Config) validatePingPong() error {
	if c.PingPong.MinHandoverIntervalS < 0 {
		return fmt.Errorf("min_handover_interval_s cannot be negative")
	}
	if c.PingPong.MaxHandoversPerMinute < 1 {
		return fmt.Errorf("max_handovers_per_minute must be at least 1")
	}
	if c.PingPong.PingPongWindowS < 0 {
		return fmt.Errorf("pingpong_window_s cannot be negative")
	}
	if c.PingPong.HistoryLength < 1 {
		return fmt.Errorf("history_length must be at least 1")
	}
	return nil
}

func (c *Config) validateQoS() error {
	if c.QoS.Alpha <= 0 || c.QoS.Alpha > 1 {
		return fmt.Errorf("alpha must be in (0, 1]")
	}
	if c.QoS.HighThreshold <= c.QoS.LowThreshold {
		return fmt.Errorf("high_threshold must exceed low_threshold")
	}
	return nil
}

func (c *Config) validateRLF() error {
	if c.RLF.RLFDurationS < 0 {
		return fmt.Errorf("rlf_duration_s cannot be negative")
	}
	if c.RLF.BandwidthHz <= 0 {
		return fmt.Errorf("bandwidth_hz must be positive")
	}
	if c.RLF.MaxEfficiency <= 0 {
		return fmt.Errorf("max_efficiency must be positive")
	}
	if c.RLF.InterruptionQueueCap < 1 {
		return fmt.Errorf("interruption_queue_cap must be at least 1")
	}
	return nil
}
