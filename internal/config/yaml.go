// SPDX-License-Identifier: MIT
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"pitch/internal/log"
	"pitch/internal/zoom"

	"gopkg.in/yaml.v3"
)

var logger = log.Named("config")

// ErrInvalidConfig is wrapped by every Validate failure.
var ErrInvalidConfig = errors.New("invalid configuration")

// Config represents the main application configuration structure, loaded from YAML.
type Config struct {
	Debug     bool            `yaml:"debug"`     // Enable debug mode (forces debug logging).
	LogLevel  string          `yaml:"log_level"` // Logging level (e.g., "debug", "info", "warn", "error").
	Audio     AudioConfig     `yaml:"audio"`     // Audio device settings.
	Zoom      ZoomConfig      `yaml:"zoom"`      // Zoom FFT settings.
	Recording RecordingConfig `yaml:"recording"` // Audio recording settings.
	Transport TransportConfig `yaml:"transport"` // Frame sinks (WebSocket, UDP, log).
	TUI       TUIConfig       `yaml:"tui"`       // Terminal display settings.

	// Set by the CLI only.
	Command      string `yaml:"-"` // play, record, analyze or list.
	Input        string `yaml:"-"` // WAV file for play and analyze.
	AnalyzeStyle string `yaml:"-"` // "table" or "csv".
	Verbose      bool   `yaml:"-"` // --verbose.
}

// AudioConfig holds settings related to audio input/output.
type AudioConfig struct {
	InputDevice  int  `yaml:"input_device"`  // PortAudio device index for capture (-1 for default).
	OutputDevice int  `yaml:"output_device"` // PortAudio device index for playback (-1 for default).
	SampleRate   int  `yaml:"sample_rate"`   // Capture rate in Hz. Playback uses the file's rate.
	Chunk        int  `yaml:"chunk"`         // Samples per block handed to the analyzer.
	LowLatency   bool `yaml:"low_latency"`   // Request low latency settings from PortAudio.
}

// ZoomConfig holds the zoom FFT parameters.
type ZoomConfig struct {
	Bins      int     `yaml:"bins"`       // FFT size.
	BandStart float64 `yaml:"band_start"` // Lower edge of the zoom window in Hz.
	BandEnd   float64 `yaml:"band_end"`   // Upper edge of the zoom window in Hz.
	Window    string  `yaml:"window"`     // Optional taper ("rect", "hann", ...).
}

// RecordingConfig holds settings related to audio recording functionality.
type RecordingConfig struct {
	OutputDir  string `yaml:"output_dir"` // Directory for timestamped recordings.
	Format     string `yaml:"format"`     // File format for recordings ("wav" only).
	OutputFile string `yaml:"-"`          // Explicit path from the command line.
}

// TransportConfig holds settings related to publishing zoomed spectra.
type TransportConfig struct {
	WebSocketEnabled  bool          `yaml:"websocket_enabled"`  // Serve frames on ws://addr/zoom.
	WebSocketAddr     string        `yaml:"websocket_addr"`     // Listen address for the WebSocket server.
	WebSocketInterval time.Duration `yaml:"websocket_interval"` // Minimum time between frames (0 sends every frame).
	UDPEnabled        bool          `yaml:"udp_enabled"`        // Enable sending frames over UDP.
	UDPTargetAddress  string        `yaml:"udp_target_address"` // Target address and port for UDP packets.
	UDPSendInterval   time.Duration `yaml:"udp_send_interval"`  // Interval between sending UDP packets.
	LogFrames         bool          `yaml:"log_frames"`         // Log the peak of every frame at debug level.
}

// TUIConfig holds settings for the terminal spectrum view.
type TUIConfig struct {
	Enabled       bool    `yaml:"enabled"`        // Render the spectrum in the terminal.
	Smoothing     float64 `yaml:"smoothing"`      // Bar decay, 0 disables smoothing.
	GateThreshold float64 `yaml:"gate_threshold"` // Level in [0, 1] below which pitch is hidden.
	CalibrateGate bool    `yaml:"calibrate_gate"` // Derive the threshold from the first blocks.
	MinClarity    float64 `yaml:"min_clarity"`    // Peak energy share in [0, 1] needed to show a pitch.
}

// LoadConfig loads configuration from a YAML file specified by path. If path is empty,
// it searches default locations ("config.yaml"). If no file is found, it uses built-in
// defaults. After loading defaults or from file, it applies environment variable
// overrides and validates the final configuration.
func LoadConfig(path string) (*Config, error) {
	cfg := NewConfig()

	if path == "" {
		for _, candidate := range []string{"config.yaml", "pitch.yaml"} {
			if _, err := os.Stat(candidate); err == nil {
				path = candidate
				break
			}
		}
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
		logger.Debugf("loaded %s", path)
	}

	// Apply environment variable overrides AFTER loading from file.
	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks every value the engine depends on. Errors wrap
// ErrInvalidConfig.
func (c *Config) Validate() error {
	if _, ok := log.ParseLevel(c.LogLevel); !ok {
		return invalid("log_level %q is not a known level", c.LogLevel)
	}

	if c.Audio.InputDevice < MinDeviceID || c.Audio.OutputDevice < MinDeviceID {
		return invalid("device ids must be >= %d", MinDeviceID)
	}
	if c.Audio.SampleRate < MinSampleRate || c.Audio.SampleRate > MaxSampleRate {
		return invalid("audio.sample_rate %d outside [%d, %d]", c.Audio.SampleRate, MinSampleRate, MaxSampleRate)
	}
	if c.Audio.Chunk < 1 || c.Audio.Chunk > MaxChunkFrames {
		return invalid("audio.chunk %d outside [1, %d]", c.Audio.Chunk, MaxChunkFrames)
	}

	if c.Zoom.Bins < 1 || c.Zoom.Bins > MaxBins {
		return invalid("zoom.bins %d outside [1, %d]", c.Zoom.Bins, MaxBins)
	}
	if err := c.Band().Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if _, err := zoom.ParseWindow(c.Zoom.Window); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	if !strings.EqualFold(c.Recording.Format, DefaultFormat) {
		return invalid("recording.format %q is not supported", c.Recording.Format)
	}

	if c.Transport.WebSocketEnabled && c.Transport.WebSocketAddr == "" {
		return invalid("transport.websocket_addr must be set when the WebSocket server is enabled")
	}
	if c.Transport.WebSocketInterval < 0 {
		return invalid("transport.websocket_interval must not be negative")
	}
	if c.Transport.UDPEnabled {
		if c.Transport.UDPTargetAddress == "" {
			return invalid("transport.udp_target_address must be set when UDP is enabled")
		}
		if !strings.Contains(c.Transport.UDPTargetAddress, ":") {
			return invalid("transport.udp_target_address '%s' appears invalid (missing port?)", c.Transport.UDPTargetAddress)
		}
		if c.Transport.UDPSendInterval <= 0 {
			return invalid("transport.udp_send_interval must be positive when UDP is enabled")
		}
	}

	if c.TUI.Smoothing < 0 || c.TUI.Smoothing >= 1 {
		return invalid("tui.smoothing %.2f outside [0, 1)", c.TUI.Smoothing)
	}
	if c.TUI.GateThreshold < 0 || c.TUI.GateThreshold > 1 {
		return invalid("tui.gate_threshold %.2f outside [0, 1]", c.TUI.GateThreshold)
	}
	if c.TUI.MinClarity < 0 || c.TUI.MinClarity > 1 {
		return invalid("tui.min_clarity %.2f outside [0, 1]", c.TUI.MinClarity)
	}

	return nil
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidConfig, fmt.Sprintf(format, args...))
}

// applyEnvOverrides reads ENV_* variables. Values that fail to parse are
// ignored with a warning.
func (cfg *Config) applyEnvOverrides() {
	// ENV_DEBUG
	if val, ok := os.LookupEnv("ENV_DEBUG"); ok {
		if bVal, err := strconv.ParseBool(val); err == nil {
			cfg.Debug = bVal
			logger.Debugf("overriding debug from env: %v", bVal)
		} else {
			logger.Warnf("ignoring ENV_DEBUG=%q: %v", val, err)
		}
	}
	// ENV_LOG_LEVEL
	if val, ok := os.LookupEnv("ENV_LOG_LEVEL"); ok {
		cfg.LogLevel = val
		logger.Debugf("overriding log_level from env: %s", val)
	}

	// ENV_BINS, ENV_BAND_{...}
	// These are specific to the zoom analyzer.

	if val, ok := os.LookupEnv("ENV_BINS"); ok {
		if n, err := strconv.Atoi(val); err == nil {
			cfg.Zoom.Bins = n
			logger.Debugf("overriding zoom.bins from env: %d", n)
		} else {
			logger.Warnf("ignoring ENV_BINS=%q: %v", val, err)
		}
	}
	if val, ok := os.LookupEnv("ENV_BAND_START"); ok {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			cfg.Zoom.BandStart = f
			logger.Debugf("overriding zoom.band_start from env: %g", f)
		} else {
			logger.Warnf("ignoring ENV_BAND_START=%q: %v", val, err)
		}
	}
	if val, ok := os.LookupEnv("ENV_BAND_END"); ok {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			cfg.Zoom.BandEnd = f
			logger.Debugf("overriding zoom.band_end from env: %g", f)
		} else {
			logger.Warnf("ignoring ENV_BAND_END=%q: %v", val, err)
		}
	}

	// ENV_WS_ADDR
	if val, ok := os.LookupEnv("ENV_WS_ADDR"); ok {
		cfg.Transport.WebSocketAddr = val
		cfg.Transport.WebSocketEnabled = val != ""
		logger.Debugf("overriding transport.websocket_addr from env: %s", val)
	}

	// ENV_UDP_{...}
	// These are specific to the transport layer.

	// ENV_UDP_ENABLED
	if val, ok := os.LookupEnv("ENV_UDP_ENABLED"); ok {
		if bVal, err := strconv.ParseBool(val); err == nil {
			cfg.Transport.UDPEnabled = bVal
			logger.Debugf("overriding transport.udp_enabled from env: %v", bVal)
		} else {
			logger.Warnf("ignoring ENV_UDP_ENABLED=%q: %v", val, err)
		}
	}
	// ENV_UDP_TARGET_ADDRESS
	if val, ok := os.LookupEnv("ENV_UDP_TARGET_ADDRESS"); ok {
		cfg.Transport.UDPTargetAddress = val
		logger.Debugf("overriding transport.udp_target_address from env: %s", val)
	}
	// ENV_UDP_SEND_INTERVAL
	if val, ok := os.LookupEnv("ENV_UDP_SEND_INTERVAL"); ok {
		if dur, err := time.ParseDuration(val); err == nil {
			cfg.Transport.UDPSendInterval = dur
			logger.Debugf("overriding transport.udp_send_interval from env: %s", dur)
		} else {
			logger.Warnf("ignoring ENV_UDP_SEND_INTERVAL=%q: %v", val, err)
		}
	}
}
