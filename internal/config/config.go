// SPDX-License-Identifier: MIT
package config

import (
	"path/filepath"
	"time"
)

// Core configuration constants that define the boundaries and defaults
// for the recorder, player and zoom analyzer.
const (
	// Zoom analysis defaults
	DefaultBins      = 1024            // FFT size; the display shows DefaultBins/2 bins
	DefaultChunk     = 2 * DefaultBins // Samples per processing block
	DefaultBandStart = 100.0           // Lower edge of the zoom window (Hz)
	DefaultBandEnd   = 400.0           // Upper edge of the zoom window (Hz)
	DefaultWindow    = "rect"          // No taper before the FFT

	// Audio device defaults
	RecordSampleRate  = 44100       // Capture rate for recordings
	DefaultDeviceID   = MinDeviceID // System default device
	DefaultLowLatency = false       // Standard latency mode

	// Recording and output
	DefaultOutputDir     = "data"                // Created on demand
	DefaultOutputPrefix  = "recording-"          // recording-DD-MM-YYYY-HHMMSS.wav
	OutputTimeLayout     = "02-01-2006-150405"   // DD-MM-YYYY-HHMMSS
	DefaultFormat        = "wav"                 // Only WAV is supported
	DefaultAnalyzeStyle  = "table"               // analyze output: table or csv
	DefaultLogLevel      = "info"                // Global log level
	DefaultVerbosity     = false                 // Quiet operation
	DefaultWSAddr        = "localhost:8080"      // WebSocket listen address
	DefaultUDPTarget     = "127.0.0.1:9090"      // UDP publisher destination
	DefaultUDPInterval   = 33 * time.Millisecond // ~30Hz
	DefaultTUISmoothing  = 0.5                   // Bar decay factor
	DefaultGateThreshold = 0.01                  // RMS level below which no pitch is shown
	DefaultMinClarity    = 0.3                   // Energy share around the peak for a voiced pitch

	// Hardware and processing limits
	MinDeviceID    = -1     // -1 represents system default device
	MinSampleRate  = 8000   // Minimum usable sample rate (Hz)
	MaxSampleRate  = 192000 // Maximum supported sample rate (Hz)
	MaxBins        = 1 << 16
	MaxChunkFrames = 1 << 18

	// Error handling configuration
	DefaultMaxConsecutiveBlockFailures = 5 // Warn once this many blocks in a row fail
)

// Command names selected by the CLI.
const (
	CommandPlay    = "play"
	CommandRecord  = "record"
	CommandAnalyze = "analyze"
	CommandList    = "list"
)

// NewConfig returns the built-in defaults. LoadConfig starts from these
// before applying a config file and ENV_* overrides.
func NewConfig() *Config {
	return &Config{
		LogLevel: DefaultLogLevel,
		Audio: AudioConfig{
			InputDevice:  DefaultDeviceID,
			OutputDevice: DefaultDeviceID,
			SampleRate:   RecordSampleRate,
			Chunk:        DefaultChunk,
			LowLatency:   DefaultLowLatency,
		},
		Zoom: ZoomConfig{
			Bins:      DefaultBins,
			BandStart: DefaultBandStart,
			BandEnd:   DefaultBandEnd,
			Window:    DefaultWindow,
		},
		Recording: RecordingConfig{
			OutputDir: DefaultOutputDir,
			Format:    DefaultFormat,
		},
		Transport: TransportConfig{
			WebSocketAddr:    DefaultWSAddr,
			UDPTargetAddress: DefaultUDPTarget,
			UDPSendInterval:  DefaultUDPInterval,
		},
		TUI: TUIConfig{
			Enabled:       true,
			Smoothing:     DefaultTUISmoothing,
			GateThreshold: DefaultGateThreshold,
			MinClarity:    DefaultMinClarity,
		},
		AnalyzeStyle: DefaultAnalyzeStyle,
	}
}

// RecordingPath returns the file a recording started at now is written to:
// OutputFile when set, otherwise a timestamped name inside OutputDir.
func (c *Config) RecordingPath(now time.Time) string {
	if c.Recording.OutputFile != "" {
		return c.Recording.OutputFile
	}
	name := DefaultOutputPrefix + now.Format(OutputTimeLayout) + "." + c.Recording.Format
	return filepath.Join(c.Recording.OutputDir, name)
}
