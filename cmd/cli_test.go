// SPDX-License-Identifier: MIT
package cmd

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"pitch/internal/config"
)

func TestParseCommands(t *testing.T) {
	tests := []struct {
		name      string
		args      []string
		command   string
		input     string
		recording string
	}{
		{"Play", []string{"play", "song.wav"}, config.CommandPlay, "song.wav", ""},
		{"Record Default", []string{"record"}, config.CommandRecord, "", ""},
		{"Record File", []string{"record", "take.wav"}, config.CommandRecord, "", "take.wav"},
		{"Record Output Flag", []string{"record", "-o", "out.wav"}, config.CommandRecord, "", "out.wav"},
		{"Analyze", []string{"analyze", "song.wav"}, config.CommandAnalyze, "song.wav", ""},
		{"List", []string{"list"}, config.CommandList, "", ""},
		{"Help", nil, "", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Parse(tt.args)
			if err != nil {
				t.Fatalf("Parse(%v) error: %v", tt.args, err)
			}
			if cfg.Command != tt.command {
				t.Errorf("Command = %q, want %q", cfg.Command, tt.command)
			}
			if cfg.Input != tt.input {
				t.Errorf("Input = %q, want %q", cfg.Input, tt.input)
			}
			if cfg.Recording.OutputFile != tt.recording {
				t.Errorf("OutputFile = %q, want %q", cfg.Recording.OutputFile, tt.recording)
			}
		})
	}
}

func TestParseArgCounts(t *testing.T) {
	for _, args := range [][]string{
		{"play"},
		{"play", "a.wav", "b.wav"},
		{"analyze"},
		{"record", "a.wav", "b.wav"},
		{"list", "extra"},
	} {
		if _, err := Parse(args); err == nil {
			t.Errorf("Parse(%v) succeeded, want an argument error", args)
		}
	}
}

func TestParseFlagOverrides(t *testing.T) {
	cfg, err := Parse([]string{
		"--bins", "512", "--chunk", "4096",
		"--band-start", "80", "--band-end", "320",
		"--window", "hann", "--device", "2", "--output-device", "3",
		"--low-latency", "--tui=false", "--ws-addr", "127.0.0.1:9999",
		"--verbose",
		"analyze", "song.wav", "--format", "CSV",
	})
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}

	if cfg.Zoom.Bins != 512 || cfg.Audio.Chunk != 4096 {
		t.Errorf("bins/chunk = %d/%d, want 512/4096", cfg.Zoom.Bins, cfg.Audio.Chunk)
	}
	if cfg.Zoom.BandStart != 80 || cfg.Zoom.BandEnd != 320 {
		t.Errorf("band = %v-%v, want 80-320", cfg.Zoom.BandStart, cfg.Zoom.BandEnd)
	}
	if cfg.Zoom.Window != "hann" {
		t.Errorf("window = %q, want hann", cfg.Zoom.Window)
	}
	if cfg.Audio.InputDevice != 2 || cfg.Audio.OutputDevice != 3 || !cfg.Audio.LowLatency {
		t.Errorf("audio = %+v, want devices 2/3 and low latency", cfg.Audio)
	}
	if cfg.TUI.Enabled {
		t.Error("--tui=false did not disable the display")
	}
	if !cfg.Transport.WebSocketEnabled || cfg.Transport.WebSocketAddr != "127.0.0.1:9999" {
		t.Errorf("websocket = %v %q, want enabled on 127.0.0.1:9999",
			cfg.Transport.WebSocketEnabled, cfg.Transport.WebSocketAddr)
	}
	if !cfg.Verbose || cfg.Level().String() != "DEBUG" {
		t.Errorf("verbose = %v, level %v, want debug", cfg.Verbose, cfg.Level())
	}
	if cfg.AnalyzeStyle != StyleCSV {
		t.Errorf("AnalyzeStyle = %q, want csv", cfg.AnalyzeStyle)
	}
}

func TestParseConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pitch.yaml")
	data := []byte("zoom:\n  bins: 2048\n  band_start: 150\ntransport:\n  udp_enabled: true\n")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Parse([]string{"--config", path, "--band-start", "120", "play", "song.wav"})
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	if cfg.Zoom.Bins != 2048 {
		t.Errorf("bins = %d, want 2048 from the file", cfg.Zoom.Bins)
	}
	if cfg.Zoom.BandStart != 120 {
		t.Errorf("band start = %v, want the flag's 120", cfg.Zoom.BandStart)
	}
	if !cfg.Transport.UDPEnabled {
		t.Error("udp_enabled from the file was lost")
	}

	// Flags left at their defaults do not override the file.
	if cfg.Zoom.BandEnd != config.DefaultBandEnd {
		t.Errorf("band end = %v, want %v", cfg.Zoom.BandEnd, config.DefaultBandEnd)
	}
}

func TestParseRejects(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"Zero Bins", []string{"--bins", "0", "play", "a.wav"}},
		{"Reversed Band", []string{"--band-start", "500", "play", "a.wav"}},
		{"Bad Window", []string{"--window", "triangle", "play", "a.wav"}},
		{"Bad Format", []string{"analyze", "a.wav", "--format", "xml"}},
		{"Bad Device", []string{"--device", "-5", "record"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.args)
			if !errors.Is(err, config.ErrInvalidConfig) {
				t.Errorf("Parse(%v) error = %v, want ErrInvalidConfig", tt.args, err)
			}
		})
	}

	if _, err := Parse([]string{"--config", filepath.Join(t.TempDir(), "missing.yaml"), "list"}); err == nil {
		t.Error("Parse() with a missing config file succeeded")
	}
}
