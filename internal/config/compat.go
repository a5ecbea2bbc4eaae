// SPDX-License-Identifier: MIT
package config

import (
	"pitch/internal/log"
	"pitch/internal/zoom"
)

// Band returns the configured zoom window.
func (c *Config) Band() zoom.Band {
	return zoom.Band{Start: c.Zoom.BandStart, End: c.Zoom.BandEnd}
}

// Window returns the parsed taper, WindowRect when the name is unknown.
// Validate reports unknown names.
func (c *Config) Window() zoom.Window {
	w, _ := zoom.ParseWindow(c.Zoom.Window)
	return w
}

// ZoomParams builds analyzer parameters for a stream at sampleRate. The
// capture rate is fixed but playback follows the file.
func (c *Config) ZoomParams(sampleRate int) zoom.Params {
	return zoom.Params{
		SampleRate: sampleRate,
		Bins:       c.Zoom.Bins,
		Band:       c.Band(),
		Window:     c.Window(),
	}
}

// Level returns the effective log level. Debug and Verbose force debug.
func (c *Config) Level() log.LogLevel {
	if c.Debug || c.Verbose {
		return log.LevelDebug
	}
	level, _ := log.ParseLevel(c.LogLevel)
	return level
}
