// SPDX-License-Identifier: MIT
// Package analysis turns zoom spectra and raw blocks into display values:
// levels, a noise gate, a smoothed pitch estimate and decaying bars.
package analysis

import (
	"math"

	"pitch/internal/zoom"
)

const (
	// DefaultMinClarity is the energy share around the peak below which a
	// block is treated as unvoiced.
	DefaultMinClarity = 0.3

	// clarityFraction is the half width of the window Clarity uses, as a
	// share of the zoomed span.
	clarityFraction = 0.05

	// Estimates further apart than this ratio (about three semitones) are
	// a new note and are not smoothed towards the old one.
	jumpRatio = 1.19
)

// Pitch is one fundamental estimate.
type Pitch struct {
	Hz        float64 `json:"hz"`
	Magnitude float64 `json:"magnitude"`
	Voiced    bool    `json:"voiced"`
}

// Interpolate refines bin idx by fitting a parabola through it and its two
// neighbours. Edge bins and flat tops are returned unchanged.
func Interpolate(res zoom.Result, idx int) (hz, mag float64) {
	if idx < 0 || idx >= res.Len() {
		return 0, 0
	}
	hz, mag = res.Frequencies[idx], res.Magnitudes[idx]
	if idx == 0 || idx == res.Len()-1 {
		return hz, mag
	}

	a, b, c := res.Magnitudes[idx-1], res.Magnitudes[idx], res.Magnitudes[idx+1]
	den := a - 2*b + c
	if den == 0 {
		return hz, mag
	}
	p := 0.5 * (a - c) / den
	if p < -0.5 || p > 0.5 {
		return hz, mag
	}
	return hz + p*res.BinWidth(), b - 0.25*(a-c)*p
}

// PitchTracker turns successive zoom results into a smoothed pitch.
// It keeps state between blocks and is not safe for concurrent use.
//
// Estimates read low close to the top of the band, where the decimation
// filter starts to roll off and the peak of a short decimated block is
// tens of Hz wide. Away from the top of the band the error stays within
// about 1 Hz.
type PitchTracker struct {
	smoothing  float64
	minClarity float64

	last   float64
	voiced bool
}

// NewPitchTracker returns a tracker. smoothing in [0, 1) is the weight of
// the previous estimate; 0 disables smoothing.
func NewPitchTracker(smoothing float64) *PitchTracker {
	return &PitchTracker{
		smoothing:  max(0, min(smoothing, 0.99)),
		minClarity: DefaultMinClarity,
	}
}

// SetMinClarity changes the voicing threshold.
func (t *PitchTracker) SetMinClarity(c float64) {
	t.minClarity = c
}

// Update feeds one result. open is the noise gate decision for the block
// the result came from; a closed gate yields an unvoiced Pitch.
func (t *PitchTracker) Update(res zoom.Result, open bool) Pitch {
	_, _, idx := res.Peak()
	if idx < 0 || !open {
		t.voiced = false
		return Pitch{}
	}

	hz, mag := Interpolate(res, idx)
	if mag <= 0 || Clarity(res, hz, clarityFraction*span(res)) < t.minClarity {
		t.voiced = false
		return Pitch{Hz: hz, Magnitude: mag}
	}

	if t.voiced && t.last > 0 && math.Max(hz, t.last)/math.Min(hz, t.last) < jumpRatio {
		hz = t.smoothing*t.last + (1-t.smoothing)*hz
	}
	t.last, t.voiced = hz, true
	return Pitch{Hz: hz, Magnitude: mag, Voiced: true}
}

// Reset forgets the previous estimate.
func (t *PitchTracker) Reset() {
	t.last, t.voiced = 0, false
}

// span is the frequency range covered by res.
func span(res zoom.Result) float64 {
	return float64(res.Len()) * res.BinWidth()
}
