// SPDX-License-Identifier: MIT
package analysis

import (
	"math"
	"sync/atomic"
)

// PeakAmplitude returns max |x| over block. int32 holds |math.MinInt16|.
// Runs on the audio path: no branches in the loop, no allocations.
func PeakAmplitude(block []int16) int32 {
	var maxAmplitude int32
	for _, s := range block {
		sample := int32(s)
		mask := sample >> 31
		amplitude := (sample ^ mask) - mask
		diff := amplitude - maxAmplitude
		maxAmplitude += diff &^ (diff >> 31)
	}
	return maxAmplitude
}

// Level returns the RMS of block relative to full scale, in [0, 1].
func Level(block []int16) float64 {
	if len(block) == 0 {
		return 0
	}
	var sum float64
	for _, s := range block {
		v := float64(s) / -math.MinInt16
		sum += v * v
	}
	return math.Sqrt(sum / float64(len(block)))
}

// Gate is a noise gate on block levels. It can be adjusted while frames are
// being checked.
type Gate struct {
	threshold atomic.Int32 // Absolute amplitude threshold (0-32768)
}

// NewGate returns a gate with the given threshold, see SetThreshold.
func NewGate(threshold float64) *Gate {
	g := &Gate{}
	g.SetThreshold(threshold)
	return g
}

// SetThreshold adjusts the noise gate threshold.
// The value is in the range of 0.0-1.0 where 0=always open, 1=always closed.
func (g *Gate) SetThreshold(threshold float64) {
	threshold = max(0, min(1, threshold))
	g.threshold.Store(int32(threshold * -math.MinInt16))
}

// Threshold returns the current noise gate threshold in the range 0.0-1.0.
func (g *Gate) Threshold() float64 {
	return float64(g.threshold.Load()) / -math.MinInt16
}

// OpenLevel reports whether a block with the given Level passes the gate.
func (g *Gate) OpenLevel(level float64) bool {
	return level > g.Threshold()
}
