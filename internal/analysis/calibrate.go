// SPDX-License-Identifier: MIT
package analysis

import "sort"

// CalibrationBlocks is the number of levels a Calibrator collects.
const CalibrationBlocks = 30

// Calibrator derives a gate threshold from the first blocks of a session:
// twice the 25th percentile of their levels, so steady background noise
// stays below the gate.
type Calibrator struct {
	gate   *Gate
	levels []float64
	done   bool
}

// NewCalibrator returns a calibrator that sets g's threshold once enough
// levels have been seen.
func NewCalibrator(g *Gate) *Calibrator {
	return &Calibrator{gate: g, levels: make([]float64, 0, CalibrationBlocks)}
}

// Add records one block level. It reports true once calibration is done.
func (c *Calibrator) Add(level float64) bool {
	if c.done {
		return true
	}
	c.levels = append(c.levels, level)
	if len(c.levels) < CalibrationBlocks {
		return false
	}

	sort.Float64s(c.levels)
	c.gate.SetThreshold(2 * c.levels[len(c.levels)/4])
	c.levels = nil
	c.done = true
	return true
}

// Done reports whether the threshold has been set.
func (c *Calibrator) Done() bool {
	return c.done
}
