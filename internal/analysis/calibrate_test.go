// SPDX-License-Identifier: MIT
package analysis

import (
	"math"
	"testing"
)

func TestCalibrator(t *testing.T) {
	g := NewGate(0.5)
	c := NewCalibrator(g)

	// Background noise around 0.01 with a few loud blocks.
	for i := range CalibrationBlocks - 1 {
		level := 0.01 + float64(i%3)*0.001
		if i%10 == 0 {
			level = 0.3
		}
		if c.Add(level) {
			t.Fatalf("calibration finished after %d blocks", i+1)
		}
	}
	if g.Threshold() != 0.5 {
		t.Errorf("threshold changed before calibration finished: %v", g.Threshold())
	}

	if !c.Add(0.01) || !c.Done() {
		t.Fatal("calibration not finished after CalibrationBlocks levels")
	}
	if got := g.Threshold(); math.Abs(got-0.02) > 0.001 {
		t.Errorf("calibrated threshold = %v, want about 0.02", got)
	}

	// Later levels are ignored.
	c.Add(1)
	if got := g.Threshold(); math.Abs(got-0.02) > 0.001 {
		t.Errorf("threshold moved after calibration: %v", got)
	}
}
