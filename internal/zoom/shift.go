// SPDX-License-Identifier: MIT
package zoom

import "math"

// Shift translates the spectrum of samples by shift Hz:
//
//	out[i] = in[i] * exp(j*2*pi*(shift/fs)*i)
//
// The phase is computed from i for every sample instead of by repeated
// rotation, so rounding does not accumulate across the block.
func Shift(samples []complex128, sampleRate, shift float64) []complex128 {
	step := phaseStep(sampleRate, shift)
	out := make([]complex128, len(samples))
	for i, x := range samples {
		s, c := math.Sincos(step * float64(i))
		out[i] = x * complex(c, s)
	}
	return out
}

// ShiftReal is Shift for a real-valued input.
func ShiftReal(samples []float64, sampleRate, shift float64) []complex128 {
	step := phaseStep(sampleRate, shift)
	out := make([]complex128, len(samples))
	for i, x := range samples {
		s, c := math.Sincos(step * float64(i))
		out[i] = complex(x*c, x*s)
	}
	return out
}

// shiftInt16 is ShiftReal without the intermediate float64 copy.
func shiftInt16(samples []int16, sampleRate, shift float64) []complex128 {
	step := phaseStep(sampleRate, shift)
	out := make([]complex128, len(samples))
	for i, v := range samples {
		x := float64(v)
		s, c := math.Sincos(step * float64(i))
		out[i] = complex(x*c, x*s)
	}
	return out
}

func phaseStep(sampleRate, shift float64) float64 {
	if !(sampleRate > 0) {
		panic("zoom: sample rate must be positive")
	}
	return 2 * math.Pi * shift / sampleRate
}
