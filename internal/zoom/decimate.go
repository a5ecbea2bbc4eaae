// SPDX-License-Identifier: MIT
package zoom

import (
	"math"

	"gonum.org/v1/gonum/dsp/window"
)

// tapsPerFactor sets the FIR order to tapsPerFactor*D, giving a transition
// band of roughly 3.3/(20*D) of the input rate with a Hamming window.
const tapsPerFactor = 20

// LowPassKernel designs the anti-alias filter used to decimate by factor: a
// Hamming-windowed sinc of odd length tapsPerFactor*factor+1 with its cutoff
// at the new Nyquist frequency fs/(2*factor), scaled to unity gain at DC.
//
// The kernel is symmetric, so centring it on each output sample gives a
// zero-phase filter. factor must be >= 1; factor 1 returns the identity.
func LowPassKernel(factor int) []float64 {
	if factor <= 1 {
		return []float64{1}
	}

	n := tapsPerFactor*factor + 1
	cutoff := 1 / float64(factor) // relative to the input Nyquist
	center := float64(n-1) / 2

	h := make([]float64, n)
	for i := range h {
		h[i] = cutoff * sinc(cutoff*(float64(i)-center))
	}
	window.Hamming(h)

	var sum float64
	for _, v := range h {
		sum += v
	}
	for i := range h {
		h[i] /= sum
	}
	return h
}

// Decimate low-pass filters x and keeps every factor-th sample, returning
// ceil(len(x)/factor) samples. Near the ends of x the kernel is cut to the
// taps that overlap the signal and rescaled to unity DC gain, so a constant
// input stays constant up to the edges.
func Decimate(x []complex128, factor int) ([]complex128, error) {
	if factor < 1 {
		return nil, invalidf("decimation factor must be >= 1, got %d", factor)
	}
	return decimateWith(x, LowPassKernel(factor), factor), nil
}

// DecimateReal is Decimate for a real-valued input.
func DecimateReal(x []float64, factor int) ([]float64, error) {
	if factor < 1 {
		return nil, invalidf("decimation factor must be >= 1, got %d", factor)
	}
	h := LowPassKernel(factor)
	out := make([]float64, outputLen(len(x), factor))
	half := (len(h) - 1) / 2
	for m := range out {
		pos := m*factor + half
		lo, hi := support(pos, len(h), len(x))
		var acc float64
		for k := lo; k <= hi; k++ {
			acc += h[k] * x[pos-k]
		}
		out[m] = acc / partialGain(h, lo, hi)
	}
	return out, nil
}

// decimateWith evaluates the filter only at the retained output positions.
func decimateWith(x []complex128, h []float64, factor int) []complex128 {
	out := make([]complex128, outputLen(len(x), factor))
	if factor == 1 {
		copy(out, x)
		return out
	}

	half := (len(h) - 1) / 2
	for m := range out {
		pos := m*factor + half
		lo, hi := support(pos, len(h), len(x))
		var re, im float64
		for k := lo; k <= hi; k++ {
			v := x[pos-k]
			re += h[k] * real(v)
			im += h[k] * imag(v)
		}
		g := partialGain(h, lo, hi)
		out[m] = complex(re/g, im/g)
	}
	return out
}

// partialGain is the DC gain of the taps h[lo:hi+1] that overlap the signal.
// It is 1 away from the edges. The centre tap is always inside the support,
// so the sum stays well above zero.
func partialGain(h []float64, lo, hi int) float64 {
	if lo == 0 && hi == len(h)-1 {
		return 1
	}
	var g float64
	for k := lo; k <= hi; k++ {
		g += h[k]
	}
	if g <= 0 {
		return 1
	}
	return g
}

// support returns the kernel index range [lo, hi] for which pos-k falls
// inside a signal of length n. hi < lo when there is no overlap.
func support(pos, taps, n int) (lo, hi int) {
	lo = max(0, pos-(n-1))
	hi = min(taps-1, pos)
	return lo, hi
}

func outputLen(n, factor int) int {
	return (n + factor - 1) / factor
}

func sinc(x float64) float64 {
	if math.Abs(x) < 1e-12 {
		return 1
	}
	px := math.Pi * x
	return math.Sin(px) / px
}
