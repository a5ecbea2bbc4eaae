// SPDX-License-Identifier: MIT
package zoom

import (
	"math/cmplx"

	"gonum.org/v1/gonum/dsp/fourier"
)

// Spectrum computes an nBins-point FFT of samples (zero-padded or truncated
// to nBins) and returns the magnitudes of the first nBins/2 bins with
//
//	Frequencies[i] = offset + i*(fs/2)/(nBins/2)
//
// An odd nBins is truncated by the integer division; nBins == 1 yields an
// empty result.
func Spectrum(samples []complex128, sampleRate float64, nBins int, offset float64) (Result, error) {
	return SpectrumWindowed(samples, sampleRate, nBins, offset, WindowRect)
}

// SpectrumWindowed is Spectrum with a taper applied to the input samples
// that fall inside the transform.
func SpectrumWindowed(samples []complex128, sampleRate float64, nBins int, offset float64, w Window) (Result, error) {
	if nBins < 1 {
		return Result{}, invalidf("bin count must be >= 1, got %d", nBins)
	}
	if !(sampleRate > 0) {
		return Result{}, invalidf("sample rate must be positive, got %f", sampleRate)
	}

	used := min(len(samples), nBins)
	return spectrum(fourier.NewCmplxFFT(nBins), samples, w.coefficients(used), sampleRate, nBins, offset), nil
}

// spectrum does the work for a validated configuration. plan must have
// length nBins and taper, when non-nil, length min(len(samples), nBins).
func spectrum(plan *fourier.CmplxFFT, samples []complex128, taper []float64, sampleRate float64, nBins int, offset float64) Result {
	seq := make([]complex128, nBins)
	n := copy(seq, samples)
	if taper != nil {
		for i := range n {
			seq[i] *= complex(taper[i], 0)
		}
	}
	coeffs := plan.Coefficients(seq, seq)

	outBins := nBins / 2
	res := Result{
		Frequencies: make([]float64, outBins),
		Magnitudes:  make([]float64, outBins),
	}
	if outBins == 0 {
		return res
	}

	binWidth := (sampleRate / 2) / float64(outBins)
	for i := range outBins {
		res.Frequencies[i] = offset + float64(i)*binWidth
		res.Magnitudes[i] = cmplx.Abs(coeffs[i])
	}
	return res
}
