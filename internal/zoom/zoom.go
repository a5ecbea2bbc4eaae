// SPDX-License-Identifier: MIT
package zoom

import (
	"sync"
	"time"

	"gonum.org/v1/gonum/dsp/fourier"
)

// FFT runs the zoom FFT on one block of 16-bit samples taken at sampleRate:
// shift by -band.Start, decimate by D = floor(fs/width/2), then take an
// nBins-point spectrum at fs/D (integer division) offset by band.Start.
//
// On error no partial result is returned.
func FFT(samples []int16, sampleRate, nBins int, band Band) (Result, error) {
	a, err := NewAnalyzer(Params{SampleRate: sampleRate, Bins: nBins, Band: band})
	if err != nil {
		return Result{}, err
	}
	return a.Process(samples)
}

// Params is a fixed zoom FFT configuration.
type Params struct {
	SampleRate int    // Input sample rate in Hz.
	Bins       int    // FFT size; the result has Bins/2 bins.
	Band       Band   // Zoom window.
	Window     Window // Taper applied before the FFT, WindowRect by default.
}

// Analyzer applies one Params to a stream of blocks. The configuration is
// validated once, the low-pass kernel is designed once and FFT plans are
// pooled. It holds no per-block state and is safe for concurrent use.
type Analyzer struct {
	params        Params
	factor        int
	decimatedRate int
	kernel        []float64
	plans         sync.Pool
}

// NewAnalyzer validates p and precomputes everything that does not depend on
// the samples.
func NewAnalyzer(p Params) (*Analyzer, error) {
	if p.Bins < 1 {
		return nil, invalidf("bin count must be >= 1, got %d", p.Bins)
	}
	factor, err := p.Band.DecimationFactor(p.SampleRate)
	if err != nil {
		return nil, err
	}
	if _, ok := windowNames[p.Window]; !ok {
		return nil, invalidf("unknown window %v", p.Window)
	}

	bins := p.Bins
	a := &Analyzer{
		params:        p,
		factor:        factor,
		decimatedRate: p.SampleRate / factor,
		kernel:        LowPassKernel(factor),
	}
	a.plans.New = func() any { return fourier.NewCmplxFFT(bins) }
	return a, nil
}

// Process zooms one block. Blocks of any length are accepted; a length that
// is not a multiple of the decimation factor just rounds the decimated
// length up.
func (a *Analyzer) Process(block []int16) (Result, error) {
	shifted := shiftInt16(block, float64(a.params.SampleRate), -a.params.Band.Start)
	decimated := decimateWith(shifted, a.kernel, a.factor)

	plan := a.plans.Get().(*fourier.CmplxFFT)
	defer a.plans.Put(plan)

	taper := a.params.Window.coefficients(min(len(decimated), a.params.Bins))
	return spectrum(plan, decimated, taper, float64(a.decimatedRate), a.params.Bins, a.params.Band.Start), nil
}

// Params returns the configuration the analyzer was built with.
func (a *Analyzer) Params() Params {
	return a.params
}

// DecimationFactor returns D.
func (a *Analyzer) DecimationFactor() int {
	return a.factor
}

// DecimatedRate returns fs/D using integer division. It can differ slightly
// from the true rate when fs is not a multiple of D; the frequency axis is
// built from this value.
func (a *Analyzer) DecimatedRate() int {
	return a.decimatedRate
}

// Covered reports whether Band.Start + DecimatedRate/2 reaches Band.End.
func (a *Analyzer) Covered() bool {
	return a.params.Band.Start+float64(a.decimatedRate)/2 >= a.params.Band.End
}

// BlockDuration is the playback time of a block of n samples, the soft
// deadline for one Process call.
func (a *Analyzer) BlockDuration(n int) time.Duration {
	return time.Duration(float64(n) / float64(a.params.SampleRate) * float64(time.Second))
}
