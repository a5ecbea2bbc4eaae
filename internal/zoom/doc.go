// SPDX-License-Identifier: MIT
/*
Package zoom implements a zoom FFT: a narrow frequency band is shifted down to
baseband, low-pass filtered and decimated, and the decimated block is
transformed with a fixed-size FFT. The result covers only the band of interest
but at a much finer bin width than a full-bandwidth FFT of the same size.

Pipeline for one block sampled at fs:

	shift by -band.Start  ->  decimate by D  ->  nBins-point FFT at fs/D
	D = floor(fs / (band.End - band.Start) / 2)

Every function in this package is a pure transform of its arguments. Nothing
is carried from one block to the next, so calls may run concurrently on
independent blocks. An Analyzer caches the immutable parts (FIR kernel, FFT
plans) of a fixed configuration and produces the same output as FFT.
*/
package zoom
