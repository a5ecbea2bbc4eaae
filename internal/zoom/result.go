// SPDX-License-Identifier: MIT
package zoom

// Result is one zoomed spectrum: ascending bin frequencies (Hz) and the
// matching non-negative magnitudes. Both slices have the same length.
type Result struct {
	Frequencies []float64 `json:"frequencies"`
	Magnitudes  []float64 `json:"magnitudes"`
}

// Len returns the number of bins.
func (r Result) Len() int {
	return len(r.Magnitudes)
}

// BinWidth returns the spacing between adjacent bins, or 0 with fewer than
// two bins.
func (r Result) BinWidth() float64 {
	if len(r.Frequencies) < 2 {
		return 0
	}
	return r.Frequencies[1] - r.Frequencies[0]
}

// Peak returns the frequency, magnitude and index of the strongest bin. The
// first maximum wins on ties. idx is -1 for an empty result.
func (r Result) Peak() (hz, mag float64, idx int) {
	idx = -1
	for i, m := range r.Magnitudes {
		if idx < 0 || m > mag {
			idx, mag = i, m
		}
	}
	if idx < 0 {
		return 0, 0, -1
	}
	return r.Frequencies[idx], mag, idx
}

// Covers reports whether the bins reach up to fEnd, i.e. whether the
// decimated rate was high enough for the requested band.
func (r Result) Covers(fEnd float64) bool {
	n := len(r.Frequencies)
	if n == 0 {
		return false
	}
	return r.Frequencies[n-1]+r.BinWidth() >= fEnd
}
