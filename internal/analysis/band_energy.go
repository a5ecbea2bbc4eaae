// SPDX-License-Identifier: MIT
package analysis

import "pitch/internal/zoom"

// Energy sums squared magnitudes of the bins in [lowHz, highHz).
func Energy(res zoom.Result, lowHz, highHz float64) float64 {
	var e float64
	for i, f := range res.Frequencies {
		if f >= lowHz && f < highHz {
			m := res.Magnitudes[i]
			e += m * m
		}
	}
	return e
}

// Clarity is the share of the total energy that lies within halfWidth Hz of
// hz. A clean tone scores close to 1, broadband noise close to the bandwidth
// ratio.
func Clarity(res zoom.Result, hz, halfWidth float64) float64 {
	var total float64
	for _, m := range res.Magnitudes {
		total += m * m
	}
	if total == 0 {
		return 0
	}
	return Energy(res, hz-halfWidth, hz+halfWidth) / total
}
