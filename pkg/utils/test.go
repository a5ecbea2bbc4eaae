// Package utils holds signal generators and small helpers shared by tests
// across the module.
package utils

import "math"

// GenerateSine returns size samples of amplitude*sin(2*pi*frequency*t).
func GenerateSine(size int, sampleRate, frequency, amplitude float64) []float64 {
	buffer := make([]float64, size)
	for i := range buffer {
		t := float64(i) / sampleRate
		buffer[i] = amplitude * math.Sin(2*math.Pi*frequency*t)
	}
	return buffer
}

// GenerateSineInt16 is GenerateSine quantised to 16-bit PCM. The amplitude is
// clamped to the int16 range.
func GenerateSineInt16(size int, sampleRate, frequency, amplitude float64) []int16 {
	buffer := make([]int16, size)
	for i, v := range GenerateSine(size, sampleRate, frequency, amplitude) {
		buffer[i] = clampInt16(math.Round(v))
	}
	return buffer
}

// GenerateVoice returns a harmonic tone with fundamental f0 and three
// overtones of decreasing level, roughly what a sung vowel looks like.
func GenerateVoice(size int, sampleRate, f0, amplitude float64) []int16 {
	buffer := make([]int16, size)
	for i := range buffer {
		t := float64(i) / sampleRate
		v := math.Sin(2*math.Pi*f0*t)*0.6 +
			math.Sin(2*math.Pi*2*f0*t)*0.25 +
			math.Sin(2*math.Pi*3*f0*t)*0.1 +
			math.Sin(2*math.Pi*4*f0*t)*0.05
		buffer[i] = clampInt16(math.Round(v * amplitude))
	}
	return buffer
}

// FindPeakBin returns the index of the largest value in magnitudes[startBin:endBin+1].
func FindPeakBin(magnitudes []float64, startBin, endBin int) int {
	if len(magnitudes) == 0 {
		return 0
	}

	if startBin < 0 {
		startBin = 0
	}

	if endBin >= len(magnitudes) {
		endBin = len(magnitudes) - 1
	}

	peakBin := startBin
	peakValue := magnitudes[startBin]

	for bin := startBin + 1; bin <= endBin; bin++ {
		if magnitudes[bin] > peakValue {
			peakValue = magnitudes[bin]
			peakBin = bin
		}
	}

	return peakBin
}

// MaxValue returns the largest value in values, or 0 when empty.
func MaxValue(values []float64) float64 {
	var m float64
	for i, v := range values {
		if i == 0 || v > m {
			m = v
		}
	}
	return m
}

func clampInt16(v float64) int16 {
	switch {
	case v > math.MaxInt16:
		return math.MaxInt16
	case v < math.MinInt16:
		return math.MinInt16
	default:
		return int16(v)
	}
}
