// SPDX-License-Identifier: MIT
package analysis

// Smoother gives spectrum bars a fast attack and a slow release: each value
// follows a rise immediately and decays by factor per update otherwise.
type Smoother struct {
	factor float64
	values []float64
}

// NewSmoother returns a smoother; factor 0 passes values through.
func NewSmoother(factor float64) *Smoother {
	return &Smoother{factor: max(0, min(factor, 0.99))}
}

// Apply folds magnitudes into the state and returns it. The returned slice
// is reused by the next call. A length change resets the state.
func (s *Smoother) Apply(magnitudes []float64) []float64 {
	if len(s.values) != len(magnitudes) {
		s.values = make([]float64, len(magnitudes))
	}
	for i, m := range magnitudes {
		s.values[i] = max(m, s.values[i]*s.factor)
	}
	return s.values
}

// Reset clears the state.
func (s *Smoother) Reset() {
	clear(s.values)
}
