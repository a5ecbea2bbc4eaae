// SPDX-License-Identifier: MIT
package zoom

import (
	"fmt"
	"math"
)

// Band is the zoom window in Hz.
type Band struct {
	Start float64 `json:"start" yaml:"start"`
	End   float64 `json:"end" yaml:"end"`
}

// DefaultBand covers the range of a speaking or singing fundamental.
var DefaultBand = Band{Start: 100, End: 400}

// Width returns End - Start.
func (b Band) Width() float64 {
	return b.End - b.Start
}

// Validate reports ErrInvalidParameter unless Start < End.
func (b Band) Validate() error {
	if math.IsNaN(b.Start) || math.IsNaN(b.End) || math.IsInf(b.Start, 0) || math.IsInf(b.End, 0) {
		return invalidf("band %v is not finite", b)
	}
	if b.Start >= b.End {
		return invalidf("band start %.2f Hz must be below band end %.2f Hz", b.Start, b.End)
	}
	return nil
}

// DecimationFactor returns floor(floor(fs/B)/2) for bandwidth B. A factor
// below 1 means the band is too wide for the sample rate and zooming would
// degenerate to a no-op.
func (b Band) DecimationFactor(sampleRate int) (int, error) {
	if err := b.Validate(); err != nil {
		return 0, err
	}
	if sampleRate <= 0 {
		return 0, invalidf("sample rate must be positive, got %d", sampleRate)
	}

	d := math.Floor(math.Floor(float64(sampleRate)/b.Width()) / 2)
	if d < 1 {
		return 0, invalidf("band %v is too wide for %d Hz (decimation factor %.0f)", b, sampleRate, d)
	}
	if d > math.MaxInt32 {
		return 0, invalidf("band %v is too narrow for %d Hz", b, sampleRate)
	}
	return int(d), nil
}

func (b Band) String() string {
	return fmt.Sprintf("%.1f-%.1f Hz", b.Start, b.End)
}
