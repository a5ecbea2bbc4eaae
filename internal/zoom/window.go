// SPDX-License-Identifier: MIT
package zoom

import (
	"fmt"
	"strings"

	"gonum.org/v1/gonum/dsp/window"
)

// Window selects an optional taper applied to the decimated block before the
// FFT. WindowRect leaves the samples untouched.
type Window int

const (
	WindowRect Window = iota
	WindowHann
	WindowHamming
	WindowBlackman
	WindowBlackmanNuttall
	WindowFlatTop
)

var windowNames = map[Window]string{
	WindowRect:            "rect",
	WindowHann:            "hann",
	WindowHamming:         "hamming",
	WindowBlackman:        "blackman",
	WindowBlackmanNuttall: "blackmannuttall",
	WindowFlatTop:         "flattop",
}

func (w Window) String() string {
	if name, ok := windowNames[w]; ok {
		return name
	}
	return fmt.Sprintf("Window(%d)", int(w))
}

// ParseWindow converts a case-insensitive name to a Window. The empty string
// and "none" mean WindowRect.
func ParseWindow(name string) (Window, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "none", "rect", "rectangular":
		return WindowRect, nil
	case "hann", "hanning":
		return WindowHann, nil
	case "hamming":
		return WindowHamming, nil
	case "blackman":
		return WindowBlackman, nil
	case "blackmannuttall":
		return WindowBlackmanNuttall, nil
	case "flattop":
		return WindowFlatTop, nil
	default:
		return WindowRect, invalidf("unknown window function %q", name)
	}
}

// coefficients returns the taper of length n, or nil for WindowRect.
func (w Window) coefficients(n int) []float64 {
	if w == WindowRect || n <= 0 {
		return nil
	}
	c := make([]float64, n)
	for i := range c {
		c[i] = 1
	}
	switch w {
	case WindowHann:
		window.Hann(c)
	case WindowHamming:
		window.Hamming(c)
	case WindowBlackman:
		window.Blackman(c)
	case WindowBlackmanNuttall:
		window.BlackmanNuttall(c)
	case WindowFlatTop:
		window.FlatTop(c)
	default:
		return nil
	}
	return c
}
