// SPDX-License-Identifier: MIT
package audio

import (
	"errors"
	"fmt"
)

// ErrUnsupportedFormat is returned for audio that is not 16-bit mono PCM.
var ErrUnsupportedFormat = errors.New("audio: unsupported format")

// wavFormatPCM is the WAVE_FORMAT_PCM tag.
const wavFormatPCM = 1

// SampleFormat identifies a sample layout the engine can stream.
type SampleFormat int

const (
	FormatUnknown SampleFormat = iota
	FormatPCM16Mono
)

func (f SampleFormat) String() string {
	switch f {
	case FormatPCM16Mono:
		return "pcm16-mono"
	default:
		return "unknown"
	}
}

// BytesPerFrame returns the size of one frame, 0 for FormatUnknown.
func (f SampleFormat) BytesPerFrame() int {
	if f == FormatPCM16Mono {
		return 2
	}
	return 0
}

// FormatOf maps a WAV header to a SampleFormat.
func FormatOf(bitDepth, channels, audioFormat int) (SampleFormat, error) {
	if audioFormat != wavFormatPCM {
		return FormatUnknown, fmt.Errorf("%w: audio format %d is not PCM", ErrUnsupportedFormat, audioFormat)
	}
	if bitDepth != 16 {
		return FormatUnknown, fmt.Errorf("%w: %d-bit samples, want 16-bit", ErrUnsupportedFormat, bitDepth)
	}
	if channels != 1 {
		return FormatUnknown, fmt.Errorf("%w: %d channels, want mono", ErrUnsupportedFormat, channels)
	}
	return FormatPCM16Mono, nil
}
