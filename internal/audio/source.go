// SPDX-License-Identifier: MIT
package audio

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// Source yields blocks of mono 16-bit samples.
type Source interface {
	// ReadBlock fills dst and returns the number of samples read. At the
	// end of the stream it returns 0, io.EOF.
	ReadBlock(dst []int16) (int, error)
	SampleRate() int
	// Position is the number of samples read so far.
	Position() int64
}

// WAVSource streams a 16-bit mono PCM WAV file.
type WAVSource struct {
	file       *os.File
	decoder    *wav.Decoder
	buf        *audio.IntBuffer
	sampleRate int
	frames     int64
	position   int64
}

// OpenWAV opens path and validates its header. Files that are not 16-bit
// mono PCM fail with ErrUnsupportedFormat before any sample is read.
func OpenWAV(path string) (*WAVSource, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	src, err := newWAVSource(file)
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return src, nil
}

func newWAVSource(file *os.File) (*WAVSource, error) {
	decoder := wav.NewDecoder(file)
	if !decoder.IsValidFile() {
		return nil, fmt.Errorf("%w: not a WAV file", ErrUnsupportedFormat)
	}

	format, err := FormatOf(int(decoder.BitDepth), int(decoder.NumChans), int(decoder.WavAudioFormat))
	if err != nil {
		return nil, err
	}
	if decoder.SampleRate == 0 {
		return nil, fmt.Errorf("%w: zero sample rate", ErrUnsupportedFormat)
	}
	if err := decoder.FwdToPCM(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedFormat, err)
	}

	return &WAVSource{
		file:       file,
		decoder:    decoder,
		buf:        &audio.IntBuffer{Format: decoder.Format(), SourceBitDepth: 16},
		sampleRate: int(decoder.SampleRate),
		frames:     decoder.PCMLen() / int64(format.BytesPerFrame()),
	}, nil
}

// ReadBlock reads up to len(dst) samples. A short block is returned at the
// end of the file, then 0, io.EOF.
func (s *WAVSource) ReadBlock(dst []int16) (int, error) {
	if len(dst) == 0 {
		return 0, nil
	}
	if cap(s.buf.Data) < len(dst) {
		s.buf.Data = make([]int, len(dst))
	}
	s.buf.Data = s.buf.Data[:len(dst)]

	n, err := s.decoder.PCMBuffer(s.buf)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return 0, fmt.Errorf("read samples: %w", err)
	}
	if n == 0 {
		return 0, io.EOF
	}

	for i, v := range s.buf.Data[:n] {
		dst[i] = int16(v)
	}
	s.position += int64(n)
	return n, nil
}

// SampleRate returns the file's sample rate in Hz.
func (s *WAVSource) SampleRate() int {
	return s.sampleRate
}

// Frames returns the number of samples in the file.
func (s *WAVSource) Frames() int64 {
	return s.frames
}

// Position returns the number of samples read so far.
func (s *WAVSource) Position() int64 {
	return s.position
}

// Close closes the file.
func (s *WAVSource) Close() error {
	return s.file.Close()
}

var _ Source = (*WAVSource)(nil)
