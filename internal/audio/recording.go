// SPDX-License-Identifier: MIT
package audio

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// Recordings are always 16-bit mono PCM.
const (
	recordBitDepth = 16
	recordChannels = 1
)

// WAVWriter writes 16-bit mono PCM. It is not safe for concurrent use;
// the engine writes from the input callback only.
type WAVWriter struct {
	path       string
	file       *os.File
	encoder    *wav.Encoder
	sampleBuf  *audio.IntBuffer // Reusable buffer for format conversion
	sampleRate int
	frames     int64
}

// CreateWAV creates path, and its directory if missing, for a recording at
// sampleRate.
func CreateWAV(path string, sampleRate int) (*WAVWriter, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("%w: sample rate %d", ErrUnsupportedFormat, sampleRate)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}

	file, err := os.Create(path)
	if err != nil {
		return nil, err
	}

	return &WAVWriter{
		path:    path,
		file:    file,
		encoder: wav.NewEncoder(file, sampleRate, recordBitDepth, recordChannels, wavFormatPCM),
		sampleBuf: &audio.IntBuffer{
			Format: &audio.Format{
				NumChannels: recordChannels,
				SampleRate:  sampleRate,
			},
			SourceBitDepth: recordBitDepth,
		},
		sampleRate: sampleRate,
	}, nil
}

// Write appends block to the file.
func (w *WAVWriter) Write(block []int16) error {
	if w.encoder == nil {
		return fmt.Errorf("write %s: %w", w.path, os.ErrClosed)
	}
	if cap(w.sampleBuf.Data) < len(block) {
		w.sampleBuf.Data = make([]int, len(block))
	}
	w.sampleBuf.Data = w.sampleBuf.Data[:len(block)]
	for i, sample := range block {
		w.sampleBuf.Data[i] = int(sample)
	}

	if err := w.encoder.Write(w.sampleBuf); err != nil {
		return err
	}
	w.frames += int64(len(block))
	return nil
}

// Path returns the file being written.
func (w *WAVWriter) Path() string {
	return w.path
}

// Frames returns the number of samples written.
func (w *WAVWriter) Frames() int64 {
	return w.frames
}

// Close finalises the WAV header and closes the file. It is idempotent.
func (w *WAVWriter) Close() error {
	if w.encoder == nil {
		return nil
	}
	encErr := w.encoder.Close()
	w.encoder = nil
	fileErr := w.file.Close()
	if encErr != nil {
		return encErr
	}
	return fileErr
}
