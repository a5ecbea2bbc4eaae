// SPDX-License-Identifier: MIT
// Package transport delivers analyzed frames to displays and the network.
package transport

import (
	"errors"
	"sync"
	"time"

	"pitch/internal/zoom"
)

// Transport receives one Frame per analyzed block. Implementations must be
// safe for concurrent use and must not block the caller for long: frames
// are produced on the audio path.
type Transport interface {
	Send(frame Frame) error
	Close() error
}

// Frame is a zoomed spectrum plus the metadata a display needs to label it.
type Frame struct {
	Sequence      uint32      `json:"seq"`
	Timestamp     time.Time   `json:"timestamp"`
	SampleRate    int         `json:"sample_rate"`
	DecimatedRate int         `json:"decimated_rate"`
	Band          zoom.Band   `json:"band"`
	Level         float64     `json:"level"`
	Peak          float64     `json:"peak_hz"`
	PeakMagnitude float64     `json:"peak_magnitude"`
	Result        zoom.Result `json:"spectrum"`
}

// NewFrame wraps res with the analyzer's parameters and its peak.
func NewFrame(seq uint32, ts time.Time, a *zoom.Analyzer, res zoom.Result) Frame {
	p := a.Params()
	hz, mag, _ := res.Peak()
	return Frame{
		Sequence:      seq,
		Timestamp:     ts,
		SampleRate:    p.SampleRate,
		DecimatedRate: a.DecimatedRate(),
		Band:          p.Band,
		Peak:          hz,
		PeakMagnitude: mag,
		Result:        res,
	}
}

// Fanout sends every frame to each of its transports.
type Fanout []Transport

// Send delivers frame to all transports and joins their errors.
func (f Fanout) Send(frame Frame) error {
	var errs []error
	for _, t := range f {
		if err := t.Send(frame); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Close closes all transports and joins their errors.
func (f Fanout) Close() error {
	var errs []error
	for _, t := range f {
		if err := t.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Recorder keeps every frame it is sent. It is the sink used by tests and
// by the analyze command.
type Recorder struct {
	mu     sync.Mutex
	frames []Frame
	closed bool
}

// ErrClosed is returned by Send after Close.
var ErrClosed = errors.New("transport: closed")

func (r *Recorder) Send(frame Frame) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return ErrClosed
	}
	r.frames = append(r.frames, frame)
	return nil
}

func (r *Recorder) Close() error {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()
	return nil
}

// Frames returns a copy of the frames received so far.
func (r *Recorder) Frames() []Frame {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Frame, len(r.frames))
	copy(out, r.frames)
	return out
}

// Len returns the number of frames received.
func (r *Recorder) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.frames)
}

var (
	_ Transport = Fanout(nil)
	_ Transport = (*Recorder)(nil)
)
