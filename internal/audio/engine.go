// SPDX-License-Identifier: MIT
/*
Package audio plays and records 16-bit mono PCM through PortAudio and
feeds every block to the zoom analyzer.

Thread Safety:
  - Session state is an atomic state machine; transitions hold the engine mutex
  - Device callbacks only copy samples into a bounded queue and never block
  - Analysis and sink delivery run on one worker goroutine per session
*/
package audio

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"pitch/internal/analysis"
	"pitch/internal/config"
	"pitch/internal/log"
	"pitch/internal/transport"
	"pitch/internal/zoom"
)

// queueDepth is the number of blocks buffered between the device callback
// and the analysis worker. Blocks arriving while it is full are dropped from
// analysis; recording is unaffected.
const queueDepth = 8

// readAheadDepth is the number of file blocks kept decoded ahead of the
// output callback during playback.
const readAheadDepth = 2

// stream is the part of *portaudio.Stream the engine drives.
type stream interface {
	Start() error
	Stop() error
	Close() error
}

// streamOpener opens a mono 16-bit stream. callback receives one block per
// device buffer.
type streamOpener func(sampleRate, framesPerBuffer int, callback func([]int16)) (stream, error)

type block struct {
	samples   []int16
	timestamp time.Time
}

// session is one play or record run.
type session struct {
	kind     State
	path     string
	stream   stream
	source   *WAVSource
	writer   *WAVWriter
	analyzer *zoom.Analyzer

	blocks  chan block
	free    chan []int16
	ending  atomic.Bool
	dropped atomic.Uint64
	clipped atomic.Uint64
	done    chan struct{}
	worker  sync.WaitGroup

	// Playback only. ahead is closed by the reader at the end of the file.
	ahead     chan []int16
	spare     chan []int16
	quit      chan struct{}
	reader    sync.WaitGroup
	underruns atomic.Uint64

	writeFailures atomic.Uint64
}

// readFrom prepares the read-ahead buffers for playing src in blocks of
// chunk samples.
func (s *session) readFrom(src *WAVSource, chunk int) {
	s.source = src
	s.ahead = make(chan []int16, readAheadDepth)
	s.spare = make(chan []int16, readAheadDepth+1)
	s.quit = make(chan struct{})
	for range readAheadDepth + 1 {
		s.spare <- make([]int16, chunk)
	}
}

func (s *session) recycle(buf []int16) {
	select {
	case s.free <- buf:
	default:
	}
}

// Engine owns the device stream, the open file and the analyzer for the
// current session. One session runs at a time.
type Engine struct {
	config *config.Config
	sink   transport.Transport
	logger *log.Logger

	openInput  streamOpener
	openOutput streamOpener

	// Built once; the record rate is fixed.
	recordAnalyzer *zoom.Analyzer

	mu     sync.Mutex
	state  stateMachine
	cur    *session
	closed bool

	sequence atomic.Uint32
}

// closedChan is returned by Done when no session is running.
var closedChan = func() chan struct{} {
	c := make(chan struct{})
	close(c)
	return c
}()

// NewEngine validates cfg and prepares an engine that sends frames to sink.
// Configuration errors are reported here rather than per block.
func NewEngine(cfg *config.Config, sink transport.Transport) (*Engine, error) {
	if cfg == nil {
		return nil, errors.New("audio: nil config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	a, err := zoom.NewAnalyzer(cfg.ZoomParams(cfg.Audio.SampleRate))
	if err != nil {
		return nil, fmt.Errorf("record analyzer: %w", err)
	}
	if sink == nil {
		sink = transport.Fanout{}
	}

	e := &Engine{
		config:         cfg,
		sink:           sink,
		logger:         log.Named("engine"),
		recordAnalyzer: a,
	}
	e.openInput = e.paOpenInput
	e.openOutput = e.paOpenOutput
	return e, nil
}

// State returns the current session state.
func (e *Engine) State() State {
	return e.state.Load()
}

// Done is closed when the current session ends, either at the end of the
// file or through Stop. With no session it returns a closed channel.
func (e *Engine) Done() <-chan struct{} {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.cur == nil {
		return closedChan
	}
	return e.cur.done
}

// Path returns the file of the current session, or "".
func (e *Engine) Path() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.cur == nil {
		return ""
	}
	return e.cur.path
}

// Play streams the WAV file at path to the output device. The analyzer
// follows the file's sample rate.
func (e *Engine) Play(path string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.checkIdle(); err != nil {
		return err
	}

	src, err := OpenWAV(path)
	if err != nil {
		return err
	}
	a, err := zoom.NewAnalyzer(e.config.ZoomParams(src.SampleRate()))
	if err != nil {
		src.Close()
		return fmt.Errorf("%s: %w", path, err)
	}

	s := e.newSession(Playing, path, a)
	s.readFrom(src, e.config.Audio.Chunk)
	st, err := e.openOutput(src.SampleRate(), e.config.Audio.Chunk, func(out []int16) {
		e.processOutput(s, out)
	})
	if err != nil {
		src.Close()
		return fmt.Errorf("open output stream: %w", err)
	}
	s.stream = st

	e.logger.Infof("playing %s (%d Hz, %d samples, D=%d)", path, src.SampleRate(), src.Frames(), a.DecimationFactor())
	return e.start(s)
}

// Record captures the input device at the configured rate into a new WAV
// file at path.
func (e *Engine) Record(path string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.checkIdle(); err != nil {
		return err
	}

	rate := e.config.Audio.SampleRate
	w, err := CreateWAV(path, rate)
	if err != nil {
		return err
	}

	s := e.newSession(Recording, path, e.recordAnalyzer)
	s.writer = w
	st, err := e.openInput(rate, e.config.Audio.Chunk, func(in []int16) {
		e.processInput(s, in)
	})
	if err != nil {
		w.Close()
		os.Remove(path)
		return fmt.Errorf("open input stream: %w", err)
	}
	s.stream = st

	e.logger.Infof("recording %s (%d Hz)", path, rate)
	return e.start(s)
}

// Stop ends the current session. It is a no-op when idle.
func (e *Engine) Stop() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stopLocked()
}

// Close stops any session. Later Play and Record calls fail with ErrClosed.
// The sink is not closed.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	err := e.stopLocked()
	e.closed = true
	return err
}

func (e *Engine) checkIdle() error {
	if e.closed {
		return ErrClosed
	}
	if st := e.state.Load(); st != Idle {
		return fmt.Errorf("%w: %s", ErrBusy, st)
	}
	return nil
}

func (e *Engine) newSession(kind State, path string, a *zoom.Analyzer) *session {
	return &session{
		kind:     kind,
		path:     path,
		analyzer: a,
		blocks:   make(chan block, queueDepth),
		free:     make(chan []int16, queueDepth+2),
		done:     make(chan struct{}),
	}
}

// start moves Idle to the session's state, then starts the worker and the
// stream. Called with mu held.
func (e *Engine) start(s *session) error {
	if err := e.state.transition(Idle, s.kind); err != nil {
		e.release(s)
		return err
	}
	e.cur = s

	s.worker.Add(1)
	go e.processBlocks(s)
	if s.quit != nil {
		s.reader.Add(1)
		go e.readAhead(s)
	}

	if err := s.stream.Start(); err != nil {
		e.stopLocked()
		return fmt.Errorf("start stream: %w", err)
	}
	return nil
}

func (e *Engine) stopLocked() error {
	s := e.cur
	if s == nil {
		return nil
	}
	if err := e.state.transition(s.kind, Stopped); err != nil {
		return err
	}
	err := e.release(s)
	e.cur = nil
	if terr := e.state.transition(Stopped, Idle); terr != nil {
		err = errors.Join(err, terr)
	}
	close(s.done)
	return err
}

// finish ends a playback session that reached the end of its file.
func (e *Engine) finish(s *session) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.cur != s {
		return // Stopped in the meantime.
	}

	err := e.release(s)
	if terr := e.state.transition(Playing, Idle); terr != nil {
		err = errors.Join(err, terr)
	}
	if err != nil {
		e.logger.Errorf("finishing %s: %v", s.path, err)
	}
	e.cur = nil
	close(s.done)
	e.logger.Infof("finished %s", s.path)
}

// release stops the stream, closes the file and waits for the worker.
func (e *Engine) release(s *session) error {
	var errs []error
	if s.stream != nil {
		if err := s.stream.Stop(); err != nil {
			errs = append(errs, fmt.Errorf("stop stream: %w", err))
		}
		if err := s.stream.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close stream: %w", err))
		}
		s.stream = nil
	}
	if s.quit != nil {
		close(s.quit)
		s.reader.Wait()
	}

	// The stream is stopped, so no callback can still be sending.
	close(s.blocks)
	s.worker.Wait()

	if s.source != nil {
		if err := s.source.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if s.writer != nil {
		if err := s.writer.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", s.path, err))
		}
		e.logger.Infof("saved %s (%d samples)", s.path, s.writer.Frames())
	}
	if n := s.dropped.Load(); n > 0 {
		e.logger.Warnf("%d blocks were not analyzed in time", n)
	}
	if n := s.clipped.Load(); n > 0 {
		e.logger.Warnf("%d blocks reached full scale", n)
	}
	if n := s.underruns.Load(); n > 0 {
		e.logger.Debugf("%d output buffers played silence while the file was read", n)
	}
	return errors.Join(errs...)
}

// processOutput is the playback callback. It only copies a block the
// reader has already decoded; when none is ready the buffer is silent. The
// end of the file schedules the transition back to Idle.
func (e *Engine) processOutput(s *session, out []int16) {
	select {
	case buf, ok := <-s.ahead:
		if !ok {
			clear(out)
			// The stream cannot be stopped from its own callback.
			if s.ending.CompareAndSwap(false, true) {
				go e.finish(s)
			}
			return
		}
		n := copy(out, buf)
		clear(out[n:])
		e.enqueue(s, buf[:n])
		select {
		case s.spare <- buf[:cap(buf)]:
		default:
		}
	default:
		clear(out)
		s.underruns.Add(1)
	}
}

// readAhead decodes the file into spare buffers and queues them for the
// output callback. It closes s.ahead at the end of the file or on error.
func (e *Engine) readAhead(s *session) {
	defer s.reader.Done()
	defer close(s.ahead)

	for {
		var buf []int16
		select {
		case buf = <-s.spare:
		case <-s.quit:
			return
		}

		n, err := s.source.ReadBlock(buf)
		if n > 0 {
			select {
			case s.ahead <- buf[:n]:
			case <-s.quit:
				return
			}
		}
		if err != nil {
			if !errors.Is(err, io.EOF) {
				e.logger.Errorf("playback: %v", err)
			}
			return
		}
		if n == 0 {
			return
		}
	}
}

// processInput is the capture callback.
func (e *Engine) processInput(s *session, in []int16) {
	if err := s.writer.Write(in); err != nil {
		if n := s.writeFailures.Add(1); n == 1 || n%100 == 0 {
			e.logger.Errorf("writing %s (%d failures): %v", s.path, n, err)
		}
	}
	e.enqueue(s, in)
}

// enqueue hands a copy of samples to the worker without blocking.
func (e *Engine) enqueue(s *session, samples []int16) {
	var buf []int16
	select {
	case buf = <-s.free:
	default:
		buf = make([]int16, 0, e.config.Audio.Chunk)
	}
	buf = append(buf[:0], samples...)

	select {
	case s.blocks <- block{samples: buf, timestamp: time.Now()}:
	default:
		s.dropped.Add(1)
		s.recycle(buf)
	}
}

// processBlocks analyzes queued blocks and sends one frame per block.
// A failing block is logged and skipped.
func (e *Engine) processBlocks(s *session) {
	defer s.worker.Done()

	failures := 0
	for b := range s.blocks {
		res, err := s.analyzer.Process(b.samples)
		if err != nil {
			failures++
			e.logger.Debugf("block skipped: %v", err)
			if failures == config.DefaultMaxConsecutiveBlockFailures {
				e.logger.Errorf("%d consecutive blocks failed: %v", failures, err)
			}
			s.recycle(b.samples)
			continue
		}
		failures = 0

		if analysis.PeakAmplitude(b.samples) >= math.MaxInt16 {
			s.clipped.Add(1)
		}
		frame := transport.NewFrame(e.sequence.Add(1), b.timestamp, s.analyzer, res)
		frame.Level = analysis.Level(b.samples)
		if err := e.sink.Send(frame); err != nil {
			e.logger.Debugf("sink: %v", err)
		}
		s.recycle(b.samples)
	}
}
