// SPDX-License-Identifier: MIT
package audio

import (
	"errors"
	"math"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"pitch/internal/config"
	"pitch/internal/transport"
	"pitch/pkg/utils"
)

const (
	testSampleRate = 44100
	testFrameSize  = 2048
	testTone       = 250.0
	testTimeout    = 5 * time.Second
)

// fakeStream calls its callback from its own goroutine until stopped, like a
// device would.
type fakeStream struct {
	callback func([]int16)
	buf      []int16
	input    []int16
	rate     int

	mu      sync.Mutex
	quit    chan struct{}
	wg      sync.WaitGroup
	started bool
	closed  bool
}

func (f *fakeStream) Start() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.quit = make(chan struct{})
	f.started = true
	f.wg.Add(1)
	go f.run(f.quit)
	return nil
}

func (f *fakeStream) run(quit chan struct{}) {
	defer f.wg.Done()
	for {
		select {
		case <-quit:
			return
		default:
		}
		if f.input != nil {
			copy(f.buf, f.input)
		}
		f.callback(f.buf)
		time.Sleep(time.Millisecond)
	}
}

func (f *fakeStream) Stop() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.started {
		close(f.quit)
		f.wg.Wait()
		f.started = false
	}
	return nil
}

func (f *fakeStream) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeStream) isClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

type fakeDevice struct {
	mu      sync.Mutex
	input   []int16
	streams []*fakeStream
	err     error
}

func (d *fakeDevice) open(sampleRate, framesPerBuffer int, callback func([]int16)) (stream, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.err != nil {
		return nil, d.err
	}
	s := &fakeStream{
		callback: callback,
		buf:      make([]int16, framesPerBuffer),
		input:    d.input,
		rate:     sampleRate,
	}
	d.streams = append(d.streams, s)
	return s, nil
}

func (d *fakeDevice) last() *fakeStream {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.streams) == 0 {
		return nil
	}
	return d.streams[len(d.streams)-1]
}

func newTestEngine(t *testing.T) (*Engine, *fakeDevice, *transport.Recorder) {
	t.Helper()

	cfg := config.NewConfig()
	cfg.Audio.Chunk = testFrameSize
	rec := &transport.Recorder{}

	e, err := NewEngine(cfg, rec)
	if err != nil {
		t.Fatalf("NewEngine() error: %v", err)
	}

	dev := &fakeDevice{input: utils.GenerateSineInt16(testFrameSize, testSampleRate, testTone, 10000)}
	e.openInput = dev.open
	e.openOutput = dev.open
	t.Cleanup(func() { e.Close() })
	return e, dev, rec
}

func writeTestWAV(t *testing.T, path string, samples []int16) {
	t.Helper()
	w, err := CreateWAV(path, testSampleRate)
	if err != nil {
		t.Fatalf("CreateWAV() error: %v", err)
	}
	if err := w.Write(samples); err != nil {
		t.Fatalf("Write() error: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close() error: %v", err)
	}
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(testTimeout)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(time.Millisecond)
	}
}

func TestNewEngineRejectsConfig(t *testing.T) {
	if _, err := NewEngine(nil, nil); err == nil {
		t.Error("NewEngine(nil) succeeded")
	}

	cfg := config.NewConfig()
	cfg.Zoom.Bins = 0
	if _, err := NewEngine(cfg, nil); !errors.Is(err, config.ErrInvalidConfig) {
		t.Errorf("NewEngine() error = %v, want ErrInvalidConfig", err)
	}
}

func TestEngineIdle(t *testing.T) {
	e, _, _ := newTestEngine(t)

	if e.State() != Idle {
		t.Errorf("State() = %v, want idle", e.State())
	}
	if e.Path() != "" {
		t.Errorf("Path() = %q, want empty", e.Path())
	}
	select {
	case <-e.Done():
	default:
		t.Error("Done() not closed while idle")
	}
	if err := e.Stop(); err != nil {
		t.Errorf("Stop() while idle = %v, want nil", err)
	}
}

func TestPlayToEnd(t *testing.T) {
	e, dev, rec := newTestEngine(t)

	const blocks = 6
	path := filepath.Join(t.TempDir(), "tone.wav")
	writeTestWAV(t, path, utils.GenerateSineInt16(blocks*testFrameSize, testSampleRate, testTone, 10000))

	if err := e.Play(path); err != nil {
		t.Fatalf("Play() error: %v", err)
	}
	if e.Path() != path {
		t.Errorf("Path() = %q, want %q", e.Path(), path)
	}

	select {
	case <-e.Done():
	case <-time.After(testTimeout):
		t.Fatal("playback did not reach the end of the file")
	}

	if e.State() != Idle {
		t.Errorf("State() after end of file = %v, want idle", e.State())
	}
	if s := dev.last(); s == nil || !s.isClosed() || s.rate != testSampleRate {
		t.Error("output stream not opened at the file rate and closed")
	}

	frames := rec.Frames()
	if len(frames) == 0 || len(frames) > blocks {
		t.Fatalf("got %d frames, want 1..%d", len(frames), blocks)
	}
	for i, f := range frames {
		if math.Abs(f.Peak-testTone) > 1 {
			t.Errorf("frame %d peak = %.2f Hz, want %.0f Hz", i, f.Peak, testTone)
		}
		if f.SampleRate != testSampleRate || f.DecimatedRate != 604 {
			t.Errorf("frame %d rates = %d/%d, want 44100/604", i, f.SampleRate, f.DecimatedRate)
		}
		if f.Level <= 0 {
			t.Errorf("frame %d level = %v, want > 0", i, f.Level)
		}
		if i > 0 && f.Sequence <= frames[i-1].Sequence {
			t.Errorf("frame %d sequence %d not increasing", i, f.Sequence)
		}
	}
}

func TestPlayStop(t *testing.T) {
	e, _, rec := newTestEngine(t)

	path := filepath.Join(t.TempDir(), "long.wav")
	writeTestWAV(t, path, utils.GenerateSineInt16(testSampleRate*30, testSampleRate, testTone, 10000))

	if err := e.Play(path); err != nil {
		t.Fatalf("Play() error: %v", err)
	}
	if e.State() != Playing {
		t.Errorf("State() = %v, want playing", e.State())
	}
	done := e.Done()

	waitFor(t, "a frame", func() bool { return rec.Len() > 0 })

	if err := e.Play(path); !errors.Is(err, ErrBusy) {
		t.Errorf("second Play() error = %v, want ErrBusy", err)
	}
	if err := e.Record(filepath.Join(t.TempDir(), "x.wav")); !errors.Is(err, ErrBusy) {
		t.Errorf("Record() while playing error = %v, want ErrBusy", err)
	}

	if err := e.Stop(); err != nil {
		t.Fatalf("Stop() error: %v", err)
	}
	if e.State() != Idle {
		t.Errorf("State() after Stop = %v, want idle", e.State())
	}
	select {
	case <-done:
	default:
		t.Error("Done() channel not closed after Stop")
	}

	// The engine is reusable.
	if err := e.Play(path); err != nil {
		t.Fatalf("Play() after Stop error: %v", err)
	}
	if err := e.Stop(); err != nil {
		t.Fatalf("Stop() error: %v", err)
	}
}

func TestPlayRejectsFile(t *testing.T) {
	e, dev, _ := newTestEngine(t)
	dir := t.TempDir()

	if err := e.Play(filepath.Join(dir, "missing.wav")); err == nil {
		t.Error("Play() of a missing file succeeded")
	}

	stereo := filepath.Join(dir, "stereo.wav")
	writeEncodedWAV(t, stereo, 16, 2, make([]int, 2*testFrameSize))
	if err := e.Play(stereo); !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("Play() of stereo file error = %v, want ErrUnsupportedFormat", err)
	}

	dev.err = errors.New("no device")
	mono := filepath.Join(dir, "mono.wav")
	writeTestWAV(t, mono, make([]int16, testFrameSize))
	if err := e.Play(mono); err == nil {
		t.Error("Play() without an output device succeeded")
	}

	if e.State() != Idle {
		t.Errorf("State() after failed Play = %v, want idle", e.State())
	}
}

func TestRecord(t *testing.T) {
	e, _, rec := newTestEngine(t)

	path := filepath.Join(t.TempDir(), "takes", "take.wav")
	if err := e.Record(path); err != nil {
		t.Fatalf("Record() error: %v", err)
	}
	if e.State() != Recording {
		t.Errorf("State() = %v, want recording", e.State())
	}

	waitFor(t, "three frames", func() bool { return rec.Len() >= 3 })

	if err := e.Stop(); err != nil {
		t.Fatalf("Stop() error: %v", err)
	}
	if e.State() != Idle {
		t.Errorf("State() after Stop = %v, want idle", e.State())
	}

	for i, f := range rec.Frames() {
		if math.Abs(f.Peak-testTone) > 1 {
			t.Errorf("frame %d peak = %.2f Hz, want %.0f Hz", i, f.Peak, testTone)
		}
	}

	src, err := OpenWAV(path)
	if err != nil {
		t.Fatalf("OpenWAV() of recording error: %v", err)
	}
	defer src.Close()

	if src.SampleRate() != config.RecordSampleRate {
		t.Errorf("recording rate = %d, want %d", src.SampleRate(), config.RecordSampleRate)
	}
	if src.Frames() < 3*testFrameSize || src.Frames()%testFrameSize != 0 {
		t.Errorf("recording has %d samples, want a multiple of %d and at least 3 blocks", src.Frames(), testFrameSize)
	}
}

func TestRecordDeviceError(t *testing.T) {
	e, dev, _ := newTestEngine(t)
	dev.err = errors.New("no device")

	path := filepath.Join(t.TempDir(), "take.wav")
	if err := e.Record(path); err == nil {
		t.Fatal("Record() without an input device succeeded")
	}
	if _, err := OpenWAV(path); err == nil {
		t.Error("failed Record() left a file behind")
	}
	if e.State() != Idle {
		t.Errorf("State() = %v, want idle", e.State())
	}
}

func TestEngineClosed(t *testing.T) {
	e, _, _ := newTestEngine(t)

	if err := e.Record(filepath.Join(t.TempDir(), "take.wav")); err != nil {
		t.Fatalf("Record() error: %v", err)
	}
	if err := e.Close(); err != nil {
		t.Fatalf("Close() error: %v", err)
	}
	if e.State() != Idle {
		t.Errorf("State() after Close = %v, want idle", e.State())
	}
	if err := e.Play("any.wav"); !errors.Is(err, ErrClosed) {
		t.Errorf("Play() after Close error = %v, want ErrClosed", err)
	}
	if err := e.Record("any.wav"); !errors.Is(err, ErrClosed) {
		t.Errorf("Record() after Close error = %v, want ErrClosed", err)
	}
}

// TestCallbackHotPath checks that the input callback does not allocate once
// the free list is primed.
func TestCallbackHotPath(t *testing.T) {
	e, _, _ := newTestEngine(t)
	s := e.newSession(Recording, "", e.recordAnalyzer)
	in := utils.GenerateSineInt16(testFrameSize, testSampleRate, testTone, 10000)

	for range queueDepth {
		s.free <- make([]int16, 0, testFrameSize)
	}

	allocs := testing.AllocsPerRun(100, func() {
		e.enqueue(s, in)
		b := <-s.blocks
		s.recycle(b.samples)
	})
	if allocs > 0 {
		t.Errorf("enqueue allocated %.1f times per block, want 0", allocs)
	}
}

func TestEnqueueDropsWhenFull(t *testing.T) {
	e, _, _ := newTestEngine(t)
	s := e.newSession(Recording, "", e.recordAnalyzer)
	in := make([]int16, testFrameSize)

	for range queueDepth + 3 {
		e.enqueue(s, in)
	}
	if got := s.dropped.Load(); got != 3 {
		t.Errorf("dropped = %d, want 3", got)
	}
	if len(s.blocks) != queueDepth {
		t.Errorf("queued = %d, want %d", len(s.blocks), queueDepth)
	}
}

func TestPlaybackReadsAhead(t *testing.T) {
	e, _, _ := newTestEngine(t)

	samples := utils.GenerateSineInt16(2*testFrameSize+100, testSampleRate, testTone, 10000)
	path := filepath.Join(t.TempDir(), "ahead.wav")
	writeTestWAV(t, path, samples)
	src, err := OpenWAV(path)
	if err != nil {
		t.Fatalf("OpenWAV() error: %v", err)
	}
	defer src.Close()

	s := e.newSession(Playing, path, e.recordAnalyzer)
	s.readFrom(src, testFrameSize)

	// Nothing decoded yet: the callback plays silence instead of waiting.
	out := make([]int16, testFrameSize)
	out[0] = 1
	e.processOutput(s, out)
	if out[0] != 0 || s.underruns.Load() != 1 || len(s.blocks) != 0 {
		t.Fatalf("processOutput() before read-ahead: out[0]=%d underruns=%d queued=%d",
			out[0], s.underruns.Load(), len(s.blocks))
	}

	s.reader.Add(1)
	go e.readAhead(s)
	defer func() {
		close(s.quit)
		s.reader.Wait()
	}()
	waitFor(t, "decoded blocks", func() bool { return len(s.ahead) == readAheadDepth })

	var played []int16
	for range 3 {
		waitFor(t, "next block", func() bool { return len(s.ahead) > 0 || s.ending.Load() })
		e.processOutput(s, out)
		b := <-s.blocks
		played = append(played, b.samples...)
	}
	if len(played) != len(samples) {
		t.Fatalf("played %d samples, want %d", len(played), len(samples))
	}
	for i := range samples {
		if played[i] != samples[i] {
			t.Fatalf("sample %d = %d, want %d", i, played[i], samples[i])
		}
	}
	if out[100] != 0 {
		t.Error("short last block not padded with silence")
	}

	waitFor(t, "end of file", func() bool {
		select {
		case _, ok := <-s.ahead:
			return !ok
		default:
			return false
		}
	})
	e.processOutput(s, out)
	if !s.ending.Load() {
		t.Error("end of file did not end the session")
	}
}

func TestProcessBlocksCountsClipping(t *testing.T) {
	e, _, rec := newTestEngine(t)
	s := e.newSession(Recording, "", e.recordAnalyzer)

	loud := utils.GenerateSineInt16(testFrameSize, testSampleRate, testTone, 1e6)
	quiet := utils.GenerateSineInt16(testFrameSize, testSampleRate, testTone, 1000)
	s.blocks <- block{samples: loud, timestamp: time.Now()}
	s.blocks <- block{samples: quiet, timestamp: time.Now()}
	close(s.blocks)

	s.worker.Add(1)
	e.processBlocks(s)

	if got := s.clipped.Load(); got != 1 {
		t.Errorf("clipped = %d, want 1", got)
	}
	if rec.Len() != 2 {
		t.Errorf("sent %d frames, want 2", rec.Len())
	}
}
