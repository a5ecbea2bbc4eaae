// SPDX-License-Identifier: MIT
package tui

import (
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"pitch/internal/audio"
	"pitch/internal/config"
	"pitch/internal/transport"
	"pitch/internal/zoom"
	"pitch/pkg/utils"

	tea "github.com/charmbracelet/bubbletea"
)

type fakeController struct {
	state audio.State
	stops atomic.Int32
	done  chan struct{}
}

func newFakeController() *fakeController {
	return &fakeController{state: audio.Playing, done: make(chan struct{})}
}

func (c *fakeController) State() audio.State    { return c.state }
func (c *fakeController) Path() string          { return "data/take.wav" }
func (c *fakeController) Done() <-chan struct{} { return c.done }
func (c *fakeController) Stop() error {
	c.stops.Add(1)
	return nil
}

func toneFrame(t *testing.T, seq uint32, hz float64) transport.Frame {
	t.Helper()
	a, err := zoom.NewAnalyzer(zoom.Params{SampleRate: 44100, Bins: 1024, Band: zoom.DefaultBand})
	if err != nil {
		t.Fatal(err)
	}
	samples := utils.GenerateSineInt16(2048, 44100, hz, 10000)
	res, err := a.Process(samples)
	if err != nil {
		t.Fatal(err)
	}
	f := transport.NewFrame(seq, time.Time{}, a, res)
	f.Level = 0.2
	return f
}

func TestDisplayKeepsNewest(t *testing.T) {
	d := NewDisplay(config.NewConfig())

	for seq := uint32(1); seq <= 5; seq++ {
		if err := d.Send(transport.Frame{Sequence: seq}); err != nil {
			t.Fatalf("Send(%d) error: %v", seq, err)
		}
	}

	msg := d.next()()
	f, ok := msg.(frameMsg)
	if !ok {
		t.Fatalf("next() = %T, want frameMsg", msg)
	}
	if f.Sequence != 5 {
		t.Errorf("next() frame = %d, want the newest (5)", f.Sequence)
	}

	if err := d.Close(); err != nil {
		t.Fatalf("Close() error: %v", err)
	}
	if err := d.Close(); err != nil {
		t.Fatalf("second Close() error: %v", err)
	}
	if err := d.Send(transport.Frame{}); !errors.Is(err, transport.ErrClosed) {
		t.Errorf("Send() after Close error = %v, want ErrClosed", err)
	}
	if _, ok := d.next()().(closedMsg); !ok {
		t.Error("next() after Close did not report closedMsg")
	}
}

func TestSpectrumModelFrame(t *testing.T) {
	d := NewDisplay(config.NewConfig())
	var m tea.Model = newSpectrumModel(d, newFakeController())

	m, _ = m.Update(tea.WindowSizeMsg{Width: 100, Height: 30})
	if !strings.Contains(m.View(), "waiting for audio") {
		t.Error("View() before any frame should say it is waiting")
	}

	var cmd tea.Cmd
	for seq := uint32(1); seq <= 3; seq++ {
		m, cmd = m.Update(frameMsg(toneFrame(t, seq, 220)))
		if cmd == nil {
			t.Fatal("frame update did not ask for the next frame")
		}
	}

	sm := m.(spectrumModel)
	if sm.frames != 3 {
		t.Errorf("frames = %d, want 3", sm.frames)
	}
	if !sm.pitch.Voiced || sm.pitch.Hz < 219 || sm.pitch.Hz > 221 {
		t.Errorf("pitch = %+v, want voiced 220 Hz", sm.pitch)
	}

	view := m.View()
	for _, want := range []string{"pitch", "100 Hz", "400 Hz", "playing data/take.wav", "s: stop"} {
		if !strings.Contains(view, want) {
			t.Errorf("View() missing %q", want)
		}
	}
}

func TestSpectrumModelQuietFrame(t *testing.T) {
	d := NewDisplay(config.NewConfig())
	var m tea.Model = newSpectrumModel(d, newFakeController())

	f := toneFrame(t, 1, 220)
	f.Level = 0
	m, _ = m.Update(frameMsg(f))
	if m.(spectrumModel).pitch.Voiced {
		t.Error("pitch voiced on a silent block")
	}
}

func TestSpectrumModelKeys(t *testing.T) {
	ctrl := newFakeController()
	var m tea.Model = newSpectrumModel(NewDisplay(config.NewConfig()), ctrl)

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("s")})
	if cmd == nil {
		t.Fatal("s returned no command")
	}
	if msg, ok := cmd().(stoppedMsg); !ok || msg.err != nil {
		t.Errorf("stop command returned %v", msg)
	}
	if ctrl.stops.Load() != 1 {
		t.Errorf("Stop() called %d times, want 1", ctrl.stops.Load())
	}

	_, cmd = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	if cmd == nil {
		t.Fatal("q returned no command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("q did not quit")
	}
}

func TestSpectrumModelDone(t *testing.T) {
	ctrl := newFakeController()
	var m tea.Model = newSpectrumModel(NewDisplay(config.NewConfig()), ctrl)

	close(ctrl.done)
	ctrl.state = audio.Idle
	if _, ok := m.(spectrumModel).waitDone()().(doneMsg); !ok {
		t.Fatal("waitDone() did not report doneMsg")
	}
	m, _ = m.Update(doneMsg{})
	if !strings.Contains(m.View(), "finished data/take.wav") {
		t.Error("View() after end of session does not say finished")
	}
}

func TestRenderBars(t *testing.T) {
	lines := renderBars([]float64{0, 0.5, 1, 0.25}, 10, 2)
	if len(lines) != 2 {
		t.Fatalf("renderBars() returned %d lines, want 2", len(lines))
	}

	top, bottom := []rune(lines[0]), []rune(lines[1])
	if len(top) != 4 || len(bottom) != 4 {
		t.Fatalf("line widths = %d/%d, want 4", len(top), len(bottom))
	}
	want := [][2]rune{{' ', ' '}, {' ', '█'}, {'█', '█'}, {' ', '▄'}}
	for c, w := range want {
		if top[c] != w[0] || bottom[c] != w[1] {
			t.Errorf("column %d = %q/%q, want %q/%q", c, top[c], bottom[c], w[0], w[1])
		}
	}

	// Eight bins into two columns keep each half's maximum.
	merged := renderBars([]float64{1, 0, 0, 0, 0, 0, 0, 0.5}, 2, 1)
	if got := []rune(merged[0]); got[0] != '█' || got[1] != '▄' {
		t.Errorf("merged columns = %q, want full then half", merged[0])
	}

	if renderBars([]float64{1}, 0, 4) != nil {
		t.Error("renderBars() with no columns should return nil")
	}
	if lines := renderBars([]float64{0, 0}, 2, 1); lines[0] != "  " {
		t.Errorf("all-zero bars = %q, want blanks", lines[0])
	}
}

func TestSpectrumModelMinClarity(t *testing.T) {
	cfg := config.NewConfig()
	cfg.TUI.MinClarity = 1
	var m tea.Model = newSpectrumModel(NewDisplay(cfg), newFakeController())

	m, _ = m.Update(frameMsg(toneFrame(t, 1, 220)))
	if m.(spectrumModel).pitch.Voiced {
		t.Error("pitch voiced with min_clarity 1")
	}
	if !strings.Contains(m.View(), "pitch -") {
		t.Errorf("View() shows a pitch it should hide:\n%s", m.View())
	}
}

func TestSpectrumModelCalibrating(t *testing.T) {
	cfg := config.NewConfig()
	cfg.TUI.CalibrateGate = true
	var m tea.Model = newSpectrumModel(NewDisplay(cfg), newFakeController())

	for seq := uint32(1); seq <= 3; seq++ {
		m, _ = m.Update(frameMsg(toneFrame(t, seq, 220)))
	}
	if m.(spectrumModel).pitch.Voiced {
		t.Error("pitch shown while calibrating")
	}
	if !strings.Contains(m.View(), "calibrating noise gate 3/30") {
		t.Errorf("View() does not show calibration progress:\n%s", m.View())
	}
}
