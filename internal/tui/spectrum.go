// SPDX-License-Identifier: MIT
// Package tui renders the live spectrum and the device browser with Bubble Tea.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"pitch/internal/analysis"
	"pitch/internal/audio"
	"pitch/internal/config"
	"pitch/internal/transport"
	"pitch/pkg/build"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

const (
	defaultWidth  = 80
	defaultHeight = 24
	minBarRows    = 4
	chromeRows    = 8 // Title, labels, readout and help around the bars.
	stateInterval = 250 * time.Millisecond
)

// Eighth blocks, from empty to full.
var levels = []rune(" ▁▂▃▄▅▆▇█")

// Controller is the part of the engine the display drives.
type Controller interface {
	State() audio.State
	Path() string
	Stop() error
	Done() <-chan struct{}
}

// Display renders frames as a live spectrum. It is a transport.Transport:
// Send keeps only the newest frame, so a slow terminal never holds up the
// audio path.
type Display struct {
	config  *config.Config
	mailbox chan transport.Frame

	closed    chan struct{}
	closeOnce sync.Once
}

// NewDisplay returns a display configured by cfg. It can be handed to the
// engine as a sink before the engine exists to drive it.
func NewDisplay(cfg *config.Config) *Display {
	return &Display{
		config:  cfg,
		mailbox: make(chan transport.Frame, 1),
		closed:  make(chan struct{}),
	}
}

// Send replaces any frame the view has not picked up yet.
func (d *Display) Send(frame transport.Frame) error {
	select {
	case <-d.closed:
		return transport.ErrClosed
	default:
	}

	for {
		select {
		case d.mailbox <- frame:
			return nil
		default:
		}
		select {
		case <-d.mailbox:
		default:
		}
	}
}

// Close stops delivery. It is idempotent.
func (d *Display) Close() error {
	d.closeOnce.Do(func() { close(d.closed) })
	return nil
}

// Run shows the session driven by ctrl until the user quits or ctx is
// cancelled.
func (d *Display) Run(ctx context.Context, ctrl Controller) error {
	p := tea.NewProgram(
		newSpectrumModel(d, ctrl),
		tea.WithAltScreen(),
		tea.WithContext(ctx),
	)
	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}

// next waits for the next frame.
func (d *Display) next() tea.Cmd {
	return func() tea.Msg {
		select {
		case f := <-d.mailbox:
			return frameMsg(f)
		case <-d.closed:
			return closedMsg{}
		}
	}
}

type (
	frameMsg   transport.Frame
	closedMsg  struct{}
	doneMsg    struct{}
	tickMsg    time.Time
	stoppedMsg struct{ err error }
)

type keyMap struct {
	Stop key.Binding
	Quit key.Binding
}

var keys = keyMap{
	Stop: key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "stop")),
	Quit: key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
}

func (k keyMap) help() string {
	parts := make([]string, 0, 2)
	for _, b := range []key.Binding{k.Stop, k.Quit} {
		h := b.Help()
		parts = append(parts, h.Key+": "+h.Desc)
	}
	return strings.Join(parts, " • ")
}

// spectrumModel is the Bubble Tea model for the live view.
type spectrumModel struct {
	display  *Display
	ctrl     Controller
	tracker  *analysis.PitchTracker
	gate     *analysis.Gate
	calib    *analysis.Calibrator
	smoother *analysis.Smoother

	frame  transport.Frame
	bars   []float64
	pitch  analysis.Pitch
	frames int

	state  audio.State
	path   string
	width  int
	height int
	done   bool
	err    error
}

func newSpectrumModel(d *Display, ctrl Controller) spectrumModel {
	smoothing, threshold := config.DefaultTUISmoothing, config.DefaultGateThreshold
	if d.config != nil {
		smoothing, threshold = d.config.TUI.Smoothing, d.config.TUI.GateThreshold
	}
	m := spectrumModel{
		display:  d,
		ctrl:     ctrl,
		tracker:  analysis.NewPitchTracker(smoothing),
		gate:     analysis.NewGate(threshold),
		smoother: analysis.NewSmoother(smoothing),
		state:    ctrl.State(),
		path:     ctrl.Path(),
		width:    defaultWidth,
		height:   defaultHeight,
	}
	if d.config != nil {
		m.tracker.SetMinClarity(d.config.TUI.MinClarity)
		if d.config.TUI.CalibrateGate {
			m.calib = analysis.NewCalibrator(m.gate)
		}
	}
	return m
}

func (m spectrumModel) Init() tea.Cmd {
	return tea.Batch(m.display.next(), m.waitDone(), tick())
}

func (m spectrumModel) waitDone() tea.Cmd {
	done := m.ctrl.Done()
	return func() tea.Msg {
		<-done
		return doneMsg{}
	}
}

func tick() tea.Cmd {
	return tea.Tick(stateInterval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m spectrumModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height

	case frameMsg:
		m.frame = transport.Frame(msg)
		m.frames++
		m.bars = m.smoother.Apply(m.frame.Result.Magnitudes)
		if m.calib != nil && !m.calib.Add(m.frame.Level) {
			m.pitch = analysis.Pitch{}
			return m, m.display.next()
		}
		m.pitch = m.tracker.Update(m.frame.Result, m.gate.OpenLevel(m.frame.Level))
		return m, m.display.next()

	case closedMsg:
		return m, nil

	case doneMsg:
		m.done = true
		m.state = m.ctrl.State()

	case stoppedMsg:
		m.err = msg.err

	case tickMsg:
		m.state = m.ctrl.State()
		return m, tick()

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, keys.Stop):
			ctrl := m.ctrl
			return m, func() tea.Msg { return stoppedMsg{err: ctrl.Stop()} }
		}
	}
	return m, nil
}

func (m spectrumModel) View() string {
	var sb strings.Builder

	title := titleStyle.Render(build.GetBuildFlags().Name)
	status := infoStyle.Render(fmt.Sprintf("%s %s", m.state, m.path))
	if m.done {
		status = dimStyle.Render(fmt.Sprintf("finished %s", m.path))
	}
	sb.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, title, " ", status))
	sb.WriteString("\n\n")

	cols := max(m.width-2, 1)
	rows := max(m.height-chromeRows, minBarRows)
	if len(m.bars) == 0 {
		sb.WriteString(dimStyle.Render("waiting for audio..."))
		sb.WriteString(strings.Repeat("\n", rows))
	} else {
		for _, line := range renderBars(m.bars, cols, rows) {
			sb.WriteString(barStyle.Render(line))
			sb.WriteString("\n")
		}
	}
	sb.WriteString(axisLabels(m.frame.Band.Start, m.frame.Band.End, min(cols, max(len(m.bars), 1))))
	sb.WriteString("\n\n")

	sb.WriteString(m.readout())
	sb.WriteString("\n")
	if m.err != nil {
		sb.WriteString(errorStyle.Render(fmt.Sprintf("Error: %v", m.err)))
	}
	sb.WriteString("\n")
	sb.WriteString(infoStyle.Render(keys.help()))
	return sb.String()
}

func (m spectrumModel) readout() string {
	if m.frames == 0 {
		return dimStyle.Render("peak -")
	}
	if m.calib != nil && !m.calib.Done() {
		return dimStyle.Render(fmt.Sprintf("calibrating noise gate %d/%d", m.frames, analysis.CalibrationBlocks))
	}
	peak := fmt.Sprintf("peak %7.2f Hz", m.frame.Peak)
	pitch := dimStyle.Render("pitch -")
	if m.pitch.Voiced {
		pitch = peakStyle.Render(fmt.Sprintf("pitch %7.2f Hz", m.pitch.Hz))
	}
	meta := dimStyle.Render(fmt.Sprintf("#%d  %d Hz → %d Hz  level %.3f",
		m.frame.Sequence, m.frame.SampleRate, m.frame.DecimatedRate, m.frame.Level))
	return highlightStyle.Render(peak) + "  " + pitch + "  " + meta
}

// renderBars draws values as cols columns of rows lines, tallest value at
// full height. Adjacent bins sharing a column are merged by their maximum.
func renderBars(values []float64, cols, rows int) []string {
	if rows < 1 || cols < 1 {
		return nil
	}
	cols = min(cols, len(values))
	heights := make([]float64, cols)
	var peak float64
	for c := range heights {
		lo := c * len(values) / cols
		hi := max((c+1)*len(values)/cols, lo+1)
		for _, v := range values[lo:hi] {
			heights[c] = max(heights[c], v)
		}
		peak = max(peak, heights[c])
	}

	steps := len(levels) - 1
	lines := make([]string, rows)
	line := make([]rune, cols)
	for r := range rows {
		// Row 0 is the top line.
		floor := rows - 1 - r
		for c, h := range heights {
			units := 0
			if peak > 0 {
				units = int(h / peak * float64(rows*steps))
			}
			fill := min(max(units-floor*steps, 0), steps)
			line[c] = levels[fill]
		}
		lines[r] = string(line)
	}
	return lines
}

// axisLabels puts the band edges under the first and last column.
func axisLabels(start, end float64, width int) string {
	left := fmt.Sprintf("%.0f Hz", start)
	right := fmt.Sprintf("%.0f Hz", end)
	gap := width - len(left) - len(right)
	if gap < 1 {
		return left + " " + right
	}
	return dimStyle.Render(left + strings.Repeat(" ", gap) + right)
}

var _ transport.Transport = (*Display)(nil)
