// SPDX-License-Identifier: MIT
package cmd

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"pitch/internal/audio"
	"pitch/internal/config"
	"pitch/internal/zoom"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

// Analyze output styles.
const (
	StyleTable = "table"
	StyleCSV   = "csv"
)

var analyzeHeader = []string{"block", "time_s", "samples", "level", "peak_hz", "peak_magnitude"}

// Analyze runs the zoom FFT over cfg.Input without an audio device and
// writes one row per block to w.
func Analyze(ctx context.Context, cfg *config.Config, w io.Writer) error {
	src, err := audio.OpenWAV(cfg.Input)
	if err != nil {
		return err
	}
	defer src.Close()

	a, err := zoom.NewAnalyzer(cfg.ZoomParams(src.SampleRate()))
	if err != nil {
		return fmt.Errorf("%s: %w", cfg.Input, err)
	}
	logger.Infof("analyzing %s: %d samples at %d Hz, D=%d, %d bins of %.3f Hz",
		cfg.Input, src.Frames(), src.SampleRate(), a.DecimationFactor(),
		cfg.Zoom.Bins/2, float64(a.DecimatedRate())/2/float64(max(cfg.Zoom.Bins/2, 1)))
	if !a.Covered() {
		logger.Warnf("decimated rate %d Hz does not reach %.0f Hz", a.DecimatedRate(), cfg.Zoom.BandEnd)
	}

	if cfg.AnalyzeStyle == StyleCSV {
		return analyzeCSV(ctx, src, a, cfg.Audio.Chunk, w)
	}
	return analyzeTable(ctx, src, a, cfg.Audio.Chunk, w)
}

func analyzeRow(info audio.BlockInfo, res zoom.Result) []string {
	hz, mag, _ := res.Peak()
	return []string{
		strconv.Itoa(info.Index),
		strconv.FormatFloat(info.Offset.Seconds(), 'f', 3, 64),
		strconv.Itoa(info.Samples),
		strconv.FormatFloat(info.Level, 'f', 4, 64),
		strconv.FormatFloat(hz, 'f', 2, 64),
		strconv.FormatFloat(mag, 'f', 1, 64),
	}
}

// analyzeCSV streams rows as they are produced.
func analyzeCSV(ctx context.Context, src audio.Source, a *zoom.Analyzer, chunk int, w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(analyzeHeader); err != nil {
		return err
	}
	err := audio.Offline(ctx, src, a, chunk, func(info audio.BlockInfo, res zoom.Result) error {
		return cw.Write(analyzeRow(info, res))
	})
	cw.Flush()
	if err != nil {
		return err
	}
	return cw.Error()
}

// analyzeTable renders all rows once the file is done.
func analyzeTable(ctx context.Context, src audio.Source, a *zoom.Analyzer, chunk int, w io.Writer) error {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers(analyzeHeader...)

	err := audio.Offline(ctx, src, a, chunk, func(info audio.BlockInfo, res zoom.Result) error {
		t.Row(analyzeRow(info, res)...)
		return nil
	})
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, t.Render())
	return err
}
