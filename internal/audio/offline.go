// SPDX-License-Identifier: MIT
package audio

import (
	"context"
	"errors"
	"io"
	"time"

	"pitch/internal/analysis"
	"pitch/internal/zoom"
)

// BlockInfo describes one block handed to an OfflineFunc.
type BlockInfo struct {
	Index   int
	Offset  time.Duration // Start of the block within the stream.
	Samples int
	Level   float64
}

// OfflineFunc receives each analyzed block. Returning an error stops Offline.
type OfflineFunc func(BlockInfo, zoom.Result) error

// Offline runs the analyzer over src in blocks of chunk samples without a
// device. The last block may be short. ctx is checked between blocks.
func Offline(ctx context.Context, src Source, a *zoom.Analyzer, chunk int, fn OfflineFunc) error {
	if chunk < 1 {
		return errors.New("audio: chunk must be >= 1")
	}

	buf := make([]int16, chunk)
	rate := time.Duration(src.SampleRate())

	for i := 0; ; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		pos := src.Position()
		n, err := src.ReadBlock(buf)
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}

		res, err := a.Process(buf[:n])
		if err != nil {
			return err
		}
		info := BlockInfo{
			Index:   i,
			Offset:  time.Duration(pos) * time.Second / rate,
			Samples: n,
			Level:   analysis.Level(buf[:n]),
		}
		if err := fn(info, res); err != nil {
			return err
		}
	}
}
