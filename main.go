// SPDX-License-Identifier: MIT
package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"sync"
	"syscall"
	"time"

	"pitch/cmd"
	"pitch/internal/audio"
	"pitch/internal/config"
	"pitch/internal/log"
	"pitch/internal/transport"
	"pitch/internal/tui"
	"pitch/pkg/build"
)

// main is the entry point for the pitch recorder and player.
// The program flow is divided into three distinct phases:
//
// 1. Startup Phase (Cold Path):
//   - Initialize build information
//   - Parse command line arguments and load the configuration
//   - Execute one-off commands (list, analyze)
//   - Initialize PortAudio, the frame sinks and the engine
//
// 2. Concurrent Phase (Hot Path):
//   - Start playback or recording
//   - Device callbacks feed the analysis worker
//   - Frames fan out to the terminal view and network sinks
//
// 3. Shutdown Phase (Cold Path):
//   - End of file, 's'/'q' in the view, or a termination signal
//   - Stop the session and save the recording
//   - Clean up resources
func main() {
	// ==================== STARTUP PHASE (Cold Path) ====================

	if err := build.Initialize(); err != nil {
		log.Fatalf("build info: %v", err)
	}

	// One thread for the audio callback and analysis worker, one for the
	// UI and network I/O.
	runtime.GOMAXPROCS(2)

	cfg, err := cmd.ParseArgs()
	if err != nil {
		log.Fatalf("%v", err)
	}
	if cfg.Command == "" {
		return // Help or version was printed.
	}
	log.SetLevel(cfg.Level())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		stop()
		log.Fatalf("%v", err)
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	switch cfg.Command {
	case config.CommandAnalyze:
		return cmd.Analyze(ctx, cfg, os.Stdout)
	case config.CommandList:
		return listDevices(cfg)
	case config.CommandPlay, config.CommandRecord:
		return runSession(ctx, cfg)
	default:
		return fmt.Errorf("unknown command %q", cfg.Command)
	}
}

// listDevices handles the one-off list command, which needs PortAudio but
// not the engine.
func listDevices(cfg *config.Config) error {
	if err := audio.Initialize(); err != nil {
		return err
	}
	defer audio.Terminate()

	if !cfg.TUI.Enabled {
		return audio.ListDevices(os.Stdout)
	}

	device, ok, err := tui.BrowseDevices()
	if err != nil || !ok {
		return err
	}
	flag := "--device"
	if device.MaxInputChannels == 0 {
		flag = "--output-device"
	}
	fmt.Printf("%s %d  # %s\n", flag, device.ID, device.Name)
	return nil
}

func runSession(ctx context.Context, cfg *config.Config) error {
	if err := audio.Initialize(); err != nil {
		return err
	}
	defer audio.Terminate()

	var (
		display *tui.Display
		extra   []transport.Transport
	)
	if cfg.TUI.Enabled {
		display = tui.NewDisplay(cfg)
		extra = append(extra, display)
	}

	sink, err := transport.NewFromConfig(cfg, extra...)
	if err != nil {
		return err
	}
	defer sink.Close()

	engine, err := audio.NewEngine(cfg, sink)
	if err != nil {
		return err
	}
	defer engine.Close()

	// ==================== CONCURRENT PHASE (Hot Path) ====================

	// The view owns the terminal; hold log lines until it is gone.
	var held heldLog
	if display != nil {
		log.SetOutput(&held)
		defer held.flush()
	}

	var path string
	switch cfg.Command {
	case config.CommandPlay:
		path = cfg.Input
		err = engine.Play(path)
	case config.CommandRecord:
		path = cfg.RecordingPath(time.Now())
		err = engine.Record(path)
	}
	if err != nil {
		return err
	}

	if display != nil {
		if err := display.Run(ctx, engine); err != nil {
			log.Errorf("display: %v", err)
		}
	} else {
		fmt.Printf("%s %s. '%s --help' for usage information, Ctrl+C to stop.\n",
			engine.State(), path, build.GetBuildFlags().Name)
		select {
		case <-ctx.Done():
		case <-engine.Done():
		}
	}

	// ==================== SHUTDOWN PHASE (Cold Path) ====================

	if err := engine.Stop(); err != nil {
		log.Errorf("Error stopping %s: %v", cfg.Command, err)
	}
	if cfg.Command == config.CommandRecord {
		fmt.Printf("\nRecording saved to: %s\n", path)
	}
	return nil
}

// heldLog buffers log output while the terminal view is up.
type heldLog struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (h *heldLog) Write(p []byte) (int, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.buf.Write(p)
}

func (h *heldLog) flush() {
	log.SetOutput(os.Stderr)
	h.mu.Lock()
	defer h.mu.Unlock()
	os.Stderr.Write(h.buf.Bytes())
	h.buf.Reset()
}
