// SPDX-License-Identifier: MIT
package cmd

import (
	"fmt"
	"os"
	"strings"

	"pitch/internal/config"
	"pitch/internal/log"
	"pitch/pkg/bitint"
	"pitch/pkg/build"

	"github.com/spf13/cobra"
)

var logger = log.Named("cli")

// flags holds raw flag values. They only override the loaded configuration
// when set on the command line.
type flags struct {
	configPath   string
	bins         int
	chunk        int
	bandStart    float64
	bandEnd      float64
	window       string
	device       int
	outputDevice int
	lowLatency   bool
	tui          bool
	ws           bool
	wsAddr       string
	udp          bool
	udpTarget    string
	logFrames    bool
	calibrate    bool
	verbose      bool

	output      string
	style       string
	interactive bool
}

// ParseArgs parses os.Args into a validated configuration.
func ParseArgs() (*config.Config, error) {
	return Parse(os.Args[1:])
}

// Parse builds the command tree and runs it against args. The returned
// configuration has Command set to the selected subcommand, or "" when only
// help or version output was requested.
func Parse(args []string) (*config.Config, error) {
	buildInfo := build.GetBuildFlags()
	var (
		f       flags
		options *config.Config
	)

	// load runs for every subcommand once cobra has parsed the flags.
	load := func(cmd *cobra.Command, command string, args []string) error {
		cfg, err := config.LoadConfig(f.configPath)
		if err != nil {
			return err
		}
		f.apply(cmd, cfg)
		cfg.Command = command

		switch command {
		case config.CommandPlay, config.CommandAnalyze:
			cfg.Input = args[0]
		case config.CommandRecord:
			if len(args) == 1 {
				cfg.Recording.OutputFile = args[0]
			}
		}

		if err := cfg.Validate(); err != nil {
			return err
		}
		if !bitint.IsPowerOfTwo(cfg.Zoom.Bins) {
			logger.Warnf("zoom.bins %d is not a power of two, %d would be faster",
				cfg.Zoom.Bins, bitint.NextPowerOfTwo(cfg.Zoom.Bins))
		}
		options = cfg
		return nil
	}

	rootCmd := &cobra.Command{
		Use:           buildInfo.Name,
		Short:         buildInfo.Description,
		Version:       buildInfo.String(),
		SilenceErrors: true,
		SilenceUsage:  true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd:   true,
			DisableDescriptions: true,
			DisableNoDescFlag:   true,
			HiddenDefaultCmd:    true,
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	// Display help message
	rootCmd.SetHelpCommand(&cobra.Command{Hidden: true})

	playCmd := &cobra.Command{
		Use:   "play <file.wav>",
		Short: "Play a 16-bit mono WAV file and show its zoom spectrum",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return load(cmd, config.CommandPlay, args)
		},
	}

	recordCmd := &cobra.Command{
		Use:   "record [file.wav]",
		Short: "Record from the input device and show the zoom spectrum",
		Long: "Record from the input device at 44100 Hz, 16-bit mono.\n" +
			"Without a file name the recording goes to " +
			config.DefaultOutputDir + "/" + config.DefaultOutputPrefix + "DD-MM-YYYY-HHMMSS.wav.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if f.output != "" && len(args) == 0 {
				args = []string{f.output}
			}
			return load(cmd, config.CommandRecord, args)
		},
	}
	recordCmd.Flags().StringVarP(&f.output, "output", "o", "",
		"Output file name. Default is "+config.DefaultOutputPrefix+"DD-MM-YYYY-HHMMSS.wav in the output directory")

	analyzeCmd := &cobra.Command{
		Use:   "analyze <file.wav>",
		Short: "Print the zoom spectrum peak of every block of a WAV file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := load(cmd, config.CommandAnalyze, args); err != nil {
				return err
			}
			style := strings.ToLower(f.style)
			if style != StyleTable && style != StyleCSV {
				return fmt.Errorf("%w: --format %q, want %s or %s", config.ErrInvalidConfig, f.style, StyleTable, StyleCSV)
			}
			options.AnalyzeStyle = style
			return nil
		},
	}
	analyzeCmd.Flags().StringVarP(&f.style, "format", "f", config.DefaultAnalyzeStyle,
		"Output format: table or csv")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List available audio devices",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := load(cmd, config.CommandList, args); err != nil {
				return err
			}
			options.TUI.Enabled = f.interactive
			return nil
		},
	}
	listCmd.Flags().BoolVarP(&f.interactive, "interactive", "i", false,
		"Browse devices in the terminal UI")

	rootCmd.AddCommand(playCmd, recordCmd, analyzeCmd, listCmd)

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&f.configPath, "config", "",
		"Path to a YAML config file (default: ./config.yaml or ./pitch.yaml)")

	// Zoom FFT
	pf.IntVarP(&f.bins, "bins", "n", config.DefaultBins,
		"FFT size; the spectrum has bins/2 bins")
	pf.IntVarP(&f.chunk, "chunk", "b", config.DefaultChunk,
		"Samples per processing block (affects latency)")
	pf.Float64Var(&f.bandStart, "band-start", config.DefaultBandStart,
		"Lower edge of the zoom band in Hz")
	pf.Float64Var(&f.bandEnd, "band-end", config.DefaultBandEnd,
		"Upper edge of the zoom band in Hz")
	pf.StringVarP(&f.window, "window", "w", config.DefaultWindow,
		"Spectrum window: rect, hann, hamming, blackman, blackmannuttall or flattop")

	// Audio Device Configuration
	pf.IntVarP(&f.device, "device", "d", config.DefaultDeviceID,
		"Input device ID. Use 'list' command to see available devices.")
	pf.IntVar(&f.outputDevice, "output-device", config.DefaultDeviceID,
		"Output device ID for playback")
	pf.BoolVarP(&f.lowLatency, "low-latency", "l", config.DefaultLowLatency,
		"Use low latency mode for real-time processing")

	// Display and transports
	pf.BoolVar(&f.tui, "tui", true,
		"Show the spectrum in the terminal")
	pf.BoolVar(&f.ws, "ws", false,
		"Serve frames over WebSocket on "+config.DefaultWSAddr+"/zoom")
	pf.StringVar(&f.wsAddr, "ws-addr", config.DefaultWSAddr,
		"WebSocket listen address")
	pf.BoolVar(&f.udp, "udp", false,
		"Publish frames as UDP packets")
	pf.StringVar(&f.udpTarget, "udp-target", config.DefaultUDPTarget,
		"UDP destination address")
	pf.BoolVar(&f.logFrames, "log-frames", false,
		"Log the peak of every frame (debug level)")
	pf.BoolVar(&f.calibrate, "calibrate", false,
		"Set the pitch noise gate from the first blocks")

	// Debug Configuration
	pf.BoolVarP(&f.verbose, "verbose", "v", config.DefaultVerbosity,
		"Show verbose output")

	if args == nil {
		args = []string{} // cobra falls back to os.Args on nil.
	}
	rootCmd.SetArgs(args)
	if err := rootCmd.Execute(); err != nil {
		return nil, err
	}
	if options == nil {
		// Help or version only.
		return &config.Config{}, nil
	}
	return options, nil
}

// apply copies every flag set on the command line into cfg.
func (f *flags) apply(cmd *cobra.Command, cfg *config.Config) {
	set := cmd.Flags()
	changed := func(name string) bool {
		if !set.Changed(name) {
			return false
		}
		logger.Debugf("flag --%s overrides the configuration", name)
		return true
	}

	if changed("bins") {
		cfg.Zoom.Bins = f.bins
	}
	if changed("chunk") {
		cfg.Audio.Chunk = f.chunk
	}
	if changed("band-start") {
		cfg.Zoom.BandStart = f.bandStart
	}
	if changed("band-end") {
		cfg.Zoom.BandEnd = f.bandEnd
	}
	if changed("window") {
		cfg.Zoom.Window = f.window
	}
	if changed("device") {
		cfg.Audio.InputDevice = f.device
	}
	if changed("output-device") {
		cfg.Audio.OutputDevice = f.outputDevice
	}
	if changed("low-latency") {
		cfg.Audio.LowLatency = f.lowLatency
	}
	if changed("tui") {
		cfg.TUI.Enabled = f.tui
	}
	if changed("ws") {
		cfg.Transport.WebSocketEnabled = f.ws
	}
	if changed("ws-addr") {
		cfg.Transport.WebSocketAddr = f.wsAddr
		cfg.Transport.WebSocketEnabled = true
	}
	if changed("udp") {
		cfg.Transport.UDPEnabled = f.udp
	}
	if changed("udp-target") {
		cfg.Transport.UDPTargetAddress = f.udpTarget
		cfg.Transport.UDPEnabled = true
	}
	if changed("log-frames") {
		cfg.Transport.LogFrames = f.logFrames
	}
	if changed("calibrate") {
		cfg.TUI.CalibrateGate = f.calibrate
	}
	if changed("verbose") {
		cfg.Verbose = f.verbose
	}
}
