// Command mockingbird watches a camera for people and plays a deterrent
// audio playlist while anyone is in view.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/teslashibe/mockingbird/internal/config"
	"github.com/teslashibe/mockingbird/internal/log"
	"github.com/teslashibe/mockingbird/pkg/camera"
	"github.com/teslashibe/mockingbird/pkg/debug"
	"github.com/teslashibe/mockingbird/pkg/eventlog"
	"github.com/teslashibe/mockingbird/pkg/feed"
	"github.com/teslashibe/mockingbird/pkg/monitor"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, "❌", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "mockingbird",
		Short:         "Intruder-deterrence monitor",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newServeCmd())
	root.AddCommand(newTailCmd())
	return root
}

type serveFlags struct {
	configPath  string
	debug       bool
	debugFrames bool
	autostart   bool
	closeOnStop bool
	preset      string
	listen      string
	device      string
	model       string
	player      string
	tracks      []string
}

func newServeCmd() *cobra.Command {
	var f serveFlags

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the monitor and its dashboard",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd, f)
			if err != nil {
				return err
			}
			return runServe(cfg)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&f.configPath, "config", "c", "", "YAML config file")
	flags.BoolVar(&f.debug, "debug", false, "Enable verbose debug logging")
	flags.BoolVar(&f.debugFrames, "debug-frames", false, "Log every frame (very verbose)")
	flags.BoolVar(&f.autostart, "autostart", false, "Enable detection as soon as camera and model are ready")
	flags.BoolVar(&f.closeOnStop, "close-on-stop", false, "Log \"Intruder no longer detected\" when stopping with someone present")
	flags.StringVar(&f.preset, "camera-preset", "", "Camera preset: default, 720p, 1080p, lowres")
	flags.StringVar(&f.listen, "listen", "", "Dashboard port or host:port")
	flags.StringVar(&f.device, "camera", "", "Capture device index, file or URL")
	flags.StringVar(&f.model, "model", "", "Path to the YOLOv8-pose ONNX model")
	flags.StringVar(&f.player, "player", "", "Audio player: gstreamer or mock")
	flags.StringSliceVar(&f.tracks, "tracks", nil, "Deterrent audio files, in play order")
	return cmd
}

// loadConfig layers defaults, file, environment and then explicitly set flags.
func loadConfig(cmd *cobra.Command, f serveFlags) (config.Config, error) {
	cfg, err := config.Load(f.configPath)
	if err != nil {
		return cfg, err
	}

	if f.preset != "" {
		p := camera.GetPreset(f.preset)
		if p == nil {
			return cfg, fmt.Errorf("unknown camera preset %q", f.preset)
		}
		cfg.Camera.Width, cfg.Camera.Height, cfg.Camera.FPS = p.Width, p.Height, p.FPS
	}

	flags := cmd.Flags()
	if flags.Changed("autostart") {
		cfg.Session.Autostart = f.autostart
	}
	if flags.Changed("close-on-stop") {
		cfg.Session.CloseOnStop = f.closeOnStop
	}
	if f.listen != "" {
		cfg.Listen = f.listen
	}
	if f.device != "" {
		cfg.Camera.Device = f.device
	}
	if f.model != "" {
		cfg.Model.Path = f.model
	}
	if f.player != "" {
		cfg.Alert.Player = f.player
	}
	if len(f.tracks) > 0 {
		cfg.Alert.Tracks = f.tracks
	}

	debug.Enabled = f.debug || f.debugFrames
	debug.Frames = f.debugFrames
	if debug.Enabled {
		cfg.LogLevel = "debug"
	}

	return cfg, cfg.Validate()
}

// runServe is swapped out in tests.
var runServe = serve

func serve(cfg config.Config) error {
	log.Init(cfg.LogLevel)
	logger := log.L()

	fmt.Println("🐦 Mockingbird - intruder deterrence monitor")
	if debug.Enabled {
		fmt.Println("🐛 Debug mode enabled")
	}

	app, err := monitor.New(cfg, monitor.Options{Logger: logger})
	if err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}
	if err := app.Init(); err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}
	defer app.Shutdown()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	fmt.Printf("🌐 Dashboard listening on %s (Ctrl+C to exit)\n", app.Web().Addr())
	if err := app.Run(ctx); err != nil {
		return fmt.Errorf("runtime error: %w", err)
	}
	fmt.Println("\n👋 Goodbye!")
	return nil
}

func newTailCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "tail",
		Short: "Print a running monitor's event log as it grows",
		RunE: func(cmd *cobra.Command, _ []string) error {
			url, err := feed.URL(addr)
			if err != nil {
				return err
			}

			ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			out := cmd.OutOrStdout()
			return feed.Follow(ctx, url, func(e eventlog.Entry) {
				_, _ = fmt.Fprintln(out, e.String())
			})
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "localhost:"+config.DefaultListen, "Dashboard address")
	return cmd
}
