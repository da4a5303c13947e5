// Package monitor assembles the camera, pose engine, alert scheduler,
// detection session and dashboard into one application.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/teslashibe/mockingbird/internal/config"
	"github.com/teslashibe/mockingbird/pkg/alert"
	"github.com/teslashibe/mockingbird/pkg/camera"
	"github.com/teslashibe/mockingbird/pkg/debug"
	"github.com/teslashibe/mockingbird/pkg/eventlog"
	"github.com/teslashibe/mockingbird/pkg/frame"
	"github.com/teslashibe/mockingbird/pkg/pose"
	"github.com/teslashibe/mockingbird/pkg/session"
	"github.com/teslashibe/mockingbird/pkg/web"
)

// How often the dashboard camera feed and the autostart check run.
const (
	cameraStreamInterval = 100 * time.Millisecond // 10 FPS
	autostartInterval    = 100 * time.Millisecond
)

// Options overrides components that New would otherwise build from config.
// Tests inject mocks here.
type Options struct {
	Source frame.Source
	Engine pose.Engine
	Player alert.Player
	Logger *slog.Logger
}

// App is the monitor orchestrator.
// It manages all components and their lifecycle.
type App struct {
	cfg    config.Config
	opts   Options
	logger *slog.Logger

	// Vision
	capture *camera.Capture
	source  frame.Source
	engine  pose.Engine
	loader  *pose.Loader

	// Detection
	events *eventlog.Log
	alerts *alert.Scheduler
	sess   *session.Session

	// Web dashboard
	web *web.Server
}

// New validates cfg and creates an App. Call Init before Run.
func New(cfg config.Config, opts Options) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &App{
		cfg:    cfg,
		opts:   opts,
		logger: opts.Logger,
	}, nil
}

// Init builds every component. A missing camera or model is not fatal:
// the dashboard comes up with the detection toggle disabled.
func (a *App) Init() error {
	a.events = eventlog.New(eventlog.Options{
		Capacity:   a.cfg.EventLog.Capacity,
		TimeLayout: a.cfg.EventLog.TimeLayout,
		Logger:     a.logger,
	})

	a.initSource()
	a.initEngine()

	if err := a.initAlerts(); err != nil {
		return fmt.Errorf("alerts: %w", err)
	}

	a.sess = session.New(a.source, pose.NewAdapter(a.engine, a.logger), a.events, a.alerts, session.Options{
		FrameInterval: a.cfg.Session.FrameInterval,
		CloseOnStop:   a.cfg.Session.CloseOnStop,
		Logger:        a.logger,
	})

	a.web = web.NewServer(a.sess, web.Options{
		Listen:    a.cfg.Listen,
		ViewSize:  a.cfg.EventLog.ViewSize,
		SkipFirst: a.cfg.EventLog.SkipFirst,
		StaticDir: a.cfg.StaticDir,
		Logger:    a.logger,
	})
	return nil
}

func (a *App) initSource() {
	if a.opts.Source != nil {
		a.source = a.opts.Source
		return
	}

	capture, err := camera.Open(camera.Config{
		Device:  a.cfg.Camera.Device,
		Width:   a.cfg.Camera.Width,
		Height:  a.cfg.Camera.Height,
		FPS:     a.cfg.Camera.FPS,
		Quality: a.cfg.Camera.Quality,
	}, a.logger)
	if err != nil {
		// toggle stays disabled without video
		a.logger.Warn("camera unavailable", "device", a.cfg.Camera.Device, "error", err)
		src := frame.NewStaticSource()
		src.SetReady(false)
		a.source = src
		return
	}
	a.capture = capture
	a.source = capture
}

func (a *App) initEngine() {
	if a.opts.Engine != nil {
		a.engine = a.opts.Engine
		return
	}

	yolo := pose.YOLOConfig{
		ModelPath:        a.cfg.Model.Path,
		ConfidenceThresh: float32(a.cfg.Model.Confidence),
		NMSThresh:        float32(a.cfg.Model.NMS),
		InputWidth:       a.cfg.Model.InputSize,
		InputHeight:      a.cfg.Model.InputSize,
		MaxPoses:         a.cfg.Model.MaxPoses,
	}
	a.loader = pose.NewLoader(func() (pose.Engine, error) {
		return pose.NewYOLO(yolo)
	}, a.logger)
	a.loader.Start()
	a.engine = a.loader
}

func (a *App) initAlerts() error {
	tracks := alert.TracksFromPaths(a.cfg.Alert.Tracks)
	if len(tracks) == 0 {
		a.logger.Warn("no deterrent tracks configured, audio alerts disabled")
		return nil
	}
	playlist, err := alert.NewPlaylist(tracks)
	if err != nil {
		return err
	}

	player := a.opts.Player
	if player == nil {
		switch a.cfg.Alert.Player {
		case "mock":
			player = alert.NewMockPlayer()
		default:
			player = alert.NewGstPlayer(a.cfg.Alert.Sink, a.logger)
		}
	}

	a.alerts = alert.NewScheduler(player, playlist, a.events, a.cfg.Alert.PollInterval, a.logger)
	// preload the first track so the first alert starts without delay
	a.alerts.Prepare()
	return nil
}

// Session returns the detection session.
func (a *App) Session() *session.Session {
	return a.sess
}

// Web returns the dashboard server.
func (a *App) Web() *web.Server {
	return a.web
}

// Run starts capture and background tasks, then serves the dashboard.
// Blocks until ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	if a.sess == nil {
		return errors.New("monitor: Run before Init")
	}
	if a.capture != nil {
		a.capture.Start(ctx)
	}
	if a.cfg.Session.Autostart {
		go a.autostart(ctx)
	}
	go a.streamCameraToWeb(ctx)

	a.logger.Info("monitor running", "listen", a.web.Addr())
	return a.web.Run(ctx)
}

// autostart enables detection as soon as both video and model are ready.
func (a *App) autostart(ctx context.Context) {
	ticker := time.NewTicker(autostartInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if a.loader != nil && a.loader.Err() != nil {
				a.logger.Warn("autostart abandoned", "error", a.loader.Err())
				return
			}
			if !a.sess.Status().CanToggle {
				continue
			}
			if err := a.sess.Start(); err != nil {
				a.logger.Warn("autostart failed", "error", err)
				continue
			}
			return
		}
	}
}

// streamCameraToWeb forwards the latest JPEG to /ws/camera clients.
func (a *App) streamCameraToWeb(ctx context.Context) {
	ticker := time.NewTicker(cameraStreamInterval)
	defer ticker.Stop()

	var lastSeq uint64
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !a.source.Ready() {
				continue
			}
			f, ok := a.source.Latest()
			if !ok || len(f.Data) == 0 || f.Seq == lastSeq {
				continue
			}
			lastSeq = f.Seq
			a.web.SendCameraFrame(f.Data)
			debug.FrameLog("📷 frame %d sent to dashboard (%d bytes)\n", f.Seq, len(f.Data))
		}
	}
}

// Shutdown stops detection and releases every component.
func (a *App) Shutdown() {
	if a.sess != nil {
		if err := a.sess.Close(); err != nil {
			a.logger.Warn("session close failed", "error", err)
		}
	}
	if a.web != nil {
		if err := a.web.Shutdown(); err != nil {
			a.logger.Debug("web shutdown", "error", err)
		}
	}
	if a.capture != nil {
		if err := a.capture.Close(); err != nil {
			a.logger.Warn("camera close failed", "error", err)
		}
	}
	if a.engine != nil {
		if err := a.engine.Close(); err != nil {
			a.logger.Warn("engine close failed", "error", err)
		}
	}
	a.logger.Info("monitor stopped")
}
