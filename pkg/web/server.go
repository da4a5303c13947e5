// Package web provides the monitor's control surface: a REST API for the
// detection toggle and websocket feeds for events, status and pose overlays.
package web

import (
	"context"
	"log/slog"
	"net"
	"strings"
	"sync"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/websocket/v2"

	"github.com/teslashibe/mockingbird/pkg/eventlog"
	"github.com/teslashibe/mockingbird/pkg/hub"
	"github.com/teslashibe/mockingbird/pkg/pose"
	"github.com/teslashibe/mockingbird/pkg/session"
)

// Defaults for the events view.
const (
	DefaultViewSize  = 10
	DefaultSkipFirst = 1
)

// Options configures the dashboard server.
type Options struct {
	// Listen is the port (or host:port) to listen on.
	Listen string

	// ViewSize is the default number of entries returned by /api/events.
	ViewSize int

	// SkipFirst hides that many of the oldest entries from the events view.
	SkipFirst int

	// StaticDir serves dashboard assets from disk when set.
	StaticDir string

	Logger *slog.Logger
}

// Server is the web dashboard server
type Server struct {
	app    *fiber.App
	addr   string
	opts   Options
	logger *slog.Logger

	sess   *session.Session
	events *eventlog.Log

	// Hubs for websocket broadcast (thread-safe!)
	statusHub *hub.Hub
	eventHub  *hub.Hub
	poseHub   *hub.Hub
	cameraHub *hub.Hub

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewServer creates the dashboard for sess and subscribes to its updates.
func NewServer(sess *session.Session, opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.ViewSize <= 0 {
		opts.ViewSize = DefaultViewSize
	}
	if opts.SkipFirst < 0 {
		opts.SkipFirst = 0
	}

	s := &Server{
		addr:      listenAddr(opts.Listen),
		opts:      opts,
		logger:    opts.Logger.With("component", "web"),
		sess:      sess,
		events:    sess.Events(),
		statusHub: hub.New("status", opts.Logger),
		eventHub:  hub.New("events", opts.Logger),
		poseHub:   hub.New("poses", opts.Logger),
		cameraHub: hub.New("camera", opts.Logger),
	}

	sess.OnStatus(func(st session.Status) {
		if err := s.statusHub.BroadcastJSON(st); err != nil {
			s.logger.Warn("status encode failed", "error", err)
		}
	})
	sess.OnObservation(func(obs pose.Observation) {
		if err := s.poseHub.BroadcastJSON(obs); err != nil {
			s.logger.Warn("pose encode failed", "error", err)
		}
	})

	app := fiber.New(fiber.Config{
		AppName:               "Mockingbird",
		DisableStartupMessage: true,
	})

	// CORS for local development
	app.Use(cors.New())

	if opts.StaticDir != "" {
		app.Static("/", opts.StaticDir)
	}

	// API routes
	api := app.Group("/api")
	api.Get("/status", s.handleStatus)
	api.Get("/events", s.handleEvents)
	api.Get("/playlist", s.handlePlaylist)
	api.Post("/detection/toggle", s.handleToggle)
	api.Post("/detection/start", s.handleStart)
	api.Post("/detection/stop", s.handleStop)

	// WebSocket upgrade middleware
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})

	// WebSocket routes
	app.Get("/ws/events", websocket.New(s.handleEventsWS))
	app.Get("/ws/status", websocket.New(s.handleStatusWS))
	app.Get("/ws/poses", websocket.New(s.handlePosesWS))
	app.Get("/ws/camera", websocket.New(s.handleCameraWS))

	s.app = app
	return s
}

func listenAddr(listen string) string {
	if listen == "" {
		return ":8080"
	}
	if strings.Contains(listen, ":") {
		return listen
	}
	return ":" + listen
}

// App exposes the fiber app (tests use app.Test).
func (s *Server) App() *fiber.App {
	return s.app
}

// Addr returns the listen address.
func (s *Server) Addr() string {
	return s.addr
}

// Run starts the hubs and the event relay, then serves until ctx is
// cancelled or the listener fails.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve is Run on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	s.startHubs(ctx)

	errc := make(chan error, 1)
	go func() {
		s.logger.Info("web dashboard listening", "addr", ln.Addr().String())
		errc <- s.app.Listener(ln)
	}()

	select {
	case <-ctx.Done():
		if err := s.app.Shutdown(); err != nil {
			return err
		}
		return nil
	case err := <-errc:
		return err
	}
}

// startHubs launches the hub loops and the event relay. Safe to call once.
func (s *Server) startHubs(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.done != nil {
		return
	}
	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})

	go s.statusHub.Run(ctx)
	go s.eventHub.Run(ctx)
	go s.poseHub.Run(ctx)
	go s.cameraHub.Run(ctx)

	entries, unsubscribe := s.events.Subscribe(64)
	go s.relayEvents(ctx, entries, unsubscribe)
}

// relayEvents forwards every Event Log append to /ws/events clients.
func (s *Server) relayEvents(ctx context.Context, entries <-chan eventlog.Entry, unsubscribe func()) {
	defer close(s.done)
	defer unsubscribe()

	for {
		select {
		case <-ctx.Done():
			return
		case e, ok := <-entries:
			if !ok {
				return
			}
			if err := s.eventHub.BroadcastJSON(e); err != nil {
				s.logger.Warn("event encode failed", "error", err)
			}
		}
	}
}

// SendCameraFrame sends a camera frame to all connected clients
func (s *Server) SendCameraFrame(jpegData []byte) {
	s.cameraHub.Broadcast(hub.NewBinaryMessage(jpegData))
}

// ClientCounts reports connected websocket clients per feed.
func (s *Server) ClientCounts() map[string]int {
	return map[string]int{
		"status": s.statusHub.ClientCount(),
		"events": s.eventHub.ClientCount(),
		"poses":  s.poseHub.ClientCount(),
		"camera": s.cameraHub.ClientCount(),
	}
}

// Shutdown gracefully stops the web server and its hubs.
func (s *Server) Shutdown() error {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
	return s.app.Shutdown()
}
