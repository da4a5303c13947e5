package web

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"

	"github.com/teslashibe/mockingbird/pkg/alert"
	"github.com/teslashibe/mockingbird/pkg/hub"
	"github.com/teslashibe/mockingbird/pkg/pose"
	"github.com/teslashibe/mockingbird/pkg/session"
)

// ErrSourceUnavailable is returned when enabling detection with no video.
var ErrSourceUnavailable = errors.New("web: video source unavailable")

// DetectionResponse is returned by the detection endpoints.
type DetectionResponse struct {
	Running bool           `json:"running"`
	Status  session.Status `json:"status"`
}

// PlaylistResponse describes the deterrent playlist.
type PlaylistResponse struct {
	Tracks []alert.Track  `json:"tracks"`
	Alert  alert.Snapshot `json:"alert"`
}

// handleStatus returns the session status
func (s *Server) handleStatus(c *fiber.Ctx) error {
	return c.JSON(s.sess.Status())
}

// handleEvents returns the presentation view of the event log
func (s *Server) handleEvents(c *fiber.Ctx) error {
	n := c.QueryInt("n", s.opts.ViewSize)
	if n <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "n must be positive",
		})
	}
	return c.JSON(s.events.View(n, s.opts.SkipFirst))
}

// handlePlaylist returns the tracks and scheduler state
func (s *Server) handlePlaylist(c *fiber.Ctx) error {
	resp := PlaylistResponse{Tracks: []alert.Track{}}
	if a := s.sess.Alerts(); a != nil {
		resp.Tracks = a.Tracks()
		resp.Alert = a.Snapshot()
	}
	return c.JSON(resp)
}

// handleToggle flips detection, gated on engine and camera readiness
func (s *Server) handleToggle(c *fiber.Ctx) error {
	if s.sess.Running() {
		return s.handleStop(c)
	}
	return s.handleStart(c)
}

func (s *Server) handleStart(c *fiber.Ctx) error {
	if !s.sess.Running() && !s.sess.Status().SourceReady {
		return conflict(c, ErrSourceUnavailable)
	}
	if err := s.sess.Start(); err != nil {
		return conflict(c, err)
	}
	return c.JSON(DetectionResponse{Running: true, Status: s.sess.Status()})
}

func (s *Server) handleStop(c *fiber.Ctx) error {
	s.sess.Stop()
	return c.JSON(DetectionResponse{Running: false, Status: s.sess.Status()})
}

func conflict(c *fiber.Ctx, err error) error {
	return c.Status(fiber.StatusConflict).JSON(fiber.Map{
		"error": err.Error(),
	})
}

// handleEventsWS sends the event log backlog, then live entries
// The backlog is read by the hub as the client registers; entries relayed
// twice are told apart by seq on the client side.
func (s *Server) handleEventsWS(c *websocket.Conn) {
	hub.NewSyncedClient(s.eventHub, c, s.eventBacklog).Run()
}

// eventBacklog encodes the retained Event Log history.
func (s *Server) eventBacklog() []hub.Message {
	var greeting []hub.Message
	for _, e := range s.events.All() {
		msg, err := hub.EncodeJSON(e)
		if err != nil {
			continue
		}
		greeting = append(greeting, msg)
	}
	return greeting
}

// handleStatusWS sends the current status, then every change
func (s *Server) handleStatusWS(c *websocket.Conn) {
	var greeting []hub.Message
	if msg, err := hub.EncodeJSON(s.sess.Status()); err == nil {
		greeting = append(greeting, msg)
	}
	hub.NewClient(s.statusHub, c, greeting...).Run()
}

// handlePosesWS streams pose observations for overlay rendering
func (s *Server) handlePosesWS(c *websocket.Conn) {
	var greeting []hub.Message
	if msg, err := hub.EncodeJSON(pose.Observation{}); err == nil {
		greeting = append(greeting, msg)
	}
	hub.NewClient(s.poseHub, c, greeting...).Run()
}

// handleCameraWS streams JPEG frames
func (s *Server) handleCameraWS(c *websocket.Conn) {
	hub.NewClient(s.cameraHub, c).Run()
}
