// Package session owns the monitoring lifecycle: it runs the frame loop,
// feeds inference results through the presence detector, records events
// and arms the audio deterrent while monitoring is enabled.
package session

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/teslashibe/mockingbird/pkg/alert"
	"github.com/teslashibe/mockingbird/pkg/eventlog"
	"github.com/teslashibe/mockingbird/pkg/frame"
	"github.com/teslashibe/mockingbird/pkg/pose"
	"github.com/teslashibe/mockingbird/pkg/presence"
)

// Event Log messages.
const (
	MsgEnabled  = "Detection enabled"
	MsgDisabled = "Detection disabled"
)

// DefaultFrameInterval paces the frame loop at a 60 Hz display refresh.
const DefaultFrameInterval = time.Second / 60

// Options configures a Session.
type Options struct {
	// FrameInterval is the frame loop period.
	FrameInterval time.Duration

	// CloseOnStop logs "Intruder no longer detected" when monitoring is
	// disabled while someone is present.
	CloseOnStop bool

	Logger *slog.Logger
}

// Status is a snapshot for the control surface.
type Status struct {
	Running        bool           `json:"running"`
	SessionID      string         `json:"session_id,omitempty"`
	Epoch          uint64         `json:"epoch"`
	StartedAt      time.Time      `json:"started_at,omitempty"`
	Present        bool           `json:"present"`
	LastPresentAt  time.Duration  `json:"last_present_at"`
	HasBeenPresent bool           `json:"has_been_present"`
	EngineReady    bool           `json:"engine_ready"`
	SourceReady    bool           `json:"source_ready"`
	CanToggle      bool           `json:"can_toggle"`
	Frames         uint64         `json:"frames"`
	Discarded      uint64         `json:"discarded"`
	Alert          alert.Snapshot `json:"alert"`
}

// Session is the single authority on whether monitoring is active.
//
// Every asynchronous source (frame ticks, inference results, alert polls,
// end of track) checks the session epoch before touching shared state.
// Stop bumps the epoch, so anything started under an older epoch becomes a
// no-op when it arrives.
type Session struct {
	source   frame.Source
	adapter  *pose.Adapter
	detector *presence.Detector
	events   *eventlog.Log
	alerts   *alert.Scheduler
	opts     Options
	logger   *slog.Logger

	// lifecycle serializes Start/Stop/Toggle/Close end to end, including
	// waiting for the previous run's goroutines.
	lifecycle sync.Mutex

	mu        sync.Mutex
	running   bool
	closed    bool
	epoch     atomic.Uint64
	id        string
	startedAt time.Time
	cancel    context.CancelFunc
	loops     *sync.WaitGroup
	throttle  frame.Throttle
	frames    uint64
	discarded uint64

	renderMu        sync.Mutex
	obsObservers    []func(pose.Observation)
	statusObservers []func(Status)
}

// New wires a session. alerts may be nil to run without audio.
func New(source frame.Source, adapter *pose.Adapter, events *eventlog.Log, alerts *alert.Scheduler, opts Options) *Session {
	if opts.FrameInterval <= 0 {
		opts.FrameInterval = DefaultFrameInterval
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Session{
		source:   source,
		adapter:  adapter,
		detector: presence.New(),
		events:   events,
		alerts:   alerts,
		opts:     opts,
		logger:   opts.Logger.With("component", "session"),
	}
}

// OnObservation registers a rendering consumer. It receives every applied
// observation and an empty one when monitoring stops. Register before Start.
func (s *Session) OnObservation(fn func(pose.Observation)) {
	s.renderMu.Lock()
	s.obsObservers = append(s.obsObservers, fn)
	s.renderMu.Unlock()
}

// OnStatus registers a status consumer, called after every lifecycle or
// presence change. Register before Start.
func (s *Session) OnStatus(fn func(Status)) {
	s.renderMu.Lock()
	s.statusObservers = append(s.statusObservers, fn)
	s.renderMu.Unlock()
}

// Events returns the session's event log.
func (s *Session) Events() *eventlog.Log {
	return s.events
}

// Alerts returns the alert scheduler, or nil.
func (s *Session) Alerts() *alert.Scheduler {
	return s.alerts
}

// Running reports whether monitoring is enabled.
func (s *Session) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Start enables monitoring. It is a no-op if already running and returns
// ErrEngineNotReady, changing nothing, if inference is not initialized.
func (s *Session) Start() error {
	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()
	return s.start()
}

// Stop disables monitoring. It returns once the frame loop and alert poll
// have exited; in-flight inference results are discarded on arrival.
func (s *Session) Stop() {
	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()
	s.stop()
}

// Toggle flips monitoring and reports whether it is now running.
func (s *Session) Toggle() (bool, error) {
	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()

	if s.Running() {
		s.stop()
		return false, nil
	}
	if err := s.start(); err != nil {
		return false, err
	}
	return true, nil
}

// Close stops monitoring for good and waits for in-flight inference.
func (s *Session) Close() error {
	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()

	s.stop()
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.adapter.Wait()
	return nil
}

func (s *Session) start() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	if s.running {
		s.mu.Unlock()
		return nil
	}
	if !s.adapter.Ready() {
		s.mu.Unlock()
		s.logger.Warn("start refused", "reason", ErrEngineNotReady)
		return ErrEngineNotReady
	}

	epoch := s.epoch.Add(1)
	ctx, cancel := context.WithCancel(context.Background())
	loops := &sync.WaitGroup{}

	s.running = true
	s.id = uuid.NewString()
	s.startedAt = time.Now()
	s.cancel = cancel
	s.loops = loops
	s.throttle.Reset()
	s.detector.Reset()
	s.frames = 0
	s.discarded = 0

	s.events.Append(MsgEnabled)
	if s.alerts != nil {
		s.alerts.Start()
	}

	loops.Add(1)
	go s.frameLoop(ctx, epoch, loops)
	if s.alerts != nil {
		loops.Add(1)
		go func() {
			defer loops.Done()
			s.alerts.Run(ctx, s.conditions(epoch))
		}()
	}
	id := s.id
	s.mu.Unlock()

	s.logger.Info("detection enabled", "session", id, "epoch", epoch)
	s.notifyStatus()
	return nil
}

func (s *Session) stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}

	s.running = false
	epoch := s.epoch.Add(1)
	cancel := s.cancel
	loops := s.loops
	id := s.id
	s.cancel = nil
	s.loops = nil

	// halt audio before logging so no "playing audio" lands after the stop
	if s.alerts != nil {
		s.alerts.Stop()
	}
	if s.opts.CloseOnStop {
		if tr, ok := s.detector.ForceClear(); ok {
			s.events.Append(tr.Message())
		}
	}
	s.detector.Reset()
	s.events.Append(MsgDisabled)
	s.mu.Unlock()

	cancel()
	loops.Wait()

	s.logger.Info("detection disabled", "session", id, "epoch", epoch)
	s.clearRender()
	s.notifyStatus()
}

// conditions feeds the alert poll. A poll from an old run sees running=false.
func (s *Session) conditions(epoch uint64) alert.Conditions {
	return func() (bool, bool) {
		s.mu.Lock()
		defer s.mu.Unlock()
		live := s.running && s.epoch.Load() == epoch
		return live, live && s.detector.State().Present
	}
}

// Status returns a snapshot of the session.
func (s *Session) Status() Status {
	s.mu.Lock()
	st := Status{
		Running:     s.running,
		Epoch:       s.epoch.Load(),
		EngineReady: s.adapter.Ready(),
		SourceReady: s.source.Ready(),
		Frames:      s.frames,
		Discarded:   s.discarded,
	}
	if s.running {
		st.SessionID = s.id
		st.StartedAt = s.startedAt
	}
	ps := s.detector.State()
	st.Present = ps.Present
	st.LastPresentAt = ps.LastPresentAt
	st.HasBeenPresent = ps.HasBeenPresent
	s.mu.Unlock()

	st.CanToggle = st.EngineReady && st.SourceReady
	if s.alerts != nil {
		st.Alert = s.alerts.Snapshot()
	}
	return st
}

func (s *Session) notifyStatus() {
	st := s.Status()

	s.renderMu.Lock()
	observers := s.statusObservers
	s.renderMu.Unlock()

	for _, fn := range observers {
		s.safeCall(func() { fn(st) })
	}
}

// render hands obs to rendering consumers unless epoch has ended.
func (s *Session) render(epoch uint64, obs pose.Observation) {
	s.renderMu.Lock()
	defer s.renderMu.Unlock()

	if s.epoch.Load() != epoch {
		return
	}
	for _, fn := range s.obsObservers {
		s.safeCall(func() { fn(obs) })
	}
}

func (s *Session) clearRender() {
	s.renderMu.Lock()
	defer s.renderMu.Unlock()
	for _, fn := range s.obsObservers {
		s.safeCall(func() { fn(pose.Observation{}) })
	}
}

// safeCall runs a consumer callback; a failing consumer must not take
// detection down with it.
func (s *Session) safeCall(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("observer panic", "panic", r)
		}
	}()
	fn()
}
