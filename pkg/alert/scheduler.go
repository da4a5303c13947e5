package alert

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/teslashibe/mockingbird/pkg/eventlog"
)

// Event Log messages.
const (
	MsgPlaying    = "playing audio"
	MsgLoadFailed = "failed to load audio"
	MsgPlayFailed = "failed to play audio"
)

// DefaultPollInterval is how often the scheduler re-evaluates whether to play.
const DefaultPollInterval = time.Second

// State is the scheduler's view of the current track.
type State int

const (
	StateIdle State = iota
	StateLoading
	StateReady
	StatePlaying
)

func (s State) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	case StatePlaying:
		return "playing"
	default:
		return "idle"
	}
}

// Recorder receives user-visible events.
type Recorder interface {
	Append(msg string) eventlog.Entry
}

// Conditions reports whether the session is running and someone is present.
type Conditions func() (running, present bool)

// Snapshot is a point-in-time view of the scheduler.
type Snapshot struct {
	State     string `json:"state"`
	Index     int    `json:"index"`
	Track     Track  `json:"track"`
	Playing   bool   `json:"playing"`
	Starts    uint64 `json:"starts"`
	Completed uint64 `json:"completed"`
	Failures  uint64 `json:"failures"`
	Exhausted bool   `json:"exhausted"`
}

// Scheduler decides, on a fixed interval, whether to start the next
// deterrent track, and rotates the playlist when a track finishes.
//
// Playback starts only when the session is running, someone is present,
// the current track is ready and nothing is playing. The check is level
// triggered, so a freshly loaded track starts on the next tick after the
// previous one ends. The playlist advances only on natural completion.
type Scheduler struct {
	mu       sync.Mutex
	player   Player
	playlist *Playlist
	events   Recorder
	logger   *slog.Logger
	interval time.Duration

	active    bool
	state     State
	loadedIdx int
	// gen identifies the current Load; end callbacks carrying an older
	// generation are stale and ignored.
	gen uint64
	// streak counts consecutive load or play failures; a successful Play
	// or Start resets it. exhausted is set once streak covers the whole
	// playlist and cleared by Start.
	streak    int
	exhausted bool

	starts    uint64
	completed uint64
	failures  uint64
}

// NewScheduler creates a scheduler. interval <= 0 selects DefaultPollInterval.
func NewScheduler(player Player, playlist *Playlist, events Recorder, interval time.Duration, logger *slog.Logger) *Scheduler {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		player:    player,
		playlist:  playlist,
		events:    events,
		logger:    logger.With("component", "alert"),
		interval:  interval,
		loadedIdx: -1,
	}
}

// Interval returns the poll interval.
func (s *Scheduler) Interval() time.Duration {
	return s.interval
}

// Start arms the scheduler and loads the current track.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active = true
	s.exhausted = false
	s.streak = 0
	s.loadLocked()
}

// Stop halts playback without advancing the playlist. Playback does not
// resume until Start is called again.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.active = false
	s.player.Stop()
	if s.state == StatePlaying {
		s.state = StateReady
	}
}

// Prepare loads the current track if it is not already loaded.
// Redundant calls are no-ops.
func (s *Scheduler) Prepare() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loadLocked()
}

// Poll evaluates the play policy once and reports whether playback started.
func (s *Scheduler) Poll(running, present bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.active || !running {
		return false
	}

	s.loadLocked()
	if s.state == StateLoading && s.player.Ready() {
		s.state = StateReady
	}

	if !present || s.state != StateReady || !s.player.Ready() || s.player.Playing() {
		return false
	}

	track := s.playlist.Current()
	if err := s.player.Play(); err != nil {
		if errors.Is(err, ErrAlreadyPlaying) {
			return false
		}
		s.failTrackLocked(MsgPlayFailed, &TrackError{Track: track, Err: err})
		return false
	}

	s.state = StatePlaying
	s.streak = 0
	s.starts++
	s.logger.Info("playing", "track", track.Name, "index", s.playlist.Index())
	s.events.Append(MsgPlaying)
	return true
}

// Run polls every interval until ctx is done.
func (s *Scheduler) Run(ctx context.Context, conds Conditions) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			running, present := conds()
			s.Poll(running, present)
		}
	}
}

// Snapshot returns the current scheduler state.
func (s *Scheduler) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{
		State:     s.state.String(),
		Index:     s.playlist.Index(),
		Track:     s.playlist.Current(),
		Playing:   s.state == StatePlaying,
		Starts:    s.starts,
		Completed: s.completed,
		Failures:  s.failures,
		Exhausted: s.exhausted,
	}
}

// Tracks returns the playlist contents.
func (s *Scheduler) Tracks() []Track {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.playlist.Tracks()
}

// loadLocked makes sure the current track is loaded, skipping tracks that
// fail. It gives up once every track has failed in a row.
func (s *Scheduler) loadLocked() {
	for !s.exhausted {
		idx := s.playlist.Index()
		track := s.playlist.Current()
		if s.state != StateIdle && s.loadedIdx == idx && s.player.Current() == track.Path {
			return
		}

		s.gen++
		gen := s.gen
		s.state = StateLoading
		err := s.player.Load(track, func() { s.handleEnd(gen) })
		if err == nil {
			s.loadedIdx = idx
			if s.player.Ready() {
				s.state = StateReady
			}
			s.logger.Debug("loaded", "track", track.Name, "index", idx)
			return
		}

		s.failTrackLocked(MsgLoadFailed, &TrackError{Track: track, Err: err})
	}
}

// failTrackLocked records a bad track under msg and moves past it. After a
// full lap of consecutive failures the playlist is marked exhausted.
func (s *Scheduler) failTrackLocked(msg string, err *TrackError) {
	s.failures++
	s.streak++
	s.loadedIdx = -1
	s.state = StateIdle
	s.logger.Warn("track failed, skipping", "error", err)
	s.events.Append(msg + " " + err.Track.Name)
	s.playlist.Advance()

	if s.streak >= s.playlist.Len() {
		s.exhausted = true
		s.logger.Error("no playable track in playlist", "tracks", s.playlist.Len())
	}
}

// handleEnd runs on natural end of track: advance and load the next one
// right away rather than waiting for the next poll.
func (s *Scheduler) handleEnd(gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if gen != s.gen || s.state != StatePlaying {
		s.logger.Debug("stale end of track ignored", "gen", gen, "current", s.gen)
		return
	}

	s.completed++
	s.state = StateIdle
	s.loadedIdx = -1
	next := s.playlist.Advance()
	s.logger.Debug("track finished", "next", next)

	if s.active {
		s.loadLocked()
	}
}
