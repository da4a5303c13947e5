package alert

import (
	"sync"
)

// MockPlayer implements Player for testing. Natural end of track is
// simulated with Finish.
type MockPlayer struct {
	// LoadFunc is called when Load is invoked.
	// If nil, every load succeeds.
	LoadFunc func(track Track) error

	// PlayFunc is called when Play is invoked on a loaded, idle player.
	// If nil, playback starts.
	PlayFunc func(track Track) error

	mu       sync.Mutex
	track    Track
	onEnd    func()
	loaded   bool
	playing  bool
	notReady bool

	loads    []string
	plays    []string
	stops    int
	overlaps int
}

// NewMockPlayer creates a mock player.
func NewMockPlayer() *MockPlayer {
	return &MockPlayer{}
}

// Load implements Player.
func (m *MockPlayer) Load(track Track, onEnd func()) error {
	m.mu.Lock()
	fn := m.LoadFunc
	m.loads = append(m.loads, track.Path)
	m.mu.Unlock()

	if fn != nil {
		if err := fn(track); err != nil {
			return err
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.playing = false
	m.track = track
	m.onEnd = onEnd
	m.loaded = true
	return nil
}

// Play implements Player.
func (m *MockPlayer) Play() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.loaded {
		return ErrNotLoaded
	}
	if m.playing {
		m.overlaps++
		return ErrAlreadyPlaying
	}
	if m.PlayFunc != nil {
		if err := m.PlayFunc(m.track); err != nil {
			return err
		}
	}
	m.playing = true
	m.plays = append(m.plays, m.track.Path)
	return nil
}

// Stop implements Player.
func (m *MockPlayer) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stops++
	m.playing = false
}

// Ready implements Player.
func (m *MockPlayer) Ready() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.loaded && !m.notReady
}

// Playing implements Player.
func (m *MockPlayer) Playing() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.playing
}

// Current implements Player.
func (m *MockPlayer) Current() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.loaded {
		return ""
	}
	return m.track.Path
}

// SetReady simulates a track that is still buffering.
func (m *MockPlayer) SetReady(ready bool) {
	m.mu.Lock()
	m.notReady = !ready
	m.mu.Unlock()
}

// Finish ends the playing track naturally and fires its end callback.
// Returns false if nothing was playing.
func (m *MockPlayer) Finish() bool {
	m.mu.Lock()
	if !m.playing {
		m.mu.Unlock()
		return false
	}
	m.playing = false
	cb := m.onEnd
	m.mu.Unlock()

	if cb != nil {
		cb()
	}
	return true
}

// Loads returns the paths passed to Load, in order.
func (m *MockPlayer) Loads() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.loads...)
}

// Plays returns the paths started by Play, in order.
func (m *MockPlayer) Plays() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.plays...)
}

// Stops returns how many times Stop was called.
func (m *MockPlayer) Stops() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stops
}

// Overlaps returns how many times Play was called while already playing.
func (m *MockPlayer) Overlaps() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.overlaps
}
