package alert

// Player is the audio playback engine the scheduler drives.
//
// Implementations must not invoke onEnd synchronously from Load, Play or
// Stop, and must not invoke it at all for playback halted by Stop.
type Player interface {
	// Load prepares track for playback. onEnd is called once each time the
	// track plays through to its natural end.
	Load(track Track, onEnd func()) error

	// Play starts the loaded track from the beginning.
	Play() error

	// Stop halts playback immediately. Safe to call when idle.
	Stop()

	// Ready reports whether a track is loaded and can start.
	Ready() bool

	// Playing reports whether a track is currently playing.
	Playing() bool

	// Current returns the path of the loaded track, or "".
	Current() string
}
