package alert

import (
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
)

// DefaultGstBinary is the GStreamer launcher used for playback.
const DefaultGstBinary = "gst-launch-1.0"

// GstPlayer plays tracks through a gst-launch-1.0 playbin process.
// The process exiting on its own is a natural end; Stop kills it and
// suppresses the end callback.
type GstPlayer struct {
	binary string
	sink   string
	logger *slog.Logger

	mu      sync.Mutex
	track   Track
	uri     string
	onEnd   func()
	loaded  bool
	playing bool
	cmd     *exec.Cmd
	run     uint64 // bumped per Play and Stop
}

// NewGstPlayer creates a player. sink is a GStreamer audio sink element
// ("autoaudiosink" when empty).
func NewGstPlayer(sink string, logger *slog.Logger) *GstPlayer {
	if sink == "" {
		sink = "autoaudiosink"
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &GstPlayer{
		binary: DefaultGstBinary,
		sink:   sink,
		logger: logger.With("component", "gst"),
	}
}

// Load implements Player. The file must exist; loading the track that is
// already loaded keeps the current state.
func (p *GstPlayer) Load(track Track, onEnd func()) error {
	abs, err := filepath.Abs(track.Path)
	if err != nil {
		return fmt.Errorf("resolve %s: %w", track.Path, err)
	}
	if _, err := os.Stat(abs); err != nil {
		return fmt.Errorf("stat %s: %w", abs, err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.playing {
		p.stopLocked()
	}
	p.track = track
	p.uri = (&url.URL{Scheme: "file", Path: abs}).String()
	p.onEnd = onEnd
	p.loaded = true
	return nil
}

// Play implements Player.
func (p *GstPlayer) Play() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.loaded {
		return ErrNotLoaded
	}
	if p.playing {
		return ErrAlreadyPlaying
	}

	cmd := exec.Command(p.binary, "-q", "playbin", "uri="+p.uri, "audio-sink="+p.sink)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start playback: %w", err)
	}

	p.run++
	run := p.run
	p.cmd = cmd
	p.playing = true
	onEnd := p.onEnd
	name := p.track.Name

	go func() {
		err := cmd.Wait()

		p.mu.Lock()
		natural := p.run == run && p.playing
		if natural {
			p.playing = false
			p.cmd = nil
		}
		p.mu.Unlock()

		if !natural {
			return
		}
		if err != nil {
			p.logger.Warn("playback exited with error", "track", name, "error", err)
		}
		if onEnd != nil {
			onEnd()
		}
	}()
	return nil
}

// Stop implements Player.
func (p *GstPlayer) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopLocked()
}

func (p *GstPlayer) stopLocked() {
	if !p.playing {
		return
	}
	p.run++
	p.playing = false
	if p.cmd != nil && p.cmd.Process != nil {
		p.cmd.Process.Kill()
	}
	p.cmd = nil
}

// Ready implements Player.
func (p *GstPlayer) Ready() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.loaded
}

// Playing implements Player.
func (p *GstPlayer) Playing() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.playing
}

// Current implements Player.
func (p *GstPlayer) Current() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.loaded {
		return ""
	}
	return p.track.Path
}
