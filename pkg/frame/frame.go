// Package frame defines the video frames flowing into the detection loop
// and the throttle that keeps inference to one run per distinct frame.
package frame

import (
	"sync"
	"time"
)

// Frame is one decoded video frame.
// Data is an encoded image (JPEG) that the core never inspects; it is only
// handed to the inference engine.
type Frame struct {
	Data      []byte
	Timestamp time.Duration // capture clock, non-decreasing
	Seq       uint64
}

// Source supplies the most recent frame of a live video feed.
type Source interface {
	// Latest returns the newest decoded frame, or false if none is available yet.
	Latest() (Frame, bool)

	// Ready reports whether the source is open and producing frames.
	Ready() bool
}

// StaticSource is a Source whose frames are set explicitly.
// Used by tests and the demo mode.
type StaticSource struct {
	mu    sync.RWMutex
	frame Frame
	has   bool
	ready bool
}

// NewStaticSource creates a ready source with no frame.
func NewStaticSource() *StaticSource {
	return &StaticSource{ready: true}
}

// Set publishes f as the latest frame.
func (s *StaticSource) Set(f Frame) {
	s.mu.Lock()
	s.frame = f
	s.has = true
	s.mu.Unlock()
}

// Advance publishes a new frame whose timestamp is d past the current one.
func (s *StaticSource) Advance(d time.Duration) Frame {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.frame = Frame{
		Data:      s.frame.Data,
		Timestamp: s.frame.Timestamp + d,
		Seq:       s.frame.Seq + 1,
	}
	s.has = true
	return s.frame
}

// SetReady toggles readiness.
func (s *StaticSource) SetReady(ready bool) {
	s.mu.Lock()
	s.ready = ready
	s.mu.Unlock()
}

// Latest implements Source.
func (s *StaticSource) Latest() (Frame, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.frame, s.has
}

// Ready implements Source.
func (s *StaticSource) Ready() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ready
}
