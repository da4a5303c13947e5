package pose

import (
	"context"
	"sync"
	"time"

	"github.com/teslashibe/mockingbird/pkg/frame"
)

// Mock implements Engine for testing.
type Mock struct {
	// DetectFunc is called when Detect is invoked.
	// If nil, Detect returns no poses.
	DetectFunc func(ctx context.Context, f frame.Frame) ([]LandmarkSet, error)

	mu     sync.Mutex
	ready  bool
	closed bool
	calls  []MockCall
}

// MockCall records a Detect invocation.
type MockCall struct {
	Seq       uint64
	Timestamp time.Duration
	Time      time.Time
}

// NewMock creates a ready mock engine that detects nothing.
func NewMock() *Mock {
	return &Mock{ready: true}
}

// SetReady toggles readiness.
func (m *Mock) SetReady(ready bool) {
	m.mu.Lock()
	m.ready = ready
	m.mu.Unlock()
}

// Ready implements Engine.
func (m *Mock) Ready() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ready && !m.closed
}

// Detect implements Engine.
func (m *Mock) Detect(ctx context.Context, f frame.Frame) ([]LandmarkSet, error) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil, ErrClosed
	}
	m.calls = append(m.calls, MockCall{Seq: f.Seq, Timestamp: f.Timestamp, Time: time.Now()})
	fn := m.DetectFunc
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, f)
	}
	return nil, nil
}

// Close implements Engine.
func (m *Mock) Close() error {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	return nil
}

// Calls returns a copy of recorded Detect calls.
func (m *Mock) Calls() []MockCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]MockCall, len(m.calls))
	copy(out, m.calls)
	return out
}

// Person returns a LandmarkSet with every keypoint at (x, y).
// Handy for building fake detections.
func Person(x, y float64) LandmarkSet {
	set := make(LandmarkSet, KeypointCount)
	for i := range set {
		set[i] = Landmark{X: x, Y: y, Confidence: 0.9}
	}
	return set
}
