package pose

import (
	"context"
	"log/slog"
	"sync"

	"github.com/teslashibe/mockingbird/pkg/frame"
)

// Loader is an Engine that initializes its backend in the background.
// It reports not ready until the load succeeds, so the detection toggle
// stays disabled while the model is loading.
type Loader struct {
	load   func() (Engine, error)
	logger *slog.Logger

	mu     sync.RWMutex
	engine Engine
	err    error
	closed bool
	done   chan struct{}
	once   sync.Once
}

// NewLoader wraps load. Call Start to begin loading.
func NewLoader(load func() (Engine, error), logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{
		load:   load,
		logger: logger.With("component", "pose"),
		done:   make(chan struct{}),
	}
}

// Start loads the engine in a goroutine. Later calls do nothing.
func (l *Loader) Start() {
	l.once.Do(func() {
		go func() {
			defer close(l.done)

			engine, err := l.load()

			l.mu.Lock()
			defer l.mu.Unlock()
			if err != nil {
				l.err = err
				l.logger.Error("pose engine failed to load", "error", err)
				return
			}
			if l.closed {
				engine.Close()
				return
			}
			l.engine = engine
			l.logger.Info("pose engine ready")
		}()
	})
}

// Wait blocks until loading has finished or ctx ends, and returns the load error.
func (l *Loader) Wait(ctx context.Context) error {
	select {
	case <-l.done:
		l.mu.RLock()
		defer l.mu.RUnlock()
		return l.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Err returns the load error, if loading failed.
func (l *Loader) Err() error {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.err
}

// Ready implements Engine.
func (l *Loader) Ready() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.engine != nil && !l.closed && l.engine.Ready()
}

// Detect implements Engine.
func (l *Loader) Detect(ctx context.Context, f frame.Frame) ([]LandmarkSet, error) {
	l.mu.RLock()
	engine, closed := l.engine, l.closed
	l.mu.RUnlock()

	if closed {
		return nil, ErrClosed
	}
	if engine == nil {
		return nil, ErrNotReady
	}
	return engine.Detect(ctx, f)
}

// Close implements Engine. An engine that finishes loading after Close is
// released immediately.
func (l *Loader) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return nil
	}
	l.closed = true
	if l.engine != nil {
		return l.engine.Close()
	}
	return nil
}
