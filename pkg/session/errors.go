package session

import "errors"

// Sentinel errors for common conditions.
var (
	// ErrEngineNotReady is returned by Start before the pose engine has
	// finished loading. The session state is unchanged.
	ErrEngineNotReady = errors.New("session: engine not ready")

	// ErrClosed is returned by Start after Close.
	ErrClosed = errors.New("session: closed")
)
