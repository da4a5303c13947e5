package pose

import "errors"

// Sentinel errors for common conditions.
var (
	// ErrNotReady is returned when the engine has not finished loading.
	ErrNotReady = errors.New("pose: engine not ready")

	// ErrClosed is returned when detecting on a closed engine.
	ErrClosed = errors.New("pose: engine closed")

	// ErrModelNotFound is returned when the model file does not exist.
	ErrModelNotFound = errors.New("pose: model file not found")

	// ErrEmptyFrame is returned when the frame has no decodable image.
	ErrEmptyFrame = errors.New("pose: empty frame")
)
