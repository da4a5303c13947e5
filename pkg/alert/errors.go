package alert

import (
	"errors"
	"fmt"
)

// Sentinel errors for common conditions.
var (
	// ErrEmptyPlaylist is returned when creating a playlist with no tracks.
	ErrEmptyPlaylist = errors.New("alert: playlist is empty")

	// ErrNotLoaded is returned by Play when no track is loaded.
	ErrNotLoaded = errors.New("alert: no track loaded")

	// ErrAlreadyPlaying is returned by Play while a track is playing.
	ErrAlreadyPlaying = errors.New("alert: already playing")
)

// TrackError reports a track that could not be loaded or played.
type TrackError struct {
	Track Track
	Err   error
}

// Error implements the error interface.
func (e *TrackError) Error() string {
	return fmt.Sprintf("alert: track %s (%s): %v", e.Track.Name, e.Track.Path, e.Err)
}

// Unwrap returns the underlying error.
func (e *TrackError) Unwrap() error {
	return e.Err
}
