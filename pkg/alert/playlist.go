// Package alert drives the rotating audio deterrent: a circular playlist,
// a player abstraction and the scheduler that decides when to play.
package alert

import (
	"path/filepath"
	"strings"
)

// Track is one deterrent sound.
type Track struct {
	Name string `json:"name"`
	Path string `json:"path"`
}

// TracksFromPaths builds tracks named after their file base name.
func TracksFromPaths(paths []string) []Track {
	tracks := make([]Track, 0, len(paths))
	for _, p := range paths {
		base := filepath.Base(p)
		tracks = append(tracks, Track{
			Name: strings.TrimSuffix(base, filepath.Ext(base)),
			Path: p,
		})
	}
	return tracks
}

// Playlist is an ordered, circular list of tracks.
// It is not safe for concurrent use; the Scheduler owns it.
type Playlist struct {
	tracks []Track
	index  int
}

// NewPlaylist creates a playlist positioned at the first track.
func NewPlaylist(tracks []Track) (*Playlist, error) {
	if len(tracks) == 0 {
		return nil, ErrEmptyPlaylist
	}
	cp := make([]Track, len(tracks))
	copy(cp, tracks)
	return &Playlist{tracks: cp}, nil
}

// Current returns the track at the current index.
func (p *Playlist) Current() Track {
	return p.tracks[p.index]
}

// Index returns the current position.
func (p *Playlist) Index() int {
	return p.index
}

// Len returns the number of tracks.
func (p *Playlist) Len() int {
	return len(p.tracks)
}

// Advance moves to the next track, wrapping to the start, and returns the
// new index.
func (p *Playlist) Advance() int {
	p.index = (p.index + 1) % len(p.tracks)
	return p.index
}

// Tracks returns a copy of the track list.
func (p *Playlist) Tracks() []Track {
	out := make([]Track, len(p.tracks))
	copy(out, p.tracks)
	return out
}
