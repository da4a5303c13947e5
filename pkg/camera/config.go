// Package camera provides the live video source feeding the detection loop.
// Frames are read from a local capture device with GoCV.
package camera

import (
	"errors"
	"fmt"
)

// ErrUnavailable is returned when the capture device cannot be opened
// (missing device or permission denied).
var ErrUnavailable = errors.New("camera: device unavailable")

// Config holds capture parameters.
type Config struct {
	Device  string `json:"device" yaml:"device"`   // Device index ("0") or file/URL
	Width   int    `json:"width" yaml:"width"`     // Frame width in pixels
	Height  int    `json:"height" yaml:"height"`   // Frame height in pixels
	FPS     int    `json:"fps" yaml:"fps"`         // Requested capture rate
	Quality int    `json:"quality" yaml:"quality"` // JPEG quality 1-100
}

// Capture limits.
const (
	MaxWidth  = 3840
	MaxHeight = 2160
	MaxFPS    = 120
)

// DefaultConfig returns a 640x480 configuration, the size the pose model
// was tuned against.
func DefaultConfig() Config {
	return Config{
		Device:  "0",
		Width:   640,
		Height:  480,
		FPS:     30,
		Quality: 80,
	}
}

// Validate checks if the config values are within valid ranges.
// Returns a list of validation errors, or nil if valid.
func (c *Config) Validate() []string {
	var errors []string

	if c.Device == "" {
		errors = append(errors, "device must be set")
	}
	if c.Width < 160 || c.Width > MaxWidth {
		errors = append(errors, fmt.Sprintf("width must be between 160 and %d", MaxWidth))
	}
	if c.Height < 120 || c.Height > MaxHeight {
		errors = append(errors, fmt.Sprintf("height must be between 120 and %d", MaxHeight))
	}
	if c.FPS < 1 || c.FPS > MaxFPS {
		errors = append(errors, fmt.Sprintf("fps must be between 1 and %d", MaxFPS))
	}
	if c.Quality < 1 || c.Quality > 100 {
		errors = append(errors, "quality must be between 1 and 100")
	}

	return errors
}
