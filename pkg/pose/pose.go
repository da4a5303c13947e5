// Package pose wraps a pose-estimation engine and turns its raw output into
// normalized observations for the presence detector.
package pose

import (
	"context"
	"time"

	"github.com/teslashibe/mockingbird/pkg/frame"
)

// KeypointCount is the number of COCO body keypoints per pose.
const KeypointCount = 17

// Landmark is one body keypoint.
// X and Y are normalized to 0-1; Z is relative depth (0 when the model has none).
type Landmark struct {
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Z          float64 `json:"z"`
	Confidence float64 `json:"confidence"`
}

// LandmarkSet is the ordered keypoints of one detected person.
// Its length is fixed by the model.
type LandmarkSet []Landmark

// Observation is the result of one inference pass.
type Observation struct {
	Poses      []LandmarkSet `json:"poses"`
	CapturedAt time.Duration `json:"captured_at"` // frame timestamp
}

// Present reports whether at least one pose was detected.
func (o Observation) Present() bool {
	return len(o.Poses) > 0
}

// Engine is the interface for pose-estimation backends.
type Engine interface {
	// Ready reports whether the model is loaded and can accept frames.
	Ready() bool

	// Detect finds poses in the frame.
	Detect(ctx context.Context, f frame.Frame) ([]LandmarkSet, error)

	// Close releases resources
	Close() error
}
