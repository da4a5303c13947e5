// Package presence reduces pose observations into an edge-triggered
// intruder presence signal.
package presence

import (
	"time"

	"github.com/teslashibe/mockingbird/pkg/pose"
)

// Transition is a change in presence.
type Transition int

const (
	// None means presence did not change.
	None Transition = iota
	// Detected is the false→true edge.
	Detected
	// Cleared is the true→false edge.
	Cleared
)

// Event Log messages for each transition.
const (
	MsgDetected = "Intruder detected"
	MsgCleared  = "Intruder no longer detected"
)

// Message returns the Event Log text for the transition.
func (t Transition) Message() string {
	switch t {
	case Detected:
		return MsgDetected
	case Cleared:
		return MsgCleared
	default:
		return ""
	}
}

func (t Transition) String() string {
	switch t {
	case Detected:
		return "detected"
	case Cleared:
		return "cleared"
	default:
		return "none"
	}
}

// State is the current presence.
// LastPresentAt is only meaningful when HasBeenPresent is true; it never
// decreases.
type State struct {
	Present        bool          `json:"present"`
	LastPresentAt  time.Duration `json:"last_present_at"`
	HasBeenPresent bool          `json:"has_been_present"`
}

// Detector holds presence between observations.
// It is not safe for concurrent use; the session serializes calls.
type Detector struct {
	state State
}

// New creates a detector with nobody present.
func New() *Detector {
	return &Detector{}
}

// State returns the current state.
func (d *Detector) State() State {
	return d.state
}

// Reduce folds one observation into the state. It returns the new state and
// the transition it caused, with ok false when presence did not flip.
func (d *Detector) Reduce(obs pose.Observation) (State, Transition, bool) {
	present := obs.Present()

	if present {
		if !d.state.HasBeenPresent || obs.CapturedAt > d.state.LastPresentAt {
			d.state.LastPresentAt = obs.CapturedAt
		}
		d.state.HasBeenPresent = true
	}

	if present == d.state.Present {
		return d.state, None, false
	}

	d.state.Present = present
	if present {
		return d.state, Detected, true
	}
	return d.state, Cleared, true
}

// ForceClear marks nobody present, returning Cleared if someone was.
func (d *Detector) ForceClear() (Transition, bool) {
	if !d.state.Present {
		return None, false
	}
	d.state.Present = false
	return Cleared, true
}

// Reset forgets presence but keeps LastPresentAt history so it stays
// non-decreasing across sessions.
func (d *Detector) Reset() {
	d.state.Present = false
}
