package camera

import "time"

// frameClock stamps frames for one capture run. The source is chosen on the
// first frame: the device position if it reports one, elapsed wall time
// otherwise. A device that later stops reporting is bridged with wall time
// from its last position. Stamps never go backwards.
type frameClock struct {
	start time.Time

	decided bool
	device  bool

	last     time.Duration
	lastWall time.Time
}

func newFrameClock(start time.Time) *frameClock {
	return &frameClock{start: start}
}

// stamp returns the timestamp for a frame read at now. deviceMs is the
// device position in milliseconds, or <= 0 when unknown.
func (fc *frameClock) stamp(deviceMs float64, now time.Time) time.Duration {
	if !fc.decided {
		fc.decided = true
		fc.device = deviceMs > 0
		fc.lastWall = now
	}

	var ts time.Duration
	switch {
	case !fc.device:
		ts = now.Sub(fc.start)
	case deviceMs > 0:
		ts = time.Duration(deviceMs * float64(time.Millisecond))
	default:
		ts = fc.last + now.Sub(fc.lastWall)
	}

	if ts < fc.last {
		ts = fc.last
	}
	fc.last = ts
	fc.lastWall = now
	return ts
}
