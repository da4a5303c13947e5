package frame

import "time"

// Throttle drops frames whose timestamp equals the last admitted one.
// The video clock strictly increases whenever a new frame is decoded, so
// equality means the loop ran faster than the source.
//
// Throttle is not safe for concurrent use; the frame loop owns it.
type Throttle struct {
	last    time.Duration
	primed  bool
	skipped uint64
}

// Admit reports whether a frame stamped ts should be submitted, and records
// ts if so. Comparison is exact.
func (t *Throttle) Admit(ts time.Duration) bool {
	if t.primed && ts == t.last {
		t.skipped++
		return false
	}
	t.last = ts
	t.primed = true
	return true
}

// Reset forgets the last admitted timestamp.
func (t *Throttle) Reset() {
	t.last = 0
	t.primed = false
	t.skipped = 0
}

// Skipped returns how many frames were dropped since the last Reset.
func (t *Throttle) Skipped() uint64 {
	return t.skipped
}
