package reactor

import "time"

// minTimerArm is the clamp applied to the next kernel timer arming, to
// avoid spurious immediate firings on very small timer arms.
const minTimerArm = 100 * time.Microsecond

// timerSeq is the globally monotonic sequence number used to disambiguate
// timers sharing an expiration, since Go values have no stable address to
// order by.
type timerSeq uint64

// TimerID identifies a scheduled timer for cancellation.
type TimerID struct {
	seq timerSeq
}

// timerEntry is one scheduled (or currently firing) timer.
type timerEntry struct {
	expiration time.Time
	callback   func()
	interval   time.Duration // zero means one-shot
	seq        timerSeq
	index      int // position in the owning timerHeap, -1 when not queued
}

// howMuchFromNow returns the duration until when, clamped to at least
// minTimerArm.
func howMuchFromNow(when time.Time) time.Duration {
	d := time.Until(when)
	if d < minTimerArm {
		d = minTimerArm
	}
	return d
}
