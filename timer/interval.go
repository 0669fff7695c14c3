// Package timer provides the interval timer used by the handshake
// deadline and the health checker's send/receive timers.
package timer

import "time"

// IntervalTimer tracks whether a configured duration has elapsed since
// its reference point was last synced.
type IntervalTimer struct {
	interval time.Duration
	last     time.Time
	now      func() time.Time
}

// New creates an IntervalTimer for the given interval, with its
// reference point set to now.
func New(interval time.Duration) *IntervalTimer {
	t := &IntervalTimer{interval: interval, now: time.Now}
	t.last = t.now()
	return t
}

// Update returns true, and resets the reference point to now, iff at
// least the configured interval has elapsed since the last reference
// point (the last call to Update that returned true, or SyncNow).
func (t *IntervalTimer) Update() bool {
	if t.now().Sub(t.last) < t.interval {
		return false
	}
	t.last = t.now()
	return true
}

// SyncNow sets the reference point to now without signalling elapse.
func (t *IntervalTimer) SyncNow() {
	t.last = t.now()
}

// Elapsed returns the duration since the reference point was last synced.
func (t *IntervalTimer) Elapsed() time.Duration {
	return t.now().Sub(t.last)
}

// Interval returns the timer's configured interval.
func (t *IntervalTimer) Interval() time.Duration {
	return t.interval
}
