package engine

import "time"

// Clock supplies wall time to a FrameTimer.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the real time.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// FrameTimer turns clock readings into per-frame deltas.
//
// Not safe for concurrent use; one driver goroutine ticks it.
type FrameTimer struct {
	clock Clock
	last  time.Time
}

// NewFrameTimer starts timing at the clock's current reading.
func NewFrameTimer(c Clock) *FrameTimer {
	return &FrameTimer{clock: c, last: c.Now()}
}

// Tick returns the seconds elapsed since the previous Tick. A clock that
// moves backwards yields 0.
func (t *FrameTimer) Tick() float64 {
	now := t.clock.Now()
	dt := now.Sub(t.last).Seconds()
	t.last = now
	if dt < 0 {
		return 0
	}
	return dt
}

// SecondsSinceMidnight is the animation time origin: seconds since the start
// of the local day of now.
func SecondsSinceMidnight(now time.Time) float64 {
	y, m, d := now.Date()
	midnight := time.Date(y, m, d, 0, 0, 0, 0, now.Location())
	return now.Sub(midnight).Seconds()
}
