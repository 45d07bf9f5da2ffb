package clock

import "time"

// Clock converts wall-clock time into whole simulated hours at a fixed rate
// (one real second = Rate simulated hours). Fractions of an hour carry across
// calls, so no simulated time is lost to rounding. Not goroutine-safe; the
// owning loop serializes access.
type Clock struct {
	rate int
	now  func() time.Time

	last time.Time
	acc  time.Duration // scaled wall time not yet converted to whole hours
}

// New returns a clock anchored at the current instant. A nil now uses
// time.Now; tests inject their own.
func New(hoursPerSecond int, now func() time.Time) *Clock {
	if now == nil {
		now = time.Now
	}
	return &Clock{rate: hoursPerSecond, now: now, last: now()}
}

// Advance reports the whole simulated hours elapsed since the previous call.
// Zero elapsed wall time yields zero hours.
func (c *Clock) Advance() int64 {
	t := c.now()
	c.acc += t.Sub(c.last) * time.Duration(c.rate)
	c.last = t
	whole := int64(c.acc / time.Second)
	c.acc -= time.Duration(whole) * time.Second
	return whole
}

// Rebase moves the anchor to the current instant without converting the
// skipped span. Called on resume so paused wall time yields no hours; the
// carried fraction survives.
func (c *Clock) Rebase() {
	c.last = c.now()
}

// Rate returns the configured simulated hours per real second.
func (c *Clock) Rate() int { return c.rate }
