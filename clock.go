package cube

import "time"

// FrameClock measures the time between rendered frames.
type FrameClock struct {
	now     func() time.Time
	last    time.Time
	reverse bool
	started bool
}

// NewFrameClock creates a clock reading now. A nil now uses time.Now.
// With reverse set, Tick reports last-now instead of now-last.
func NewFrameClock(now func() time.Time, reverse bool) *FrameClock {
	if now == nil {
		now = time.Now
	}
	return &FrameClock{now: now, reverse: reverse}
}

// Start records the current time as the last frame time.
func (c *FrameClock) Start() {
	c.last = c.now()
	c.started = true
}

// Tick returns the milliseconds since the previous Tick (or Start) and
// records the current time. The first Tick on an unstarted clock returns 0.
func (c *FrameClock) Tick() float64 {
	t := c.now()
	if !c.started {
		c.last = t
		c.started = true
		return 0
	}
	d := float64(t.Sub(c.last)) / float64(time.Millisecond)
	c.last = t
	if c.reverse {
		return -d
	}
	return d
}
