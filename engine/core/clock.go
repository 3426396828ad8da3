package core

import "time"

// Clock measures wall time since Start. Elapsed only moves on Update, so
// every reader within one frame sees the same value.
type Clock struct {
	startedAt time.Time
	sampled   time.Duration
}

func NewClock() *Clock {
	return &Clock{}
}

func (c *Clock) Start() {
	c.startedAt = time.Now()
	c.sampled = 0
}

// Update samples the time since Start. A stopped clock keeps its last sample.
func (c *Clock) Update() {
	if c.Running() {
		c.sampled = time.Since(c.startedAt)
	}
}

func (c *Clock) Stop() {
	c.startedAt = time.Time{}
}

func (c *Clock) Running() bool {
	return !c.startedAt.IsZero()
}

// Elapsed returns the seconds since Start as of the last Update.
func (c *Clock) Elapsed() float64 {
	return c.sampled.Seconds()
}
