package playback

import "time"

// WithTimer replaces the timer Run waits on between ticks.
func WithTimer(fn func(d time.Duration) (<-chan time.Time, func() bool)) Option {
	return func(c *Controller) {
		c.newTimer = fn
	}
}
