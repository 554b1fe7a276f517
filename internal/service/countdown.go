package service

import "time"

// Countdown is the timer of one section. A zero Duration means untimed.
type Countdown struct {
	StartedAt time.Time
	Duration  time.Duration
}

// Timed reports whether the section has a time limit.
func (c Countdown) Timed() bool { return c.Duration > 0 }

// Deadline is the moment the section times out.
func (c Countdown) Deadline() time.Time { return c.StartedAt.Add(c.Duration) }

// Elapsed is the time spent so far, clamped to [0, Duration] for timed sections.
func (c Countdown) Elapsed(now time.Time) time.Duration {
	d := now.Sub(c.StartedAt)
	if d < 0 {
		return 0
	}
	if c.Timed() && d > c.Duration {
		return c.Duration
	}
	return d
}

// Remaining is the time left, never negative. Untimed sections report zero.
func (c Countdown) Remaining(now time.Time) time.Duration {
	if !c.Timed() {
		return 0
	}
	left := c.Deadline().Sub(now)
	if left < 0 {
		return 0
	}
	if left > c.Duration {
		return c.Duration
	}
	return left
}

// Expired reports whether a timed section is past its deadline.
func (c Countdown) Expired(now time.Time) bool {
	return c.Timed() && !now.Before(c.Deadline())
}
