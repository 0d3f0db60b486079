// Package timer derives a smooth countdown display from an authoritative
// remaining-time value that only changes once per remote round trip. The
// display value is wall-clock arithmetic over a reference timestamp, so a
// throttled or paused tick never accumulates drift.
package timer

import "time"

// Phase is the coordinator's lifecycle state.
type Phase int

const (
	// Idle: no session loaded, or results are showing. No ticking.
	Idle Phase = iota
	// Running: counting down.
	Running
	// Expired: the derived display value reached zero.
	Expired
)

// Coordinator holds the authoritative value and its reference timestamp as
// one explicit record.
type Coordinator struct {
	phase         Phase
	authoritative int       // seconds remaining at the reference instant
	reference     time.Time // when authoritative was last adopted
	expiredFired  bool
}

// New returns an idle Coordinator.
func New() *Coordinator {
	return &Coordinator{}
}

// Start arms the countdown with the given authoritative seconds.
func (c *Coordinator) Start(seconds int, now time.Time) {
	c.phase = Running
	c.authoritative = seconds
	c.reference = now
	c.expiredFired = false
}

// Sync adopts a fresh authoritative value, resetting the reference instant.
// Called whenever the store's TimeRemaining changes. No-op unless running.
func (c *Coordinator) Sync(seconds int, now time.Time) {
	if c.phase != Running {
		return
	}
	c.authoritative = seconds
	c.reference = now
}

// Display returns the seconds to show: the authoritative value minus the
// wall-clock time elapsed since it was adopted, floored at zero.
func (c *Coordinator) Display(now time.Time) int {
	if c.phase == Idle {
		return 0
	}
	if c.phase == Expired {
		return 0
	}
	elapsed := int(now.Sub(c.reference) / time.Second)
	remaining := c.authoritative - elapsed
	if remaining < 0 {
		return 0
	}
	return remaining
}

// ExpireIfZero transitions to Expired when the display value has reached
// zero. It returns true exactly once per armed countdown, so overlapping
// tick callbacks cannot double-fire the timeout transition.
func (c *Coordinator) ExpireIfZero(now time.Time) bool {
	if c.phase != Running {
		return false
	}
	if c.Display(now) > 0 {
		return false
	}
	c.phase = Expired
	if c.expiredFired {
		return false
	}
	c.expiredFired = true
	return true
}

// Stop returns the coordinator to Idle: results are showing or the hosting
// view is being torn down.
func (c *Coordinator) Stop() {
	c.phase = Idle
}

// Phase returns the current lifecycle state.
func (c *Coordinator) Phase() Phase {
	return c.phase
}

// Progress returns the remaining fraction of the total budget in [0, 1],
// for rendering the countdown bar.
func (c *Coordinator) Progress(total int, now time.Time) float64 {
	if total <= 0 {
		return 0
	}
	p := float64(c.Display(now)) / float64(total)
	if p < 0 {
		return 0
	}
	if p > 1 {
		return 1
	}
	return p
}
