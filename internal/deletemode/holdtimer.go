package deletemode

import "time"

// HoldState is the lifecycle of one press-and-hold gesture.
type HoldState int

const (
	HoldIdle HoldState = iota
	HoldArmed
	HoldFired
)

// HoldTimer is a cancellable hold-to-confirm timer. Arm starts a
// gesture, Disarm abandons it with no side effects, and Poll reports
// expiry exactly once: a release racing the expiry cannot make the
// confirm fire twice, and a poll after disarm never fires at all.
// Time is passed in explicitly so the timer is testable without
// sleeping and usable from any event loop.
type HoldTimer struct {
	state    HoldState
	armedAt  time.Time
	deadline time.Time
}

// Arm starts (or restarts) the gesture; the timer fires once delay has
// elapsed past now.
func (h *HoldTimer) Arm(now time.Time, delay time.Duration) {
	h.state = HoldArmed
	h.armedAt = now
	h.deadline = now.Add(delay)
}

// Disarm abandons the gesture from any state.
func (h *HoldTimer) Disarm() {
	h.state = HoldIdle
}

// Poll returns true exactly once, on the first call at or past the
// deadline of an armed gesture.
func (h *HoldTimer) Poll(now time.Time) bool {
	if h.state != HoldArmed || now.Before(h.deadline) {
		return false
	}
	h.state = HoldFired
	return true
}

// State returns the current gesture state.
func (h *HoldTimer) State() HoldState { return h.state }

// Progress reports how much of the hold has elapsed, in [0, 1].
func (h *HoldTimer) Progress(now time.Time) float64 {
	if h.state == HoldIdle {
		return 0
	}
	if h.state == HoldFired {
		return 1
	}
	total := h.deadline.Sub(h.armedAt)
	if total <= 0 {
		return 1
	}
	p := float64(now.Sub(h.armedAt)) / float64(total)
	if p < 0 {
		return 0
	}
	if p > 1 {
		return 1
	}
	return p
}
