package lightcycle

import "time"

// Debouncer is an optional pre-filter in front of the verifier: a state
// change is forwarded only after it has held for the configured window.
// It sits upstream so the verification state machine itself stays
// simple and directly testable. Disabled (zero window) by default,
// since short phases are usually the fault worth surfacing.
type Debouncer struct {
	window time.Duration

	stable       bool
	stableKnown  bool
	pending      bool
	pendingSet   bool
	pendingSince time.Time
}

// NewDebouncer creates a debouncer. A zero or negative window passes
// every transition through untouched.
func NewDebouncer(window time.Duration) *Debouncer {
	return &Debouncer{window: window}
}

// Observe feeds a raw light sample. It returns the debounced state and
// whether the caller should forward it as a transition.
func (d *Debouncer) Observe(on bool, now time.Time) (state bool, emit bool) {
	if d.window <= 0 {
		return on, true
	}

	if !d.stableKnown {
		d.stable = on
		d.stableKnown = true
		return on, true
	}

	if on == d.stable {
		d.pendingSet = false
		return d.stable, false
	}

	if !d.pendingSet || d.pending != on {
		d.pending = on
		d.pendingSet = true
		d.pendingSince = now
		return d.stable, false
	}

	if now.Sub(d.pendingSince) >= d.window {
		d.stable = on
		d.pendingSet = false
		return d.stable, true
	}
	return d.stable, false
}
