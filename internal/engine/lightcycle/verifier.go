// Package lightcycle verifies that a growspace's light runs for the
// stage-appropriate duration per 24h cycle. It is a pure timing state
// machine: transitions and clock readings are pushed in, nothing
// blocks, and no real timers are used.
package lightcycle

import (
	"fmt"
	"time"
)

// Status is the schedule verdict.
type Status string

const (
	StatusCorrect   Status = "correct"
	StatusIncorrect Status = "incorrect"
	StatusUnknown   Status = "unknown"
)

// DefaultTolerance is the allowed deviation of ON time per window.
const DefaultTolerance = 15 * time.Minute

const windowLength = 24 * time.Hour

// Config holds the expected schedule for the current stage.
type Config struct {
	// ExpectedOn is the expected light-on duration per 24h window.
	// Zero means no schedule applies and the verdict stays unknown.
	ExpectedOn time.Duration
	Tolerance  time.Duration
}

// Validate reports configuration errors.
func (c Config) Validate() error {
	if c.ExpectedOn < 0 || c.ExpectedOn > windowLength {
		return fmt.Errorf("lightcycle: expected on duration %v outside [0,24h]", c.ExpectedOn)
	}
	if c.Tolerance < 0 {
		return fmt.Errorf("lightcycle: negative tolerance %v", c.Tolerance)
	}
	return nil
}

// phase is one completed on or off interval.
type phase struct {
	on    bool
	start time.Time
	end   time.Time
}

// Snapshot is the externally visible verifier state.
type Snapshot struct {
	Status     Status
	ObservedOn time.Duration // ON total of the last closed window
	ExpectedOn time.Duration
	Windows    int // closed windows since last reset
}

// Verifier tracks light on/off transitions and validates cumulative ON
// duration per 24h window. The incorrect verdict is sticky until a
// window passes or the stage changes.
type Verifier struct {
	cfg Config

	tracking    bool
	on          bool
	phaseStart  time.Time
	windowStart time.Time
	phases      []phase

	status     Status
	observedOn time.Duration
	windows    int
}

// NewVerifier creates a verifier with an unknown verdict.
func NewVerifier(cfg Config) (*Verifier, error) {
	if cfg.Tolerance == 0 {
		cfg.Tolerance = DefaultTolerance
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Verifier{cfg: cfg, status: StatusUnknown}, nil
}

// Reset clears the rolling log and verdict. Called on stage change: the
// expected duration itself changed, so the old log must never be
// compared against the new schedule.
func (v *Verifier) Reset(cfg Config) error {
	if cfg.Tolerance == 0 {
		cfg.Tolerance = DefaultTolerance
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	v.cfg = cfg
	v.tracking = false
	v.phases = nil
	v.status = StatusUnknown
	v.observedOn = 0
	v.windows = 0
	return nil
}

// Retune updates the expected schedule without discarding the rolling
// log. Used when stage metadata is re-delivered without an actual
// transition, e.g. a retained broker message on reconnect.
func (v *Verifier) Retune(cfg Config) error {
	if cfg.Tolerance == 0 {
		cfg.Tolerance = DefaultTolerance
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	v.cfg = cfg
	return nil
}

// Restore adopts a verdict carried over from a previous run. It holds
// until the next window closes with freshly observed phases.
func (v *Verifier) Restore(status Status, observedOn time.Duration) {
	v.status = status
	v.observedOn = observedOn
}

// Transition records a light state change. Every transition is one
// phase boundary, however short: an erratic timer is exactly the fault
// this component surfaces, so rapid flapping is not filtered here.
func (v *Verifier) Transition(on bool, now time.Time) Snapshot {
	v.Advance(now)

	if !v.tracking {
		v.tracking = true
		v.on = on
		v.phaseStart = now
		v.windowStart = now
		return v.Current()
	}

	if on == v.on {
		return v.Current() // repeated state, not a transition
	}

	v.phases = append(v.phases, phase{on: v.on, start: v.phaseStart, end: now})
	v.on = on
	v.phaseStart = now
	return v.Current()
}

// Advance closes any 24h windows that have fully elapsed by now. Called
// on every evaluation so a window closes even when the light has not
// toggled since.
func (v *Verifier) Advance(now time.Time) {
	if !v.tracking {
		return
	}
	for now.Sub(v.windowStart) >= windowLength {
		v.closeWindow(v.windowStart.Add(windowLength))
	}
}

// closeWindow evaluates the window ending at end and rolls forward.
func (v *Verifier) closeWindow(end time.Time) {
	start := v.windowStart

	var onTotal time.Duration
	for _, p := range v.phases {
		onTotal += overlapOn(p, start, end)
	}
	// The still-open phase counts up to the window end.
	onTotal += overlapOn(phase{on: v.on, start: v.phaseStart, end: end}, start, end)

	v.observedOn = onTotal
	v.windows++

	if v.cfg.ExpectedOn <= 0 {
		v.status = StatusUnknown
	} else {
		deviation := onTotal - v.cfg.ExpectedOn
		if deviation < 0 {
			deviation = -deviation
		}
		if deviation <= v.cfg.Tolerance {
			v.status = StatusCorrect
		} else {
			v.status = StatusIncorrect
		}
	}

	// Prune phases fully consumed by the closed window.
	kept := v.phases[:0]
	for _, p := range v.phases {
		if p.end.After(end) {
			kept = append(kept, p)
		}
	}
	v.phases = kept
	v.windowStart = end
}

func overlapOn(p phase, start, end time.Time) time.Duration {
	if !p.on {
		return 0
	}
	s, e := p.start, p.end
	if s.Before(start) {
		s = start
	}
	if e.After(end) {
		e = end
	}
	if !e.After(s) {
		return 0
	}
	return e.Sub(s)
}

// Current returns the verifier's visible state.
func (v *Verifier) Current() Snapshot {
	return Snapshot{
		Status:     v.status,
		ObservedOn: v.observedOn,
		ExpectedOn: v.cfg.ExpectedOn,
		Windows:    v.windows,
	}
}

// LightOn reports the current light state, false when no transition has
// been observed yet.
func (v *Verifier) LightOn() (on bool, known bool) {
	return v.on && v.tracking, v.tracking
}
