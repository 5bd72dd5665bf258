// Package hysteresis converts a continuously-varying posterior
// probability into a stable boolean verdict using a dead-band and an
// optional minimum dwell time. It has no external dependencies and no
// timers: time is always injected, so the gate is testable with
// synthetic timestamps.
package hysteresis

import (
	"fmt"
	"time"
)

// Config holds the gate thresholds. TurnOn must exceed TurnOff; the gap
// between them is the dead-band where the previous verdict holds.
type Config struct {
	TurnOn   float64
	TurnOff  float64
	MinDwell time.Duration // 0 disables dwell filtering
}

// Validate reports configuration errors. These are fatal at setup,
// never silently defaulted.
func (c Config) Validate() error {
	if c.TurnOn <= 0 || c.TurnOn >= 1 {
		return fmt.Errorf("hysteresis: turn-on threshold %v outside (0,1)", c.TurnOn)
	}
	if c.TurnOff <= 0 || c.TurnOff >= 1 {
		return fmt.Errorf("hysteresis: turn-off threshold %v outside (0,1)", c.TurnOff)
	}
	if c.TurnOn <= c.TurnOff {
		return fmt.Errorf("hysteresis: turn-on threshold %v must exceed turn-off threshold %v", c.TurnOn, c.TurnOff)
	}
	if c.MinDwell < 0 {
		return fmt.Errorf("hysteresis: negative minimum dwell %v", c.MinDwell)
	}
	return nil
}

// Verdict is the published output of the gate.
type Verdict struct {
	On bool
	// Known is false until the first usable estimate arrives.
	Known bool
	// Stale marks a held verdict: current evidence was insufficient, so
	// the gate is repeating its last decision.
	Stale     bool
	ChangedAt time.Time
	// RawSince is how long the raw (pre-hysteresis) classification has
	// held its current value.
	RawSince time.Time
}

// Gate tracks verdict state for one condition.
type Gate struct {
	cfg Config

	verdict  Verdict
	rawOn    bool
	rawValid bool
}

// NewGate creates a gate. The initial verdict is false and stale until
// the first evidence arrives.
func NewGate(cfg Config) (*Gate, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Gate{cfg: cfg, verdict: Verdict{Stale: true}}, nil
}

// Restore primes the gate with a verdict carried over from a previous
// run. The verdict is held as stale until fresh evidence arrives.
func (g *Gate) Restore(on bool, changedAt time.Time) {
	g.verdict = Verdict{On: on, Known: true, Stale: true, ChangedAt: changedAt}
	g.rawValid = false
}

// Update feeds one posterior sample into the gate and returns the
// stable verdict. insufficient samples never force a transition: the
// gate holds its last verdict and marks it stale.
func (g *Gate) Update(posterior float64, insufficient bool, now time.Time) Verdict {
	if insufficient {
		g.verdict.Stale = true
		g.rawValid = false
		return g.verdict
	}

	// Raw classification against the dead-band: only samples outside
	// the band can request a transition.
	var want bool
	switch {
	case posterior >= g.cfg.TurnOn:
		want = true
	case posterior <= g.cfg.TurnOff:
		want = false
	default:
		want = g.verdict.On // inside the dead-band the verdict holds
	}

	// Track how long the raw classification has held.
	if !g.rawValid || want != g.rawOn {
		g.rawOn = want
		g.rawValid = true
		g.verdict.RawSince = now
	}

	g.verdict.Stale = false

	if !g.verdict.Known {
		// First evidence: adopt the raw classification immediately if no
		// dwell is configured, otherwise wait for it to hold.
		if g.cfg.MinDwell == 0 || now.Sub(g.verdict.RawSince) >= g.cfg.MinDwell {
			g.verdict.On = want
			g.verdict.Known = true
			g.verdict.ChangedAt = now
		}
		return g.verdict
	}

	if want == g.verdict.On {
		return g.verdict
	}

	// Transition requested: accept only after the raw classification has
	// held for the minimum dwell, rejecting single noisy samples.
	if g.cfg.MinDwell > 0 && now.Sub(g.verdict.RawSince) < g.cfg.MinDwell {
		return g.verdict
	}

	g.verdict.On = want
	g.verdict.ChangedAt = now
	return g.verdict
}

// Current returns the verdict without feeding a sample.
func (g *Gate) Current() Verdict {
	return g.verdict
}
