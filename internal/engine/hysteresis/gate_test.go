package hysteresis

import (
	"testing"
	"time"
)

var t0 = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func mustGate(t *testing.T, cfg Config) *Gate {
	t.Helper()
	g, err := NewGate(cfg)
	if err != nil {
		t.Fatalf("NewGate: %v", err)
	}
	return g
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name  string
		cfg   Config
		valid bool
	}{
		{"valid", Config{TurnOn: 0.7, TurnOff: 0.6}, true},
		{"valid_with_dwell", Config{TurnOn: 0.7, TurnOff: 0.6, MinDwell: time.Minute}, true},
		{"on_below_off", Config{TurnOn: 0.5, TurnOff: 0.6}, false},
		{"equal_thresholds", Config{TurnOn: 0.6, TurnOff: 0.6}, false},
		{"on_zero", Config{TurnOn: 0, TurnOff: 0.6}, false},
		{"on_one", Config{TurnOn: 1, TurnOff: 0.6}, false},
		{"off_zero", Config{TurnOn: 0.7, TurnOff: 0}, false},
		{"negative_dwell", Config{TurnOn: 0.7, TurnOff: 0.6, MinDwell: -time.Second}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.valid && err != nil {
				t.Errorf("config should be valid: %v", err)
			}
			if !tt.valid && err == nil {
				t.Error("config should be rejected")
			}
		})
	}
}

func TestGate_InitialVerdictUnknown(t *testing.T) {
	g := mustGate(t, Config{TurnOn: 0.7, TurnOff: 0.6})
	v := g.Current()
	if v.Known {
		t.Error("gate should start unknown")
	}
	if !v.Stale {
		t.Error("gate should start stale")
	}
}

func TestGate_RestoreHoldsUntilFreshEvidence(t *testing.T) {
	g := mustGate(t, Config{TurnOn: 0.7, TurnOff: 0.6})
	g.Restore(true, t0.Add(-time.Hour))

	// Without evidence the restored verdict holds, flagged stale.
	v := g.Update(0, true, t0)
	if !v.On || !v.Known || !v.Stale {
		t.Fatalf("restored verdict should hold as stale: %+v", v)
	}
	if v.ChangedAt != t0.Add(-time.Hour) {
		t.Errorf("ChangedAt = %v, want carried-over timestamp", v.ChangedAt)
	}

	// Fresh evidence below the turn-off threshold overturns it.
	v = g.Update(0.3, false, t0.Add(time.Minute))
	if v.On || v.Stale {
		t.Errorf("fresh low posterior should turn off: %+v", v)
	}
}

func TestGate_DeadBandHoldsVerdict(t *testing.T) {
	g := mustGate(t, Config{TurnOn: 0.7, TurnOff: 0.6})

	v := g.Update(0.8, false, t0)
	if !v.On || !v.Known {
		t.Fatalf("0.8 should turn on: %+v", v)
	}

	// Samples inside the dead-band hold the previous verdict.
	v = g.Update(0.65, false, t0.Add(time.Minute))
	if !v.On {
		t.Error("0.65 inside dead-band should hold on")
	}
	v = g.Update(0.61, false, t0.Add(2*time.Minute))
	if !v.On {
		t.Error("0.61 inside dead-band should hold on")
	}

	// Crossing the turn-off threshold flips.
	v = g.Update(0.55, false, t0.Add(3*time.Minute))
	if v.On {
		t.Error("0.55 should turn off")
	}

	// And the dead-band now holds off: the same 0.65 that held on
	// before holds off after.
	v = g.Update(0.65, false, t0.Add(4*time.Minute))
	if v.On {
		t.Error("0.65 inside dead-band should hold off")
	}
}

func TestGate_MinDwellRejectsSpikes(t *testing.T) {
	g := mustGate(t, Config{TurnOn: 0.7, TurnOff: 0.6, MinDwell: 5 * time.Minute})

	// First evidence: raw classification must hold for the dwell before
	// the verdict becomes known.
	v := g.Update(0.5, false, t0)
	if v.Known {
		t.Error("verdict should not be known before dwell elapses")
	}
	v = g.Update(0.5, false, t0.Add(5*time.Minute))
	if !v.Known || v.On {
		t.Fatalf("sustained 0.5 should settle off: %+v", v)
	}

	// Single spike above turn-on does not flip.
	v = g.Update(0.9, false, t0.Add(6*time.Minute))
	if v.On {
		t.Error("single spike should not flip the verdict")
	}
	// Dropping back resets the raw tracking.
	v = g.Update(0.5, false, t0.Add(7*time.Minute))
	if v.On {
		t.Error("verdict should stay off")
	}
	// A sustained excursion flips after the dwell.
	g.Update(0.9, false, t0.Add(8*time.Minute))
	v = g.Update(0.9, false, t0.Add(13*time.Minute))
	if !v.On {
		t.Error("sustained 0.9 should flip on after dwell")
	}
	if !v.ChangedAt.Equal(t0.Add(13 * time.Minute)) {
		t.Errorf("ChangedAt = %v, want %v", v.ChangedAt, t0.Add(13*time.Minute))
	}
}

func TestGate_InsufficientHoldsAndMarksStale(t *testing.T) {
	g := mustGate(t, Config{TurnOn: 0.7, TurnOff: 0.6})

	g.Update(0.8, false, t0)
	v := g.Update(0, true, t0.Add(time.Minute))
	if !v.On {
		t.Error("insufficient sample should hold the verdict")
	}
	if !v.Stale {
		t.Error("held verdict should be stale")
	}

	// Fresh evidence clears staleness.
	v = g.Update(0.8, false, t0.Add(2*time.Minute))
	if v.Stale {
		t.Error("fresh evidence should clear stale")
	}
	if !v.On {
		t.Error("verdict should remain on")
	}
}

func TestGate_InsufficientBeforeFirstEvidence(t *testing.T) {
	g := mustGate(t, Config{TurnOn: 0.7, TurnOff: 0.6})
	v := g.Update(0, true, t0)
	if v.Known {
		t.Error("insufficient data before first evidence should stay unknown")
	}
	if !v.Stale {
		t.Error("should be stale")
	}
}
