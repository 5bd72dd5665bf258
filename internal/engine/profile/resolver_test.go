package profile

import "testing"

func TestStageKey(t *testing.T) {
	tests := []struct {
		name     string
		stage    GrowthStage
		days     int
		expected Key
	}{
		{"veg/early", StageVeg, 0, KeyVegEarly},
		{"veg/last_early_day", StageVeg, 13, KeyVegEarly},
		{"veg/first_late_day", StageVeg, 14, KeyVegLate},
		{"flower/early", StageFlower, 10, KeyFlowerEarly},
		{"flower/last_early_day", StageFlower, 41, KeyFlowerEarly},
		{"flower/first_late_day", StageFlower, 42, KeyFlowerLate},
		{"seedling", StageSeedling, 100, KeySeedling},
		{"clone", StageClone, 0, KeyClone},
		{"mother", StageMother, 365, KeyMother},
		{"dry", StageDry, 3, KeyDry},
		{"cure", StageCure, 30, KeyCure},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StageKey(tt.stage, tt.days); got != tt.expected {
				t.Errorf("StageKey(%s, %d) = %s, want %s", tt.stage, tt.days, got, tt.expected)
			}
		})
	}
}

func TestResolve_NightFallsBackToDay(t *testing.T) {
	r := NewResolver()

	// Dry stage has no night profile, so night resolves the day one.
	day := r.Resolve(StageDry, 0, PhaseDay)
	night := r.Resolve(StageDry, 0, PhaseNight)
	if night.Temperature != day.Temperature {
		t.Errorf("night fallback temperature = %+v, want %+v", night.Temperature, day.Temperature)
	}

	// Veg has a dedicated night profile with a cooler band.
	vegNight := r.Resolve(StageVeg, 0, PhaseNight)
	vegDay := r.Resolve(StageVeg, 0, PhaseDay)
	if vegNight.Temperature == vegDay.Temperature {
		t.Error("veg night profile should differ from day profile")
	}
}

func TestResolve_UnknownStageDefaults(t *testing.T) {
	r := NewResolver()
	p := r.Resolve(GrowthStage("bogus"), 0, PhaseDay)
	if p.Key != KeyVegEarly {
		t.Errorf("unknown stage resolved to %s, want %s", p.Key, KeyVegEarly)
	}
}

func TestExpectedDayHours(t *testing.T) {
	r := NewResolver()

	hours, ok := r.ExpectedDayHours(StageVeg, 0)
	if !ok || hours != 18 {
		t.Errorf("veg ExpectedDayHours = %v, %v, want 18, true", hours, ok)
	}
	hours, ok = r.ExpectedDayHours(StageFlower, 50)
	if !ok || hours != 12 {
		t.Errorf("late flower ExpectedDayHours = %v, %v, want 12, true", hours, ok)
	}
	// Drying has no light schedule.
	if _, ok := r.ExpectedDayHours(StageDry, 0); ok {
		t.Error("dry stage should have no expected day hours")
	}
}

func TestValidate(t *testing.T) {
	if err := NewResolver().Validate(); err != nil {
		t.Errorf("built-in profile table should validate: %v", err)
	}
}

func TestBandDeviation(t *testing.T) {
	b := Band{IdealLow: 24, IdealHigh: 26, ToleranceLow: 20, ToleranceHigh: 29}
	tests := []struct {
		name     string
		value    float64
		expected float64
	}{
		{"inside_ideal", 25, 0},
		{"ideal_edge", 26, 0},
		{"halfway_above", 27.5, 0.5},
		{"tolerance_edge_above", 29, 1},
		{"beyond_tolerance", 32, 2},
		{"halfway_below", 22, 0.5},
		{"tolerance_edge_below", 20, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := b.Deviation(tt.value); got != tt.expected {
				t.Errorf("Deviation(%v) = %v, want %v", tt.value, got, tt.expected)
			}
		})
	}

	// Zero-width span between ideal and tolerance counts as fully deviated.
	tight := Band{IdealLow: 10, IdealHigh: 20, ToleranceLow: 10, ToleranceHigh: 20}
	if got := tight.Deviation(5); got != 1 {
		t.Errorf("zero-span Deviation = %v, want 1", got)
	}
}
