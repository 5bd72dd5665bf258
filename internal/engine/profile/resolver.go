package profile

import "fmt"

// Resolver resolves (stage, days in stage, phase) to a threshold profile.
// Lookup is pure and total once Validate passes: stages without a night
// profile fall back to their day profile.
type Resolver struct {
	table map[Key]map[Phase]Profile
}

// NewResolver creates a resolver over the built-in profile table.
func NewResolver() *Resolver {
	return &Resolver{table: defaultProfiles}
}

// Resolve returns the profile for the given stage and phase. The night
// profile is used when present, otherwise the day profile.
func (r *Resolver) Resolve(stage GrowthStage, daysInStage int, phase Phase) Profile {
	key := StageKey(stage, daysInStage)
	phases := r.table[key]

	if phase == PhaseNight {
		if p, ok := phases[PhaseNight]; ok {
			return p
		}
	}
	return phases[PhaseDay]
}

// ExpectedDayHours returns the expected light-on duration in hours for
// the stage. The second return is false for stages without a light
// schedule (dry/cure).
func (r *Resolver) ExpectedDayHours(stage GrowthStage, daysInStage int) (float64, bool) {
	p := r.Resolve(stage, daysInStage, PhaseDay)
	if p.DayHours <= 0 {
		return 0, false
	}
	return p.DayHours, true
}

// Validate checks that every profile key resolves to a day profile and
// that every band is well-formed. Run at startup so a broken table is a
// configuration error, not a runtime surprise.
func (r *Resolver) Validate() error {
	for _, key := range allKeys {
		phases, ok := r.table[key]
		if !ok {
			return fmt.Errorf("profile table: missing entry for stage key %q", key)
		}
		day, ok := phases[PhaseDay]
		if !ok {
			return fmt.Errorf("profile table: stage key %q has no day profile", key)
		}
		for phase, p := range phases {
			if err := validateBands(p); err != nil {
				return fmt.Errorf("profile table: %s/%s: %w", key, phase, err)
			}
		}
		_ = day
	}
	return nil
}

func validateBands(p Profile) error {
	for _, v := range []Variable{VarTemperature, VarHumidity, VarVPD, VarCO2} {
		b, _ := p.Band(v)
		if b.IdealLow > b.IdealHigh {
			return fmt.Errorf("%s: ideal range inverted", v)
		}
		if b.ToleranceLow > b.IdealLow || b.ToleranceHigh < b.IdealHigh {
			return fmt.Errorf("%s: tolerance range does not contain ideal range", v)
		}
	}
	return nil
}
