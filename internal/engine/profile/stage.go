// Package profile maps growth stages and day/night phases to expected
// environmental ranges. Profiles are static lookup data; the only logic
// here is sub-stage resolution and the night->day fallback.
package profile

// GrowthStage is the lifecycle stage of a growspace, set externally.
type GrowthStage string

const (
	StageSeedling GrowthStage = "seedling"
	StageClone    GrowthStage = "clone"
	StageMother   GrowthStage = "mother"
	StageVeg      GrowthStage = "veg"
	StageFlower   GrowthStage = "flower"
	StageDry      GrowthStage = "dry"
	StageCure     GrowthStage = "cure"
)

// Valid reports whether the stage is one of the known lifecycle stages.
func (s GrowthStage) Valid() bool {
	switch s {
	case StageSeedling, StageClone, StageMother, StageVeg, StageFlower, StageDry, StageCure:
		return true
	}
	return false
}

// Phase is the day/night cycle phase, derived from the light switch state.
type Phase string

const (
	PhaseDay   Phase = "day"
	PhaseNight Phase = "night"
)

// Key identifies a threshold profile. Veg and flower stages split into
// early/late sub-stages based on days elapsed in the stage.
type Key string

const (
	KeySeedling    Key = "seedling"
	KeyClone       Key = "clone"
	KeyMother      Key = "mother"
	KeyVegEarly    Key = "veg_early"
	KeyVegLate     Key = "veg_late"
	KeyFlowerEarly Key = "flower_early"
	KeyFlowerLate  Key = "flower_late"
	KeyDry         Key = "dry"
	KeyCure        Key = "cure"
)

// Sub-stage boundaries, in days since stage start.
const (
	vegLateAfterDays    = 14
	flowerLateAfterDays = 42
)

// StageKey resolves a stage and its elapsed days to a profile key.
func StageKey(stage GrowthStage, daysInStage int) Key {
	switch stage {
	case StageSeedling:
		return KeySeedling
	case StageClone:
		return KeyClone
	case StageMother:
		return KeyMother
	case StageVeg:
		if daysInStage < vegLateAfterDays {
			return KeyVegEarly
		}
		return KeyVegLate
	case StageFlower:
		if daysInStage < flowerLateAfterDays {
			return KeyFlowerEarly
		}
		return KeyFlowerLate
	case StageDry:
		return KeyDry
	case StageCure:
		return KeyCure
	}
	return KeyVegEarly
}

// LateFlower reports whether the key belongs to the late flowering window,
// where mold pressure is highest.
func (k Key) LateFlower() bool {
	return k == KeyFlowerLate
}
