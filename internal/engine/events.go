// Package engine wires the inference pipeline together: per-growspace
// orchestrators receive sensor events, run the threshold resolver,
// Bayesian estimators and hysteresis gates, and republish verdicts.
package engine

import (
	"time"

	"github.com/tentwatch/growmond/internal/engine/bayes"
	"github.com/tentwatch/growmond/internal/engine/lightcycle"
	"github.com/tentwatch/growmond/internal/engine/profile"
)

// SensorUpdate is a numeric sensor reading pushed into the engine.
// Unavailable means the sensor reported no usable value: the variable
// is excluded from inference, never treated as zero.
type SensorUpdate struct {
	Growspace   string
	Variable    profile.Variable
	Value       float64
	Unavailable bool
	At          time.Time
}

// SwitchKind names a boolean device input.
type SwitchKind string

const (
	SwitchLight        SwitchKind = "light"
	SwitchFan          SwitchKind = "fan"
	SwitchDehumidifier SwitchKind = "dehumidifier"
	SwitchHumidifier   SwitchKind = "humidifier"
)

// SwitchUpdate is a boolean device state change.
type SwitchUpdate struct {
	Growspace   string
	Kind        SwitchKind
	On          bool
	Unavailable bool
	At          time.Time
}

// StageUpdate is pushed by the external plant records on every stage
// transition.
type StageUpdate struct {
	Growspace  string
	Stage      profile.GrowthStage
	StageStart time.Time
	At         time.Time
}

// VerdictState is the published tri-state of a condition verdict.
type VerdictState string

const (
	VerdictOn      VerdictState = "on"
	VerdictOff     VerdictState = "off"
	VerdictUnknown VerdictState = "unknown"
)

// VerdictEvent is published whenever a condition verdict or its
// attributes change.
type VerdictEvent struct {
	Growspace    string
	Condition    bayes.Condition
	State        VerdictState
	Probability  *float64 // nil when insufficient data
	Contributing []profile.Variable
	Reasons      []string
	Stale        bool
	ChangedAt    time.Time
	At           time.Time
}

// LightScheduleEvent is published whenever the light schedule verdict
// changes.
type LightScheduleEvent struct {
	Growspace  string
	Status     lightcycle.Status
	ObservedOn time.Duration
	ExpectedOn time.Duration
	At         time.Time
}

// Sink receives the engine's outputs. Implementations must not block.
type Sink interface {
	PublishVerdict(VerdictEvent)
	PublishLightSchedule(LightScheduleEvent)
}
