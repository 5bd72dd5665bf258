package engine

import (
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/tentwatch/growmond/internal/engine/bayes"
	"github.com/tentwatch/growmond/internal/engine/hysteresis"
	"github.com/tentwatch/growmond/internal/engine/lightcycle"
	"github.com/tentwatch/growmond/internal/engine/profile"
)

// Default turn-on thresholds per condition; the turn-off threshold sits
// a dead-band below so verdicts cannot flap around one boundary.
const defaultDeadBand = 0.15

var defaultTurnOn = map[bayes.Condition]float64{
	bayes.ConditionStress:   0.70,
	bayes.ConditionMoldRisk: 0.75,
	bayes.ConditionOptimal:  0.80,
	bayes.ConditionDrying:   0.80,
	bayes.ConditionCuring:   0.80,
}

// DefaultGateConfig returns the built-in hysteresis configuration for a
// condition.
func DefaultGateConfig(c bayes.Condition) hysteresis.Config {
	on, ok := defaultTurnOn[c]
	if !ok {
		on = 0.75
	}
	return hysteresis.Config{TurnOn: on, TurnOff: on - defaultDeadBand}
}

// Config describes one growspace's inference setup.
type Config struct {
	Growspace string

	// Conditions to evaluate. Empty enables stress, mold risk and
	// optimal.
	Conditions []bayes.Condition

	// Priors overrides the per-condition priors. Values outside (0,1)
	// are configuration errors.
	Priors map[bayes.Condition]float64

	// Gates overrides the per-condition hysteresis settings.
	Gates map[bayes.Condition]hysteresis.Config

	// LightDebounce enables the optional flap pre-filter in front of
	// the light cycle verifier. Zero disables it.
	LightDebounce time.Duration

	// ScheduleTolerance is the allowed ON-duration deviation per 24h
	// window. Zero uses the verifier default.
	ScheduleTolerance time.Duration

	// TrendWindow is the rolling window for rise/fall detection on
	// temperature, humidity and VPD. Zero uses the built-in default.
	TrendWindow time.Duration
}

// Orchestrator owns the full inference pipeline for one growspace. All
// event handling is serialized: sensor updates are applied in arrival
// order and evaluation never runs concurrently for the same growspace.
type Orchestrator struct {
	mu sync.Mutex

	id       string
	resolver *profile.Resolver
	sink     Sink

	estimators map[bayes.Condition]*bayes.Estimator
	gates      map[bayes.Condition]*hysteresis.Gate
	verifier   *lightcycle.Verifier
	debouncer  *lightcycle.Debouncer

	snapshot bayes.Snapshot
	vpdBound bool

	tempTrend     *trendTracker
	humidityTrend *trendTracker
	vpdTrend      *trendTracker

	stage      profile.GrowthStage
	stageStart time.Time
	stageKnown bool

	scheduleTolerance time.Duration

	lastVerdicts map[bayes.Condition]VerdictEvent
	lastSchedule *LightScheduleEvent
}

// New creates an orchestrator. Configuration problems (bad priors,
// inverted thresholds, broken profile table) are fatal here so they
// surface before any verdict is published.
func New(cfg Config, sink Sink) (*Orchestrator, error) {
	if cfg.Growspace == "" {
		return nil, fmt.Errorf("orchestrator: empty growspace id")
	}

	resolver := profile.NewResolver()
	if err := resolver.Validate(); err != nil {
		return nil, fmt.Errorf("orchestrator %s: %w", cfg.Growspace, err)
	}

	conditions := cfg.Conditions
	if len(conditions) == 0 {
		conditions = []bayes.Condition{
			bayes.ConditionStress, bayes.ConditionMoldRisk, bayes.ConditionOptimal,
		}
	}

	o := &Orchestrator{
		id:                cfg.Growspace,
		resolver:          resolver,
		sink:              sink,
		estimators:        make(map[bayes.Condition]*bayes.Estimator, len(conditions)),
		gates:             make(map[bayes.Condition]*hysteresis.Gate, len(conditions)),
		debouncer:         lightcycle.NewDebouncer(cfg.LightDebounce),
		scheduleTolerance: cfg.ScheduleTolerance,
		tempTrend:         newTrendTracker(cfg.TrendWindow, trendTempThreshold),
		humidityTrend:     newTrendTracker(cfg.TrendWindow, trendHumidityThreshold),
		vpdTrend:          newTrendTracker(cfg.TrendWindow, trendVPDThreshold),
		lastVerdicts:      make(map[bayes.Condition]VerdictEvent, len(conditions)),
	}

	for _, c := range conditions {
		prior, ok := cfg.Priors[c]
		if !ok {
			prior = bayes.DefaultPrior(c)
		}
		est, err := bayes.NewEstimator(c, prior, bayes.SourcesFor(c))
		if err != nil {
			return nil, fmt.Errorf("orchestrator %s: %w", cfg.Growspace, err)
		}
		o.estimators[c] = est

		gcfg, ok := cfg.Gates[c]
		if !ok {
			gcfg = DefaultGateConfig(c)
		}
		gate, err := hysteresis.NewGate(gcfg)
		if err != nil {
			return nil, fmt.Errorf("orchestrator %s: condition %s: %w", cfg.Growspace, c, err)
		}
		o.gates[c] = gate
	}

	verifier, err := lightcycle.NewVerifier(lightcycle.Config{Tolerance: cfg.ScheduleTolerance})
	if err != nil {
		return nil, fmt.Errorf("orchestrator %s: %w", cfg.Growspace, err)
	}
	o.verifier = verifier

	return o, nil
}

// ID returns the growspace id.
func (o *Orchestrator) ID() string { return o.id }

// HandleSensor applies a numeric sensor update and re-evaluates.
func (o *Orchestrator) HandleSensor(u SensorUpdate) {
	o.mu.Lock()
	defer o.mu.Unlock()

	r := bayes.Reading{Value: u.Value, OK: !u.Unavailable}
	switch u.Variable {
	case profile.VarTemperature:
		o.snapshot.Temperature = r
	case profile.VarHumidity:
		o.snapshot.Humidity = r
	case profile.VarVPD:
		o.snapshot.VPD = r
		o.vpdBound = !u.Unavailable
	case profile.VarCO2:
		o.snapshot.CO2 = r
	case profile.VarExhaust:
		o.snapshot.ExhaustLevel = r
	default:
		log.Warn().Str("growspace", o.id).Str("variable", string(u.Variable)).
			Msg("Unknown sensor variable, ignoring")
		return
	}
	o.evaluate(u.At)
}

// HandleSwitch applies a boolean device state change and re-evaluates.
// Light transitions additionally drive the cycle verifier.
func (o *Orchestrator) HandleSwitch(u SwitchUpdate) {
	o.mu.Lock()
	defer o.mu.Unlock()

	sw := bayes.Switch{On: u.On, OK: !u.Unavailable}
	switch u.Kind {
	case SwitchLight:
		o.snapshot.LightsOn = sw
		if !u.Unavailable {
			if state, emit := o.debouncer.Observe(u.On, u.At); emit {
				o.verifier.Transition(state, u.At)
			}
		}
	case SwitchFan:
		o.snapshot.FanOn = sw
	case SwitchDehumidifier:
		o.snapshot.DehumidifierOn = sw
	case SwitchHumidifier:
		o.snapshot.HumidifierOn = sw
	default:
		log.Warn().Str("growspace", o.id).Str("kind", string(u.Kind)).
			Msg("Unknown switch kind, ignoring")
		return
	}
	o.evaluate(u.At)
}

// HandleStage applies a growth stage update. An actual transition
// resets the verifier's rolling log: the expected schedule itself
// changed. A re-delivery of the current stage (retained broker message
// on reconnect) is not a transition and must not discard the log.
func (o *Orchestrator) HandleStage(u StageUpdate) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if !u.Stage.Valid() {
		log.Error().Str("growspace", o.id).Str("stage", string(u.Stage)).
			Msg("Invalid growth stage, ignoring")
		return
	}

	same := o.stageKnown && u.Stage == o.stage
	o.stage = u.Stage
	o.stageStart = u.StageStart
	o.stageKnown = true

	if same {
		if err := o.verifier.Retune(o.scheduleConfig(u.At)); err != nil {
			log.Error().Err(err).Str("growspace", o.id).Msg("Light cycle retune failed")
		}
	} else if err := o.verifier.Reset(o.scheduleConfig(u.At)); err != nil {
		log.Error().Err(err).Str("growspace", o.id).Msg("Light cycle reset failed")
	}

	log.Info().Str("growspace", o.id).Str("stage", string(u.Stage)).
		Int("days_in_stage", o.daysInStage(u.At)).Bool("changed", !same).
		Msg("Stage updated")
	o.evaluate(u.At)
}

// scheduleConfig derives the verifier config for the current stage.
// Callers hold o.mu.
func (o *Orchestrator) scheduleConfig(now time.Time) lightcycle.Config {
	expected := time.Duration(0)
	if hours, ok := o.resolver.ExpectedDayHours(o.stage, o.daysInStage(now)); ok {
		expected = time.Duration(hours * float64(time.Hour))
	}
	return lightcycle.Config{ExpectedOn: expected, Tolerance: o.scheduleTolerance}
}

// RestoredState carries outputs persisted by a previous run.
type RestoredState struct {
	Stage      profile.GrowthStage
	StageStart time.Time
	Verdicts   []VerdictEvent
	Schedule   *LightScheduleEvent
}

// Restore primes the orchestrator with state persisted by a previous
// run, before any events are delivered. The stage is adopted silently:
// it was already live before the restart, so re-announcing it later
// counts as a re-delivery, not a transition. Prior verdicts are held
// as stale until fresh evidence arrives.
func (o *Orchestrator) Restore(st RestoredState, now time.Time) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if st.Stage.Valid() {
		o.stage = st.Stage
		o.stageStart = st.StageStart
		o.stageKnown = true
		if err := o.verifier.Retune(o.scheduleConfig(now)); err != nil {
			log.Error().Err(err).Str("growspace", o.id).Msg("Light cycle retune failed")
		}
	}

	for _, v := range st.Verdicts {
		gate, ok := o.gates[v.Condition]
		if !ok {
			continue
		}
		o.lastVerdicts[v.Condition] = v
		if v.State != VerdictUnknown {
			gate.Restore(v.State == VerdictOn, v.ChangedAt)
		}
	}

	if st.Schedule != nil {
		s := *st.Schedule
		o.lastSchedule = &s
		o.verifier.Restore(s.Status, s.ObservedOn)
	}
}

// Tick advances time-based logic (24h window closure, dwell) without
// new sensor input.
func (o *Orchestrator) Tick(now time.Time) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.evaluate(now)
}

func (o *Orchestrator) daysInStage(now time.Time) int {
	if o.stageStart.IsZero() || now.Before(o.stageStart) {
		return 0
	}
	return int(now.Sub(o.stageStart).Hours() / 24)
}

// evaluate runs one full inference pass. Callers hold o.mu.
func (o *Orchestrator) evaluate(now time.Time) {
	o.verifier.Advance(now)
	o.publishSchedule(now)

	snap := o.snapshot
	if !o.vpdBound && !snap.VPD.OK && snap.Temperature.OK && snap.Humidity.OK {
		snap.VPD = bayes.Avail(DeriveVPD(snap.Temperature.Value, snap.Humidity.Value))
	}
	snap.TemperatureTrend = observeTrend(o.tempTrend, snap.Temperature, now)
	snap.HumidityTrend = observeTrend(o.humidityTrend, snap.Humidity, now)
	snap.VPDTrend = observeTrend(o.vpdTrend, snap.VPD, now)

	// Verdicts stay at their initial unknown state until the stage is
	// known; there is no profile to evaluate against before that.
	if !o.stageKnown {
		return
	}

	phase := profile.PhaseDay // assume day when no light sensor is bound
	if o.snapshot.LightsOn.OK && !o.snapshot.LightsOn.On {
		phase = profile.PhaseNight
	}

	days := o.daysInStage(now)
	prof := o.resolver.Resolve(o.stage, days, phase)

	for cond, est := range o.estimators {
		if skip, off := o.stageGated(cond); skip {
			if off {
				o.publishVerdict(cond, bayes.Estimate{Condition: cond}, o.gates[cond].Update(0, false, now), now)
			}
			continue
		}

		e := est.Estimate(snap, prof)
		v := o.gates[cond].Update(e.Posterior, e.Insufficient, now)
		o.publishVerdict(cond, e, v, now)
	}
}

// stageGated reports whether a condition does not apply in the current
// stage. Drying/curing estimates only run in their own stages and are
// driven to off elsewhere.
func (o *Orchestrator) stageGated(c bayes.Condition) (skip, driveOff bool) {
	switch c {
	case bayes.ConditionDrying:
		if o.stage != profile.StageDry {
			return true, true
		}
	case bayes.ConditionCuring:
		if o.stage != profile.StageCure {
			return true, true
		}
	}
	return false, false
}

func (o *Orchestrator) publishVerdict(cond bayes.Condition, e bayes.Estimate, v hysteresis.Verdict, now time.Time) {
	ev := VerdictEvent{
		Growspace:    o.id,
		Condition:    cond,
		State:        verdictState(v),
		Contributing: e.Contributing,
		Reasons:      e.Reasons,
		Stale:        v.Stale,
		ChangedAt:    v.ChangedAt,
		At:           now,
	}
	if !e.Insufficient {
		p := e.Posterior
		ev.Probability = &p
	}

	last, seen := o.lastVerdicts[cond]
	if seen && !verdictChanged(last, ev) {
		return
	}
	o.lastVerdicts[cond] = ev
	if o.sink != nil {
		o.sink.PublishVerdict(ev)
	}
}

func (o *Orchestrator) publishSchedule(now time.Time) {
	s := o.verifier.Current()
	ev := LightScheduleEvent{
		Growspace:  o.id,
		Status:     s.Status,
		ObservedOn: s.ObservedOn,
		ExpectedOn: s.ExpectedOn,
		At:         now,
	}
	if o.lastSchedule != nil &&
		o.lastSchedule.Status == ev.Status &&
		o.lastSchedule.ObservedOn == ev.ObservedOn &&
		o.lastSchedule.ExpectedOn == ev.ExpectedOn {
		return
	}
	o.lastSchedule = &ev
	if o.sink != nil {
		o.sink.PublishLightSchedule(ev)
	}
}

func verdictState(v hysteresis.Verdict) VerdictState {
	if !v.Known {
		return VerdictUnknown
	}
	if v.On {
		return VerdictOn
	}
	return VerdictOff
}

func verdictChanged(a, b VerdictEvent) bool {
	if a.State != b.State || a.Stale != b.Stale {
		return true
	}
	switch {
	case a.Probability == nil && b.Probability == nil:
	case a.Probability == nil || b.Probability == nil:
		return true
	case math.Abs(*a.Probability-*b.Probability) >= 0.001:
		return true
	}
	return false
}

// Verdicts returns the last published verdict per condition.
func (o *Orchestrator) Verdicts() map[bayes.Condition]VerdictEvent {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make(map[bayes.Condition]VerdictEvent, len(o.lastVerdicts))
	for c, v := range o.lastVerdicts {
		out[c] = v
	}
	return out
}

// Schedule returns the last published light schedule verdict, or nil
// if none was published yet.
func (o *Orchestrator) Schedule() *LightScheduleEvent {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.lastSchedule == nil {
		return nil
	}
	s := *o.lastSchedule
	return &s
}
