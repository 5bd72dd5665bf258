// Package bayes combines per-variable environmental evidence into a
// posterior probability for a named condition using the naive-Bayes
// independence assumption. Evidence sources are pluggable: adding a new
// monitored variable never touches the combination logic.
package bayes

import (
	"fmt"

	"github.com/tentwatch/growmond/internal/engine/profile"
)

// Condition names a derived health verdict.
type Condition string

const (
	ConditionStress   Condition = "stress"
	ConditionMoldRisk Condition = "mold_risk"
	ConditionOptimal  Condition = "optimal"
	ConditionDrying   Condition = "drying"
	ConditionCuring   Condition = "curing"
)

// Default priors and ratio clamps. Priors reflect that adverse states
// are uncommon in a tended growspace.
const (
	DefaultPriorStress   = 0.15
	DefaultPriorMoldRisk = 0.10
	DefaultPriorOptimal  = 0.40
	DefaultPriorDrying   = 0.50
	DefaultPriorCuring   = 0.50

	// Likelihood ratio clamps: a single extreme reading can never
	// saturate the posterior to exactly 0 or 1.
	DefaultMinRatio = 0.02
	DefaultMaxRatio = 50.0
)

// DefaultPrior returns the built-in prior for a condition.
func DefaultPrior(c Condition) float64 {
	switch c {
	case ConditionStress:
		return DefaultPriorStress
	case ConditionMoldRisk:
		return DefaultPriorMoldRisk
	case ConditionOptimal:
		return DefaultPriorOptimal
	case ConditionDrying:
		return DefaultPriorDrying
	case ConditionCuring:
		return DefaultPriorCuring
	}
	return 0.5
}

// Reading is a numeric sensor value that may be unavailable. An
// unavailable reading is no evidence, never a value of zero.
type Reading struct {
	Value float64
	OK    bool
}

// Avail constructs an available reading.
func Avail(v float64) Reading { return Reading{Value: v, OK: true} }

// Switch is a boolean sensor value that may be unavailable.
type Switch struct {
	On bool
	OK bool
}

// TrendDirection classifies a reading's recent movement.
type TrendDirection string

const (
	TrendStable  TrendDirection = "stable"
	TrendRising  TrendDirection = "rising"
	TrendFalling TrendDirection = "falling"
)

// Trend is the recent movement of one variable, derived upstream from
// consecutive readings. OK is false until enough history exists.
type Trend struct {
	Direction TrendDirection
	// Fast marks a gradient steep enough to be damaging on its own.
	Fast bool
	OK   bool
}

// Snapshot is the environment at one evaluation instant. It is assembled
// by the orchestrator from the latest per-variable updates.
type Snapshot struct {
	Temperature Reading
	Humidity    Reading
	VPD         Reading
	CO2         Reading

	LightsOn       Switch
	FanOn          Switch
	DehumidifierOn Switch
	HumidifierOn   Switch
	ExhaustLevel   Reading // 0-10 exhaust throughput

	// Recent movement per variable. A reading drifting toward trouble
	// is evidence before its level leaves the band.
	TemperatureTrend Trend
	HumidityTrend    Trend
	VPDTrend         Trend
}

// Pair is a likelihood pair (P(obs|condition), P(obs|not condition)).
// Its ratio is the likelihood ratio contributed to the posterior odds.
type Pair struct {
	True  float64
	False float64
}

// Observation is one piece of evidence: a likelihood pair attributed to
// a variable, with a human-readable reason for non-neutral findings.
type Observation struct {
	Variable profile.Variable
	Prob     Pair
	Reason   string
}

// Evidence evaluates one variable (or cross-variable rule) against a
// profile. The available return is true when the underlying reading
// existed, even if the source contributed no observation.
type Evidence interface {
	Variable() profile.Variable
	Evaluate(s Snapshot, p profile.Profile) (obs []Observation, available bool)
}

// Estimate is the outcome of one evaluation.
type Estimate struct {
	Condition    Condition
	Posterior    float64
	Prior        float64
	Insufficient bool
	Contributing []profile.Variable
	Reasons      []string
}

// Estimator owns the prior and evidence sources for one condition.
type Estimator struct {
	condition Condition
	prior     float64
	sources   []Evidence
	minRatio  float64
	maxRatio  float64
}

// NewEstimator creates an estimator. A prior outside (0,1) is a
// configuration error, never silently clamped.
func NewEstimator(condition Condition, prior float64, sources []Evidence) (*Estimator, error) {
	if prior <= 0 || prior >= 1 {
		return nil, fmt.Errorf("estimator %s: prior %v outside (0,1)", condition, prior)
	}
	return &Estimator{
		condition: condition,
		prior:     prior,
		sources:   sources,
		minRatio:  DefaultMinRatio,
		maxRatio:  DefaultMaxRatio,
	}, nil
}

// Estimate evaluates all evidence sources against the snapshot and
// profile and combines their likelihood ratios with the prior odds.
// Zero available variables yields an insufficient-data estimate.
func (e *Estimator) Estimate(s Snapshot, p profile.Profile) Estimate {
	est := Estimate{Condition: e.condition, Prior: e.prior}

	var observations []Observation
	seen := map[profile.Variable]bool{}
	anyAvailable := false

	for _, src := range e.sources {
		obs, available := src.Evaluate(s, p)
		if available {
			anyAvailable = true
		}
		for _, o := range obs {
			observations = append(observations, o)
			if !seen[o.Variable] {
				seen[o.Variable] = true
				est.Contributing = append(est.Contributing, o.Variable)
			}
			if o.Reason != "" {
				est.Reasons = append(est.Reasons, o.Reason)
			}
		}
	}

	if !anyAvailable {
		est.Insufficient = true
		return est
	}

	odds := e.prior / (1 - e.prior)
	for _, o := range observations {
		odds *= e.clampRatio(o.Prob)
	}
	est.Posterior = odds / (1 + odds)
	return est
}

// clampRatio converts a likelihood pair to a bounded ratio.
func (e *Estimator) clampRatio(p Pair) float64 {
	if p.False <= 0 {
		return e.maxRatio
	}
	r := p.True / p.False
	if r < e.minRatio {
		return e.minRatio
	}
	if r > e.maxRatio {
		return e.maxRatio
	}
	return r
}
