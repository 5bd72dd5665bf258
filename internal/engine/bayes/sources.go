package bayes

import (
	"fmt"

	"github.com/tentwatch/growmond/internal/engine/profile"
)

// Likelihood pairs for graded in-range observations (favorable
// conditions) and for out-of-range findings.
var (
	probPerfect    = Pair{0.95, 0.20}
	probGood       = Pair{0.85, 0.30}
	probAcceptable = Pair{0.65, 0.45}

	probOutOfRange    = Pair{0.20, 0.75}
	probVPDOutOfRange = Pair{0.25, 0.70}
)

// Stress pairs. The cascade mirrors how damaging each excursion is:
// extreme heat is near-certain stress, a warm room is merely suggestive.
var (
	probTempExtremeHeat = Pair{0.98, 0.05}
	probTempHighHeat    = Pair{0.85, 0.15}
	probTempWarm        = Pair{0.65, 0.30}
	probTempWarmLate    = Pair{0.70, 0.30}
	probTempExtremeCold = Pair{0.95, 0.08}
	probTempCold        = Pair{0.80, 0.20}
	probNightTempHigh   = Pair{0.80, 0.20}

	probHumidityTooDry = Pair{0.85, 0.20}

	probCO2Low  = Pair{0.80, 0.25}
	probCO2High = Pair{0.95, 0.10}

	probDesiccation = Pair{0.99, 0.01}
	probSaturation  = Pair{0.90, 0.10}

	probTrendFastRise = Pair{0.95, 0.15}
	probTrendSlowRise = Pair{0.75, 0.30}
)

// Mold pairs. Night readings weigh heavier: condensation forms when the
// lights are off and transpiration keeps running.
var (
	probMoldLateFlower     = Pair{0.80, 0.20}
	probMoldTempDangerZone = Pair{0.85, 0.30}
	probMoldLightsOff      = Pair{0.75, 0.30}
	probMoldHumidityNight  = Pair{0.99, 0.10}
	probMoldVPDLowNight    = Pair{0.95, 0.20}
	probMoldHumidityDay    = Pair{0.95, 0.20}
	probMoldVPDLowDay      = Pair{0.90, 0.25}
	probMoldFanOff         = Pair{0.80, 0.15}
	probMoldStagnantAir    = Pair{0.85, 0.20}
	probMoldHumidifierOn   = Pair{0.85, 0.15}
	probMoldDehumFighting  = Pair{0.95, 0.10}

	probMoldHumidityRising = Pair{0.90, 0.20}
	probMoldVPDFalling     = Pair{0.90, 0.20}
)

// Per-stage VPD stress/mild pairs. Late flower readings are the most
// diagnostic since the canopy is dense and intolerant of swings.
var vpdStressPairs = map[profile.Key][2]Pair{
	profile.KeyVegEarly:    {{0.85, 0.15}, {0.60, 0.30}},
	profile.KeyVegLate:     {{0.80, 0.18}, {0.55, 0.35}},
	profile.KeyFlowerEarly: {{0.85, 0.15}, {0.60, 0.30}},
	profile.KeyFlowerLate:  {{0.90, 0.12}, {0.65, 0.28}},
}

func vpdPairsFor(key profile.Key) (stress, mild Pair) {
	if pairs, ok := vpdStressPairs[key]; ok {
		return pairs[0], pairs[1]
	}
	return Pair{0.80, 0.20}, Pair{0.55, 0.35}
}

// Drying/curing bands are tight and symmetric: either the reading is in
// the window or the batch is at risk.
var (
	probCureWindow    = Pair{0.95, 0.10}
	probCureOutOfBand = Pair{0.10, 0.90}
)

// evidenceFunc adapts a closure to the Evidence interface.
type evidenceFunc struct {
	variable profile.Variable
	eval     func(s Snapshot, p profile.Profile) ([]Observation, bool)
}

func (e evidenceFunc) Variable() profile.Variable { return e.variable }

func (e evidenceFunc) Evaluate(s Snapshot, p profile.Profile) ([]Observation, bool) {
	return e.eval(s, p)
}

func obs(v profile.Variable, prob Pair, reason string) Observation {
	return Observation{Variable: v, Prob: prob, Reason: reason}
}

// StressSources returns the evidence set for the plant-stress condition.
// Sources contribute observations only when a reading deviates; a room
// sitting at its ideal point leaves the posterior at the prior.
func StressSources() []Evidence {
	return []Evidence{
		evidenceFunc{profile.VarTemperature, stressTemperature},
		evidenceFunc{profile.VarHumidity, stressHumidity},
		evidenceFunc{profile.VarVPD, stressVPD},
		evidenceFunc{profile.VarCO2, stressCO2},
		evidenceFunc{profile.VarHumidity, stressDesiccation},
		evidenceFunc{profile.VarHumidity, stressSaturation},
		evidenceFunc{profile.VarTemperature, stressRisingTrend(profile.VarTemperature)},
		evidenceFunc{profile.VarHumidity, stressRisingTrend(profile.VarHumidity)},
		evidenceFunc{profile.VarVPD, stressRisingTrend(profile.VarVPD)},
	}
}

// stressRisingTrend fires while a reading climbs, before the level
// itself leaves the band. A fast rise weighs almost like an excursion.
func stressRisingTrend(v profile.Variable) func(Snapshot, profile.Profile) ([]Observation, bool) {
	return func(s Snapshot, p profile.Profile) ([]Observation, bool) {
		t := trendFor(s, v)
		if !t.OK {
			return nil, false
		}
		if t.Direction != TrendRising {
			return nil, true
		}
		pair, suffix := probTrendSlowRise, ""
		if t.Fast {
			pair, suffix = probTrendFastRise, " fast"
		}
		return []Observation{obs(v, pair, fmt.Sprintf("%s rising%s", v, suffix))}, true
	}
}

func stressTemperature(s Snapshot, p profile.Profile) ([]Observation, bool) {
	if !s.Temperature.OK {
		return nil, false
	}
	t := s.Temperature.Value
	var out []Observation

	// Night-time heat is checked independently of the cascade: warm dark
	// periods stretch internodes regardless of how hot the day ran.
	if p.Phase == profile.PhaseNight && t > p.Temperature.ToleranceHigh {
		out = append(out, obs(profile.VarTemperature, probNightTempHigh,
			fmt.Sprintf("night temp high (%.1f)", t)))
	}

	switch {
	case t > 32:
		out = append(out, obs(profile.VarTemperature, probTempExtremeHeat,
			fmt.Sprintf("extreme heat (%.1f)", t)))
	case t > 30:
		out = append(out, obs(profile.VarTemperature, probTempHighHeat,
			fmt.Sprintf("high heat (%.1f)", t)))
	case p.Key.LateFlower() && t > 27:
		out = append(out, obs(profile.VarTemperature, probTempWarmLate,
			fmt.Sprintf("warm for late flower (%.1f)", t)))
	case t > p.Temperature.ToleranceHigh && p.Phase == profile.PhaseDay:
		out = append(out, obs(profile.VarTemperature, probTempWarm,
			fmt.Sprintf("temp warm (%.1f)", t)))
	case t < 15:
		out = append(out, obs(profile.VarTemperature, probTempExtremeCold,
			fmt.Sprintf("extreme cold (%.1f)", t)))
	case t < 18:
		out = append(out, obs(profile.VarTemperature, probTempCold,
			fmt.Sprintf("temp cold (%.1f)", t)))
	}
	return out, true
}

func stressHumidity(s Snapshot, p profile.Profile) ([]Observation, bool) {
	if !s.Humidity.OK {
		return nil, false
	}
	h := s.Humidity.Value
	var out []Observation

	if h < 35 {
		out = append(out, obs(profile.VarHumidity, probHumidityTooDry,
			fmt.Sprintf("humidity dry (%.0f%%)", h)))
	}
	if !p.Humidity.InTolerance(h) && h >= 35 {
		pair := Pair{0.80, 0.20}
		if p.Key == profile.KeyVegLate || p.Key.LateFlower() {
			pair = Pair{0.85, 0.15}
		} else if p.Key == profile.KeyFlowerEarly {
			pair = Pair{0.75, 0.25}
		}
		out = append(out, obs(profile.VarHumidity, pair,
			fmt.Sprintf("humidity out of range (%.0f%%)", h)))
	}
	return out, true
}

func stressVPD(s Snapshot, p profile.Profile) ([]Observation, bool) {
	if !s.VPD.OK {
		return nil, false
	}
	v := s.VPD.Value
	stress, mild := vpdPairsFor(p.Key)

	switch {
	case !p.VPD.InTolerance(v):
		return []Observation{obs(profile.VarVPD, stress,
			fmt.Sprintf("vpd out of range (%.2f)", v))}, true
	case !p.VPD.Contains(v):
		return []Observation{obs(profile.VarVPD, mild,
			fmt.Sprintf("vpd drifting (%.2f)", v))}, true
	}
	return nil, true
}

func stressCO2(s Snapshot, p profile.Profile) ([]Observation, bool) {
	if !s.CO2.OK {
		return nil, false
	}
	c := s.CO2.Value
	switch {
	case c < 400:
		return []Observation{obs(profile.VarCO2, probCO2Low,
			fmt.Sprintf("co2 low (%.0f)", c))}, true
	case c > 1600:
		return []Observation{obs(profile.VarCO2, probCO2High,
			fmt.Sprintf("co2 high (%.0f)", c))}, true
	}
	return nil, true
}

// stressDesiccation fires when the dehumidifier keeps running into an
// already dry room.
func stressDesiccation(s Snapshot, p profile.Profile) ([]Observation, bool) {
	if !s.DehumidifierOn.OK || !s.DehumidifierOn.On {
		return nil, s.DehumidifierOn.OK
	}
	isDry := s.Humidity.OK && s.Humidity.Value < 40
	isHighVPD := s.VPD.OK && s.VPD.Value > 1.5
	if !isDry && !isHighVPD {
		return nil, true
	}
	reason := "active desiccation (dehumidifier on, high vpd)"
	if isDry {
		reason = fmt.Sprintf("active desiccation (dehumidifier on, humidity %.0f%%)", s.Humidity.Value)
	}
	return []Observation{obs(profile.VarHumidity, probDesiccation, reason)}, true
}

// stressSaturation fires when the humidifier keeps running into an
// already humid room.
func stressSaturation(s Snapshot, p profile.Profile) ([]Observation, bool) {
	if !s.HumidifierOn.OK || !s.HumidifierOn.On || !s.Humidity.OK {
		return nil, s.HumidifierOn.OK && s.Humidity.OK
	}
	limit := 60.0
	if p.Key == profile.KeyVegEarly || p.Key == profile.KeyVegLate ||
		p.Key == profile.KeySeedling || p.Key == profile.KeyClone || p.Key == profile.KeyMother {
		limit = 75.0
	}
	if s.Humidity.Value <= limit {
		return nil, true
	}
	return []Observation{obs(profile.VarHumidity, probSaturation,
		fmt.Sprintf("active saturation (humidifier on, humidity %.0f%% > %.0f%%)", s.Humidity.Value, limit))}, true
}

// MoldSources returns the evidence set for the mold-risk condition. The
// heavy factors gate on late flower, where dense canopy makes mold most
// likely; the dehumidifier-ineffective check applies in every stage.
func MoldSources() []Evidence {
	return []Evidence{
		evidenceFunc{profile.VarHumidity, moldLateFlower},
		evidenceFunc{profile.VarHumidity, moldDehumIneffective},
		evidenceFunc{profile.VarHumidity, moldHumidityRising},
		evidenceFunc{profile.VarVPD, moldVPDFalling},
	}
}

// Condensation precursors. Humidity climbing or VPD collapsing points
// at mold before any level threshold trips, in every stage.
func moldHumidityRising(s Snapshot, p profile.Profile) ([]Observation, bool) {
	t := s.HumidityTrend
	if !t.OK {
		return nil, false
	}
	if t.Direction != TrendRising {
		return nil, true
	}
	return []Observation{obs(profile.VarHumidity, probMoldHumidityRising, "humidity rising")}, true
}

func moldVPDFalling(s Snapshot, p profile.Profile) ([]Observation, bool) {
	t := s.VPDTrend
	if !t.OK {
		return nil, false
	}
	if t.Direction != TrendFalling {
		return nil, true
	}
	return []Observation{obs(profile.VarVPD, probMoldVPDFalling, "vpd falling")}, true
}

func moldLateFlower(s Snapshot, p profile.Profile) ([]Observation, bool) {
	available := s.Humidity.OK || s.VPD.OK || s.Temperature.OK
	if !p.Key.LateFlower() {
		return nil, available
	}

	out := []Observation{obs(profile.VarHumidity, probMoldLateFlower, "late flower")}

	if s.Temperature.OK && s.Temperature.Value > 16 && s.Temperature.Value < 23 {
		out = append(out, obs(profile.VarTemperature, probMoldTempDangerZone,
			fmt.Sprintf("temp in mold danger zone (%.1f)", s.Temperature.Value)))
	}

	if p.Phase == profile.PhaseNight {
		out = append(out, obs(profile.VarHumidity, probMoldLightsOff, "lights off"))
		if s.Humidity.OK && s.Humidity.Value > 60 {
			out = append(out, obs(profile.VarHumidity, probMoldHumidityNight,
				fmt.Sprintf("night humidity high (%.0f%%)", s.Humidity.Value)))
		}
		if s.VPD.OK && s.VPD.Value < 0.8 {
			out = append(out, obs(profile.VarVPD, probMoldVPDLowNight,
				fmt.Sprintf("night vpd low (%.2f)", s.VPD.Value)))
		}
	} else {
		if s.Humidity.OK && s.Humidity.Value > 60 {
			out = append(out, obs(profile.VarHumidity, probMoldHumidityDay,
				fmt.Sprintf("day humidity high (%.0f%%)", s.Humidity.Value)))
		}
		if s.VPD.OK && s.VPD.Value < 0.9 {
			out = append(out, obs(profile.VarVPD, probMoldVPDLowDay,
				fmt.Sprintf("day vpd low (%.2f)", s.VPD.Value)))
		}
	}

	if s.FanOn.OK && !s.FanOn.On {
		out = append(out, obs(profile.VarFan, probMoldFanOff, "circulation fan off"))
	}
	if s.ExhaustLevel.OK && s.ExhaustLevel.Value < 7 {
		out = append(out, obs(profile.VarFan, probMoldStagnantAir,
			fmt.Sprintf("stagnant air (exhaust %.0f/10)", s.ExhaustLevel.Value)))
	}
	if s.HumidifierOn.OK && s.HumidifierOn.On {
		out = append(out, obs(profile.VarHumidity, probMoldHumidifierOn, "humidifier on in late flower"))
	}
	return out, available
}

func moldDehumIneffective(s Snapshot, p profile.Profile) ([]Observation, bool) {
	if !s.DehumidifierOn.OK || !s.Humidity.OK {
		return nil, s.Humidity.OK
	}
	if s.DehumidifierOn.On && s.Humidity.Value > 60 {
		return []Observation{obs(profile.VarHumidity, probMoldDehumFighting,
			fmt.Sprintf("dehumidifier ineffective (on, humidity %.0f%%)", s.Humidity.Value))}, true
	}
	return nil, true
}

// OptimalSources returns the evidence set for the optimal-conditions
// condition. Unlike the adverse conditions, every available reading
// contributes: being in range is itself evidence.
func OptimalSources() []Evidence {
	return []Evidence{
		evidenceFunc{profile.VarTemperature, optimalBand(profile.VarTemperature, probOutOfRange)},
		evidenceFunc{profile.VarVPD, optimalBand(profile.VarVPD, probVPDOutOfRange)},
		evidenceFunc{profile.VarCO2, optimalBand(profile.VarCO2, probOutOfRange)},
		evidenceFunc{profile.VarHumidity, optimalDehumFighting},
	}
}

// optimalBand grades a reading against its band: perfect inside the
// ideal range, good/acceptable across the tolerance band, adverse
// beyond it.
func optimalBand(v profile.Variable, adverse Pair) func(Snapshot, profile.Profile) ([]Observation, bool) {
	return func(s Snapshot, p profile.Profile) ([]Observation, bool) {
		r := readingFor(s, v)
		if !r.OK {
			return nil, false
		}
		band, _ := p.Band(v)
		d := band.Deviation(r.Value)
		switch {
		case d == 0:
			return []Observation{obs(v, probPerfect, "")}, true
		case d <= 0.5:
			return []Observation{obs(v, probGood, "")}, true
		case d <= 1:
			return []Observation{obs(v, probAcceptable, "")}, true
		default:
			return []Observation{obs(v, adverse,
				fmt.Sprintf("%s out of range (%.2f)", v, r.Value))}, true
		}
	}
}

func optimalDehumFighting(s Snapshot, p profile.Profile) ([]Observation, bool) {
	if !s.DehumidifierOn.OK {
		return nil, false
	}
	if s.DehumidifierOn.On {
		return []Observation{obs(profile.VarHumidity, Pair{0.4, 0.7},
			"system fighting (dehumidifier on)")}, true
	}
	return nil, true
}

// DryingSources returns the evidence set for optimal drying conditions.
func DryingSources() []Evidence {
	return cureWindowSources()
}

// CuringSources returns the evidence set for optimal curing conditions.
func CuringSources() []Evidence {
	return cureWindowSources()
}

func cureWindowSources() []Evidence {
	return []Evidence{
		evidenceFunc{profile.VarTemperature, cureWindow(profile.VarTemperature)},
		evidenceFunc{profile.VarHumidity, cureWindow(profile.VarHumidity)},
	}
}

func cureWindow(v profile.Variable) func(Snapshot, profile.Profile) ([]Observation, bool) {
	return func(s Snapshot, p profile.Profile) ([]Observation, bool) {
		r := readingFor(s, v)
		if !r.OK {
			return nil, false
		}
		band, _ := p.Band(v)
		if band.Contains(r.Value) {
			return []Observation{obs(v, probCureWindow, "")}, true
		}
		return []Observation{obs(v, probCureOutOfBand,
			fmt.Sprintf("%s out of range (%.2f)", v, r.Value))}, true
	}
}

func trendFor(s Snapshot, v profile.Variable) Trend {
	switch v {
	case profile.VarTemperature:
		return s.TemperatureTrend
	case profile.VarHumidity:
		return s.HumidityTrend
	case profile.VarVPD:
		return s.VPDTrend
	}
	return Trend{}
}

func readingFor(s Snapshot, v profile.Variable) Reading {
	switch v {
	case profile.VarTemperature:
		return s.Temperature
	case profile.VarHumidity:
		return s.Humidity
	case profile.VarVPD:
		return s.VPD
	case profile.VarCO2:
		return s.CO2
	}
	return Reading{}
}

// SourcesFor returns the evidence set for a condition.
func SourcesFor(c Condition) []Evidence {
	switch c {
	case ConditionStress:
		return StressSources()
	case ConditionMoldRisk:
		return MoldSources()
	case ConditionOptimal:
		return OptimalSources()
	case ConditionDrying:
		return DryingSources()
	case ConditionCuring:
		return CuringSources()
	}
	return nil
}
