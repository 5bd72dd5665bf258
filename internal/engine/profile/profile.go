package profile

// Variable names a monitored environmental signal.
type Variable string

const (
	VarTemperature Variable = "temperature"
	VarHumidity    Variable = "humidity"
	VarVPD         Variable = "vpd"
	VarCO2         Variable = "co2"
	VarFan         Variable = "fan_state"
	VarExhaust     Variable = "exhaust_level"
)

// Band describes the expected range for one variable: an ideal range and
// a wider tolerance range. Readings inside the ideal range are perfect,
// readings outside the tolerance range are adverse, and readings between
// the two grade monotonically with distance.
type Band struct {
	IdealLow     float64
	IdealHigh    float64
	ToleranceLow float64
	ToleranceHigh float64
}

// Contains reports whether v falls inside the ideal range.
func (b Band) Contains(v float64) bool {
	return v >= b.IdealLow && v <= b.IdealHigh
}

// InTolerance reports whether v falls inside the tolerance range.
func (b Band) InTolerance(v float64) bool {
	return v >= b.ToleranceLow && v <= b.ToleranceHigh
}

// Deviation returns the normalized distance of v from the ideal range:
// 0 inside the ideal range, 1 at the tolerance edge, >1 beyond it.
// A zero-width gap between ideal and tolerance counts as fully deviated.
func (b Band) Deviation(v float64) float64 {
	switch {
	case b.Contains(v):
		return 0
	case v < b.IdealLow:
		span := b.IdealLow - b.ToleranceLow
		if span <= 0 {
			return 1
		}
		return (b.IdealLow - v) / span
	default:
		span := b.ToleranceHigh - b.IdealHigh
		if span <= 0 {
			return 1
		}
		return (v - b.IdealHigh) / span
	}
}

// Profile is the full set of expected bands for one (stage key, phase)
// combination, plus the expected daily light duration for the stage.
type Profile struct {
	Key   Key
	Phase Phase

	Temperature Band
	Humidity    Band
	VPD         Band
	CO2         Band

	// DayHours is the expected light-on duration per 24h cycle.
	// Zero means no light schedule applies (dry/cure).
	DayHours float64
}

// Band returns the band for a numeric variable. The second return is
// false for variables without a band (fan state).
func (p Profile) Band(v Variable) (Band, bool) {
	switch v {
	case VarTemperature:
		return p.Temperature, true
	case VarHumidity:
		return p.Humidity, true
	case VarVPD:
		return p.VPD, true
	case VarCO2:
		return p.CO2, true
	}
	return Band{}, false
}
