package engine

import "math"

// DeriveVPD computes vapor-pressure deficit in kPa from temperature
// (°C) and relative humidity (%), using the Tetens approximation for
// saturation vapor pressure. Used when no dedicated VPD sensor is
// bound but temperature and humidity are both available.
func DeriveVPD(tempC, relHumidity float64) float64 {
	svp := 0.6108 * math.Exp(17.27*tempC/(tempC+237.3))
	vpd := svp * (1 - relHumidity/100)
	if vpd < 0 {
		return 0
	}
	return vpd
}
