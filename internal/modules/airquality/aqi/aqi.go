// Package aqi converts particulate concentrations (µg/m³) to the US EPA Air Quality Index.
package aqi

import "math"

type breakpoint struct {
	cLow, cHigh float64
	iLow, iHigh float64
}

var pm25Breakpoints = []breakpoint{
	{0.0, 12.0, 0, 50},
	{12.1, 35.4, 51, 100},
	{35.5, 55.4, 101, 150},
	{55.5, 150.4, 151, 200},
	{150.5, 250.4, 201, 300},
	{250.5, 350.4, 301, 400},
	{350.5, 500.4, 401, 500},
}

var pm10Breakpoints = []breakpoint{
	{0, 54, 0, 50},
	{55, 154, 51, 100},
	{155, 254, 101, 150},
	{255, 354, 151, 200},
	{355, 424, 201, 300},
	{425, 504, 301, 400},
	{505, 604, 401, 500},
}

// Max is reported for concentrations beyond the last breakpoint.
const Max = 500

// PM25 returns the AQI for a PM2.5 concentration. ok is false for NaN.
func PM25(c float64) (int, bool) {
	return index(pm25Breakpoints, c)
}

// PM10 returns the AQI for a PM10 concentration. ok is false for NaN.
func PM10(c float64) (int, bool) {
	return index(pm10Breakpoints, c)
}

// Combined is the larger of the PM2.5 and PM10 indexes, ignoring nil inputs.
func Combined(pm25, pm10 *float64) (int, bool) {
	best, found := 0, false
	if pm25 != nil {
		if v, ok := PM25(*pm25); ok {
			best, found = v, true
		}
	}
	if pm10 != nil {
		if v, ok := PM10(*pm10); ok && (!found || v > best) {
			best, found = v, true
		}
	}
	return best, found
}

func index(table []breakpoint, c float64) (int, bool) {
	if math.IsNaN(c) {
		return 0, false
	}
	if c < 0 {
		return 0, true
	}
	for _, b := range table {
		if c <= b.cHigh {
			// values in the gap between two bands start the upper band
			c = math.Max(c, b.cLow)
			i := (b.iHigh-b.iLow)/(b.cHigh-b.cLow)*(c-b.cLow) + b.iLow
			return int(math.Round(i)), true
		}
	}
	return Max, true
}

// Category is the EPA category name for an AQI value.
func Category(aqi int) string {
	switch {
	case aqi <= 50:
		return "Good"
	case aqi <= 100:
		return "Moderate"
	case aqi <= 150:
		return "Unhealthy for Sensitive Groups"
	case aqi <= 200:
		return "Unhealthy"
	case aqi <= 300:
		return "Very Unhealthy"
	default:
		return "Hazardous"
	}
}

// Color is the EPA display colour for an AQI value.
func Color(aqi int) string {
	switch {
	case aqi <= 50:
		return "#00e400"
	case aqi <= 100:
		return "#ffff00"
	case aqi <= 150:
		return "#ff7e00"
	case aqi <= 200:
		return "#ff0000"
	case aqi <= 300:
		return "#99004c"
	default:
		return "#7e0023"
	}
}
