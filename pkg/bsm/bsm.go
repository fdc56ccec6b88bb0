// Package bsm builds Basic Safety Messages from a vehicle's recorded
// GPS trace, deriving instantaneous speed and heading between consecutive
// samples (spec.md §4.1).
package bsm

import (
	"math"

	"github.com/twardokus/v2verifier/internal/constants"
	"github.com/twardokus/v2verifier/pkg/wire"
)

// TraceSample is one row of a vehicle's recorded trace: latitude,
// longitude, and elevation, sampled every TraceSampleIntervalMillis.
type TraceSample struct {
	Latitude  float64
	Longitude float64
	Elevation float64
}

// earthRadiusMeters is the mean Earth radius used for the equirectangular
// distance approximation below.
const earthRadiusMeters = 6_371_000.0

// Generate produces the BSM for trace index t, given the full trace. At
// t == 0 there is no prior sample, so speed and heading report zero,
// matching the original simulator's first-message behavior.
func Generate(trace []TraceSample, t int) wire.BSM {
	sample := trace[t]

	if t == 0 {
		return wire.BSM{
			Latitude:       sample.Latitude,
			Longitude:      sample.Longitude,
			Elevation:      sample.Elevation,
			SpeedKPH:       0,
			HeadingDegrees: 0,
		}
	}

	prev := trace[t-1]
	return wire.BSM{
		Latitude:       sample.Latitude,
		Longitude:      sample.Longitude,
		Elevation:      sample.Elevation,
		SpeedKPH:       speedKPH(prev, sample, constants.TraceSampleIntervalMillis),
		HeadingDegrees: heading(prev, sample),
	}
}

// speedKPH estimates ground speed in km/h between two samples spaced
// intervalMillis apart, using an equirectangular distance approximation
// (adequate over the short hops between consecutive trace samples).
func speedKPH(prev, cur TraceSample, intervalMillis int) float64 {
	distanceMeters := equirectangularDistance(prev, cur)
	seconds := float64(intervalMillis) / 1000.0
	if seconds <= 0 {
		return 0
	}
	metersPerSecond := distanceMeters / seconds
	return metersPerSecond * 3.6
}

// heading computes the initial bearing from prev to cur, in degrees,
// normalized to [0, 360).
func heading(prev, cur TraceSample) float64 {
	lat1 := toRadians(prev.Latitude)
	lat2 := toRadians(cur.Latitude)
	deltaLon := toRadians(cur.Longitude - prev.Longitude)

	y := math.Sin(deltaLon) * math.Cos(lat2)
	x := math.Cos(lat1)*math.Sin(lat2) - math.Sin(lat1)*math.Cos(lat2)*math.Cos(deltaLon)

	bearing := math.Atan2(y, x)
	degrees := toDegrees(bearing)
	return math.Mod(degrees+360, 360)
}

func equirectangularDistance(a, b TraceSample) float64 {
	lat1 := toRadians(a.Latitude)
	lat2 := toRadians(b.Latitude)
	deltaLat := lat2 - lat1
	deltaLon := toRadians(b.Longitude - a.Longitude)

	x := deltaLon * math.Cos((lat1+lat2)/2)
	y := deltaLat

	return math.Sqrt(x*x+y*y) * earthRadiusMeters
}

func toRadians(degrees float64) float64 {
	return degrees * math.Pi / 180
}

func toDegrees(radians float64) float64 {
	return radians * 180 / math.Pi
}
