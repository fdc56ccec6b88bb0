package bsm

import (
	"math"
	"testing"
)

func TestGenerateFirstSampleIsStationary(t *testing.T) {
	trace := []TraceSample{
		{Latitude: 37.4220, Longitude: -122.0841, Elevation: 10},
		{Latitude: 37.4230, Longitude: -122.0851, Elevation: 11},
	}

	got := Generate(trace, 0)
	if got.SpeedKPH != 0 {
		t.Errorf("SpeedKPH at t=0 = %v, want 0", got.SpeedKPH)
	}
	if got.HeadingDegrees != 0 {
		t.Errorf("HeadingDegrees at t=0 = %v, want 0", got.HeadingDegrees)
	}
	if got.Latitude != trace[0].Latitude || got.Longitude != trace[0].Longitude {
		t.Error("position should match the trace sample")
	}
}

func TestGenerateSubsequentSampleHasMotion(t *testing.T) {
	trace := []TraceSample{
		{Latitude: 37.4220, Longitude: -122.0841, Elevation: 10},
		{Latitude: 37.4230, Longitude: -122.0841, Elevation: 10},
	}

	got := Generate(trace, 1)
	if got.SpeedKPH <= 0 {
		t.Errorf("SpeedKPH = %v, want > 0 for a moving vehicle", got.SpeedKPH)
	}
	if got.HeadingDegrees < 0 || got.HeadingDegrees >= 360 {
		t.Errorf("HeadingDegrees = %v, want in [0, 360)", got.HeadingDegrees)
	}
}

func TestHeadingNorthSouth(t *testing.T) {
	// Moving due north should report a heading near 0 degrees.
	north := heading(
		TraceSample{Latitude: 37.0, Longitude: -122.0},
		TraceSample{Latitude: 37.01, Longitude: -122.0},
	)
	if math.Abs(north-0) > 1 {
		t.Errorf("heading due north = %v, want ~0", north)
	}

	// Moving due south should report a heading near 180 degrees.
	south := heading(
		TraceSample{Latitude: 37.01, Longitude: -122.0},
		TraceSample{Latitude: 37.0, Longitude: -122.0},
	)
	if math.Abs(south-180) > 1 {
		t.Errorf("heading due south = %v, want ~180", south)
	}
}

func TestHeadingStaysInRange(t *testing.T) {
	samples := []struct{ prev, cur TraceSample }{
		{TraceSample{Latitude: 37.0, Longitude: -122.0}, TraceSample{Latitude: 36.99, Longitude: -121.99}},
		{TraceSample{Latitude: 37.0, Longitude: -122.0}, TraceSample{Latitude: 37.0, Longitude: -122.01}},
	}
	for _, s := range samples {
		h := heading(s.prev, s.cur)
		if h < 0 || h >= 360 {
			t.Errorf("heading(%v, %v) = %v, want in [0, 360)", s.prev, s.cur, h)
		}
	}
}

func TestSpeedKPHStationary(t *testing.T) {
	s := TraceSample{Latitude: 37.0, Longitude: -122.0}
	if got := speedKPH(s, s, 100); got != 0 {
		t.Errorf("speedKPH for identical samples = %v, want 0", got)
	}
}
