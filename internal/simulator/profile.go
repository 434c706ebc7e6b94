package simulator

import (
	"time"

	"carmonitor/internal/domain"
)

// Driving profile bands. Values oscillate between the band bounds and are
// then clamped to the physical range.
const (
	speedBandMin = 60
	speedBandMax = 120
	speedStep    = 3
	speedFloor   = 0
	speedCeil    = 170

	tempBandMin = 80
	tempBandMax = 120
	tempStep    = 2
	tempFloor   = -5
	tempCeil    = 130

	fuelFull     = 100
	fuelEmpty    = 0
	fuelDrainMin = 1
	fuelDrainMax = 2

	baselineSpeed       = 0
	baselineFuel        = fuelFull
	baselineTemperature = 30
)

// Rand is the randomness the profile needs. *rand.Rand from math/rand/v2 satisfies it.
type Rand interface {
	IntN(n int) int
}

// ProfileState is the per-vehicle smoothing state carried between ticks.
type ProfileState struct {
	SpeedDir         int
	TempDir          int
	FuelResetPending bool
}

// NewProfileState returns the state for a vehicle starting from baseline.
// Both directions start downward so the first step snaps into the band.
func NewProfileState() *ProfileState {
	return &ProfileState{SpeedDir: -1, TempDir: -1}
}

// Baseline is the sample a vehicle starts from on a new trip.
func Baseline(rng Rand, now time.Time) domain.TelemetrySample {
	return domain.TelemetrySample{
		Speed:       baselineSpeed,
		FuelLevel:   baselineFuel,
		Temperature: baselineTemperature,
		Location:    domain.Waypoints[rng.IntN(len(domain.Waypoints))],
		Timestamp:   now,
	}
}

// Advance derives the next sample from prev, updating st in place.
// Vehicle and trip attribution are left to the caller.
func Advance(prev domain.TelemetrySample, st *ProfileState, rng Rand, now time.Time) domain.TelemetrySample {
	var speed, temp int
	speed, st.SpeedDir = oscillate(prev.Speed, st.SpeedDir, speedStep, speedBandMin, speedBandMax)
	speed = clamp(speed, speedFloor, speedCeil)

	temp, st.TempDir = oscillate(prev.Temperature, st.TempDir, tempStep, tempBandMin, tempBandMax)
	temp = clamp(temp, tempFloor, tempCeil)

	var fuel int
	if st.FuelResetPending {
		fuel = fuelFull
		st.FuelResetPending = false
	} else {
		drain := fuelDrainMin + rng.IntN(fuelDrainMax-fuelDrainMin+1)
		fuel = clamp(prev.FuelLevel-drain, fuelEmpty, fuelFull)
		if fuel == fuelEmpty {
			st.FuelResetPending = true
		}
	}

	return domain.TelemetrySample{
		Speed:       speed,
		FuelLevel:   fuel,
		Temperature: temp,
		Location:    NextWaypoint(prev.Location),
		Timestamp:   now,
	}
}

// oscillate moves v one step in dir. Reaching or crossing a band bound in the
// direction of travel snaps to the bound and reverses direction.
func oscillate(v, dir, step, lo, hi int) (int, int) {
	if dir > 0 {
		next := v + step
		if next >= hi {
			return hi, -1
		}
		return next, dir
	}

	next := v - step
	if next <= lo {
		return lo, 1
	}
	return next, dir
}

// NextWaypoint returns the waypoint after current, wrapping around.
// An unknown location counts as the first waypoint.
func NextWaypoint(current string) string {
	idx := domain.WaypointIndex(current)
	if idx < 0 {
		idx = 0
	}
	return domain.Waypoints[(idx+1)%len(domain.Waypoints)]
}

func clamp(v, lo, hi int) int {
	return max(lo, min(hi, v))
}
