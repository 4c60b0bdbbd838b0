package flow

import "math"

const (
	// SolarPeak bounds simulated production in kW.
	SolarPeak = 6.0
	// MinHome is the smallest simulated home load in kW.
	MinHome = 0.3
	// BatteryDischarge is the power the battery supplies while it covers the
	// load, in kW.
	BatteryDischarge = 0.8
)

// Source provides uniformly distributed values in [0,1). *rand.Rand
// satisfies it.
type Source interface {
	Float64() float64
}

// Tick derives the next demo reading from prev. It draws exactly two values
// from rnd, so a seeded source yields a reproducible sequence.
func Tick(prev Reading, rnd Source) Reading {
	next := Reading{
		Solar:   clamp(finite(prev.Solar)+(rnd.Float64()-0.5)*0.4, 0, SolarPeak),
		Home:    math.Max(MinHome, finite(prev.Home)+(rnd.Float64()-0.5)*0.3),
		Battery: finite(prev.Battery),
	}
	if next.Solar > next.Home {
		next.Battery += 1
	} else {
		next.Battery -= 0.5
	}
	next.Battery = clamp(next.Battery, 0, 100)

	discharge := 0.0
	if next.Battery > 0 && next.Solar < next.Home {
		discharge = BatteryDischarge
	}
	next.Grid = math.Max(0, next.Home-next.Solar-discharge)
	return next
}

func finite(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
