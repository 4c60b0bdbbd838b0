package backend

import (
	"math"

	"git.sr.ht/~whereswaldon/watt-wealth/flow"
)

// Mix is the share, in percent, each source contributes to the supply.
type Mix struct {
	Solar   float64 `json:"solar"`
	Grid    float64 `json:"grid"`
	Battery float64 `json:"battery"`
}

// EnergyMix splits the present supply between solar, grid and battery. The
// battery is assumed to cover whatever part of the home load solar and grid
// leave open. Shares add up to 100, or are all zero when nothing flows.
func EnergyMix(r flow.Reading) Mix {
	solar := nonNegative(r.Solar)
	grid := nonNegative(r.Grid)
	battery := nonNegative(nonNegative(r.Home) - solar - grid)
	total := solar + grid + battery
	if total == 0 || math.IsInf(total, 0) {
		return Mix{}
	}
	return Mix{
		Solar:   solar / total * 100,
		Grid:    grid / total * 100,
		Battery: battery / total * 100,
	}
}

func nonNegative(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	return v
}
