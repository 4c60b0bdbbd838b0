// Package flow turns instantaneous power readings into bounded visual
// intensities for the flow diagram.
package flow

import (
	"fmt"
	"math"
)

const (
	// HomeFloor is the smallest home load used as a denominator.
	HomeFloor = 0.12
	// MinOpacity keeps an idle flow line visible.
	MinOpacity = 0.3
)

// Reading is one snapshot of the power flowing through the installation.
// Solar, Grid and Home are in kW, Battery is the state of charge in percent.
type Reading struct {
	Solar   float64 `json:"solar" yaml:"solar"`
	Battery float64 `json:"battery" yaml:"battery"`
	Grid    float64 `json:"grid" yaml:"grid"`
	Home    float64 `json:"home" yaml:"home"`
}

type Channel uint8

const (
	Solar Channel = iota
	Battery
	Grid
)

func (c Channel) String() string {
	switch c {
	case Solar:
		return "solar"
	case Battery:
		return "battery"
	case Grid:
		return "grid"
	default:
		return "unknown"
	}
}

// MarshalText lets channels appear by name in JSON documents.
func (c Channel) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

func (c *Channel) UnmarshalText(b []byte) error {
	switch string(b) {
	case "solar":
		*c = Solar
	case "battery":
		*c = Battery
	case "grid":
		*c = Grid
	default:
		return fmt.Errorf("unknown channel %q", b)
	}
	return nil
}

// Intensity is the visual strength of one channel. Magnitude is in [0,1] and
// Opacity in [MinOpacity,1].
type Intensity struct {
	Channel   Channel `json:"channel"`
	Magnitude float64 `json:"magnitude"`
	Opacity   float64 `json:"opacity"`
}

type Intensities struct {
	Solar   Intensity `json:"solar"`
	Battery Intensity `json:"battery"`
	Grid    Intensity `json:"grid"`
}

// For returns the intensity of the given channel.
func (is Intensities) For(c Channel) Intensity {
	switch c {
	case Battery:
		return is.Battery
	case Grid:
		return is.Grid
	default:
		return is.Solar
	}
}

// Normalize maps a reading onto intensities. Solar and grid are expressed as
// the share of the current home load they cover, battery as its charge level.
// Out of range and non-finite inputs are clamped, never rejected.
func Normalize(r Reading) Intensities {
	home := r.Home
	if !(home >= HomeFloor) {
		home = HomeFloor
	}
	return Intensities{
		Solar:   intensity(Solar, r.Solar/home),
		Battery: intensity(Battery, r.Battery/100),
		Grid:    intensity(Grid, r.Grid/home),
	}
}

func intensity(c Channel, ratio float64) Intensity {
	m := clampUnit(ratio)
	return Intensity{
		Channel:   c,
		Magnitude: m,
		Opacity:   math.Min(1, MinOpacity+m*(1-MinOpacity)),
	}
}

func clampUnit(v float64) float64 {
	if math.IsNaN(v) || v <= 0 {
		return 0
	}
	return math.Min(1, v)
}
